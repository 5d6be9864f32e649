// internal/driver/driver.go
package driver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goburrow/modbus"

	"github.com/tamzrod/modbus-gateway/internal/request"
	"github.com/tamzrod/modbus-gateway/internal/variable"
)

// Coil and register limits of one Modbus PDU.
const (
	MaxReadBits       = 2000
	MaxReadRegisters  = 125
	MaxWriteBits      = 1968
	MaxWriteRegisters = 123
)

var (
	ErrUnsupportedFC = errors.New("driver: unsupported function code")
	ErrQuantity      = errors.New("driver: quantity out of range")
	ErrShortResponse = errors.New("driver: short response")
)

// ExceptionError is a Modbus exception reported by the device.
type ExceptionError struct {
	FunctionCode  variable.FunctionCode
	ExceptionCode uint8
}

func (e *ExceptionError) Error() string {
	return fmt.Sprintf("driver: device exception fc=%d code=%d", e.FunctionCode, e.ExceptionCode)
}

// Code exposes the exception code to status tracking.
func (e *ExceptionError) Code() uint16 { return uint16(e.ExceptionCode) }

// deviceError converts goburrow exceptions into ExceptionError.
func deviceError(fc variable.FunctionCode, err error) error {
	var me *modbus.ModbusError
	if errors.As(err, &me) {
		return &ExceptionError{FunctionCode: fc, ExceptionCode: me.ExceptionCode}
	}
	return err
}

// registerClient is the subset of modbus.Client the driver uses.
type registerClient interface {
	ReadCoils(address, quantity uint16) ([]byte, error)
	ReadDiscreteInputs(address, quantity uint16) ([]byte, error)
	ReadHoldingRegisters(address, quantity uint16) ([]byte, error)
	ReadInputRegisters(address, quantity uint16) ([]byte, error)
	WriteMultipleCoils(address, quantity uint16, value []byte) ([]byte, error)
	WriteMultipleRegisters(address, quantity uint16, value []byte) ([]byte, error)
}

// Driver builds request actions over one Modbus connection.
// It serializes transactions because the unit id is handler state.
type Driver struct {
	mu      sync.Mutex
	client  registerClient
	setUnit func(uint8)
	closer  func() error
}

var _ request.Driver = (*Driver)(nil)

// New wraps an existing client. setUnit is called with the target unit id
// before every transaction.
func New(client registerClient, setUnit func(uint8)) *Driver {
	if setUnit == nil {
		setUnit = func(uint8) {}
	}
	return &Driver{client: client, setUnit: setUnit}
}

// Close releases the underlying transport.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closer == nil {
		return nil
	}
	return d.closer()
}

// ---- request.Driver ----

func (d *Driver) CreateGetDataAction(fc variable.FunctionCode, offset uint16, length int, unitID uint8) (request.Action, error) {
	limit := MaxReadRegisters
	switch fc {
	case variable.ReadCoils, variable.ReadDiscreteInputs:
		limit = MaxReadBits
	case variable.ReadHoldingRegisters, variable.ReadInputRegisters:
	default:
		return nil, fmt.Errorf("%w: fc=%d is not a read", ErrUnsupportedFC, fc)
	}
	if length < 1 || length > limit {
		return nil, fmt.Errorf("%w: fc=%d qty=%d", ErrQuantity, fc, length)
	}

	return &action{
		d:      d,
		fc:     fc,
		unitID: unitID,
		offset: offset,
		qty:    uint16(length),
	}, nil
}

func (d *Driver) CreateSetDataAction(fc variable.FunctionCode, offset uint16, words []uint16, unitID uint8) (request.Action, error) {
	limit := MaxWriteRegisters
	switch fc {
	case variable.WriteMultipleCoils:
		limit = MaxWriteBits
	case variable.WriteMultipleRegisters:
	default:
		return nil, fmt.Errorf("%w: fc=%d is not a write", ErrUnsupportedFC, fc)
	}
	if len(words) < 1 || len(words) > limit {
		return nil, fmt.Errorf("%w: fc=%d qty=%d", ErrQuantity, fc, len(words))
	}

	payload := make([]uint16, len(words))
	copy(payload, words)

	return &action{
		d:      d,
		fc:     fc,
		unitID: unitID,
		offset: offset,
		qty:    uint16(len(words)),
		words:  payload,
	}, nil
}

// ---- action ----

type action struct {
	d      *Driver
	fc     variable.FunctionCode
	unitID uint8
	offset uint16
	qty    uint16
	words  []uint16 // writes only
}

func (a *action) String() string {
	return fmt.Sprintf("fc=%d unit=%d offset=%d qty=%d", a.fc, a.unitID, a.offset, a.qty)
}

// Execute runs the transaction. The context is checked before the transport
// is taken; the transport's own timeout bounds the exchange.
func (a *action) Execute(ctx context.Context) ([]uint16, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.d.mu.Lock()
	defer a.d.mu.Unlock()

	a.d.setUnit(a.unitID)

	words, err := a.exchange(a.d.client)
	if err != nil {
		return nil, deviceError(a.fc, err)
	}
	return words, nil
}

func (a *action) exchange(c registerClient) ([]uint16, error) {
	switch a.fc {
	case variable.ReadCoils:
		p, err := c.ReadCoils(a.offset, a.qty)
		if err != nil {
			return nil, err
		}
		return unpackBits(p, int(a.qty))

	case variable.ReadDiscreteInputs:
		p, err := c.ReadDiscreteInputs(a.offset, a.qty)
		if err != nil {
			return nil, err
		}
		return unpackBits(p, int(a.qty))

	case variable.ReadHoldingRegisters:
		p, err := c.ReadHoldingRegisters(a.offset, a.qty)
		if err != nil {
			return nil, err
		}
		return unpackRegisters(p, int(a.qty))

	case variable.ReadInputRegisters:
		p, err := c.ReadInputRegisters(a.offset, a.qty)
		if err != nil {
			return nil, err
		}
		return unpackRegisters(p, int(a.qty))

	case variable.WriteMultipleCoils:
		_, err := c.WriteMultipleCoils(a.offset, a.qty, packBits(a.words))
		return nil, err

	case variable.WriteMultipleRegisters:
		_, err := c.WriteMultipleRegisters(a.offset, a.qty, packRegisters(a.words))
		return nil, err
	}

	return nil, fmt.Errorf("%w: fc=%d", ErrUnsupportedFC, a.fc)
}

// ---- helpers (pure geometry) ----

// unpackBits expands packed coil states into one word per coil (0 or 1).
func unpackBits(data []byte, count int) ([]uint16, error) {
	if len(data) < (count+7)/8 {
		return nil, fmt.Errorf("%w: %d bytes for %d bits", ErrShortResponse, len(data), count)
	}
	out := make([]uint16, count)
	for i := 0; i < count; i++ {
		if data[i/8]&(1<<uint(i%8)) != 0 {
			out[i] = 1
		}
	}
	return out, nil
}

func unpackRegisters(data []byte, count int) ([]uint16, error) {
	if len(data) < 2*count {
		return nil, fmt.Errorf("%w: %d bytes for %d registers", ErrShortResponse, len(data), count)
	}
	out := make([]uint16, count)
	for i := 0; i < count; i++ {
		out[i] = uint16(data[2*i])<<8 | uint16(data[2*i+1])
	}
	return out, nil
}

// packBits packs one coil per word; any non-zero word turns the coil on.
func packBits(words []uint16) []byte {
	out := make([]byte, (len(words)+7)/8)
	for i, w := range words {
		if w != 0 {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out
}

func packRegisters(regs []uint16) []byte {
	out := make([]byte, len(regs)*2)
	for i, r := range regs {
		out[2*i] = byte(r >> 8)
		out[2*i+1] = byte(r)
	}
	return out
}

// ---- transports ----

// TCPConfig is minimal Modbus TCP transport config.
type TCPConfig struct {
	Endpoint string
	Timeout  time.Duration
}

// DialTCP connects a Modbus TCP handler and wraps it.
func DialTCP(cfg TCPConfig) (*Driver, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("driver: endpoint required")
	}

	h := modbus.NewTCPClientHandler(cfg.Endpoint)
	h.Timeout = cfg.Timeout

	if err := h.Connect(); err != nil {
		return nil, fmt.Errorf("driver: connect %s: %w", cfg.Endpoint, err)
	}

	d := New(modbus.NewClient(h), func(id uint8) { h.SlaveId = id })
	d.closer = h.Close
	return d, nil
}

// RTUConfig is minimal Modbus RTU transport config.
type RTUConfig struct {
	Device   string
	BaudRate int
	DataBits int
	Parity   string
	StopBits int
	Timeout  time.Duration
}

// DialRTU opens a serial Modbus RTU handler and wraps it.
func DialRTU(cfg RTUConfig) (*Driver, error) {
	if cfg.Device == "" {
		return nil, errors.New("driver: serial device required")
	}

	h := modbus.NewRTUClientHandler(cfg.Device)
	h.BaudRate = cfg.BaudRate
	h.DataBits = cfg.DataBits
	h.Parity = cfg.Parity
	h.StopBits = cfg.StopBits
	h.Timeout = cfg.Timeout

	if err := h.Connect(); err != nil {
		return nil, fmt.Errorf("driver: open %s: %w", cfg.Device, err)
	}

	d := New(modbus.NewClient(h), func(id uint8) { h.SlaveId = id })
	d.closer = h.Close
	return d, nil
}
