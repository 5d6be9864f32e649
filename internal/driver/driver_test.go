// internal/driver/driver_test.go
package driver

import (
	"context"
	"errors"
	"testing"

	"github.com/goburrow/modbus"
	"gotest.tools/v3/assert"

	"github.com/tamzrod/modbus-gateway/internal/variable"
)

type call struct {
	Op    string
	Unit  uint8
	Addr  uint16
	Qty   uint16
	Value []byte
}

type fakeClient struct {
	unit  uint8
	calls []call
	resp  []byte
	err   error
}

func (c *fakeClient) record(op string, addr, qty uint16, value []byte) ([]byte, error) {
	c.calls = append(c.calls, call{Op: op, Unit: c.unit, Addr: addr, Qty: qty, Value: value})
	return c.resp, c.err
}

func (c *fakeClient) ReadCoils(a, q uint16) ([]byte, error) { return c.record("coils", a, q, nil) }
func (c *fakeClient) ReadDiscreteInputs(a, q uint16) ([]byte, error) {
	return c.record("discrete", a, q, nil)
}
func (c *fakeClient) ReadHoldingRegisters(a, q uint16) ([]byte, error) {
	return c.record("holding", a, q, nil)
}
func (c *fakeClient) ReadInputRegisters(a, q uint16) ([]byte, error) {
	return c.record("input", a, q, nil)
}
func (c *fakeClient) WriteMultipleCoils(a, q uint16, v []byte) ([]byte, error) {
	return c.record("write-coils", a, q, v)
}
func (c *fakeClient) WriteMultipleRegisters(a, q uint16, v []byte) ([]byte, error) {
	return c.record("write-registers", a, q, v)
}

func newFake() (*fakeClient, *Driver) {
	c := &fakeClient{}
	return c, New(c, func(id uint8) { c.unit = id })
}

func TestReadHoldingRegisters(t *testing.T) {
	c, d := newFake()
	c.resp = []byte{0x04, 0xD2, 0x16, 0x2E}

	a, err := d.CreateGetDataAction(variable.ReadHoldingRegisters, 10, 2, 7)
	assert.NilError(t, err)

	words, err := a.Execute(context.Background())
	assert.NilError(t, err)
	assert.DeepEqual(t, words, []uint16{1234, 5678})
	assert.DeepEqual(t, c.calls, []call{{Op: "holding", Unit: 7, Addr: 10, Qty: 2}})
}

func TestReadCoilsUnpacksBits(t *testing.T) {
	c, d := newFake()
	c.resp = []byte{0b0000_0101, 0b0000_0001}

	a, err := d.CreateGetDataAction(variable.ReadCoils, 0, 9, 1)
	assert.NilError(t, err)

	words, err := a.Execute(context.Background())
	assert.NilError(t, err)
	assert.DeepEqual(t, words, []uint16{1, 0, 1, 0, 0, 0, 0, 0, 1})
}

func TestReadShortResponse(t *testing.T) {
	c, d := newFake()
	c.resp = []byte{0x00}

	a, err := d.CreateGetDataAction(variable.ReadInputRegisters, 0, 2, 1)
	assert.NilError(t, err)

	_, err = a.Execute(context.Background())
	assert.Assert(t, errors.Is(err, ErrShortResponse))
}

func TestWriteRegistersPacksBigEndian(t *testing.T) {
	c, d := newFake()

	words := []uint16{0xFFFF, 0x04D2}
	a, err := d.CreateSetDataAction(variable.WriteMultipleRegisters, 20, words, 3)
	assert.NilError(t, err)
	words[0] = 0 // action owns its copy

	_, err = a.Execute(context.Background())
	assert.NilError(t, err)
	assert.DeepEqual(t, c.calls, []call{{
		Op: "write-registers", Unit: 3, Addr: 20, Qty: 2,
		Value: []byte{0xFF, 0xFF, 0x04, 0xD2},
	}})
}

func TestWriteCoilsNonZeroIsOn(t *testing.T) {
	c, d := newFake()

	a, err := d.CreateSetDataAction(variable.WriteMultipleCoils, 0, []uint16{1, 0, 7, 0, 0, 0, 0, 0, 1}, 2)
	assert.NilError(t, err)

	_, err = a.Execute(context.Background())
	assert.NilError(t, err)
	assert.DeepEqual(t, c.calls[0].Value, []byte{0b0000_0101, 0b0000_0001})
	assert.Equal(t, c.calls[0].Qty, uint16(9))
}

func TestUnitSetPerTransaction(t *testing.T) {
	c, d := newFake()
	c.resp = []byte{0, 1}

	a1, err := d.CreateGetDataAction(variable.ReadHoldingRegisters, 0, 1, 1)
	assert.NilError(t, err)
	a2, err := d.CreateGetDataAction(variable.ReadHoldingRegisters, 0, 1, 2)
	assert.NilError(t, err)

	_, err = a2.Execute(context.Background())
	assert.NilError(t, err)
	_, err = a1.Execute(context.Background())
	assert.NilError(t, err)

	assert.Equal(t, c.calls[0].Unit, uint8(2))
	assert.Equal(t, c.calls[1].Unit, uint8(1))
}

func TestActionErrors(t *testing.T) {
	_, d := newFake()

	_, err := d.CreateGetDataAction(variable.WriteMultipleRegisters, 0, 1, 1)
	assert.Assert(t, errors.Is(err, ErrUnsupportedFC))

	_, err = d.CreateSetDataAction(variable.ReadHoldingRegisters, 0, []uint16{1}, 1)
	assert.Assert(t, errors.Is(err, ErrUnsupportedFC))

	_, err = d.CreateGetDataAction(variable.ReadHoldingRegisters, 0, MaxReadRegisters+1, 1)
	assert.Assert(t, errors.Is(err, ErrQuantity))

	_, err = d.CreateGetDataAction(variable.ReadCoils, 0, 0, 1)
	assert.Assert(t, errors.Is(err, ErrQuantity))

	_, err = d.CreateSetDataAction(variable.WriteMultipleRegisters, 0, nil, 1)
	assert.Assert(t, errors.Is(err, ErrQuantity))
}

func TestExecuteHonorsCanceledContext(t *testing.T) {
	c, d := newFake()
	a, err := d.CreateGetDataAction(variable.ReadHoldingRegisters, 0, 1, 1)
	assert.NilError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = a.Execute(ctx)
	assert.Assert(t, errors.Is(err, context.Canceled))
	assert.Equal(t, len(c.calls), 0)
}

func TestTransportErrorPassesThrough(t *testing.T) {
	c, d := newFake()
	c.err = errors.New("connection reset")

	a, err := d.CreateGetDataAction(variable.ReadInputRegisters, 0, 1, 1)
	assert.NilError(t, err)

	_, err = a.Execute(context.Background())
	assert.ErrorContains(t, err, "connection reset")
}

func TestDeviceExceptionExposesCode(t *testing.T) {
	c, d := newFake()
	c.err = &modbus.ModbusError{FunctionCode: 3, ExceptionCode: modbus.ExceptionCodeIllegalDataAddress}

	a, err := d.CreateGetDataAction(variable.ReadHoldingRegisters, 9000, 1, 1)
	assert.NilError(t, err)

	_, err = a.Execute(context.Background())

	var ex *ExceptionError
	assert.Assert(t, errors.As(err, &ex))
	assert.Equal(t, ex.Code(), uint16(2))
	assert.Equal(t, ex.FunctionCode, variable.ReadHoldingRegisters)
}

func TestDialRequiresEndpoint(t *testing.T) {
	_, err := DialTCP(TCPConfig{})
	assert.ErrorContains(t, err, "endpoint required")

	_, err = DialRTU(RTUConfig{})
	assert.ErrorContains(t, err, "serial device required")
}
