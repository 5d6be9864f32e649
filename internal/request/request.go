// internal/request/request.go
package request

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/tamzrod/modbus-gateway/internal/variable"
)

// DefaultMaxLength is the word budget of a request when none is configured.
const DefaultMaxLength = 100

var (
	ErrMissingDriver   = errors.New("request: driver required")
	ErrCannotAbsorb    = errors.New("request: cannot absorb variable")
	ErrEmptyPayload    = errors.New("request: write request has no data")
	ErrMissingResponse = errors.New("request: response missing")
	ErrLengthMismatch  = errors.New("request: response length mismatch")
)

// Action is one executable transport operation built by a Driver.
// Read actions return the response words; write actions return nil.
type Action interface {
	Execute(ctx context.Context) ([]uint16, error)
}

// Driver turns request geometry into executable actions.
type Driver interface {
	CreateGetDataAction(fc variable.FunctionCode, offset uint16, length int, unitID uint8) (Action, error)
	CreateSetDataAction(fc variable.FunctionCode, offset uint16, words []uint16, unitID uint8) (Action, error)
}

// Config is the construction input of a Request.
type Config struct {
	FunctionCode variable.FunctionCode
	UnitID       *uint8
	MaxLength    int // words; <= 0 => DefaultMaxLength
}

type binding struct {
	v      *variable.Variable
	offset int // relative to the request offset
	length int
}

// Request is one physical Modbus transaction over a gap-free register range.
// It is owned by a single poll cycle and must not be shared.
type Request struct {
	driver    Driver
	fc        variable.FunctionCode
	unitID    uint8
	isWrite   bool
	maxLength int

	started  bool
	offset   uint16
	length   int
	bindings []binding
	bound    map[uuid.UUID]struct{}

	dataToSend []uint16
	action     Action
}

// New creates an empty request.
func New(driver Driver, cfg Config) (*Request, error) {
	if driver == nil {
		return nil, ErrMissingDriver
	}
	if !cfg.FunctionCode.Valid() {
		return nil, fmt.Errorf("request: fc=%d: %w", cfg.FunctionCode, variable.ErrInvalidFunctionCode)
	}
	if cfg.UnitID == nil {
		return nil, fmt.Errorf("request: %w", variable.ErrMissingUnitID)
	}

	maxLen := cfg.MaxLength
	if maxLen <= 0 {
		maxLen = DefaultMaxLength
	}

	return &Request{
		driver:    driver,
		fc:        cfg.FunctionCode,
		unitID:    *cfg.UnitID,
		isWrite:   cfg.FunctionCode.IsWrite(),
		maxLength: maxLen,
		bound:     make(map[uuid.UUID]struct{}),
	}, nil
}

func (r *Request) FunctionCode() variable.FunctionCode { return r.fc }
func (r *Request) UnitID() uint8                       { return r.unitID }
func (r *Request) IsWrite() bool                       { return r.isWrite }
func (r *Request) Offset() uint16                      { return r.offset }
func (r *Request) Len() int                            { return r.length }
func (r *Request) MaxLength() int                      { return r.maxLength }
func (r *Request) Action() Action                      { return r.action }

// Empty reports whether no variable has been absorbed yet.
func (r *Request) Empty() bool { return !r.started }

// Variables returns the bound variables in absorption order.
func (r *Request) Variables() []*variable.Variable {
	out := make([]*variable.Variable, len(r.bindings))
	for i, b := range r.bindings {
		out[i] = b.v
	}
	return out
}

// DataToSend returns a copy of the write payload.
func (r *Request) DataToSend() []uint16 {
	out := make([]uint16, len(r.dataToSend))
	copy(out, r.dataToSend)
	return out
}

// CanAbsorb reports whether v would extend this request contiguously.
// Function code equality is the caller's precondition and is not checked.
func (r *Request) CanAbsorb(v *variable.Variable) bool {
	if v == nil {
		return false
	}
	if !r.started {
		return true
	}
	if v.UnitID() != r.unitID {
		return false
	}
	if _, dup := r.bound[v.ID()]; dup {
		return false
	}
	if r.length+v.Length() > r.maxLength {
		return false
	}
	return int(r.offset)+r.length == int(v.Offset())
}

// Absorb binds v and rebuilds the payload and action. On error the request is
// left as it was.
func (r *Request) Absorb(v *variable.Variable) error {
	if !r.CanAbsorb(v) {
		if v == nil {
			return fmt.Errorf("%w: nil variable", ErrCannotAbsorb)
		}
		return fmt.Errorf("%w: %s into unit=%d offset=%d len=%d", ErrCannotAbsorb, v, r.unitID, r.offset, r.length)
	}

	next := *r
	if !next.started {
		next.started = true
		next.offset = v.Offset()
	}

	next.bindings = make([]binding, len(r.bindings), len(r.bindings)+1)
	copy(next.bindings, r.bindings)
	next.bindings = append(next.bindings, binding{
		v:      v,
		offset: int(v.Offset()) - int(next.offset),
		length: v.Length(),
	})
	next.length = r.length + v.Length()

	if next.isWrite {
		data, err := next.encodeBindings()
		if err != nil {
			return err
		}
		next.dataToSend = data
	}

	action, err := next.BuildAction()
	if err != nil {
		return err
	}
	next.action = action

	// commit
	r.bound[v.ID()] = struct{}{}
	next.bound = r.bound
	*r = next
	return nil
}

func (r *Request) encodeBindings() ([]uint16, error) {
	data := make([]uint16, 0, r.length)
	for _, b := range r.bindings {
		words, err := b.v.Encode()
		if err != nil {
			return nil, err
		}
		data = append(data, words...)
	}
	return data, nil
}

// BuildAction asks the driver for the action matching the current geometry.
func (r *Request) BuildAction() (Action, error) {
	if r.isWrite {
		if len(r.dataToSend) == 0 {
			return nil, ErrEmptyPayload
		}
		payload := make([]uint16, len(r.dataToSend))
		copy(payload, r.dataToSend)
		a, err := r.driver.CreateSetDataAction(r.fc, r.offset, payload, r.unitID)
		if err != nil {
			return nil, fmt.Errorf("request: build write action fc=%d offset=%d: %w", r.fc, r.offset, err)
		}
		return a, nil
	}

	a, err := r.driver.CreateGetDataAction(r.fc, r.offset, r.length, r.unitID)
	if err != nil {
		return nil, fmt.Errorf("request: build read action fc=%d offset=%d: %w", r.fc, r.offset, err)
	}
	return a, nil
}

// SetResponseData fans words out to every bound variable. Every slice is
// decoded before any variable is updated.
func (r *Request) SetResponseData(words []uint16) error {
	if words == nil {
		return ErrMissingResponse
	}
	if len(words) != r.length {
		return fmt.Errorf("%w: got %d words, want %d (fc=%d unit=%d offset=%d)",
			ErrLengthMismatch, len(words), r.length, r.fc, r.unitID, r.offset)
	}

	slices := make([][]uint16, len(r.bindings))
	for i, b := range r.bindings {
		s := words[b.offset : b.offset+b.length]
		if _, err := b.v.Decode(s); err != nil {
			return err
		}
		slices[i] = s
	}

	for i, b := range r.bindings {
		if err := b.v.SetResponse(slices[i]); err != nil {
			return err
		}
	}
	return nil
}
