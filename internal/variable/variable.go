// internal/variable/variable.go
package variable

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrInvalidFunctionCode = errors.New("variable: invalid function code")
	ErrMissingUnitID       = errors.New("variable: unit id required")
	ErrUnknownKind         = errors.New("variable: unknown kind")
	ErrInvalidLength       = errors.New("variable: invalid length")
	ErrWordCount           = errors.New("variable: word count mismatch")
	ErrInvalidValue        = errors.New("variable: invalid value")
)

// Config describes one configured variable.
type Config struct {
	ID           uuid.UUID // zero => generated
	Name         string
	UnitID       *uint8
	FunctionCode FunctionCode
	Offset       uint16
	Kind         Kind
	Length       int // words, byte arrays only
}

// Variable is a typed view onto a register range of one device unit.
// Geometry is immutable after New. Value and raw response change only through
// the codec.
type Variable struct {
	id     uuid.UUID
	name   string
	unitID uint8
	fc     FunctionCode
	offset uint16
	codec  Codec

	mu    sync.RWMutex
	value any
	raw   []uint16
}

// New validates cfg and builds a variable holding the kind's zero value.
func New(cfg Config) (*Variable, error) {
	if cfg.UnitID == nil {
		return nil, fmt.Errorf("%w (variable %q)", ErrMissingUnitID, cfg.Name)
	}

	codec, err := CodecFor(cfg.Kind, cfg.Length)
	if err != nil {
		return nil, fmt.Errorf("variable %q: %w", cfg.Name, err)
	}

	if !containsCode(codec.AllowedFunctionCodes(), cfg.FunctionCode) {
		return nil, fmt.Errorf("%w: fc=%d not allowed for %s (variable %q)",
			ErrInvalidFunctionCode, cfg.FunctionCode, codec.Kind(), cfg.Name)
	}

	id := cfg.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	v := &Variable{
		id:     id,
		name:   cfg.Name,
		unitID: *cfg.UnitID,
		fc:     cfg.FunctionCode,
		offset: cfg.Offset,
		codec:  codec,
	}

	// zero value of the kind
	zero, err := codec.Decode(make([]uint16, codec.WordLength()))
	if err != nil {
		return nil, err
	}
	v.value = zero

	return v, nil
}

func (v *Variable) ID() uuid.UUID                    { return v.id }
func (v *Variable) Name() string                     { return v.name }
func (v *Variable) UnitID() uint8                    { return v.unitID }
func (v *Variable) FunctionCode() FunctionCode       { return v.fc }
func (v *Variable) Offset() uint16                   { return v.offset }
func (v *Variable) Kind() Kind                       { return v.codec.Kind() }
func (v *Variable) Length() int                      { return v.codec.WordLength() }
func (v *Variable) Codec() Codec                     { return v.codec }
func (v *Variable) String() string                   { return fmt.Sprintf("%s@%d/%d+%d", v.name, v.unitID, v.offset, v.Length()) }

// Value returns the current decoded value.
func (v *Variable) Value() any {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.value
}

// Raw returns a copy of the last response words, nil before the first response.
func (v *Variable) Raw() []uint16 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.raw == nil {
		return nil
	}
	out := make([]uint16, len(v.raw))
	copy(out, v.raw)
	return out
}

// SetValue stores x after checking the codec can encode it. The stored value
// is the decoded form of the encoding, so it carries the kind's Go type.
func (v *Variable) SetValue(x any) error {
	words, err := v.codec.Encode(x)
	if err != nil {
		return fmt.Errorf("variable %q: %w", v.name, err)
	}
	decoded, err := v.codec.Decode(words)
	if err != nil {
		return fmt.Errorf("variable %q: %w", v.name, err)
	}

	v.mu.Lock()
	v.value = decoded
	v.mu.Unlock()
	return nil
}

// Encode returns the words of the current value.
func (v *Variable) Encode() ([]uint16, error) {
	v.mu.RLock()
	x := v.value
	v.mu.RUnlock()

	words, err := v.codec.Encode(x)
	if err != nil {
		return nil, fmt.Errorf("variable %q: %w", v.name, err)
	}
	return words, nil
}

// Decode runs the codec on words without touching the variable.
func (v *Variable) Decode(words []uint16) (any, error) {
	x, err := v.codec.Decode(words)
	if err != nil {
		return nil, fmt.Errorf("variable %q: %w", v.name, err)
	}
	return x, nil
}

// SetResponse stores words as the raw response and decodes them into the value.
func (v *Variable) SetResponse(words []uint16) error {
	x, err := v.Decode(words)
	if err != nil {
		return err
	}

	raw := make([]uint16, len(words))
	copy(raw, words)

	v.mu.Lock()
	v.raw = raw
	v.value = x
	v.mu.Unlock()
	return nil
}
