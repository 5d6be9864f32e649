// internal/variable/codec.go
package variable

import (
	"fmt"
	"math"

	"github.com/x448/float16"
)

// Codec converts between raw register words and a typed value.
// Codecs are stateless. Implementations live in this package only.
type Codec interface {
	Kind() Kind
	WordLength() int
	AllowedFunctionCodes() []FunctionCode
	Decode(words []uint16) (any, error)
	Encode(v any) ([]uint16, error)

	sealed()
}

// CodecFor returns the codec of kind. length is only read for KindByteArray.
func CodecFor(kind Kind, length int) (Codec, error) {
	switch kind {
	case KindInt16:
		return word16Codec{signed: true}, nil
	case KindUint16:
		return word16Codec{}, nil
	case KindInt32:
		return word32Codec{kind: kind, signed: true}, nil
	case KindUint32:
		return word32Codec{kind: kind}, nil
	case KindInt32Swapped:
		return word32Codec{kind: kind, signed: true, swapped: true}, nil
	case KindUint32Swapped:
		return word32Codec{kind: kind, swapped: true}, nil
	case KindFloat32:
		return word32Codec{kind: kind, float: true}, nil
	case KindFloat32Swapped:
		return word32Codec{kind: kind, float: true, swapped: true}, nil
	case KindFloat16:
		return float16Codec{}, nil
	case KindBool:
		return boolCodec{}, nil
	case KindByteArray:
		if length < 1 {
			return nil, fmt.Errorf("%w: byte array needs at least one word, got %d", ErrInvalidLength, length)
		}
		return bytesCodec{words: length}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
}

func checkWords(c Codec, words []uint16) error {
	if len(words) != c.WordLength() {
		return fmt.Errorf("%w: %s expects %d words, got %d", ErrWordCount, c.Kind(), c.WordLength(), len(words))
	}
	return nil
}

func invalidValue(k Kind, v any) error {
	return fmt.Errorf("%w: cannot encode %T as %s", ErrInvalidValue, v, k)
}

// ---- 16-bit integers ----

type word16Codec struct {
	signed bool
}

func (c word16Codec) Kind() Kind {
	if c.signed {
		return KindInt16
	}
	return KindUint16
}

func (word16Codec) WordLength() int                      { return 1 }
func (word16Codec) AllowedFunctionCodes() []FunctionCode { return registerCodes }
func (word16Codec) sealed()                              {}

func (c word16Codec) Decode(words []uint16) (any, error) {
	if err := checkWords(c, words); err != nil {
		return nil, err
	}
	if c.signed {
		return int16(words[0]), nil
	}
	return words[0], nil
}

func (c word16Codec) Encode(v any) ([]uint16, error) {
	n, ok := toInt64(v)
	if !ok {
		return nil, invalidValue(c.Kind(), v)
	}
	return []uint16{uint16(n)}, nil
}

// ---- 32-bit integers and floats ----

// word32Codec frames a value across two words. Native order carries the low
// half first; swapped order carries the high half first.
type word32Codec struct {
	kind    Kind
	signed  bool
	float   bool
	swapped bool
}

func (c word32Codec) Kind() Kind                         { return c.kind }
func (word32Codec) WordLength() int                      { return 2 }
func (word32Codec) AllowedFunctionCodes() []FunctionCode { return registerCodes }
func (word32Codec) sealed()                              {}

func (c word32Codec) Decode(words []uint16) (any, error) {
	if err := checkWords(c, words); err != nil {
		return nil, err
	}
	lo, hi := words[0], words[1]
	if c.swapped {
		lo, hi = hi, lo
	}
	bits := uint32(lo) | uint32(hi)<<16

	switch {
	case c.float:
		return math.Float32frombits(bits), nil
	case c.signed:
		return int32(bits), nil
	default:
		return bits, nil
	}
}

func (c word32Codec) Encode(v any) ([]uint16, error) {
	var bits uint32
	if c.float {
		f, ok := toFloat64(v)
		if !ok {
			return nil, invalidValue(c.kind, v)
		}
		bits = math.Float32bits(float32(f))
	} else {
		n, ok := toInt64(v)
		if !ok {
			return nil, invalidValue(c.kind, v)
		}
		// two's complement reduction modulo 2^32
		bits = uint32(n)
	}

	lo, hi := uint16(bits), uint16(bits>>16)
	if c.swapped {
		return []uint16{hi, lo}, nil
	}
	return []uint16{lo, hi}, nil
}

// ---- half precision ----

type float16Codec struct{}

func (float16Codec) Kind() Kind                           { return KindFloat16 }
func (float16Codec) WordLength() int                      { return 1 }
func (float16Codec) AllowedFunctionCodes() []FunctionCode { return registerCodes }
func (float16Codec) sealed()                              {}

func (c float16Codec) Decode(words []uint16) (any, error) {
	if err := checkWords(c, words); err != nil {
		return nil, err
	}
	return float16.Frombits(words[0]).Float32(), nil
}

func (c float16Codec) Encode(v any) ([]uint16, error) {
	f, ok := toFloat64(v)
	if !ok {
		return nil, invalidValue(KindFloat16, v)
	}
	return []uint16{float16.Fromfloat32(float32(f)).Bits()}, nil
}

// ---- bool ----

type boolCodec struct{}

func (boolCodec) Kind() Kind                           { return KindBool }
func (boolCodec) WordLength() int                      { return 1 }
func (boolCodec) AllowedFunctionCodes() []FunctionCode { return allCodes }
func (boolCodec) sealed()                              {}

func (c boolCodec) Decode(words []uint16) (any, error) {
	if err := checkWords(c, words); err != nil {
		return nil, err
	}
	return words[0] != 0, nil
}

func (c boolCodec) Encode(v any) ([]uint16, error) {
	if b, ok := v.(bool); ok {
		if b {
			return []uint16{1}, nil
		}
		return []uint16{0}, nil
	}
	n, ok := toInt64(v)
	if !ok {
		return nil, invalidValue(KindBool, v)
	}
	if n != 0 {
		return []uint16{1}, nil
	}
	return []uint16{0}, nil
}

// ---- byte array ----

// bytesCodec maps each word to its high byte followed by its low byte.
type bytesCodec struct {
	words int
}

func (bytesCodec) Kind() Kind                           { return KindByteArray }
func (c bytesCodec) WordLength() int                    { return c.words }
func (bytesCodec) AllowedFunctionCodes() []FunctionCode { return registerCodes }
func (bytesCodec) sealed()                              {}

func (c bytesCodec) Decode(words []uint16) (any, error) {
	if err := checkWords(c, words); err != nil {
		return nil, err
	}
	out := make([]byte, 2*len(words))
	for i, w := range words {
		out[2*i] = byte(w >> 8)
		out[2*i+1] = byte(w)
	}
	return out, nil
}

func (c bytesCodec) Encode(v any) ([]uint16, error) {
	var b []byte
	switch x := v.(type) {
	case []byte:
		b = x
	case string:
		b = []byte(x)
	default:
		return nil, invalidValue(KindByteArray, v)
	}
	if len(b) != 2*c.words {
		return nil, fmt.Errorf("%w: byte array expects %d bytes, got %d", ErrInvalidValue, 2*c.words, len(b))
	}
	out := make([]uint16, c.words)
	for i := range out {
		out[i] = uint16(b[2*i])<<8 | uint16(b[2*i+1])
	}
	return out, nil
}

// ---- value coercion ----

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch f := v.(type) {
	case float32:
		return float64(f), true
	case float64:
		return f, true
	}
	if n, ok := toInt64(v); ok {
		return float64(n), true
	}
	return 0, false
}
