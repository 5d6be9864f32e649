// internal/variable/kind.go
package variable

import "fmt"

// Kind selects the codec of a variable. The set is closed.
type Kind uint8

const (
	KindInt16 Kind = iota + 1
	KindUint16
	KindInt32
	KindUint32
	KindInt32Swapped
	KindUint32Swapped
	KindFloat32
	KindFloat32Swapped
	KindFloat16
	KindBool
	KindByteArray
)

var kindNames = map[Kind]string{
	KindInt16:          "int16",
	KindUint16:         "uint16",
	KindInt32:          "int32",
	KindUint32:         "uint32",
	KindInt32Swapped:   "int32_swapped",
	KindUint32Swapped:  "uint32_swapped",
	KindFloat32:        "float32",
	KindFloat32Swapped: "float32_swapped",
	KindFloat16:        "float16",
	KindBool:           "bool",
	KindByteArray:      "bytes",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind maps a config type name to its Kind.
func ParseKind(name string) (Kind, error) {
	for k, s := range kindNames {
		if s == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}
