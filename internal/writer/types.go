// internal/writer/types.go
package writer

import (
	"context"
	"errors"
)

var (
	ErrUnknownVariable = errors.New("writer: unknown variable")
	ErrNotWritable     = errors.New("writer: variable is not writable")
)

// ValueWriter applies named values to a device.
type ValueWriter interface {
	Write(ctx context.Context, values map[string]any) error
}
