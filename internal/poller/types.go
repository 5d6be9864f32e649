// internal/poller/types.go
package poller

import (
	"fmt"
	"time"

	"github.com/tamzrod/modbus-gateway/internal/variable"
)

// Value is the decoded state of one variable after a successful request.
type Value struct {
	Name   string
	UnitID uint8
	FC     variable.FunctionCode
	Offset uint16
	Kind   variable.Kind
	Value  any
	Raw    []uint16
}

// RequestError records one failed request of a cycle.
type RequestError struct {
	FC     variable.FunctionCode
	UnitID uint8
	Offset uint16
	Len    int
	Err    error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("poller: request fc=%d unit=%d offset=%d len=%d: %v", e.FC, e.UnitID, e.Offset, e.Len, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// PollResult is a snapshot produced by one poll cycle.
type PollResult struct {
	DeviceID string
	At       time.Time

	// Requests is the number of requests the cycle attempted.
	Requests int

	// Values holds every variable of every successful request.
	Values []Value

	// Errors holds one entry per failed request.
	Errors []RequestError

	Err error // non-nil means at least part of the cycle failed
}
