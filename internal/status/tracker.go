// internal/status/tracker.go
package status

import (
	"errors"

	"github.com/tamzrod/modbus-gateway/internal/poller"
)

// Tracker folds poll results into a device Snapshot.
// It is owned by one orchestrator goroutine and is not safe for concurrent use.
type Tracker struct {
	snap Snapshot
}

// NewTracker starts in HealthUnknown.
func NewTracker() *Tracker {
	return &Tracker{snap: Snapshot{Health: HealthUnknown}}
}

func (t *Tracker) Snapshot() Snapshot { return t.snap }

// Observe applies one poll result and reports whether the snapshot changed.
// Seconds in error only move on Tick.
func (t *Tracker) Observe(res poller.PollResult) (Snapshot, bool) {
	next := t.snap

	switch {
	case res.Err == nil && res.Requests == 0:
		next.Health = HealthDisabled
		next.LastErrorCode = 0
		next.SecondsInError = 0

	case res.Err == nil:
		// Recovery / OK
		next.Health = HealthOK
		next.LastErrorCode = 0
		next.SecondsInError = 0

	case len(res.Errors) > 0 && len(res.Errors) < res.Requests:
		next.Health = HealthStale
		next.LastErrorCode = ErrorCode(res.Err)

	default:
		next.Health = HealthError
		next.LastErrorCode = ErrorCode(res.Err)
	}

	changed := next != t.snap
	t.snap = next
	return next, changed
}

// Tick advances SecondsInError by one while the device is in error.
// Call at 1 Hz.
func (t *Tracker) Tick() (Snapshot, bool) {
	if !t.snap.InError() || t.snap.SecondsInError >= MaxSecondsInError {
		return t.snap, false
	}
	t.snap.SecondsInError++
	return t.snap, true
}

// ErrorCode extracts a best-effort uint16 code from an error without assuming concrete types.
// If the error does not expose a code, returns GenericErrorCode.
func ErrorCode(err error) uint16 {
	if err == nil {
		return 0
	}

	type coderA interface{ Code() uint16 }
	type coderB interface{ ErrorCode() uint16 }
	type coderC interface{ ModbusCode() uint16 }

	var a coderA
	if errors.As(err, &a) {
		return a.Code()
	}
	var b coderB
	if errors.As(err, &b) {
		return b.ErrorCode()
	}
	var c coderC
	if errors.As(err, &c) {
		return c.ModbusCode()
	}

	return GenericErrorCode
}
