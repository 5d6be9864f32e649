// internal/status/constants.go
package status

// ---- HEALTH CODES ----

// HealthUnknown represents an unknown or boot state.
const HealthUnknown uint16 = 0

// HealthOK represents a healthy device.
const HealthOK uint16 = 1

// HealthError represents a device error state.
const HealthError uint16 = 2

// HealthStale represents a cycle where only some requests succeeded.
const HealthStale uint16 = 3

// HealthDisabled represents a device with nothing to poll.
const HealthDisabled uint16 = 4

// ---- LIMITS ----

// MaxSecondsInError is where SecondsInError saturates.
const MaxSecondsInError uint16 = 65535

// GenericErrorCode is reported when an error exposes no code of its own.
const GenericErrorCode uint16 = 1

// HealthName returns a short label for a health code.
func HealthName(h uint16) string {
	switch h {
	case HealthUnknown:
		return "unknown"
	case HealthOK:
		return "ok"
	case HealthError:
		return "error"
	case HealthStale:
		return "stale"
	case HealthDisabled:
		return "disabled"
	}
	return "invalid"
}
