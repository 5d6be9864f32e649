// internal/status/snapshot.go
package status

// Snapshot is the current health of one device.
// It contains no logic and no memory of the past beyond current state.
type Snapshot struct {
	Health         uint16
	LastErrorCode  uint16
	SecondsInError uint16
}

// InError reports whether the seconds counter should run.
func (s Snapshot) InError() bool {
	return s.Health != HealthOK && s.Health != HealthDisabled
}
