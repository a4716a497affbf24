// internal/status/snapshot.go
package status

import "time"

// Snapshot is a point-in-time copy of a device's runtime state.
// It contains no logic.
type Snapshot struct {
	Name                string
	Health              uint16
	Available           bool
	ConsecutiveFailures int
	LastErrorCode       uint16
	SecondsInError      uint16
	LastUpdate          time.Time
}
