// internal/status/constants.go
package status

// Availability rule constants.
// These values define observable behavior and MUST NOT be configurable.

// FailureThreshold is the number of consecutive failed polls after which a
// device is reported unavailable.
const FailureThreshold = 3

// MaxSecondsInError caps Snapshot.SecondsInError.
const MaxSecondsInError = 65535

// ---- HEALTH CODES ----

// HealthUnknown represents a device never polled successfully.
const HealthUnknown uint16 = 0

// HealthOK represents a healthy device.
const HealthOK uint16 = 1

// HealthError represents a device whose last poll failed but which is
// still within the failure threshold.
const HealthError uint16 = 2

// HealthUnavailable represents a device past the failure threshold.
const HealthUnavailable uint16 = 3
