// internal/status/device.go
package status

import (
	"maps"
	"sync"
	"time"
)

// Device is the runtime state of one logical device. Availability is
// derived from the failure counter and only changes through Update and
// MarkFailed.
type Device struct {
	mu sync.RWMutex

	name         string
	data         map[string]any
	lastUpdate   time.Time
	available    bool
	failures     int
	lastErr      uint16
	failingSince time.Time
}

func NewDevice(name string) *Device {
	return &Device{name: name, data: make(map[string]any)}
}

func (d *Device) Name() string { return d.name }

// Update records a successful poll. fields are merged over the previous
// data. Returns true when the device was not available before.
func (d *Device) Update(fields map[string]any, at time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	maps.Copy(d.data, fields)
	d.lastUpdate = at
	d.failures = 0
	d.lastErr = 0
	d.failingSince = time.Time{}

	was := d.available
	d.available = true
	return !was
}

// MarkFailed records a failed poll with a best-effort error code.
// Returns true when this failure made the device unavailable.
func (d *Device) MarkFailed(code uint16, at time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.failures++
	d.lastErr = code
	if d.failingSince.IsZero() {
		d.failingSince = at
	}

	if d.failures >= FailureThreshold && d.available {
		d.available = false
		return true
	}
	return false
}

func (d *Device) IsAvailable() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.available
}

func (d *Device) ConsecutiveFailures() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.failures
}

// Data returns a copy of the last merged field map.
func (d *Device) Data() map[string]any {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return maps.Clone(d.data)
}

// Snapshot returns the current state as of now.
func (d *Device) Snapshot(now time.Time) Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s := Snapshot{
		Name:                d.name,
		Available:           d.available,
		ConsecutiveFailures: d.failures,
		LastErrorCode:       d.lastErr,
		LastUpdate:          d.lastUpdate,
	}

	switch {
	case d.failures == 0 && d.available:
		s.Health = HealthOK
	case d.failures >= FailureThreshold:
		s.Health = HealthUnavailable
	case d.failures > 0:
		s.Health = HealthError
	default:
		s.Health = HealthUnknown
	}

	if !d.failingSince.IsZero() {
		secs := int(now.Sub(d.failingSince) / time.Second)
		s.SecondsInError = uint16(min(max(secs, 0), MaxSecondsInError))
	}
	return s
}
