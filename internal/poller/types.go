// internal/poller/types.go
package poller

import (
	"strings"
	"time"

	"github.com/tamzrod/renogy-bridge/internal/registers"
)

// Metadata keys added to every non-empty field map. Keys with MetaPrefix
// are internal and never published.
const (
	MetaPrefix     = "__"
	MetaDevice     = "__device"
	MetaMACAddress = "__mac_address"
	MetaDeviceType = "__device_type"
)

// IsMeta reports whether key is internal metadata.
func IsMeta(key string) bool { return strings.HasPrefix(key, MetaPrefix) }

// Descriptor is one monitored logical device. Immutable once built.
type Descriptor struct {
	Name     string
	Address  string // radio module MAC
	DeviceID byte   // id on the module's bus; 255 addresses any
	Kind     registers.Kind
	Alias    string // module model, e.g. bt2
	Groups   []registers.Group
}

// Timing holds the pacing delays between requests.
type Timing struct {
	Group   time.Duration // after every group request
	Device  time.Duration // between devices on one module
	Session time.Duration // between modules
	Connect time.Duration // between initial module connects
}

// DefaultTiming returns pacing Renogy BT modules tolerate.
func DefaultTiming() Timing {
	return Timing{
		Group:   500 * time.Millisecond,
		Device:  time.Second,
		Session: 2 * time.Second,
		Connect: 3 * time.Second,
	}
}

// PollResult is the outcome of polling one device once.
type PollResult struct {
	Device  string
	Address string
	Kind    registers.Kind
	At      time.Time

	// Fields is empty when the poll failed.
	Fields registers.Fields

	// Groups counts the groups that produced data.
	Groups int

	// Available is the device availability after this result was applied.
	Available bool

	Err error // non-nil means no group produced data
}

// PassStats summarises one completed poll pass.
type PassStats struct {
	Duration time.Duration
	Online   int
	Total    int
}
