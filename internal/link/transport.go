// internal/link/transport.go
package link

import (
	"context"
	"errors"
	"time"
)

// Characteristic UUIDs used by Renogy BT-1/BT-2 modules when discovery
// does not turn up the configured ones.
const (
	DefaultWriteUUID  = "0000ffd1-0000-1000-8000-00805f9b34fb"
	DefaultNotifyUUID = "0000fff1-0000-1000-8000-00805f9b34fb"
)

// ErrNotFound is returned by a Transport when no peripheral with the
// requested address is advertising.
var ErrNotFound = errors.New("link: device not found")

// Peripheral is an advertising radio module.
type Peripheral struct {
	Address string
	Name    string
	RSSI    int16
}

// Service is a discovered GATT service.
type Service struct {
	UUID            string
	Characteristics []string
}

// Transport is the radio layer a Session drives.
// Implementations must be safe for use by one Session at a time.
type Transport interface {
	// FindByAddress looks for one peripheral. Returns ErrNotFound on timeout.
	FindByAddress(ctx context.Context, address string, timeout time.Duration) (Peripheral, error)

	// Scan collects every peripheral seen within timeout.
	Scan(ctx context.Context, timeout time.Duration) ([]Peripheral, error)

	// Connect opens a connection. onDisconnect fires when the link drops.
	Connect(ctx context.Context, p Peripheral, timeout time.Duration, onDisconnect func()) (Conn, error)
}

// Conn is one open connection.
type Conn interface {
	DiscoverServices() ([]Service, error)

	// Subscribe delivers notifications from char to fn. Deliveries may
	// fragment one logical reply.
	Subscribe(char string, fn func([]byte)) error
	Unsubscribe(char string) error

	Write(char string, b []byte) error
	Disconnect() error
}
