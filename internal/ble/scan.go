// internal/ble/scan.go
package ble

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/tamzrod/renogy-bridge/internal/link"
)

const (
	DefaultAdapter = "hci0"
	ScanTimeout    = 15 * time.Second
)

// IsRenogy reports whether an advertised name looks like a Renogy BT module.
func IsRenogy(name string) bool {
	return strings.HasPrefix(name, "BT-TH") || strings.Contains(strings.ToUpper(name), "RENOGY")
}

// rssi treats 0 as unknown.
func rssi(p link.Peripheral) int16 {
	if p.RSSI == 0 {
		return -100
	}
	return p.RSSI
}

// SortByRSSI orders peripherals strongest first.
func SortByRSSI(ps []link.Peripheral) {
	slices.SortStableFunc(ps, func(a, b link.Peripheral) int {
		return int(rssi(b)) - int(rssi(a))
	})
}

// Discover scans for timeout and returns the Renogy modules seen, or every
// named peripheral when all is set.
func Discover(ctx context.Context, tr link.Transport, timeout time.Duration, all bool) ([]link.Peripheral, error) {
	found, err := tr.Scan(ctx, timeout)
	if err != nil {
		return nil, err
	}

	out := make([]link.Peripheral, 0, len(found))
	for _, p := range found {
		if all || IsRenogy(p.Name) {
			out = append(out, p)
		}
	}
	SortByRSSI(out)
	return out, nil
}
