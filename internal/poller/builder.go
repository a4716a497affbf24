// internal/poller/builder.go
package poller

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tamzrod/renogy-bridge/internal/config"
	"github.com/tamzrod/renogy-bridge/internal/link"
	mb "github.com/tamzrod/renogy-bridge/internal/modbus"
	"github.com/tamzrod/renogy-bridge/internal/registers"
)

// BuildOptions carries what Build needs beyond the device list.
type BuildOptions struct {
	Interval   time.Duration
	Timing     Timing
	Link       link.Timing
	WriteUUID  string
	NotifyUUID string
	Logger     *slog.Logger
	OnResult   func(PollResult)
	OnPass     func(PassStats)
}

// NewDescriptor converts one configured device.
// Assumes config has already passed Validate and Normalize.
func NewDescriptor(d config.Device) (Descriptor, error) {
	kind, err := registers.ParseKind(d.Type)
	if err != nil {
		return Descriptor{}, fmt.Errorf("device %q: %w", d.Name, err)
	}

	groups := registers.Groups(kind)
	for _, name := range d.ExtraGroups {
		g, ok := registers.OptionalGroup(kind, name)
		if !ok {
			return Descriptor{}, fmt.Errorf("device %q: unknown %s group %q", d.Name, kind, name)
		}
		groups = append(groups, g)
	}

	return Descriptor{
		Name:     d.Name,
		Address:  strings.ToUpper(d.MACAddress),
		DeviceID: byte(d.ID()),
		Kind:     kind,
		Alias:    d.Alias,
		Groups:   groups,
	}, nil
}

// Build constructs the fleet: one link session per distinct module MAC
// (hub mode when several devices share it) and one poller per device,
// talking Modbus through the session.
func Build(devs []config.Device, tr link.Transport, opts BuildOptions) (*Fleet, error) {
	fleet, err := NewFleet(FleetConfig{
		Interval: opts.Interval,
		Timing:   opts.Timing,
		Logger:   opts.Logger,
		OnResult: opts.OnResult,
		OnPass:   opts.OnPass,
	})
	if err != nil {
		return nil, err
	}

	byMAC := make(map[string][]Descriptor)
	var order []string
	for _, d := range devs {
		desc, err := NewDescriptor(d)
		if err != nil {
			return nil, err
		}
		if _, seen := byMAC[desc.Address]; !seen {
			order = append(order, desc.Address)
		}
		byMAC[desc.Address] = append(byMAC[desc.Address], desc)
	}

	for _, mac := range order {
		lt := opts.Link
		s, err := link.NewSession(tr, link.Options{
			Address:    mac,
			WriteUUID:  opts.WriteUUID,
			NotifyUUID: opts.NotifyUUID,
			Timing:     &lt,
			Logger:     opts.Logger,
		})
		if err != nil {
			return nil, err
		}

		var pollers []*Poller
		for _, desc := range byMAC[mac] {
			p, err := New(Config{
				Device: desc,
				Pacing: opts.Timing.Group,
				Logger: opts.Logger,
			}, mb.NewClient(desc.DeviceID, s))
			if err != nil {
				return nil, err
			}
			pollers = append(pollers, p)
		}

		if err := fleet.Attach(s, pollers...); err != nil {
			return nil, err
		}
	}

	return fleet, nil
}
