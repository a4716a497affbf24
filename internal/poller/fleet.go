// internal/poller/fleet.go
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tamzrod/renogy-bridge/internal/link"
	"github.com/tamzrod/renogy-bridge/internal/registers"
	"github.com/tamzrod/renogy-bridge/internal/status"
)

// Link is the session surface the fleet drives. *link.Session satisfies it.
type Link interface {
	Address() string
	State() link.State
	Connect(ctx context.Context) bool
	Close() error
}

// FleetConfig configures a Fleet.
type FleetConfig struct {
	Interval time.Duration
	Timing   Timing
	Logger   *slog.Logger

	// OnResult is called for every result, in poll order.
	OnResult func(PollResult)

	// OnPass is called by Run after every completed pass.
	OnPass func(PassStats)
}

// hub is one radio module and the devices behind it.
type hub struct {
	link    Link
	pollers []*Poller
	devices []*status.Device
}

// Fleet owns every session and the runtime state of every device.
// One pass at a time; sessions and devices are polled sequentially.
type Fleet struct {
	cfg     FleetConfig
	log     *slog.Logger
	hubs    []*hub
	devices map[string]*status.Device
	order   []*status.Device
}

func NewFleet(cfg FleetConfig) (*Fleet, error) {
	if cfg.Interval <= 0 {
		return nil, errors.New("fleet: interval must be > 0")
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Fleet{
		cfg:     cfg,
		log:     log,
		devices: make(map[string]*status.Device),
	}, nil
}

// Attach adds a module and the pollers of the devices behind it.
func (f *Fleet) Attach(l Link, pollers ...*Poller) error {
	if l == nil {
		return errors.New("fleet: link required")
	}
	if len(pollers) == 0 {
		return fmt.Errorf("fleet: module %s: at least one device required", l.Address())
	}

	h := &hub{link: l}
	for _, p := range pollers {
		name := p.Descriptor().Name
		if _, dup := f.devices[name]; dup {
			return fmt.Errorf("fleet: duplicate device name %q", name)
		}
		d := status.NewDevice(name)
		f.devices[name] = d
		f.order = append(f.order, d)
		h.pollers = append(h.pollers, p)
		h.devices = append(h.devices, d)
	}
	f.hubs = append(f.hubs, h)

	if len(pollers) > 1 {
		f.log.Info("hub mode", "mac", l.Address(), "devices", len(pollers))
	}
	return nil
}

// Devices returns the device states in configuration order.
func (f *Fleet) Devices() []*status.Device {
	return append([]*status.Device(nil), f.order...)
}

func (f *Fleet) Device(name string) (*status.Device, bool) {
	d, ok := f.devices[name]
	return d, ok
}

// Descriptors returns every device descriptor in configuration order.
func (f *Fleet) Descriptors() []Descriptor {
	var out []Descriptor
	for _, h := range f.hubs {
		for _, p := range h.pollers {
			out = append(out, p.Descriptor())
		}
	}
	return out
}

// ConnectAll connects every module in turn and returns how many are Ready.
func (f *Fleet) ConnectAll(ctx context.Context) int {
	n := 0
	for i, h := range f.hubs {
		if i > 0 && !sleep(ctx, f.cfg.Timing.Connect) {
			break
		}
		f.log.Info("connecting module", "mac", h.link.Address())
		if h.link.Connect(ctx) {
			n++
			continue
		}
		f.log.Error("module connect failed", "mac", h.link.Address())
	}
	return n
}

// PollAll runs one pass over every module and device.
func (f *Fleet) PollAll() []PollResult {
	return f.pollAll(nil)
}

func (f *Fleet) pollAll(emit func(PollResult)) []PollResult {
	var out []PollResult
	publish := func(r PollResult) {
		out = append(out, r)
		if f.cfg.OnResult != nil {
			f.cfg.OnResult(r)
		}
		if emit != nil {
			emit(r)
		}
	}

	for i, h := range f.hubs {
		if i > 0 {
			time.Sleep(f.cfg.Timing.Session)
		}

		if h.link.State() != link.Ready {
			f.log.Warn("module not connected, reconnecting", "mac", h.link.Address())
			if !h.link.Connect(context.Background()) {
				f.log.Error("module reconnect failed", "mac", h.link.Address())
				for j, p := range h.pollers {
					res := failed(p.Descriptor(), fmt.Errorf("%w: %s", link.ErrNotConnected, h.link.Address()))
					f.apply(h.devices[j], &res)
					publish(res)
				}
				continue
			}
		}

		for j, p := range h.pollers {
			if j > 0 {
				time.Sleep(f.cfg.Timing.Device)
			}
			d := p.Descriptor()
			f.log.Info("polling", "device", d.Name, "type", d.Kind, "id", d.DeviceID)

			res := safePoll(p)
			f.apply(h.devices[j], &res)
			publish(res)
		}
	}
	return out
}

// apply folds a result into the device state.
func (f *Fleet) apply(d *status.Device, res *PollResult) {
	if res.Err == nil {
		if d.Update(res.Fields, res.At) {
			f.log.Info("device available", "device", d.Name())
		}
	} else {
		f.log.Warn("poll failed", "device", d.Name(), "err", res.Err)
		if d.MarkFailed(ErrorCode(res.Err), res.At) {
			f.log.Warn("device unavailable", "device", d.Name(), "failures", d.ConsecutiveFailures())
		}
	}
	res.Available = d.IsAvailable()
}

// Summary returns how many devices are available.
func (f *Fleet) Summary() (online, total int) {
	for _, d := range f.order {
		if d.IsAvailable() {
			online++
		}
	}
	return online, len(f.order)
}

func (f *Fleet) logSummary() {
	for _, d := range f.order {
		state := "unavailable"
		if d.IsAvailable() {
			state = "online"
		}
		f.log.Info("device status", "device", d.Name(), "state", state)
	}
	online, total := f.Summary()
	f.log.Info("poll complete", "online", online, "total", total)
}

// Close disconnects every module.
func (f *Fleet) Close() error {
	var errs []error
	for _, h := range f.hubs {
		if err := h.link.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", h.link.Address(), err))
		}
	}
	return errors.Join(errs...)
}

func failed(d Descriptor, err error) PollResult {
	return PollResult{
		Device:  d.Name,
		Address: d.Address,
		Kind:    d.Kind,
		At:      time.Now(),
		Fields:  registers.Fields{},
		Err:     err,
	}
}

// safePoll turns a decoder panic into a failed result.
func safePoll(p *Poller) (res PollResult) {
	defer func() {
		if r := recover(); r != nil {
			res = failed(p.Descriptor(), fmt.Errorf("poller: panic: %v", r))
		}
	}()
	return p.PollDevice()
}
