//go:build linux

// internal/ble/transport_linux.go
package ble

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"

	"github.com/tamzrod/renogy-bridge/internal/link"
)

// Transport implements link.Transport on BlueZ.
type Transport struct {
	adapter *bluetooth.Adapter
	id      string
	log     *slog.Logger

	enableOnce sync.Once
	enableErr  error

	// BlueZ runs one discovery per adapter
	scanMu sync.Mutex

	mu      sync.Mutex
	dropped map[string]*dropHandler
}

type dropHandler struct {
	fn func()
}

// New returns a transport on the named adapter ("hci0" by default).
// The adapter is enabled on first use.
func New(adapter string, log *slog.Logger) *Transport {
	if adapter == "" {
		adapter = DefaultAdapter
	}
	if log == nil {
		log = slog.Default()
	}
	return &Transport{
		adapter: bluetooth.NewAdapter(adapter),
		id:      adapter,
		log:     log,
		dropped: make(map[string]*dropHandler),
	}
}

func (t *Transport) enable() error {
	t.enableOnce.Do(func() {
		t.log.Info("ble: enabling adapter", "adapter", t.id)
		if err := t.adapter.Enable(); err != nil {
			t.enableErr = fmt.Errorf("ble enable (%s): %w", t.id, err)
			return
		}
		t.adapter.SetConnectHandler(func(d bluetooth.Device, connected bool) {
			if !connected {
				t.onDrop(d.Address.String())
			}
		})
		t.log.Info("ble: adapter enabled", "adapter", t.id)
	})
	return t.enableErr
}

func (t *Transport) onDrop(addr string) {
	key := strings.ToUpper(addr)
	t.mu.Lock()
	h := t.dropped[key]
	delete(t.dropped, key)
	t.mu.Unlock()

	if h != nil && h.fn != nil {
		h.fn()
	}
}

// forget removes h unless a newer connection replaced it.
func (t *Transport) forget(key string, h *dropHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.dropped[key] == h {
		delete(t.dropped, key)
	}
}

// ---- scanning ----

// scan runs one discovery until timeout, ctx cancellation, or fn returning true.
func (t *Transport) scan(ctx context.Context, timeout time.Duration, fn func(bluetooth.ScanResult) bool) error {
	if err := t.enable(); err != nil {
		return err
	}

	t.scanMu.Lock()
	defer t.scanMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-done:
			return
		case <-ctx.Done():
		}
		_ = t.adapter.StopScan()
	}()

	// adapter.Scan blocks until StopScan() or error.
	err := t.adapter.Scan(func(_ *bluetooth.Adapter, r bluetooth.ScanResult) {
		if fn(r) {
			cancel()
		}
	})
	close(done)
	wg.Wait()

	if ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("ble scan: %w", err)
	}
	return nil
}

func (t *Transport) FindByAddress(ctx context.Context, address string, timeout time.Duration) (link.Peripheral, error) {
	var (
		found link.Peripheral
		ok    bool
	)
	err := t.scan(ctx, timeout, func(r bluetooth.ScanResult) bool {
		if !strings.EqualFold(r.Address.String(), address) {
			return false
		}
		found = link.Peripheral{Address: r.Address.String(), Name: r.LocalName(), RSSI: r.RSSI}
		ok = true
		return true
	})
	if err != nil {
		return link.Peripheral{}, err
	}
	if err := ctx.Err(); err != nil {
		return link.Peripheral{}, err
	}
	if !ok {
		return link.Peripheral{}, link.ErrNotFound
	}
	return found, nil
}

func (t *Transport) Scan(ctx context.Context, timeout time.Duration) ([]link.Peripheral, error) {
	seen := make(map[string]int)
	var out []link.Peripheral

	err := t.scan(ctx, timeout, func(r bluetooth.ScanResult) bool {
		p := link.Peripheral{Address: r.Address.String(), Name: r.LocalName(), RSSI: r.RSSI}
		if i, dup := seen[p.Address]; dup {
			if p.Name == "" {
				p.Name = out[i].Name
			}
			out[i] = p
			return false
		}
		seen[p.Address] = len(out)
		out = append(out, p)
		return false
	})
	if err != nil {
		return nil, err
	}
	t.log.Debug("ble: scan complete", "adapter", t.id, "seen", len(out))
	return out, nil
}

// ---- connections ----

func (t *Transport) Connect(ctx context.Context, p link.Peripheral, timeout time.Duration, onDisconnect func()) (link.Conn, error) {
	if err := t.enable(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mac, err := bluetooth.ParseMAC(p.Address)
	if err != nil {
		return nil, fmt.Errorf("ble: address %q: %w", p.Address, err)
	}

	key := strings.ToUpper(p.Address)
	h := &dropHandler{fn: onDisconnect}
	t.mu.Lock()
	t.dropped[key] = h
	t.mu.Unlock()

	dev, err := t.adapter.Connect(
		bluetooth.Address{MACAddress: bluetooth.MACAddress{MAC: mac}},
		bluetooth.ConnectionParams{ConnectionTimeout: bluetooth.NewDuration(timeout)},
	)
	if err != nil {
		t.forget(key, h)
		return nil, fmt.Errorf("ble connect %s: %w", p.Address, err)
	}

	return &conn{
		discover:   dev.DiscoverServices,
		disconnect: dev.Disconnect,
		release:    func() { t.forget(key, h) },
		chars:      make(map[string]bluetooth.DeviceCharacteristic),
	}, nil
}

type conn struct {
	discover   func([]bluetooth.UUID) ([]bluetooth.DeviceService, error)
	disconnect func() error
	release    func()

	mu    sync.Mutex
	chars map[string]bluetooth.DeviceCharacteristic
}

func (c *conn) DiscoverServices() ([]link.Service, error) {
	services, err := c.discover(nil)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]link.Service, 0, len(services))
	for _, svc := range services {
		chars, err := svc.DiscoverCharacteristics(nil)
		if err != nil {
			return nil, fmt.Errorf("characteristics of %s: %w", svc.UUID().String(), err)
		}

		s := link.Service{UUID: svc.UUID().String()}
		for _, ch := range chars {
			u := ch.UUID().String()
			c.chars[strings.ToLower(u)] = ch
			s.Characteristics = append(s.Characteristics, u)
		}
		out = append(out, s)
	}
	return out, nil
}

func (c *conn) char(uuid string) (bluetooth.DeviceCharacteristic, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.chars[strings.ToLower(uuid)]
	if !ok {
		return ch, fmt.Errorf("ble: characteristic %s not found", uuid)
	}
	return ch, nil
}

func (c *conn) Subscribe(uuid string, fn func([]byte)) error {
	ch, err := c.char(uuid)
	if err != nil {
		return err
	}
	return ch.EnableNotifications(fn)
}

func (c *conn) Unsubscribe(uuid string) error {
	ch, err := c.char(uuid)
	if err != nil {
		return err
	}
	return ch.EnableNotifications(nil)
}

func (c *conn) Write(uuid string, b []byte) error {
	ch, err := c.char(uuid)
	if err != nil {
		return err
	}
	_, err = ch.WriteWithoutResponse(b)
	return err
}

// Disconnect closes the link without firing the drop callback.
func (c *conn) Disconnect() error {
	c.release()
	return c.disconnect()
}
