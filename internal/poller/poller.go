// internal/poller/poller.go
package poller

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tamzrod/renogy-bridge/internal/registers"
)

// Client abstracts the Modbus read the poller needs. It is satisfied by a
// goburrow modbus.Client and returns the data after the byte count.
type Client interface {
	ReadHoldingRegisters(address, quantity uint16) ([]byte, error)
}

// Config is the minimal runtime config the poller needs.
type Config struct {
	Device Descriptor
	Pacing time.Duration // delay after every group request
	Logger *slog.Logger
}

// Poller reads one device group by group.
type Poller struct {
	cfg    Config
	client Client
	log    *slog.Logger
}

// New creates a poller with immutable config.
func New(cfg Config, client Client) (*Poller, error) {
	if cfg.Device.Name == "" {
		return nil, errors.New("poller: device name required")
	}
	if client == nil {
		return nil, errors.New("poller: client required")
	}
	if len(cfg.Device.Groups) == 0 {
		return nil, fmt.Errorf("poller: device %q: at least one register group required", cfg.Device.Name)
	}
	if cfg.Pacing < 0 {
		return nil, errors.New("poller: pacing must be >= 0")
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Poller{
		cfg:    cfg,
		client: client,
		log:    log.With("device", cfg.Device.Name),
	}, nil
}

func (p *Poller) Descriptor() Descriptor { return p.cfg.Device }

// PollDevice reads every group in table order and merges the decoded
// fields. A failed group is skipped; the poll fails only when no group
// produced data.
func (p *Poller) PollDevice() PollResult {
	d := p.cfg.Device
	res := PollResult{
		Device:  d.Name,
		Address: d.Address,
		Kind:    d.Kind,
		At:      time.Now(),
		Fields:  registers.Fields{},
	}

	var lastErr error
	for _, g := range d.Groups {
		p.log.Debug("reading group", "group", g.Name, "register", g.Register, "words", g.Words)

		data, err := p.client.ReadHoldingRegisters(g.Register, g.Words)
		if err != nil {
			p.log.Warn("group read failed", "group", g.Name, "err", err)
			lastErr = err
		} else if fields, ok := registers.Decode(d.Kind, g.Register, data); !ok {
			p.log.Info("no decoder for register", "group", g.Name, "register", g.Register)
		} else if len(fields) > 0 {
			res.Fields.Merge(fields)
			res.Groups++
			p.log.Debug("group decoded", "group", g.Name, "fields", len(fields))
		}

		time.Sleep(p.cfg.Pacing)
	}

	if len(res.Fields) == 0 {
		res.Err = ErrNoData
		if lastErr != nil {
			res.Err = fmt.Errorf("%w: %w", ErrNoData, lastErr)
		}
		p.log.Warn("no data received from any group")
		return res
	}

	p.log.Info("poll ok", "fields", len(res.Fields), "groups", res.Groups)

	res.Fields[MetaDevice] = d.Name
	res.Fields[MetaMACAddress] = d.Address
	res.Fields[MetaDeviceType] = string(d.Kind)
	return res
}
