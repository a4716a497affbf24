// internal/writer/writer.go
package writer

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"sync"

	"github.com/tamzrod/renogy-bridge/internal/poller"
	"github.com/tamzrod/renogy-bridge/internal/quality"
)

// Config wires a Writer.
type Config struct {
	Sink   Sink
	Gate   *quality.Manager
	Logger *slog.Logger

	// OnPublished, if set, receives each successful result with its
	// validated fields after the state was published.
	OnPublished func(res poller.PollResult)
}

type writerImpl struct {
	cfg Config
	log *slog.Logger

	mu        sync.Mutex
	announced map[string]bool
	avail     map[string]*availabilityWriter
}

func New(cfg Config) (Writer, error) {
	if cfg.Sink == nil {
		return nil, errors.New("writer: sink required")
	}
	if cfg.Gate == nil {
		cfg.Gate = quality.NewManager(cfg.Logger)
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &writerImpl{
		cfg:       cfg,
		log:       log,
		announced: make(map[string]bool),
		avail:     make(map[string]*availabilityWriter),
	}, nil
}

// Write handles one poll result. A successful result is validated, then
// published in order: validation stats (only when something was rejected),
// discovery (once per device), state, availability. A failed result only
// publishes availability, and only when it changed.
func (w *writerImpl) Write(res poller.PollResult) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var errs []string
	aw := w.availabilityFor(res.Device, res.Address)

	if res.Err == nil && len(res.Fields) > 0 {
		fields, rejected := w.cfg.Gate.Validate(res.Device, res.Kind, res.Fields)

		if len(rejected) > 0 {
			stats := w.cfg.Gate.Validator(res.Device, res.Kind).Stats()
			if err := w.cfg.Sink.PublishValidationStats(res.Device, res.Address, stats); err != nil {
				errs = append(errs, fmt.Sprintf("writer: validation device=%s err=%v", res.Device, err))
			}
		}

		if !w.announced[res.Device] {
			model, _ := fields["model"].(string)
			if err := w.cfg.Sink.AnnounceSchema(res.Device, res.Address, res.Kind, model); err != nil {
				errs = append(errs, fmt.Sprintf("writer: discovery device=%s err=%v", res.Device, err))
			} else {
				w.announced[res.Device] = true
			}
		}

		if err := w.cfg.Sink.PublishState(res.Device, res.Address, stripMeta(fields)); err != nil {
			errs = append(errs, fmt.Sprintf("writer: state device=%s err=%v", res.Device, err))
		} else if w.cfg.OnPublished != nil {
			out := res
			out.Fields = fields
			w.cfg.OnPublished(out)
		}

		if err := aw.write(res.Available, true); err != nil {
			errs = append(errs, fmt.Sprintf("writer: device=%s %v", res.Device, err))
		}
	} else if err := aw.write(res.Available, false); err != nil {
		errs = append(errs, fmt.Sprintf("writer: device=%s %v", res.Device, err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, " | "))
	}
	return nil
}

func (w *writerImpl) Offline(devs []poller.Descriptor) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var errs []string
	for _, d := range devs {
		if err := w.availabilityFor(d.Name, d.Address).write(false, true); err != nil {
			errs = append(errs, fmt.Sprintf("writer: device=%s %v", d.Name, err))
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, " | "))
	}
	return nil
}

func (w *writerImpl) Reassert() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, aw := range w.avail {
		aw.reassert()
	}
	w.log.Debug("availability re-assert scheduled", "devices", len(w.avail))
}

// availabilityFor returns the device's availability writer. Callers hold w.mu.
func (w *writerImpl) availabilityFor(device, address string) *availabilityWriter {
	aw, ok := w.avail[device]
	if !ok {
		aw = newAvailabilityWriter(w.cfg.Sink, device, address)
		w.avail[device] = aw
	}
	return aw
}

func stripMeta(fields map[string]any) map[string]any {
	out := maps.Clone(fields)
	maps.DeleteFunc(out, func(k string, _ any) bool { return poller.IsMeta(k) })
	return out
}
