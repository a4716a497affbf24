// internal/quality/validator.go
package quality

import (
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/tamzrod/renogy-bridge/internal/registers"
)

type reading struct {
	raw any
	f   float64
}

// Validator filters one device's readings against its kind's limits.
// Rejected values are replaced by the last good value when there is one;
// otherwise they pass through unchanged but are still logged.
type Validator struct {
	mu sync.Mutex

	name   string
	kind   registers.Kind
	limits map[string]Limit

	lastGood map[string]reading
	log      []Rejection

	now func() time.Time
	lg  *slog.Logger
}

func NewValidator(name string, kind registers.Kind, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{
		name:     name,
		kind:     kind,
		limits:   Policy(kind),
		lastGood: make(map[string]reading),
		now:      time.Now,
		lg:       logger.With("device", name),
	}
}

// Validate returns the filtered field map and the rejections of this call.
// fields is never modified. Kinds without limits pass through as-is.
func (v *Validator) Validate(fields map[string]any) (map[string]any, []Rejection) {
	if len(v.limits) == 0 {
		return fields, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	out := maps.Clone(fields)
	var rejected []Rejection

	for _, key := range slices.Sorted(maps.Keys(fields)) {
		lim, ok := v.limits[key]
		if !ok {
			continue
		}
		val, ok := toFloat(fields[key])
		if !ok {
			continue
		}

		prev, hasPrev := v.lastGood[key]

		var reason string
		switch {
		case val < lim.Min:
			reason = belowMinimum(val, lim.Min)
		case val > lim.Max:
			reason = aboveMaximum(val, lim.Max)
		case hasPrev && absDiff(val, prev.f) > lim.MaxChange:
			reason = spike(val, prev.f, lim.MaxChange)
		}

		if reason == "" {
			v.lastGood[key] = reading{raw: fields[key], f: val}
			continue
		}

		r := Rejection{Time: v.now(), Sensor: key, Value: val, Reason: reason}
		if hasPrev {
			last := prev.f
			r.LastGood = &last
			out[key] = prev.raw
		}
		rejected = append(rejected, r)
		v.record(r)

		v.lg.Warn("reading rejected", "sensor", key, "value", val, "reason", reason)
	}

	return out, rejected
}

func (v *Validator) record(r Rejection) {
	v.log = append(v.log, r)
	if over := len(v.log) - LogCapacity; over > 0 {
		v.log = slices.Delete(v.log, 0, over)
	}
}

// Stats summarises the retained rejection log.
func (v *Validator) Stats() Stats {
	v.mu.Lock()
	defer v.mu.Unlock()

	s := Stats{
		Total:    len(v.log),
		Recent:   []Rejection{},
		BySensor: make(map[string]int),
	}
	if len(v.log) == 0 {
		return s
	}

	for _, r := range v.log {
		s.BySensor[r.Sensor]++
	}
	s.Recent = slices.Clone(v.log[max(0, len(v.log)-recentInStats):])
	s.Last = v.log[len(v.log)-1].Time
	return s
}

// LastRejection returns the most recent rejection, if any.
func (v *Validator) LastRejection() (Rejection, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.log) == 0 {
		return Rejection{}, false
	}
	return v.log[len(v.log)-1], true
}

// ClearLog empties the rejection log. Last good values are kept.
func (v *Validator) ClearLog() {
	v.mu.Lock()
	v.log = nil
	v.mu.Unlock()
}

func absDiff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}
