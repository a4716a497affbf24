// internal/quality/manager.go
package quality

import (
	"log/slog"
	"maps"
	"sync"

	"github.com/tamzrod/renogy-bridge/internal/registers"
)

// Manager owns one Validator per device, created on first use.
type Manager struct {
	mu         sync.Mutex
	validators map[string]*Validator
	log        *slog.Logger
}

func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{validators: make(map[string]*Validator), log: logger}
}

func validatorKey(name string, kind registers.Kind) string {
	return name + "_" + string(kind)
}

// Validator returns the validator for (name, kind), creating it if needed.
func (m *Manager) Validator(name string, kind registers.Kind) *Validator {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := validatorKey(name, kind)
	v, ok := m.validators[key]
	if !ok {
		v = NewValidator(name, kind, m.log)
		m.validators[key] = v
	}
	return v
}

func (m *Manager) Validate(name string, kind registers.Kind, fields map[string]any) (map[string]any, []Rejection) {
	return m.Validator(name, kind).Validate(fields)
}

// AllStats returns stats keyed by "<name>_<kind>".
func (m *Manager) AllStats() map[string]Stats {
	m.mu.Lock()
	vs := maps.Clone(m.validators)
	m.mu.Unlock()

	out := make(map[string]Stats, len(vs))
	for k, v := range vs {
		out[k] = v.Stats()
	}
	return out
}
