// internal/quality/manager_test.go
package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/renogy-bridge/internal/registers"
)

func TestManager_ValidatorPerDevice(t *testing.T) {
	m := NewManager(nil)

	a := m.Validator("rover", registers.KindController)
	assert.Same(t, a, m.Validator("rover", registers.KindController))
	assert.NotSame(t, a, m.Validator("rover2", registers.KindController))
	assert.NotSame(t, a, m.Validator("rover", registers.KindBattery))
}

func TestManager_StateIsIndependent(t *testing.T) {
	m := NewManager(nil)

	m.Validate("a", registers.KindController, map[string]any{"battery_voltage": 12.0})
	m.Validate("b", registers.KindController, map[string]any{"battery_voltage": 19.0})

	// 19 is a spike for a but within range of b's history
	out, rej := m.Validate("a", registers.KindController, map[string]any{"battery_voltage": 19.0})
	require.Len(t, rej, 1)
	assert.Equal(t, 12.0, out["battery_voltage"])

	_, rej = m.Validate("b", registers.KindController, map[string]any{"battery_voltage": 19.0})
	assert.Empty(t, rej)

	stats := m.AllStats()
	require.Len(t, stats, 2)
	assert.Equal(t, 1, stats["a_controller"].Total)
	assert.Zero(t, stats["b_controller"].Total)
}
