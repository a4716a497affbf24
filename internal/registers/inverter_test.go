// internal/registers/inverter_test.go
package registers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInverterMainStatus(t *testing.T) {
	d := make([]byte, 20)
	put16(d, 0, 1200)   // 120.0 V in
	put16(d, 2, 250)    // 2.50 A in
	put16(d, 4, 1201)   // 120.1 V out
	put16(d, 6, 100)    // 1.00 A out
	put16(d, 8, 6000)   // 60.00 Hz
	put16(d, 10, 128)   // 12.8 V battery
	put16(d, 12, 345)   // 34.5 C
	put16(d, 14, 1<<15|1<<4)
	put16(d, 16, 1<<8|1<<4)
	put16(d, 18, 5999)

	f, ok := Decode(KindInverter, 4000, d)
	require.True(t, ok)

	assert.Equal(t, 120.0, f["input_voltage"])
	assert.Equal(t, 2.5, f["input_current"])
	assert.Equal(t, 300.0, f["input_power"])
	assert.Equal(t, 120.1, f["output_voltage"])
	assert.Equal(t, 120.1, f["output_power"])
	assert.Equal(t, 60.0, f["output_frequency"])
	assert.Equal(t, 59.99, f["input_frequency"])
	assert.Equal(t, 12.8, f["battery_voltage"])
	assert.Equal(t, 34.5, f["temperature"])

	assert.Equal(t, []string{"input_uvp", "battery_bad"}, f["faults"])
	assert.Equal(t, 2, f["fault_count"])
	assert.Equal(t, true, f["eco_mode"])
	assert.Equal(t, true, f["beeper_on"])
	assert.Equal(t, false, f["ups_line_interactive"])
}

func TestInverterMainStatus_NoACInput(t *testing.T) {
	d := make([]byte, 20)
	put16(d, 0, 0xFFFF)
	put16(d, 2, 0xFFFF)
	put16(d, 18, 0xFFFF)

	f, _ := Decode(KindInverter, 4000, d)
	assert.Equal(t, 0.0, f["input_voltage"])
	assert.Equal(t, 0.0, f["input_current"])
	assert.Equal(t, 0.0, f["input_frequency"])
	assert.Equal(t, 0.0, f["input_power"])
	assert.Equal(t, []string{}, f["faults"])
}

func TestInverterMainStatus_WithoutFrequency(t *testing.T) {
	f, _ := Decode(KindInverter, 4000, make([]byte, 18))
	assert.NotContains(t, f, "input_frequency")
	assert.Contains(t, f, "output_power")
}

func TestInverterDeviceInfo(t *testing.T) {
	d := make([]byte, 48)
	copy(d[0:], "RENOGY")
	copy(d[16:], "RIV1220PU-126")
	copy(d[32:], "V1.0.3")

	f, _ := Decode(KindInverter, 4303, d)
	assert.Equal(t, "RENOGY", f["manufacturer"])
	assert.Equal(t, "RIV1220PU-126", f["model"])
	assert.Equal(t, "V1.0.3", f["firmware_version"])
}

func TestInverterOptionalGroups(t *testing.T) {
	pv := make([]byte, 14)
	put16(pv, 0, 76)
	put16(pv, 2, 105)
	put16(pv, 10, 0x0102)
	f, _ := Decode(KindInverter, 4327, pv)
	assert.Equal(t, 76, f["battery_soc"])
	assert.Equal(t, 10.5, f["charge_current"])
	assert.Equal(t, "constant_voltage", f["charging_status"])

	st := make([]byte, 40)
	put16(st, 14, 5)
	put16(st, 30, 42)
	f, _ = Decode(KindInverter, 4398, st)
	assert.Equal(t, "inverter_operation", f["machine_state"])
	assert.Equal(t, 42, f["load_percentage"])

	set := make([]byte, 8)
	put16(set, 0, 2)
	put16(set, 2, 5000)
	put16(set, 6, 1)
	f, _ = Decode(KindInverter, 4441, set)
	assert.Equal(t, "sbu", f["output_priority"])
	assert.Equal(t, 50.0, f["output_frequency_setting"])
	assert.Equal(t, "wide", f["ac_voltage_range"])
	assert.Equal(t, true, f["eco_mode"])

	stats := make([]byte, 50)
	put16(stats, 4, 123)
	put32(stats, 22, 4567)
	f, _ = Decode(KindInverter, 4543, stats)
	assert.Equal(t, 12.3, f["pv_generation_today"])
	assert.Equal(t, 456.7, f["pv_generation_total"])

	f, _ = Decode(KindInverter, 4543, stats[:12])
	assert.NotContains(t, f, "pv_generation_total")
}
