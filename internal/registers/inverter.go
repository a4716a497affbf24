// internal/registers/inverter.go
package registers

import (
	m "github.com/tamzrod/renogy-bridge/internal/modbus"
)

var inverterChargingState = map[uint32]string{
	0: "not_charging",
	1: "constant_current",
	2: "constant_voltage",
	4: "float",
	6: "battery_activation",
	7: "battery_disconnect",
}

var inverterMachineState = map[uint32]string{
	0:  "power_on_delay",
	1:  "waiting",
	2:  "initialization",
	3:  "soft_start",
	4:  "mains_operation",
	5:  "inverter_operation",
	6:  "inverter_to_mains",
	7:  "mains_to_inverter",
	10: "shutdown",
	11: "fault",
}

var inverterOutputPriority = map[uint32]string{
	0: "solar",
	1: "line",
	2: "sbu",
}

// Registers 4007 (bits 31-16) and 4008 (bits 15-0).
var inverterStatusBits = []Bit{
	{31, tagFault, "input_uvp"},
	{30, tagFault, "input_ovp"},
	{29, tagFault, "output_overload"},
	{28, tagFault, "dcdc_overload"},
	{27, tagFault, "dcdc_overcurrent"},
	{26, tagFault, "bus_overvoltage"},
	{25, tagFault, "ground_fault"},
	{24, tagFault, "over_temperature"},
	{23, tagFault, "output_short_circuit"},
	{22, tagFault, "output_uvp"},
	{21, tagFault, "output_ovp"},
	{20, tagFlag, "eco_mode"},
	{15, tagFault, "utility_fail"},
	{14, tagFault, "battery_low"},
	{13, tagFault, "apr_active"},
	{12, tagFault, "ups_fail"},
	{11, tagFlag, "ups_line_interactive"},
	{10, tagFlag, "test_in_progress"},
	{9, tagFault, "shutdown_active"},
	{8, tagFlag, "beeper_on"},
	{7, tagFault, "fan_locked"},
	{6, tagFault, "inverter_overload"},
	{5, tagFault, "inverter_short_circuit"},
	{4, tagFault, "battery_bad"},
}

// noData treats 0xFFFF-like raw values (no AC input) as zero.
func noData(raw uint32, scale float64) float64 {
	if raw >= 65000 {
		return 0
	}
	return m.Round(float64(raw)*scale, 2)
}

// inverterMainStatus decodes registers 4000-4009.
func inverterMainStatus(d []byte) Fields {
	if len(d) < 18 {
		return Fields{}
	}

	f := Fields{
		"input_voltage":    noData(m.Uint(d, 0, 2), 0.1),
		"input_current":    noData(m.Uint(d, 2, 2), 0.01),
		"output_voltage":   m.Scaled(d, 4, 2, 0.1),
		"output_current":   m.Scaled(d, 6, 2, 0.01),
		"output_frequency": m.Scaled(d, 8, 2, 0.01),
		"battery_voltage":  m.Scaled(d, 10, 2, 0.1),
		"temperature":      m.Scaled(d, 12, 2, 0.1),
	}

	ensureLists(f, tagFault)
	scanBits(f, m.Uint(d, 14, 4), inverterStatusBits)
	f["fault_count"] = len(list(f, tagFault))

	if len(d) >= 20 {
		f["input_frequency"] = noData(m.Uint(d, 18, 2), 0.01)
	}

	iv, ic := f["input_voltage"].(float64), f["input_current"].(float64)
	f["input_power"] = 0.0
	if iv > 0 && ic > 0 {
		f["input_power"] = m.Round(iv*ic, 1)
	}

	ov, oc := f["output_voltage"].(float64), f["output_current"].(float64)
	f["output_power"] = m.Round(ov*oc, 1)

	return f
}

func inverterDeviceInfo(d []byte) Fields {
	if len(d) < 48 {
		return Fields{}
	}
	return Fields{
		"manufacturer":     m.ASCII(d, 0, 16),
		"model":            m.ASCII(d, 16, 16),
		"firmware_version": m.ASCII(d, 32, 16),
	}
}

func inverterPVInfo(d []byte) Fields {
	if len(d) < 12 {
		return Fields{}
	}
	return Fields{
		"battery_soc":     int(m.Uint(d, 0, 2)),
		"charge_current":  m.Scaled(d, 2, 2, 0.1),
		"pv_voltage":      m.Scaled(d, 4, 2, 0.1),
		"pv_current":      m.Scaled(d, 6, 2, 0.1),
		"pv_power":        int(m.Uint(d, 8, 2)),
		"charging_status": lookup(inverterChargingState, m.Uint(d, 10, 2)&0xFF),
	}
}

func inverterSettingsStatus(d []byte) Fields {
	if len(d) < 30 {
		return Fields{}
	}

	f := Fields{
		"machine_state":       lookup(inverterMachineState, m.Uint(d, 14, 2)),
		"bus_voltage":         m.Scaled(d, 18, 2, 0.1),
		"load_current":        m.Scaled(d, 20, 2, 0.1),
		"load_active_power":   int(m.Uint(d, 22, 2)),
		"load_apparent_power": int(m.Uint(d, 24, 2)),
	}
	if len(d) >= 32 {
		f["load_percentage"] = int(m.Uint(d, 30, 2))
	}
	return f
}

func inverterSettings(d []byte) Fields {
	if len(d) < 8 {
		return Fields{}
	}

	rng := "narrow"
	if m.Uint(d, 4, 2) == 0 {
		rng = "wide"
	}
	saving := m.Uint(d, 6, 2) == 1

	return Fields{
		"output_priority":          lookup(inverterOutputPriority, m.Uint(d, 0, 2)),
		"output_frequency_setting": m.Round(float64(m.Uint(d, 2, 2))*0.01, 1),
		"ac_voltage_range":         rng,
		"power_saving_mode":        saving,
		"eco_mode":                 saving,
	}
}

// inverterStatistics decodes registers 4543-4567. Totals need the full block.
func inverterStatistics(d []byte) Fields {
	if len(d) < 10 {
		return Fields{}
	}

	f := Fields{
		"battery_charge_ah_today":    int(m.Uint(d, 0, 2)),
		"battery_discharge_ah_today": int(m.Uint(d, 2, 2)),
		"pv_generation_today":        m.Scaled(d, 4, 2, 0.1),
		"load_consumption_today":     m.Scaled(d, 6, 2, 0.1),
	}
	if len(d) >= 30 {
		f["battery_charge_ah_total"] = int(m.Uint(d, 14, 4))
		f["battery_discharge_ah_total"] = int(m.Uint(d, 18, 4))
		f["pv_generation_total"] = m.Scaled(d, 22, 4, 0.1)
		f["load_consumption_total"] = m.Scaled(d, 26, 4, 0.1)
	}
	return f
}
