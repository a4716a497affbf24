// internal/registers/controller.go
package registers

import (
	m "github.com/tamzrod/renogy-bridge/internal/modbus"
)

var controllerChargingState = map[uint32]string{
	0: "deactivated",
	1: "activated",
	2: "mppt",
	3: "equalizing",
	4: "boost",
	5: "floating",
	6: "current_limiting",
}

var controllerLoadState = map[uint32]string{
	0: "off",
	1: "on",
}

var controllerBatteryTypes = map[uint32]string{
	1: "open",
	2: "sealed",
	3: "gel",
	4: "lithium",
	5: "custom",
}

// Registers 0x0121-0x0122 as one 32-bit word, high word first.
// Bits 0-15 and 31 are reserved.
var controllerFaultBits = []Bit{
	{30, tagFault, "charge_mos_short_circuit"},
	{29, tagFault, "anti_reverse_mos_short"},
	{28, tagFault, "solar_panel_reversed"},
	{27, tagFault, "pv_working_point_overvoltage"},
	{26, tagFault, "pv_counter_current"},
	{25, tagFault, "pv_input_overvoltage"},
	{24, tagFault, "pv_input_short_circuit"},
	{23, tagFault, "pv_input_overpower"},
	{22, tagFault, "ambient_temp_too_high"},
	{21, tagFault, "controller_temp_too_high"},
	{20, tagFault, "load_overpower"},
	{19, tagFault, "load_short_circuit"},
	{18, tagWarning, "battery_undervoltage"},
	{17, tagFault, "battery_overvoltage"},
	{16, tagFault, "battery_over_discharge"},
}

func lookup(table map[uint32]string, v uint32) string {
	if s, ok := table[v]; ok {
		return s
	}
	return "unknown"
}

func controllerDeviceInfo(d []byte) Fields {
	if len(d) < 16 {
		return Fields{}
	}
	return Fields{"model": m.ASCII(d, 0, 16)}
}

func controllerDeviceID(d []byte) Fields {
	if len(d) < 2 {
		return Fields{}
	}
	return Fields{"device_id": int(m.Uint(d, 0, 1))}
}

// controllerChargingInfo decodes registers 256-289: battery, load, PV,
// daily counters and charge state.
func controllerChargingInfo(d []byte) Fields {
	if len(d) < 68 {
		return Fields{}
	}

	u16 := func(off int) int { return int(m.Uint(d, off, 2)) }

	return Fields{
		"battery_percentage":     u16(0),
		"battery_voltage":        m.Scaled(d, 2, 2, 0.1),
		"battery_current":        m.Scaled(d, 4, 2, 0.01),
		"controller_temperature": m.Temperature(m.Uint(d, 6, 1)),
		"battery_temperature":    m.Temperature(m.Uint(d, 7, 1)),

		"load_voltage": m.Scaled(d, 8, 2, 0.1),
		"load_current": m.Scaled(d, 10, 2, 0.01),
		"load_power":   u16(12),

		"pv_voltage": m.Scaled(d, 14, 2, 0.1),
		"pv_current": m.Scaled(d, 16, 2, 0.01),
		"pv_power":   u16(18),

		"max_charging_power_today":    u16(30),
		"max_discharging_power_today": u16(32),
		"charging_amp_hours_today":    u16(34),
		"discharging_amp_hours_today": u16(36),
		"power_generation_today":      u16(38),
		"power_consumption_today":     u16(40),

		"power_generation_total": int(m.Uint(d, 56, 4)),

		"load_status":     lookup(controllerLoadState, (m.Uint(d, 64, 1)>>7)&1),
		"charging_status": lookup(controllerChargingState, m.Uint(d, 65, 1)),
	}
}

func controllerFaults(d []byte) Fields {
	f := Fields{}
	ensureLists(f, tagFault, tagWarning)

	if len(d) >= 4 {
		scanBits(f, m.Uint(d, 0, 4), controllerFaultBits)
	}

	f["fault_count"] = len(list(f, tagFault))
	f["warning_count"] = len(list(f, tagWarning))
	return f
}

func controllerBatteryType(d []byte) Fields {
	if len(d) < 2 {
		return Fields{}
	}
	return Fields{"battery_type": lookup(controllerBatteryTypes, m.Uint(d, 0, 2))}
}

// controllerHistorical decodes the last 7 days of generation, charge Ah
// and max power.
func controllerHistorical(d []byte) Fields {
	if len(d) < 42 {
		return Fields{}
	}

	week := func(base int) []int {
		out := make([]int, 7)
		for i := range out {
			out[i] = int(m.Uint(d, base+i*2, 2))
		}
		return out
	}

	return Fields{
		"daily_power_generation": week(0),
		"daily_charge_ah":        week(14),
		"daily_max_power":        week(28),
	}
}
