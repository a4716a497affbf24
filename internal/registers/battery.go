// internal/registers/battery.go
package registers

import (
	m "github.com/tamzrod/renogy-bridge/internal/modbus"
)

const (
	maxCells        = 16
	maxTempSensors  = 8
	tagCellVoltage  = "cell_voltage_alarms"
	tagCellTemp     = "cell_temperature_alarms"
	batteryAlarmKey = "alarms"
)

var (
	cellVoltageSuffix = [3]string{"_undervoltage", "_overvoltage", "_alarm"}
	cellTempSuffix    = [3]string{"_undertemp", "_overtemp", "_temp_alarm"}
	otherAlarmSuffix  = [3]string{"_low", "_high", "_alarm"}
)

// Registers 5104-5105.
var batteryOtherAlarms = []pair{
	{0, "bms_board_temp"}, {2, "bms_board_temp"},
	{4, "env_temp_1"}, {6, "env_temp_1"},
	{8, "env_temp_2"}, {10, "env_temp_2"},
	{12, "heater_temp_1"}, {14, "heater_temp_1"},
	{16, "heater_temp_2"}, {18, "heater_temp_2"},
	{20, "charge_current"}, {22, "charge_current"},
	{24, "discharge_current"}, {26, "discharge_current"},
}

// Register 5106. Bits 1 and 2 (MOSFET state) are decoded separately.
var batteryStatus1Bits = []Bit{
	{15, tagProtection, "module_undervoltage"},
	{14, tagProtection, "charge_overtemp"},
	{13, tagProtection, "charge_undertemp"},
	{12, tagProtection, "discharge_overtemp"},
	{11, tagProtection, "discharge_undertemp"},
	{10, tagProtection, "discharge_overcurrent1"},
	{9, tagProtection, "charge_overcurrent1"},
	{8, tagProtection, "cell_overvoltage"},
	{7, tagProtection, "cell_undervoltage"},
	{6, tagProtection, "module_overvoltage"},
	{5, tagProtection, "discharge_overcurrent2"},
	{4, tagProtection, "charge_overcurrent2"},
	{3, tagFlag, "using_battery_power"},
	{0, tagProtection, "short_circuit"},
}

// Register 5107.
var batteryStatus2Bits = []Bit{
	{15, tagFlag, "effective_charge"},
	{14, tagFlag, "effective_discharge"},
	{13, tagFlag, "heater_on"},
	{11, tagFlag, "fully_charged"},
	{8, tagFlag, "buzzer_on"},
}

// Register 5108.
var batteryStatus3Bits = []Bit{
	{7, tagWarning, "discharge_high_temp"},
	{6, tagWarning, "discharge_low_temp"},
	{5, tagWarning, "charge_high_temp"},
	{4, tagWarning, "charge_low_temp"},
	{3, tagWarning, "module_high_voltage"},
	{2, tagWarning, "module_low_voltage"},
	{1, tagWarning, "cell_high_voltage"},
	{0, tagWarning, "cell_low_voltage"},
	{8, tagWarning, "cell_11_voltage_error"},
	{9, tagWarning, "cell_12_voltage_error"},
	{10, tagWarning, "cell_13_voltage_error"},
	{11, tagWarning, "cell_14_voltage_error"},
	{12, tagWarning, "cell_15_voltage_error"},
	{13, tagWarning, "cell_16_voltage_error"},
	{14, tagWarning, "cell_17_voltage_error"},
	{15, tagWarning, "cell_18_voltage_error"},
}

// Register 5109.
var batteryStatus4Bits = []Bit{
	{7, tagFlag, "discharge_enabled"},
	{6, tagFlag, "charge_enabled"},
	{5, tagFlag, "charge_immediately"},
	{3, tagFlag, "full_charge_request"},
}

func batteryCellInfo(d []byte) Fields {
	if len(d) < 4 {
		return Fields{}
	}

	count := min(int(m.Uint(d, 0, 2)), maxCells)
	volts := make([]float64, 0, count)
	for i := 0; i < count; i++ {
		off := 2 + i*2
		if off+2 > len(d) {
			break
		}
		volts = append(volts, m.Round(m.Scaled(d, off, 2, 0.1), 2))
	}

	return Fields{
		"cell_count":    count,
		"cell_voltages": volts,
	}
}

func batteryTempInfo(d []byte) Fields {
	if len(d) < 4 {
		return Fields{}
	}

	count := min(int(m.Uint(d, 0, 2)), maxTempSensors)
	temps := make([]float64, 0, count)
	for i := 0; i < count; i++ {
		off := 2 + i*2
		if off+2 > len(d) {
			break
		}
		temps = append(temps, m.Round(float64(m.Int(d, off, 2))*0.1, 1))
	}

	f := Fields{
		"temperature_count": count,
		"temperatures":      temps,
	}
	if len(temps) > 0 {
		f["battery_temperature"] = temps[0]
	}
	return f
}

// batteryInfo decodes current, voltage and capacity (registers 5042-5049)
// and derives state of charge and power.
func batteryInfo(d []byte) Fields {
	if len(d) < 12 {
		return Fields{}
	}

	current := m.ScaledSigned(d, 0, 2, 0.01)
	voltage := m.Scaled(d, 2, 2, 0.1)
	remaining := m.Scaled(d, 4, 4, 0.001)
	total := m.Scaled(d, 8, 4, 0.001)

	soc := 0.0
	if total > 0 {
		soc = m.Round(remaining/total*100, 1)
	}

	return Fields{
		"current":            current,
		"voltage":            voltage,
		"remaining_capacity": remaining,
		"total_capacity":     total,
		"soc":                soc,
		"power":              m.Round(voltage*current, 1),
	}
}

// batteryAlarmInfo decodes registers 5100-5109: per-cell voltage and
// temperature alarms, other protection alarms and status flags.
func batteryAlarmInfo(d []byte) Fields {
	f := Fields{}
	ensureLists(f, tagCellVoltage, tagCellTemp, tagProtection, tagWarning)

	if len(d) < 20 {
		f["alarm_count"] = 0
		f["warning_count"] = 0
		return f
	}

	f[tagCellVoltage] = scanPairs(m.Uint(d, 0, 4), cellPairs(maxCells), cellVoltageSuffix)
	f[tagCellTemp] = scanPairs(m.Uint(d, 4, 4), cellPairs(maxCells), cellTempSuffix)
	f[tagProtection] = scanPairs(m.Uint(d, 8, 4), batteryOtherAlarms, otherAlarmSuffix)

	status1 := m.Uint(d, 12, 2)
	scanBits(f, status1, batteryStatus1Bits)
	f["discharge_mosfet"] = onOff(status1&(1<<2) != 0)
	f["charge_mosfet"] = onOff(status1&(1<<1) != 0)

	scanBits(f, m.Uint(d, 14, 2), batteryStatus2Bits)
	scanBits(f, m.Uint(d, 16, 2), batteryStatus3Bits)
	scanBits(f, m.Uint(d, 18, 2), batteryStatus4Bits)

	var alarms []string
	alarms = append(alarms, list(f, tagCellVoltage)...)
	alarms = append(alarms, list(f, tagCellTemp)...)
	alarms = append(alarms, list(f, tagProtection)...)
	if alarms == nil {
		alarms = []string{}
	}

	f[batteryAlarmKey] = alarms
	f["alarm_count"] = len(alarms)
	f["warning_count"] = len(list(f, tagWarning))
	return f
}

func batteryDeviceInfo(d []byte) Fields {
	if len(d) < 16 {
		return Fields{}
	}
	return Fields{"model": m.ASCII(d, 0, 16)}
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
