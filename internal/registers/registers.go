// internal/registers/registers.go
package registers

import (
	"fmt"
	"strings"
)

// Kind selects the register map of a device.
type Kind string

const (
	KindController Kind = "controller"
	KindBattery    Kind = "battery"
	KindInverter   Kind = "inverter"
)

// ParseKind maps a config string to a Kind (case-insensitive).
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindController, KindBattery, KindInverter:
		return k, nil
	default:
		return "", fmt.Errorf("registers: unknown device kind %q", s)
	}
}

// Group is one contiguous register range read with a single request.
type Group struct {
	Name     string
	Register uint16
	Words    uint16
}

// Fields is a flat map of decoded sensor values.
// Values are int, float64, string, bool, []int, []float64 or []string.
type Fields map[string]any

// Merge copies src into f.
func (f Fields) Merge(src Fields) {
	for k, v := range src {
		f[k] = v
	}
}

type decodeFunc func(data []byte) Fields

type kindMap struct {
	groups   []Group
	optional []Group
	decoders map[uint16]decodeFunc
}

var kinds = map[Kind]kindMap{
	KindController: {
		groups: []Group{
			{Name: "device_info", Register: 12, Words: 8},
			{Name: "device_id", Register: 26, Words: 1},
			{Name: "charging_info", Register: 256, Words: 34},
			{Name: "faults", Register: 289, Words: 2},
			{Name: "battery_type", Register: 57348, Words: 1},
			{Name: "historical", Register: 60000, Words: 21},
		},
		decoders: map[uint16]decodeFunc{
			12:    controllerDeviceInfo,
			26:    controllerDeviceID,
			256:   controllerChargingInfo,
			289:   controllerFaults,
			57348: controllerBatteryType,
			60000: controllerHistorical,
		},
	},
	KindBattery: {
		groups: []Group{
			{Name: "cell_info", Register: 5000, Words: 17},
			{Name: "temp_info", Register: 5017, Words: 17},
			{Name: "battery_info", Register: 5042, Words: 8},
			{Name: "status_info", Register: 5100, Words: 10},
			{Name: "device_info", Register: 5122, Words: 8},
		},
		decoders: map[uint16]decodeFunc{
			5000: batteryCellInfo,
			5017: batteryTempInfo,
			5042: batteryInfo,
			5100: batteryAlarmInfo,
			5122: batteryDeviceInfo,
		},
	},
	KindInverter: {
		groups: []Group{
			{Name: "main_status", Register: 4000, Words: 10},
			{Name: "device_info", Register: 4303, Words: 24},
		},
		// Only present on energy-storage models; others answer with
		// an illegal data address exception.
		optional: []Group{
			{Name: "pv_info", Register: 4327, Words: 7},
			{Name: "settings_status", Register: 4398, Words: 20},
			{Name: "settings", Register: 4441, Words: 4},
			{Name: "statistics", Register: 4543, Words: 25},
		},
		decoders: map[uint16]decodeFunc{
			4000: inverterMainStatus,
			4303: inverterDeviceInfo,
			4327: inverterPVInfo,
			4398: inverterSettingsStatus,
			4441: inverterSettings,
			4543: inverterStatistics,
		},
	},
}

// Groups returns the default read plan of k in table order.
func Groups(k Kind) []Group {
	return append([]Group(nil), kinds[k].groups...)
}

// OptionalGroup looks up an opt-in group of k by name.
func OptionalGroup(k Kind, name string) (Group, bool) {
	for _, g := range kinds[k].optional {
		if g.Name == name {
			return g, true
		}
	}
	return Group{}, false
}

// Decode maps a reply data section (bytes after the byte count) to fields.
// ok is false when k has no decoder for register; the map is then empty.
// Short payloads produce partial or empty maps, never an error.
func Decode(k Kind, register uint16, data []byte) (f Fields, ok bool) {
	fn, ok := kinds[k].decoders[register]
	if !ok {
		return Fields{}, false
	}
	return fn(data), true
}
