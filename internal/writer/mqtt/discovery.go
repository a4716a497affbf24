// internal/writer/mqtt/discovery.go
package mqtt

import (
	"fmt"
	"strings"

	"github.com/tamzrod/renogy-bridge/internal/registers"
)

const (
	manufacturer    = "Renogy"
	softwareVersion = "1.0"
)

// entity describes one Home Assistant entity backed by a state key.
type entity struct {
	Key         string
	Name        string
	DeviceClass string
	Unit        string
	StateClass  string
	Icon        string
	Attributes  []string
}

type haDevice struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model,omitempty"`
	SWVersion    string   `json:"sw_version,omitempty"`
}

type haConfig struct {
	Name                   string   `json:"name"`
	UniqueID               string   `json:"unique_id"`
	StateTopic             string   `json:"state_topic"`
	ValueTemplate          string   `json:"value_template"`
	PayloadOn              string   `json:"payload_on,omitempty"`
	PayloadOff             string   `json:"payload_off,omitempty"`
	Device                 haDevice `json:"device"`
	DeviceClass            string   `json:"device_class,omitempty"`
	Unit                   string   `json:"unit_of_measurement,omitempty"`
	StateClass             string   `json:"state_class,omitempty"`
	Icon                   string   `json:"icon,omitempty"`
	JSONAttributesTopic    string   `json:"json_attributes_topic,omitempty"`
	JSONAttributesTemplate string   `json:"json_attributes_template,omitempty"`
	AvailabilityTopic      string   `json:"availability_topic,omitempty"`
}

var sensors = map[registers.Kind][]entity{
	registers.KindController: {
		{Key: "battery_percentage", Name: "Battery", DeviceClass: "battery", Unit: "%", StateClass: "measurement", Icon: "mdi:battery"},
		{Key: "battery_voltage", Name: "Battery Voltage", DeviceClass: "voltage", Unit: "V", StateClass: "measurement"},
		{Key: "battery_current", Name: "Battery Current", DeviceClass: "current", Unit: "A", StateClass: "measurement"},
		{Key: "battery_temperature", Name: "Battery Temperature", DeviceClass: "temperature", Unit: "°C", StateClass: "measurement"},
		{Key: "battery_type", Name: "Battery Type", Icon: "mdi:battery-outline"},

		{Key: "pv_voltage", Name: "PV Voltage", DeviceClass: "voltage", Unit: "V", StateClass: "measurement"},
		{Key: "pv_current", Name: "PV Current", DeviceClass: "current", Unit: "A", StateClass: "measurement"},
		{Key: "pv_power", Name: "PV Power", DeviceClass: "power", Unit: "W", StateClass: "measurement"},

		{Key: "load_voltage", Name: "Load Voltage", DeviceClass: "voltage", Unit: "V", StateClass: "measurement"},
		{Key: "load_current", Name: "Load Current", DeviceClass: "current", Unit: "A", StateClass: "measurement"},
		{Key: "load_power", Name: "Load Power", DeviceClass: "power", Unit: "W", StateClass: "measurement"},
		{Key: "load_status", Name: "Load Status", Icon: "mdi:power-plug"},

		{Key: "controller_temperature", Name: "Controller Temperature", DeviceClass: "temperature", Unit: "°C", StateClass: "measurement"},
		{Key: "charging_status", Name: "Charging Status", Icon: "mdi:battery-charging"},

		{Key: "max_charging_power_today", Name: "Max Charging Power Today", DeviceClass: "power", Unit: "W", StateClass: "measurement"},
		{Key: "max_discharging_power_today", Name: "Max Discharging Power Today", DeviceClass: "power", Unit: "W", StateClass: "measurement"},
		{Key: "charging_amp_hours_today", Name: "Charging Ah Today", Unit: "Ah", StateClass: "total_increasing"},
		{Key: "discharging_amp_hours_today", Name: "Discharging Ah Today", Unit: "Ah", StateClass: "total_increasing"},
		{Key: "power_generation_today", Name: "Power Generation Today", DeviceClass: "energy", Unit: "Wh", StateClass: "total_increasing"},
		{Key: "power_consumption_today", Name: "Power Consumption Today", DeviceClass: "energy", Unit: "Wh", StateClass: "total_increasing"},
		{Key: "power_generation_total", Name: "Power Generation Total", DeviceClass: "energy", Unit: "Wh", StateClass: "total_increasing"},

		{Key: "fault_count", Name: "Active Faults", Icon: "mdi:alert-circle", Attributes: []string{"faults"}},
		{Key: "warning_count", Name: "Active Warnings", Icon: "mdi:alert-outline", Attributes: []string{"warnings"}},
	},
	registers.KindBattery: {
		{Key: "voltage", Name: "Voltage", DeviceClass: "voltage", Unit: "V", StateClass: "measurement"},
		{Key: "current", Name: "Current", DeviceClass: "current", Unit: "A", StateClass: "measurement"},
		{Key: "power", Name: "Power", DeviceClass: "power", Unit: "W", StateClass: "measurement"},
		{Key: "soc", Name: "State of Charge", DeviceClass: "battery", Unit: "%", StateClass: "measurement"},
		{Key: "remaining_capacity", Name: "Remaining Capacity", Unit: "Ah", StateClass: "measurement"},
		{Key: "total_capacity", Name: "Total Capacity", Unit: "Ah", StateClass: "measurement"},

		{Key: "battery_temperature", Name: "Battery Temperature", DeviceClass: "temperature", Unit: "°C", StateClass: "measurement"},

		{Key: "cell_count", Name: "Cell Count", Icon: "mdi:battery-outline"},
		{Key: "temperature_count", Name: "Temperature Sensor Count", Icon: "mdi:thermometer"},

		{Key: "alarm_count", Name: "Active Alarms", Icon: "mdi:alert",
			Attributes: []string{"alarms", "cell_voltage_alarms", "cell_temperature_alarms", "protection_alarms"}},
		{Key: "warning_count", Name: "Active Warnings", Icon: "mdi:alert-outline", Attributes: []string{"warnings"}},
	},
	registers.KindInverter: {
		{Key: "input_voltage", Name: "AC Input Voltage", DeviceClass: "voltage", Unit: "V", StateClass: "measurement"},
		{Key: "input_current", Name: "AC Input Current", DeviceClass: "current", Unit: "A", StateClass: "measurement"},
		{Key: "input_power", Name: "AC Input Power", DeviceClass: "power", Unit: "W", StateClass: "measurement"},
		{Key: "input_frequency", Name: "AC Input Frequency", DeviceClass: "frequency", Unit: "Hz", StateClass: "measurement"},

		{Key: "output_voltage", Name: "AC Output Voltage", DeviceClass: "voltage", Unit: "V", StateClass: "measurement"},
		{Key: "output_current", Name: "AC Output Current", DeviceClass: "current", Unit: "A", StateClass: "measurement"},
		{Key: "output_power", Name: "AC Output Power", DeviceClass: "power", Unit: "W", StateClass: "measurement"},
		{Key: "output_frequency", Name: "AC Output Frequency", DeviceClass: "frequency", Unit: "Hz", StateClass: "measurement"},

		{Key: "battery_voltage", Name: "Battery Voltage", DeviceClass: "voltage", Unit: "V", StateClass: "measurement"},
		{Key: "temperature", Name: "Temperature", DeviceClass: "temperature", Unit: "°C", StateClass: "measurement"},

		{Key: "fault_count", Name: "Active Faults", Icon: "mdi:alert-circle", Attributes: []string{"faults"}},
	},
}

// lateSensors are announced the first time their key shows up in a state
// payload. They come from opt-in register groups.
var lateSensors = map[registers.Kind][]entity{
	registers.KindInverter: {
		{Key: "battery_soc", Name: "Battery SOC", DeviceClass: "battery", Unit: "%", StateClass: "measurement"},
		{Key: "pv_voltage", Name: "PV Voltage", DeviceClass: "voltage", Unit: "V", StateClass: "measurement"},
		{Key: "pv_current", Name: "PV Current", DeviceClass: "current", Unit: "A", StateClass: "measurement"},
		{Key: "pv_power", Name: "PV Power", DeviceClass: "power", Unit: "W", StateClass: "measurement"},
		{Key: "charge_current", Name: "Charge Current", DeviceClass: "current", Unit: "A", StateClass: "measurement"},
		{Key: "machine_state", Name: "Machine State", Icon: "mdi:state-machine"},
		{Key: "charging_status", Name: "Charging Status", Icon: "mdi:battery-charging"},
		{Key: "output_priority", Name: "Output Priority", Icon: "mdi:priority-high"},
		{Key: "ac_voltage_range", Name: "AC Voltage Range", Icon: "mdi:sine-wave"},
		{Key: "output_frequency_setting", Name: "Output Frequency Setting", DeviceClass: "frequency", Unit: "Hz", StateClass: "measurement"},
		{Key: "load_current", Name: "Load Current", DeviceClass: "current", Unit: "A", StateClass: "measurement"},
		{Key: "load_active_power", Name: "Load Active Power", DeviceClass: "power", Unit: "W", StateClass: "measurement"},
		{Key: "load_apparent_power", Name: "Load Apparent Power", DeviceClass: "apparent_power", Unit: "VA", StateClass: "measurement"},
		{Key: "load_percentage", Name: "Load Percentage", Unit: "%", StateClass: "measurement"},
		{Key: "pv_generation_today", Name: "PV Generation Today", DeviceClass: "energy", Unit: "kWh", StateClass: "total_increasing"},
		{Key: "load_consumption_today", Name: "Load Consumption Today", DeviceClass: "energy", Unit: "kWh", StateClass: "total_increasing"},
		{Key: "pv_generation_total", Name: "PV Generation Total", DeviceClass: "energy", Unit: "kWh", StateClass: "total_increasing"},
		{Key: "load_consumption_total", Name: "Load Consumption Total", DeviceClass: "energy", Unit: "kWh", StateClass: "total_increasing"},
	},
}

var binarySensors = map[registers.Kind][]entity{
	registers.KindBattery: {
		{Key: "heater_on", Name: "Heater", DeviceClass: "heat", Icon: "mdi:radiator"},
	},
	registers.KindInverter: {
		{Key: "eco_mode", Name: "ECO Mode", Icon: "mdi:leaf"},
		{Key: "beeper_on", Name: "Beeper", Icon: "mdi:volume-high"},
	},
}

func sensorValueTemplate(expr string) string {
	return fmt.Sprintf("{{ value_json.%s | default(none) }}", expr)
}

func binaryValueTemplate(key string) string {
	return fmt.Sprintf("{{ 'ON' if value_json.%s | default(false) else 'OFF' }}", key)
}

// attributesTemplate renders a JSON object with one entry per list key.
func attributesTemplate(keys []string) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf(`"%s": {{ value_json.%s | default([]) | tojson }}`, k, k)
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

func sensorConfig(e entity, id, stateTopic string, dev haDevice) haConfig {
	c := haConfig{
		Name:          e.Name,
		UniqueID:      id + "_" + e.Key,
		StateTopic:    stateTopic,
		ValueTemplate: sensorValueTemplate(e.Key),
		Device:        dev,
		DeviceClass:   e.DeviceClass,
		Unit:          e.Unit,
		StateClass:    e.StateClass,
		Icon:          e.Icon,
	}
	if len(e.Attributes) > 0 {
		c.JSONAttributesTopic = stateTopic
		c.JSONAttributesTemplate = attributesTemplate(e.Attributes)
	}
	return c
}

func binaryConfig(e entity, id, stateTopic string, dev haDevice) haConfig {
	return haConfig{
		Name:          e.Name,
		UniqueID:      id + "_" + e.Key,
		StateTopic:    stateTopic,
		ValueTemplate: binaryValueTemplate(e.Key),
		PayloadOn:     "ON",
		PayloadOff:    "OFF",
		Device:        dev,
		DeviceClass:   e.DeviceClass,
		Icon:          e.Icon,
	}
}

// indexedConfig describes element i of a list-valued state key, such as
// cell_voltages or temperatures.
func indexedConfig(key, name, list string, i int, class, unit, id, stateTopic, availTopic string, dev haDevice) haConfig {
	return haConfig{
		Name:              name,
		UniqueID:          id + "_" + key,
		StateTopic:        stateTopic,
		ValueTemplate:     sensorValueTemplate(fmt.Sprintf("%s[%d]", list, i)),
		Device:            dev,
		DeviceClass:       class,
		Unit:              unit,
		StateClass:        "measurement",
		AvailabilityTopic: availTopic,
	}
}
