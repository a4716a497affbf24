// internal/config/config.go
package config

import "time"

type Config struct {
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Bluetooth BluetoothConfig `yaml:"bluetooth"`
	Polling   PollingConfig   `yaml:"polling"`
	Devices   []Device        `yaml:"devices"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ---- MQTT ----

type MQTTConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	Username        string `yaml:"username"`
	Password        string `yaml:"password"`
	DiscoveryPrefix string `yaml:"discovery_prefix"`
	TopicPrefix     string `yaml:"topic_prefix"`
	ClientID        string `yaml:"client_id"`
}

// ---- BLUETOOTH ----

type BluetoothConfig struct {
	Adapter string `yaml:"adapter"` // hci adapter, e.g. hci0

	// Characteristic overrides; empty means the Renogy defaults.
	WriteUUID  string `yaml:"write_uuid"`
	NotifyUUID string `yaml:"notify_uuid"`
}

// ---- POLLING ----

type PollingConfig struct {
	Interval      int `yaml:"interval"`       // seconds between passes
	RetryAttempts int `yaml:"retry_attempts"` // connect attempts per session
	RetryDelay    int `yaml:"retry_delay"`    // seconds between connect attempts
}

func (p PollingConfig) IntervalDuration() time.Duration {
	return time.Duration(p.Interval) * time.Second
}

func (p PollingConfig) RetryDelayDuration() time.Duration {
	return time.Duration(p.RetryDelay) * time.Second
}

// ---- DEVICE ----

type Device struct {
	Name       string `yaml:"name"`
	MACAddress string `yaml:"mac_address"`
	Alias      string `yaml:"alias"`
	Type       string `yaml:"type"` // controller, battery or inverter

	// Id on the module's bus (optional, default 255)
	DeviceID *int `yaml:"device_id"`

	Adapter string `yaml:"adapter"` // module model: bt1 or bt2

	// Opt-in register groups beyond the defaults of Type.
	ExtraGroups []string `yaml:"extra_groups"`
}

// ID returns the configured device id or the broadcast id.
func (d Device) ID() int {
	if d.DeviceID == nil {
		return BroadcastID
	}
	return *d.DeviceID
}

// ---- LOGGING ----

type LoggingConfig struct {
	Level   string `yaml:"level"`
	File    string `yaml:"file"`
	Console *bool  `yaml:"console"`
}

// ConsoleEnabled defaults to true.
func (l LoggingConfig) ConsoleEnabled() bool {
	return l.Console == nil || *l.Console
}

// ---- METRICS ----

type MetricsConfig struct {
	Listen string `yaml:"listen"` // e.g. :9102; empty disables
}
