// internal/config/normalize.go
package config

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	// ------------------------------------------------------------
	// MQTT
	// ------------------------------------------------------------

	m := &cfg.MQTT
	if m.Host == "" {
		m.Host = DefaultMQTTHost
	}
	if m.Port == 0 {
		m.Port = DefaultMQTTPort
	}
	if m.DiscoveryPrefix == "" {
		m.DiscoveryPrefix = DefaultDiscoveryPrefix
	}
	if m.TopicPrefix == "" {
		m.TopicPrefix = DefaultTopicPrefix
	}
	if m.ClientID == "" {
		m.ClientID = DefaultClientIDPrefix + uuid.NewString()[:8]
	}

	// ------------------------------------------------------------
	// BLUETOOTH + POLLING
	// ------------------------------------------------------------

	if cfg.Bluetooth.Adapter == "" {
		cfg.Bluetooth.Adapter = DefaultAdapter
	}
	if cfg.Polling.Interval == 0 {
		cfg.Polling.Interval = DefaultInterval
	}
	if cfg.Polling.RetryAttempts == 0 {
		cfg.Polling.RetryAttempts = DefaultRetryAttempts
	}
	if cfg.Polling.RetryDelay == 0 {
		cfg.Polling.RetryDelay = DefaultRetryDelay
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)

	// ------------------------------------------------------------
	// DEVICES
	// ------------------------------------------------------------

	for i := range cfg.Devices {
		d := &cfg.Devices[i]

		// Validate already proved the address parses.
		if mac, err := FormatMAC(d.MACAddress); err == nil {
			d.MACAddress = mac
		}
		d.Type = strings.ToLower(d.Type)

		if d.DeviceID == nil {
			id := BroadcastID
			d.DeviceID = &id
		}
		if d.Adapter == "" {
			d.Adapter = DefaultModuleAdapter
		}
	}
}

// FormatMAC normalizes a MAC address to XX:XX:XX:XX:XX:XX.
// Colons, dashes and spaces are accepted as separators.
func FormatMAC(mac string) (string, error) {
	s := strings.NewReplacer("-", "", ":", "", " ", "").Replace(mac)
	s = strings.ToUpper(s)

	if len(s) != 12 {
		return "", fmt.Errorf("invalid MAC address %q", mac)
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'A' && c <= 'F') {
			return "", fmt.Errorf("invalid MAC address %q", mac)
		}
	}

	parts := make([]string, 0, 6)
	for i := 0; i < 12; i += 2 {
		parts = append(parts, s[i:i+2])
	}
	return strings.Join(parts, ":"), nil
}
