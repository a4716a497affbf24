// internal/config/validate.go
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/renogy-bridge/internal/registers"
)

var logLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "warning": true, "error": true,
}

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil")
	}

	// ------------------------------------------------------------
	// GLOBAL SECTIONS
	// ------------------------------------------------------------

	if p := cfg.MQTT.Port; p < 0 || p > 65535 {
		return fmt.Errorf("mqtt: port %d out of range", p)
	}

	if iv := cfg.Polling.Interval; iv != 0 && (iv < MinInterval || iv > MaxInterval) {
		return fmt.Errorf("polling: interval %d must be between %d and %d seconds", iv, MinInterval, MaxInterval)
	}
	if cfg.Polling.RetryAttempts < 0 {
		return fmt.Errorf("polling: retry_attempts must be >= 0")
	}
	if cfg.Polling.RetryDelay < 0 {
		return fmt.Errorf("polling: retry_delay must be >= 0")
	}

	if lv := cfg.Logging.Level; lv != "" && !logLevels[strings.ToLower(lv)] {
		return fmt.Errorf("logging: unknown level %q", lv)
	}

	// ------------------------------------------------------------
	// DEVICES
	// ------------------------------------------------------------

	if len(cfg.Devices) == 0 {
		return errors.New("devices: at least one device required")
	}

	names := make(map[string]bool)

	// key = mac | device_id
	busOwner := make(map[string]string)

	for i, d := range cfg.Devices {
		if d.Name == "" {
			return fmt.Errorf("device #%d: name required", i+1)
		}
		if names[d.Name] {
			return fmt.Errorf("device %q: duplicate name", d.Name)
		}
		names[d.Name] = true

		mac, err := FormatMAC(d.MACAddress)
		if err != nil {
			return fmt.Errorf("device %q: %w", d.Name, err)
		}

		kind, err := registers.ParseKind(d.Type)
		if err != nil {
			return fmt.Errorf("device %q: %w", d.Name, err)
		}

		for _, g := range d.ExtraGroups {
			if _, ok := registers.OptionalGroup(kind, g); !ok {
				return fmt.Errorf("device %q: unknown %s group %q", d.Name, kind, g)
			}
		}

		id := d.ID()
		if id != BroadcastID && (id < 1 || id > 247) {
			return fmt.Errorf("device %q: device_id %d must be 1-247 or %d", d.Name, id, BroadcastID)
		}

		key := fmt.Sprintf("%s|%d", mac, id)
		if prev, exists := busOwner[key]; exists {
			return fmt.Errorf(
				"device_id collision: mac=%s device_id=%d used by devices %q and %q",
				mac,
				id,
				prev,
				d.Name,
			)
		}
		busOwner[key] = d.Name
	}

	return nil
}
