// internal/config/load.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// required top-level sections
var requiredSections = []string{"mqtt", "devices"}

// Load reads path, loads an optional .env next to the process and applies
// environment overrides. The result is neither validated nor normalized.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: .env: %w", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	var sections map[string]any
	if err := yaml.Unmarshal(b, &sections); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	for _, s := range requiredSections {
		if _, ok := sections[s]; !ok {
			return nil, fmt.Errorf("config: missing required section %q", s)
		}
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	applyEnv(&cfg)
	return &cfg, nil
}

// applyEnv lets secrets live outside the config file.
func applyEnv(cfg *Config) {
	if v, ok := os.LookupEnv("MQTT_HOST"); ok && v != "" {
		cfg.MQTT.Host = v
	}
	if v, ok := os.LookupEnv("MQTT_USERNAME"); ok {
		cfg.MQTT.Username = v
	}
	if v, ok := os.LookupEnv("MQTT_PASSWORD"); ok {
		cfg.MQTT.Password = v
	}
}
