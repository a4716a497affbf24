// internal/config/sample.go
package config

import (
	"fmt"
	"os"
)

const sample = `# Renogy BT bridge configuration
# Update with your device and MQTT broker settings

# MQTT broker. MQTT_HOST, MQTT_USERNAME and MQTT_PASSWORD (environment or
# .env) override the values below.
mqtt:
  host: "homeassistant.local"
  port: 1883
  username: ""
  password: ""
  discovery_prefix: "homeassistant"
  topic_prefix: "renogy"

bluetooth:
  adapter: "hci0"

polling:
  interval: 60       # seconds between polls (10-600)
  retry_attempts: 3  # connect attempts per BT module
  retry_delay: 5     # seconds between connect attempts

# Run 'renogy-bridge -scan' to discover devices.
# Devices sharing one BT module (hub mode) use the same mac_address and
# distinct device_id values.
devices:
  - name: "Solar Controller"
    mac_address: "XX:XX:XX:XX:XX:XX"
    alias: "BT-TH-XXXXXXXX"
    type: "controller"  # controller, battery or inverter
    device_id: 255
    adapter: "bt1"

logging:
  level: "info"  # debug, info, warning, error
  file: ""       # optional log file (JSON lines)
  console: true

# Prometheus metrics; leave empty to disable.
metrics:
  listen: ""
`

// WriteSample writes an example configuration to path.
// An existing file is never overwritten.
func WriteSample(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("config: sample: %w", err)
	}
	if _, err := f.WriteString(sample); err != nil {
		f.Close()
		return fmt.Errorf("config: sample: %w", err)
	}
	return f.Close()
}
