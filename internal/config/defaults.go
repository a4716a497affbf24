// internal/config/defaults.go
package config

// Defaults applied by Normalize.
const (
	BroadcastID = 255

	DefaultMQTTHost        = "localhost"
	DefaultMQTTPort        = 1883
	DefaultDiscoveryPrefix = "homeassistant"
	DefaultTopicPrefix     = "renogy"
	DefaultClientIDPrefix  = "renogy-bridge-"

	DefaultAdapter       = "hci0"
	DefaultModuleAdapter = "bt2"

	DefaultInterval      = 60
	DefaultRetryAttempts = 3
	DefaultRetryDelay    = 5

	DefaultLogLevel = "info"

	MinInterval = 10
	MaxInterval = 600
)
