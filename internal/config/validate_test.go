// internal/config/validate_test.go
package config

import "testing"

// helper to build a device quickly
func device(name, mac, typ string, id *int) Device {
	return Device{
		Name:       name,
		MACAddress: mac,
		Type:       typ,
		DeviceID:   id,
	}
}

func intp(v int) *int { return &v }

func cfgWith(devs ...Device) *Config {
	return &Config{Devices: devs}
}

// ---- tests ----

func TestValidate_Minimal(t *testing.T) {
	cfg := cfgWith(device("rover", "aa:bb:cc:dd:ee:ff", "controller", nil))

	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_DoesNotMutate(t *testing.T) {
	cfg := cfgWith(device("rover", "aa-bb-cc-dd-ee-ff", "Controller", nil))

	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d := cfg.Devices[0]
	if d.MACAddress != "aa-bb-cc-dd-ee-ff" || d.Type != "Controller" || d.DeviceID != nil {
		t.Fatalf("Validate mutated device: %+v", d)
	}
}

func TestValidate_NoDevices(t *testing.T) {
	if err := Validate(&Config{}); err == nil {
		t.Fatalf("expected error for empty devices, got nil")
	}
}

func TestValidate_HubModeDistinctIDs(t *testing.T) {
	cfg := cfgWith(
		device("rover", "AA:BB:CC:DD:EE:FF", "controller", intp(1)),
		device("battery", "AA:BB:CC:DD:EE:FF", "battery", intp(48)),
	)

	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_DeviceIDCollision(t *testing.T) {
	cfg := cfgWith(
		device("battery-1", "AA:BB:CC:DD:EE:FF", "battery", intp(48)),
		device("battery-2", "aabbccddeeff", "battery", intp(48)),
	)

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected collision error, got nil")
	}
}

func TestValidate_DefaultIDCollision(t *testing.T) {
	cfg := cfgWith(
		device("rover", "AA:BB:CC:DD:EE:FF", "controller", nil),
		device("other", "AA:BB:CC:DD:EE:FF", "controller", intp(255)),
	)

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected collision error, got nil")
	}
}

func TestValidate_SameIDDifferentModules(t *testing.T) {
	cfg := cfgWith(
		device("battery-1", "AA:BB:CC:DD:EE:01", "battery", intp(48)),
		device("battery-2", "AA:BB:CC:DD:EE:02", "battery", intp(48)),
	)

	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_DeviceErrors(t *testing.T) {
	cases := map[string]Device{
		"no name":       device("", "AA:BB:CC:DD:EE:FF", "controller", nil),
		"bad mac":       device("x", "AA:BB:CC:DD:EE", "controller", nil),
		"non-hex mac":   device("x", "GG:BB:CC:DD:EE:FF", "controller", nil),
		"bad type":      device("x", "AA:BB:CC:DD:EE:FF", "shunt", nil),
		"id zero":       device("x", "AA:BB:CC:DD:EE:FF", "controller", intp(0)),
		"id 248":        device("x", "AA:BB:CC:DD:EE:FF", "controller", intp(248)),
		"unknown group": {Name: "x", MACAddress: "AA:BB:CC:DD:EE:FF", Type: "battery", ExtraGroups: []string{"pv_info"}},
	}

	for name, d := range cases {
		if err := Validate(cfgWith(d)); err == nil {
			t.Fatalf("%s: expected error, got nil", name)
		}
	}
}

func TestValidate_DuplicateNames(t *testing.T) {
	cfg := cfgWith(
		device("rover", "AA:BB:CC:DD:EE:01", "controller", nil),
		device("rover", "AA:BB:CC:DD:EE:02", "controller", nil),
	)

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected duplicate name error, got nil")
	}
}

func TestValidate_InverterExtraGroups(t *testing.T) {
	cfg := cfgWith(Device{
		Name:        "inverter",
		MACAddress:  "AA:BB:CC:DD:EE:FF",
		Type:        "inverter",
		ExtraGroups: []string{"pv_info", "statistics"},
	})

	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_GlobalErrors(t *testing.T) {
	base := func() *Config {
		return cfgWith(device("rover", "AA:BB:CC:DD:EE:FF", "controller", nil))
	}

	c := base()
	c.Polling.Interval = 5
	if err := Validate(c); err == nil {
		t.Fatalf("expected interval error, got nil")
	}

	c = base()
	c.MQTT.Port = 70000
	if err := Validate(c); err == nil {
		t.Fatalf("expected port error, got nil")
	}

	c = base()
	c.Logging.Level = "verbose"
	if err := Validate(c); err == nil {
		t.Fatalf("expected level error, got nil")
	}

	c = base()
	c.Polling.RetryAttempts = -1
	if err := Validate(c); err == nil {
		t.Fatalf("expected retry error, got nil")
	}
}
