// internal/quality/limits.go
package quality

import "github.com/tamzrod/renogy-bridge/internal/registers"

// Limit bounds one sensor. A value outside [Min, Max] is out of range;
// a value further than MaxChange from the last good value is a spike.
type Limit struct {
	Min       float64
	Max       float64
	MaxChange float64
}

// controllerLimits covers the charge controller readings known to spike.
var controllerLimits = map[string]Limit{
	"battery_voltage":             {0, 20, 5},
	"battery_current":             {-100, 100, 50},
	"battery_percentage":          {0, 100, 50},
	"battery_temperature":         {-40, 85, 20},
	"charging_amp_hours_today":    {0, 10000, 200},
	"discharging_amp_hours_today": {0, 10000, 200},

	"pv_voltage":               {0, 25, 10},
	"pv_current":               {0, 100, 50},
	"pv_power":                 {0, 5000, 2000},
	"max_charging_power_today": {0, 5000, 5000},
	"power_generation_today":   {0, 50000, 50000},
	"power_generation_total":   {0, 1e9, 100000},

	"load_voltage":                {0, 20, 20},
	"load_current":                {0, 20, 20},
	"load_power":                  {0, 3000, 1500},
	"power_consumption_today":     {0, 50000, 50000},
	"max_discharging_power_today": {0, 3000, 3000},

	"controller_temperature": {-40, 85, 20},
}

// Policy returns the limits for k, or nil when k is not validated.
func Policy(k registers.Kind) map[string]Limit {
	if k == registers.KindController {
		return controllerLimits
	}
	return nil
}
