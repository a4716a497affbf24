// internal/quality/rejection.go
package quality

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Rejection records one discarded reading.
type Rejection struct {
	Time     time.Time `json:"timestamp"`
	Sensor   string    `json:"sensor"`
	Value    float64   `json:"rejected_value"`
	Reason   string    `json:"reason"`
	LastGood *float64  `json:"last_good_value"`
}

// Stats summarises a device's rejection log.
type Stats struct {
	Total    int            `json:"total_rejections"`
	Recent   []Rejection    `json:"recent_rejections"`
	BySensor map[string]int `json:"rejection_counts_by_sensor"`
	Last     time.Time      `json:"last_rejection_time,omitzero"`
}

const (
	// LogCapacity is how many rejections a validator retains.
	LogCapacity = 100

	recentInStats = 5
)

func belowMinimum(v, lim float64) string {
	return fmt.Sprintf("below_minimum (value=%s, min=%s)", num(v), num(lim))
}

func aboveMaximum(v, lim float64) string {
	return fmt.Sprintf("above_maximum (value=%s, max=%s)", num(v), num(lim))
}

func spike(v, last, maxChange float64) string {
	return fmt.Sprintf("spike_detected (value=%s, last=%s, change=%.2f, max_change=%s)",
		num(v), num(last), math.Abs(v-last), num(maxChange))
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// toFloat reports whether v is a number the gate can examine.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}
