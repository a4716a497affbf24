// internal/metrics/metrics.go
package metrics

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tamzrod/renogy-bridge/internal/poller"
	"github.com/tamzrod/renogy-bridge/internal/quality"
	"github.com/tamzrod/renogy-bridge/internal/status"
)

// Metrics holds the bridge's Prometheus collectors on a private registry.
type Metrics struct {
	reg *prometheus.Registry

	available  *prometheus.GaugeVec
	failures   *prometheus.GaugeVec
	errorCode  *prometheus.GaugeVec
	lastUpdate *prometheus.GaugeVec
	rejections *prometheus.GaugeVec
	bySensor   *prometheus.GaugeVec
	sensor     *prometheus.GaugeVec

	pollSeconds prometheus.Gauge
	online      prometheus.Gauge
	total       prometheus.Gauge
}

func New() *Metrics {
	gaugeVec := func(name, help string, labels ...string) *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: help}, labels)
	}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
	}

	m := &Metrics{
		reg: prometheus.NewRegistry(),

		available:  gaugeVec("renogy_device_available", "Device availability (1 online, 0 unavailable)", "device"),
		failures:   gaugeVec("renogy_device_consecutive_failures", "Consecutive failed polls", "device"),
		errorCode:  gaugeVec("renogy_device_last_error_code", "Code of the last poll error (0 none)", "device"),
		lastUpdate: gaugeVec("renogy_device_last_update_timestamp_seconds", "Unix time of the last successful poll", "device"),
		rejections: gaugeVec("renogy_validation_rejections", "Rejections held in the device's validation log", "device"),
		bySensor:   gaugeVec("renogy_validation_rejections_by_sensor", "Rejections held in the log per sensor", "device", "sensor"),
		sensor:     gaugeVec("renogy_sensor_value", "Latest validated numeric reading", "device", "sensor"),

		pollSeconds: gauge("renogy_poll_duration_seconds", "Duration of the last poll pass"),
		online:      gauge("renogy_devices_online", "Devices available after the last pass"),
		total:       gauge("renogy_devices_total", "Configured devices"),
	}

	m.reg.MustRegister(
		m.available, m.failures, m.errorCode, m.lastUpdate,
		m.rejections, m.bySensor, m.sensor,
		m.pollSeconds, m.online, m.total,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// ObserveStatus records a device's runtime state.
func (m *Metrics) ObserveStatus(s status.Snapshot) {
	avail := 0.0
	if s.Available {
		avail = 1
	}
	m.available.WithLabelValues(s.Name).Set(avail)
	m.failures.WithLabelValues(s.Name).Set(float64(s.ConsecutiveFailures))
	m.errorCode.WithLabelValues(s.Name).Set(float64(s.LastErrorCode))
	if !s.LastUpdate.IsZero() {
		m.lastUpdate.WithLabelValues(s.Name).Set(float64(s.LastUpdate.Unix()))
	}
}

// ObserveFields records every top-level numeric or boolean field.
// Metadata keys, strings and lists are skipped.
func (m *Metrics) ObserveFields(device string, fields map[string]any) {
	for k, v := range fields {
		if strings.HasPrefix(k, poller.MetaPrefix) {
			continue
		}
		if f, ok := numeric(v); ok {
			m.sensor.WithLabelValues(device, k).Set(f)
		}
	}
}

// ObserveRejections records a device's validation stats.
func (m *Metrics) ObserveRejections(device string, s quality.Stats) {
	m.rejections.WithLabelValues(device).Set(float64(s.Total))
	for sensor, n := range s.BySensor {
		m.bySensor.WithLabelValues(device, sensor).Set(float64(n))
	}
}

// ObservePass records one completed poll pass.
func (m *Metrics) ObservePass(p poller.PassStats) {
	m.pollSeconds.Set(p.Duration.Seconds())
	m.online.Set(float64(p.Online))
	m.total.Set(float64(p.Total))
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint16:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}
