// internal/writer/mqtt/sink.go
package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/tamzrod/renogy-bridge/internal/quality"
	"github.com/tamzrod/renogy-bridge/internal/registers"
)

const (
	metaPrefix = "__"

	validationKey = "validation_stats"

	// recentInPayload is how many recent rejections a stats payload carries.
	recentInPayload = 3
)

// Publisher is the subset of Client the sink needs.
type Publisher interface {
	Publish(topic string, payload []byte, retain bool) error
}

// Topics are the topic roots, e.g. "homeassistant" and "renogy".
type Topics struct {
	Discovery string
	Base      string
}

// Sink publishes device telemetry with Home Assistant discovery.
// Every message is retained. Discovery configs are sent once per entity;
// a config that failed to publish is retried on the next announce.
type Sink struct {
	pub    Publisher
	topics Topics
	log    *slog.Logger

	mu    sync.Mutex
	sent  map[string]map[string]bool
	known map[string]schema
}

// schema is what AnnounceSchema learned about a device.
type schema struct {
	kind  registers.Kind
	model string
}

func NewSink(pub Publisher, topics Topics, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{
		pub:    pub,
		topics: topics,
		log:    logger,
		sent:   make(map[string]map[string]bool),
		known:  make(map[string]schema),
	}
}

// DeviceID builds the topic id for a device: the sanitized name plus the
// last six hex digits of its MAC.
func DeviceID(name, mac string) string {
	suffix := strings.ToLower(strings.ReplaceAll(mac, ":", ""))
	if len(suffix) > 6 {
		suffix = suffix[len(suffix)-6:]
	}
	safe := strings.NewReplacer(" ", "_", "-", "_").Replace(strings.ToLower(name))
	return safe + "_" + suffix
}

func (s *Sink) stateTopic(id string) string { return s.topics.Base + "/" + id + "/state" }

func (s *Sink) availabilityTopic(id string) string {
	return s.topics.Base + "/" + id + "/availability"
}

func (s *Sink) validationTopic(id string) string {
	return s.topics.Base + "/" + id + "/validation"
}

func (s *Sink) configTopic(component, id, key string) string {
	return fmt.Sprintf("%s/%s/%s/%s/config", s.topics.Discovery, component, id, key)
}

// AnnounceSchema sends discovery configs for the kind's sensor set.
// model falls back to the kind name.
func (s *Sink) AnnounceSchema(device, address string, kind registers.Kind, model string) error {
	id := DeviceID(device, address)
	if model == "" {
		model = title(string(kind))
	}
	dev := haDevice{
		Identifiers:  []string{id},
		Name:         device,
		Manufacturer: manufacturer,
		Model:        model,
		SWVersion:    softwareVersion,
	}
	state := s.stateTopic(id)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.known[id] = schema{kind: kind, model: model}

	var errs []error
	for _, e := range sensors[kind] {
		errs = append(errs, s.announce(id, e.Key, "sensor", sensorConfig(e, id, state, dev)))
	}
	for _, e := range binarySensors[kind] {
		errs = append(errs, s.announce(id, e.Key, "binary_sensor", binaryConfig(e, id, state, dev)))
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	s.log.Info("discovery sent", "device", device, "id", id)
	return nil
}

// announce publishes one config unless already sent. Callers hold s.mu.
func (s *Sink) announce(id, key, component string, cfg haConfig) error {
	if s.sent[id][key] {
		return nil
	}

	payload, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("discovery %s: %w", key, err)
	}
	if err := s.pub.Publish(s.configTopic(component, id, key), payload, true); err != nil {
		s.log.Warn("discovery publish failed", "id", id, "key", key, "err", err)
		return err
	}

	if s.sent[id] == nil {
		s.sent[id] = make(map[string]bool)
	}
	s.sent[id][key] = true
	return nil
}

// PublishState publishes fields as the device's JSON state. Metadata keys
// and nil values are left out. Per-cell and per-probe entities, and
// sensors from opt-in groups, are announced as they first appear.
func (s *Sink) PublishState(device, address string, fields map[string]any) error {
	id := DeviceID(device, address)

	if err := s.announceDynamic(device, id, fields); err != nil {
		s.log.Warn("dynamic discovery incomplete", "device", device, "err", err)
	}

	clean := make(map[string]any, len(fields))
	for k, v := range fields {
		if strings.HasPrefix(k, metaPrefix) || v == nil {
			continue
		}
		clean[k] = v
	}

	payload, err := json.Marshal(clean)
	if err != nil {
		return fmt.Errorf("state %s: %w", device, err)
	}
	if err := s.pub.Publish(s.stateTopic(id), payload, true); err != nil {
		return fmt.Errorf("state %s: %w", device, err)
	}
	s.log.Debug("state published", "device", device, "fields", len(clean))
	return nil
}

func (s *Sink) announceDynamic(device, id string, fields map[string]any) error {
	state := s.stateTopic(id)
	avail := s.availabilityTopic(id)

	s.mu.Lock()
	defer s.mu.Unlock()

	known, announced := s.known[id]
	model, _ := fields["model"].(string)
	if model == "" {
		model = known.model
	}
	if model == "" {
		model = "Battery"
	}
	dev := haDevice{
		Identifiers:  []string{id},
		Name:         device,
		Manufacturer: manufacturer,
		Model:        model,
	}

	var errs []error
	if n, ok := count(fields, "cell_count", "cell_voltages"); ok {
		for i := range n {
			key := fmt.Sprintf("cell_%d_voltage", i+1)
			cfg := indexedConfig(key, fmt.Sprintf("Cell %d Voltage", i+1), "cell_voltages", i,
				"voltage", "V", id, state, avail, dev)
			errs = append(errs, s.announce(id, key, "sensor", cfg))
		}
	}
	if n, ok := count(fields, "temperature_count", "temperatures"); ok {
		for i := range n {
			key := fmt.Sprintf("temperature_%d", i+1)
			cfg := indexedConfig(key, fmt.Sprintf("Temperature %d", i+1), "temperatures", i,
				"temperature", "°C", id, state, avail, dev)
			errs = append(errs, s.announce(id, key, "sensor", cfg))
		}
	}

	if !announced {
		return errors.Join(errs...)
	}
	dev.SWVersion = softwareVersion
	for _, e := range lateSensors[known.kind] {
		if _, present := fields[e.Key]; present {
			errs = append(errs, s.announce(id, e.Key, "sensor", sensorConfig(e, id, state, dev)))
		}
	}
	return errors.Join(errs...)
}

// count reads an integer count field when its list companion is present.
func count(fields map[string]any, countKey, listKey string) (int, bool) {
	if _, ok := fields[listKey]; !ok {
		return 0, false
	}
	n, ok := fields[countKey].(int)
	return n, ok && n > 0
}

// PublishAvailability publishes "online" or "offline".
func (s *Sink) PublishAvailability(device, address string, online bool) error {
	payload := "offline"
	if online {
		payload = "online"
	}
	if err := s.pub.Publish(s.availabilityTopic(DeviceID(device, address)), []byte(payload), true); err != nil {
		return fmt.Errorf("availability %s: %w", device, err)
	}
	return nil
}

type rejectionView struct {
	Time   string  `json:"time"`
	Sensor string  `json:"sensor"`
	Value  float64 `json:"value"`
	Reason string  `json:"reason"`
}

type statsPayload struct {
	Total    int             `json:"total_rejections"`
	BySensor map[string]int  `json:"rejection_counts_by_sensor"`
	Last     *string         `json:"last_rejection_time"`
	Recent   []rejectionView `json:"recent_rejections,omitempty"`
}

// PublishValidationStats publishes the rejection summary, announcing the
// validation sensor first if needed.
func (s *Sink) PublishValidationStats(device, address string, stats quality.Stats) error {
	id := DeviceID(device, address)
	topic := s.validationTopic(id)

	s.mu.Lock()
	err := s.announce(id, validationKey, "sensor", haConfig{
		Name:                   "Data Validation",
		UniqueID:               id + "_" + validationKey,
		StateTopic:             topic,
		ValueTemplate:          "{{ value_json.total_rejections }}",
		JSONAttributesTopic:    topic,
		JSONAttributesTemplate: "{{ value_json | tojson }}",
		Device: haDevice{
			Identifiers:  []string{id},
			Name:         device,
			Manufacturer: manufacturer,
		},
		Icon: "mdi:alert-check",
		Unit: "rejections",
	})
	s.mu.Unlock()
	if err != nil {
		s.log.Warn("validation discovery failed", "device", device, "err", err)
	}

	p := statsPayload{Total: stats.Total, BySensor: stats.BySensor}
	if p.BySensor == nil {
		p.BySensor = map[string]int{}
	}
	if !stats.Last.IsZero() {
		ts := stats.Last.Format(time.RFC3339Nano)
		p.Last = &ts
	}
	recent := stats.Recent[max(0, len(stats.Recent)-recentInPayload):]
	for _, r := range recent {
		p.Recent = append(p.Recent, rejectionView{
			Time:   r.Time.Format(time.RFC3339Nano),
			Sensor: r.Sensor,
			Value:  r.Value,
			Reason: r.Reason,
		})
	}

	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("validation %s: %w", device, err)
	}
	if err := s.pub.Publish(topic, payload, true); err != nil {
		return fmt.Errorf("validation %s: %w", device, err)
	}
	s.log.Debug("validation stats published", "device", device, "total", stats.Total)
	return nil
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
