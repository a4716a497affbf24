// internal/writer/writer_test.go
package writer

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/tamzrod/renogy-bridge/internal/poller"
	"github.com/tamzrod/renogy-bridge/internal/quality"
	"github.com/tamzrod/renogy-bridge/internal/registers"
)

// ---- fake sink ----

type call struct {
	op     string
	device string
	fields map[string]any
	online bool
	stats  quality.Stats
	model  string
}

type fakeSink struct {
	calls   []call
	failOps map[string]error
}

func (f *fakeSink) fail(op string) error {
	if f.failOps == nil {
		return nil
	}
	return f.failOps[op]
}

func (f *fakeSink) AnnounceSchema(device, _ string, _ registers.Kind, model string) error {
	f.calls = append(f.calls, call{op: "announce", device: device, model: model})
	return f.fail("announce")
}

func (f *fakeSink) PublishState(device, _ string, fields map[string]any) error {
	f.calls = append(f.calls, call{op: "state", device: device, fields: fields})
	return f.fail("state")
}

func (f *fakeSink) PublishAvailability(device, _ string, online bool) error {
	f.calls = append(f.calls, call{op: "availability", device: device, online: online})
	return f.fail("availability")
}

func (f *fakeSink) PublishValidationStats(device, _ string, stats quality.Stats) error {
	f.calls = append(f.calls, call{op: "validation", device: device, stats: stats})
	return f.fail("validation")
}

func (f *fakeSink) ops() string {
	var out []string
	for _, c := range f.calls {
		out = append(out, c.op)
	}
	return strings.Join(out, ",")
}

func (f *fakeSink) reset() { f.calls = nil }

// ---- helpers ----

func newTestWriter(t *testing.T, sink Sink, onPublished func(poller.PollResult)) Writer {
	t.Helper()
	w, err := New(Config{
		Sink:        sink,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		OnPublished: onPublished,
	})
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	return w
}

func okResult(fields map[string]any) poller.PollResult {
	f := registers.Fields{
		poller.MetaDevice:     "rover",
		poller.MetaMACAddress: "AA:BB:CC:DD:EE:FF",
		poller.MetaDeviceType: "controller",
	}
	for k, v := range fields {
		f[k] = v
	}
	return poller.PollResult{
		Device:    "rover",
		Address:   "AA:BB:CC:DD:EE:FF",
		Kind:      registers.KindController,
		At:        time.Now(),
		Fields:    f,
		Available: true,
	}
}

func failResult(available bool) poller.PollResult {
	return poller.PollResult{
		Device:    "rover",
		Address:   "AA:BB:CC:DD:EE:FF",
		Kind:      registers.KindController,
		Err:       poller.ErrNoData,
		Available: available,
	}
}

// ---- tests ----

func TestNew_RequiresSink(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected error without sink")
	}
}

func TestWrite_PublishOrder(t *testing.T) {
	sink := &fakeSink{}
	w := newTestWriter(t, sink, nil)

	if err := w.Write(okResult(map[string]any{"battery_voltage": 12.5, "model": "RNG-CTRL-RVR40"})); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := sink.ops(); got != "announce,state,availability" {
		t.Fatalf("unexpected ops: %s", got)
	}
	if sink.calls[0].model != "RNG-CTRL-RVR40" {
		t.Fatalf("model not passed to discovery: %q", sink.calls[0].model)
	}

	state := sink.calls[1].fields
	for k := range state {
		if poller.IsMeta(k) {
			t.Fatalf("metadata key %s leaked into state", k)
		}
	}
	if state["battery_voltage"] != 12.5 {
		t.Fatalf("battery_voltage=%v", state["battery_voltage"])
	}
	if !sink.calls[2].online {
		t.Fatalf("expected online")
	}

	// discovery happens once
	sink.reset()
	if err := w.Write(okResult(map[string]any{"battery_voltage": 12.6})); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := sink.ops(); got != "state,availability" {
		t.Fatalf("unexpected ops on second write: %s", got)
	}
}

func TestWrite_RejectionPublishesStatsAndSubstitutes(t *testing.T) {
	sink := &fakeSink{}
	var published poller.PollResult
	w := newTestWriter(t, sink, func(res poller.PollResult) { published = res })

	_ = w.Write(okResult(map[string]any{"battery_voltage": 12.1}))
	sink.reset()

	if err := w.Write(okResult(map[string]any{"battery_voltage": 30.0})); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := sink.ops(); got != "validation,state,availability" {
		t.Fatalf("unexpected ops: %s", got)
	}
	if sink.calls[0].stats.Total != 1 {
		t.Fatalf("stats total=%d", sink.calls[0].stats.Total)
	}
	if v := sink.calls[1].fields["battery_voltage"]; v != 12.1 {
		t.Fatalf("expected substituted 12.1, got %v", v)
	}
	if v := published.Fields["battery_voltage"]; v != 12.1 {
		t.Fatalf("OnPublished got %v", v)
	}
}

func TestWrite_DiscoveryRetriedAfterFailure(t *testing.T) {
	sink := &fakeSink{failOps: map[string]error{"announce": errors.New("broker down")}}
	w := newTestWriter(t, sink, nil)

	err := w.Write(okResult(map[string]any{"pv_power": 10}))
	if err == nil || !strings.Contains(err.Error(), "discovery") {
		t.Fatalf("expected discovery error, got %v", err)
	}
	if got := sink.ops(); got != "announce,state,availability" {
		t.Fatalf("state must still be published: %s", got)
	}

	sink.failOps = nil
	sink.reset()
	if err := w.Write(okResult(map[string]any{"pv_power": 10})); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := sink.ops(); got != "announce,state,availability" {
		t.Fatalf("expected discovery retry: %s", got)
	}
}

func TestWrite_ErrorsJoined(t *testing.T) {
	sink := &fakeSink{failOps: map[string]error{
		"state":        errors.New("s"),
		"availability": errors.New("a"),
	}}
	w := newTestWriter(t, sink, nil)

	err := w.Write(okResult(nil))
	if err == nil {
		t.Fatalf("expected error")
	}
	if parts := strings.Split(err.Error(), " | "); len(parts) != 2 {
		t.Fatalf("expected 2 joined errors, got %q", err.Error())
	}
}

func TestWrite_FailureOnlyPublishesChanges(t *testing.T) {
	sink := &fakeSink{}
	w := newTestWriter(t, sink, nil)

	_ = w.Write(okResult(nil))
	sink.reset()

	// still available after one or two failures: nothing to publish
	_ = w.Write(failResult(true))
	_ = w.Write(failResult(true))
	if len(sink.calls) != 0 {
		t.Fatalf("unexpected publish: %s", sink.ops())
	}

	// flip to unavailable
	_ = w.Write(failResult(false))
	if got := sink.ops(); got != "availability" || sink.calls[0].online {
		t.Fatalf("expected offline publish, got %s", got)
	}

	sink.reset()
	_ = w.Write(failResult(false))
	if len(sink.calls) != 0 {
		t.Fatalf("repeated offline must be skipped: %s", sink.ops())
	}
}

func TestWrite_FirstFailurePublishesInitialState(t *testing.T) {
	sink := &fakeSink{}
	w := newTestWriter(t, sink, nil)

	_ = w.Write(failResult(false))
	if got := sink.ops(); got != "availability" || sink.calls[0].online {
		t.Fatalf("expected initial offline, got %s", got)
	}
}

func TestReassert_AfterFailedPublish(t *testing.T) {
	sink := &fakeSink{}
	w := newTestWriter(t, sink, nil)

	_ = w.Write(okResult(nil))

	sink.failOps = map[string]error{"availability": errors.New("lost")}
	if err := w.Write(failResult(false)); err == nil {
		t.Fatalf("expected availability error")
	}

	// same value, but the previous publish failed
	sink.failOps = nil
	sink.reset()
	_ = w.Write(failResult(false))
	if got := sink.ops(); got != "availability" {
		t.Fatalf("expected re-assert after failure, got %q", got)
	}

	// broker reconnect forces the next write too
	sink.reset()
	w.Reassert()
	_ = w.Write(failResult(false))
	if got := sink.ops(); got != "availability" {
		t.Fatalf("expected re-assert after Reassert, got %q", got)
	}
}

func TestOffline(t *testing.T) {
	sink := &fakeSink{}
	w := newTestWriter(t, sink, nil)

	devs := []poller.Descriptor{
		{Name: "rover", Address: "AA:BB:CC:DD:EE:FF"},
		{Name: "battery", Address: "AA:BB:CC:DD:EE:FF"},
	}
	if err := w.Offline(devs); err != nil {
		t.Fatalf("offline: %v", err)
	}
	if len(sink.calls) != 2 {
		t.Fatalf("expected 2 publishes, got %d", len(sink.calls))
	}
	for _, c := range sink.calls {
		if c.op != "availability" || c.online {
			t.Fatalf("unexpected call %+v", c)
		}
	}
}
