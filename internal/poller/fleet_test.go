// internal/poller/fleet_test.go
package poller

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/renogy-bridge/internal/link"
	"github.com/tamzrod/renogy-bridge/internal/registers"
)

type fakeLink struct {
	addr     string
	state    link.State
	connect  []bool // results of successive Connect calls; default true
	connects int
	closed   bool
}

func (l *fakeLink) Address() string   { return l.addr }
func (l *fakeLink) State() link.State { return l.state }
func (l *fakeLink) Close() error      { l.closed = true; return nil }

func (l *fakeLink) Connect(context.Context) bool {
	l.connects++
	ok := true
	if len(l.connect) > 0 {
		ok, l.connect = l.connect[0], l.connect[1:]
	}
	if ok {
		l.state = link.Ready
	}
	return ok
}

// switchClient fails every read while down is set.
type switchClient struct {
	down  bool
	reads int
}

func (c *switchClient) ReadHoldingRegisters(_, qty uint16) ([]byte, error) {
	c.reads++
	if c.down {
		return nil, link.ErrTimeout
	}
	return make([]byte, int(qty)*2), nil
}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newTestFleet(t *testing.T) *Fleet {
	t.Helper()
	f, err := NewFleet(FleetConfig{Interval: 10 * time.Millisecond, Logger: quietLogger()})
	require.NoError(t, err)
	return f
}

func newTestPoller(t *testing.T, name string, kind registers.Kind, c Client) *Poller {
	t.Helper()
	p, err := New(Config{
		Device: Descriptor{
			Name:    name,
			Address: "AA:BB:CC:DD:EE:FF",
			Kind:    kind,
			Groups:  registers.Groups(kind),
		},
		Logger: quietLogger(),
	}, c)
	require.NoError(t, err)
	return p
}

func TestNewFleet_RequiresInterval(t *testing.T) {
	_, err := NewFleet(FleetConfig{})
	assert.Error(t, err)
}

func TestAttach_Validation(t *testing.T) {
	f := newTestFleet(t)
	l := &fakeLink{addr: "AA"}

	assert.Error(t, f.Attach(nil, newTestPoller(t, "a", registers.KindBattery, &switchClient{})))
	assert.Error(t, f.Attach(l))

	require.NoError(t, f.Attach(l, newTestPoller(t, "a", registers.KindBattery, &switchClient{})))
	assert.Error(t, f.Attach(&fakeLink{addr: "BB"}, newTestPoller(t, "a", registers.KindController, &switchClient{})))
}

func TestConnectAll(t *testing.T) {
	f := newTestFleet(t)
	a := &fakeLink{addr: "A"}
	b := &fakeLink{addr: "B", connect: []bool{false}}
	c := &fakeLink{addr: "C"}
	require.NoError(t, f.Attach(a, newTestPoller(t, "a", registers.KindBattery, &switchClient{})))
	require.NoError(t, f.Attach(b, newTestPoller(t, "b", registers.KindBattery, &switchClient{})))
	require.NoError(t, f.Attach(c, newTestPoller(t, "c", registers.KindBattery, &switchClient{})))

	assert.Equal(t, 2, f.ConnectAll(context.Background()))
	assert.Equal(t, 1, b.connects)
}

func TestPollAll_AvailabilityRule(t *testing.T) {
	f := newTestFleet(t)
	cli := &switchClient{}
	require.NoError(t, f.Attach(&fakeLink{addr: "A", state: link.Ready},
		newTestPoller(t, "rover", registers.KindController, cli)))
	dev, ok := f.Device("rover")
	require.True(t, ok)

	res := f.PollAll()
	require.Len(t, res, 1)
	require.NoError(t, res[0].Err)
	assert.True(t, res[0].Available)

	cli.down = true
	for i := 1; i <= 3; i++ {
		res = f.PollAll()
		require.Error(t, res[0].Err)
		assert.Equal(t, i < 3, dev.IsAvailable(), "after failure %d", i)
		assert.Equal(t, i < 3, res[0].Available)
	}

	cli.down = false
	res = f.PollAll()
	require.NoError(t, res[0].Err)
	assert.True(t, dev.IsAvailable())
	assert.Equal(t, 0, dev.ConsecutiveFailures())
}

func TestPollAll_ReconnectFailureMarksHubDevices(t *testing.T) {
	f := newTestFleet(t)
	l := &fakeLink{addr: "A", connect: []bool{false}}
	bat, ctl := &switchClient{}, &switchClient{}
	require.NoError(t, f.Attach(l,
		newTestPoller(t, "battery", registers.KindBattery, bat),
		newTestPoller(t, "rover", registers.KindController, ctl)))

	res := f.PollAll()
	require.Len(t, res, 2)
	for _, r := range res {
		assert.ErrorIs(t, r.Err, link.ErrNotConnected)
	}
	assert.Zero(t, bat.reads+ctl.reads)
	for _, d := range f.Devices() {
		assert.Equal(t, 1, d.ConsecutiveFailures())
	}

	// next pass reconnects and polls both
	res = f.PollAll()
	require.Len(t, res, 2)
	assert.Equal(t, "battery", res[0].Device)
	assert.Equal(t, "rover", res[1].Device)
	assert.NoError(t, res[0].Err)
	assert.NoError(t, res[1].Err)
}

func TestPollAll_OnResult(t *testing.T) {
	var seen []string
	f, err := NewFleet(FleetConfig{
		Interval: time.Second,
		Logger:   quietLogger(),
		OnResult: func(r PollResult) { seen = append(seen, r.Device) },
	})
	require.NoError(t, err)
	require.NoError(t, f.Attach(&fakeLink{addr: "A", state: link.Ready},
		newTestPoller(t, "one", registers.KindBattery, &switchClient{}),
		newTestPoller(t, "two", registers.KindBattery, &switchClient{})))
	require.NoError(t, f.Attach(&fakeLink{addr: "B", state: link.Ready},
		newTestPoller(t, "three", registers.KindInverter, &switchClient{})))

	f.PollAll()
	assert.Equal(t, []string{"one", "two", "three"}, seen)

	online, total := f.Summary()
	assert.Equal(t, 3, online)
	assert.Equal(t, 3, total)
}

type panicClient struct{}

func (panicClient) ReadHoldingRegisters(uint16, uint16) ([]byte, error) { panic("radio on fire") }

func TestPollAll_PanicIsAFailure(t *testing.T) {
	f := newTestFleet(t)
	require.NoError(t, f.Attach(&fakeLink{addr: "A", state: link.Ready},
		newTestPoller(t, "x", registers.KindBattery, panicClient{})))

	res := f.PollAll()
	require.Error(t, res[0].Err)
	assert.Equal(t, CodeGeneric, ErrorCode(res[0].Err))
}

func TestRun_StopsAfterCancel(t *testing.T) {
	f := newTestFleet(t)
	l := &fakeLink{addr: "A"}
	require.NoError(t, f.Attach(l, newTestPoller(t, "x", registers.KindBattery, &switchClient{})))

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan PollResult)
	done := make(chan struct{})
	go func() {
		f.Run(ctx, out)
		close(done)
	}()

	var got []PollResult
	for r := range out {
		got = append(got, r)
		if len(got) == 2 {
			cancel()
		}
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
	assert.GreaterOrEqual(t, len(got), 2)
	assert.Equal(t, 1, l.connects)
}

func TestRun_ReportsPasses(t *testing.T) {
	passes := make(chan PassStats, 4)
	f, err := NewFleet(FleetConfig{
		Interval: 10 * time.Millisecond,
		Logger:   quietLogger(),
		OnPass: func(p PassStats) {
			select {
			case passes <- p:
			default:
			}
		},
	})
	require.NoError(t, err)
	require.NoError(t, f.Attach(&fakeLink{addr: "A"}, newTestPoller(t, "x", registers.KindBattery, &switchClient{})))

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan PollResult, 8)
	go f.Run(ctx, out)

	var p PassStats
	select {
	case p = <-passes:
	case <-time.After(time.Second):
		t.Fatal("no pass reported")
	}
	cancel()
	for range out {
	}

	assert.Equal(t, 1, p.Online)
	assert.Equal(t, 1, p.Total)
	assert.Positive(t, p.Duration)
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	f := newTestFleet(t)
	l := &fakeLink{addr: "A"}
	require.NoError(t, f.Attach(l, newTestPoller(t, "x", registers.KindBattery, &switchClient{})))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := make(chan PollResult)
	f.Run(ctx, out)

	_, open := <-out
	assert.False(t, open)
	assert.Zero(t, l.connects)
}

func TestClose(t *testing.T) {
	f := newTestFleet(t)
	a, b := &fakeLink{addr: "A"}, &fakeLink{addr: "B"}
	require.NoError(t, f.Attach(a, newTestPoller(t, "a", registers.KindBattery, &switchClient{})))
	require.NoError(t, f.Attach(b, newTestPoller(t, "b", registers.KindBattery, &switchClient{})))

	require.NoError(t, f.Close())
	assert.True(t, a.closed && b.closed)
}
