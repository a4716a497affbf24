// internal/poller/poller_test.go
package poller

import (
	"errors"
	"testing"

	"github.com/tamzrod/renogy-bridge/internal/link"
	"github.com/tamzrod/renogy-bridge/internal/registers"
)

type fakeClient struct {
	data  map[uint16][]byte
	fail  map[uint16]error
	calls []uint16
}

func (f *fakeClient) ReadHoldingRegisters(addr, qty uint16) ([]byte, error) {
	f.calls = append(f.calls, addr)
	if err, ok := f.fail[addr]; ok {
		return nil, err
	}
	if d, ok := f.data[addr]; ok {
		return d, nil
	}
	return make([]byte, int(qty)*2), nil
}

func batteryDescriptor() Descriptor {
	return Descriptor{
		Name:     "battery-1",
		Address:  "AA:BB:CC:DD:EE:FF",
		DeviceID: 48,
		Kind:     registers.KindBattery,
		Groups:   registers.Groups(registers.KindBattery),
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{}, &fakeClient{}); err == nil {
		t.Fatalf("expected error for missing name")
	}

	d := batteryDescriptor()
	if _, err := New(Config{Device: d}, nil); err == nil {
		t.Fatalf("expected error for missing client")
	}

	d.Groups = nil
	if _, err := New(Config{Device: d}, &fakeClient{}); err == nil {
		t.Fatalf("expected error for empty groups")
	}
}

func TestPollDevice_Success(t *testing.T) {
	cli := &fakeClient{}
	p, err := New(Config{Device: batteryDescriptor()}, cli)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}

	res := p.PollDevice()
	if res.Err != nil {
		t.Fatalf("PollDevice err=%v", res.Err)
	}
	if res.Groups != 5 {
		t.Fatalf("expected 5 groups, got %d", res.Groups)
	}

	want := []uint16{5000, 5017, 5042, 5100, 5122}
	if len(cli.calls) != len(want) {
		t.Fatalf("expected %d reads, got %d", len(want), len(cli.calls))
	}
	for i := range want {
		if cli.calls[i] != want[i] {
			t.Fatalf("read %d: got register %d want %d", i, cli.calls[i], want[i])
		}
	}

	if res.Fields[MetaDevice] != "battery-1" {
		t.Fatalf("missing device metadata: %v", res.Fields[MetaDevice])
	}
	if res.Fields[MetaMACAddress] != "AA:BB:CC:DD:EE:FF" {
		t.Fatalf("missing mac metadata: %v", res.Fields[MetaMACAddress])
	}
	if res.Fields[MetaDeviceType] != "battery" {
		t.Fatalf("missing type metadata: %v", res.Fields[MetaDeviceType])
	}
	if _, ok := res.Fields["soc"]; !ok {
		t.Fatalf("expected soc field")
	}
}

func TestPollDevice_PartialFailure(t *testing.T) {
	cli := &fakeClient{fail: map[uint16]error{
		5000: link.ErrTimeout,
		5017: link.ErrTimeout,
	}}
	p, _ := New(Config{Device: batteryDescriptor()}, cli)

	res := p.PollDevice()
	if res.Err != nil {
		t.Fatalf("expected success with partial data, got %v", res.Err)
	}
	if res.Groups != 3 {
		t.Fatalf("expected 3 groups, got %d", res.Groups)
	}
	if _, ok := res.Fields["cell_voltages"]; ok {
		t.Fatalf("failed group must not contribute fields")
	}
}

func TestPollDevice_Failure(t *testing.T) {
	cli := &fakeClient{fail: map[uint16]error{}}
	for _, g := range registers.Groups(registers.KindBattery) {
		cli.fail[g.Register] = link.ErrTimeout
	}
	p, _ := New(Config{Device: batteryDescriptor()}, cli)

	res := p.PollDevice()
	if res.Err == nil {
		t.Fatalf("expected error, got nil")
	}
	if !errors.Is(res.Err, ErrNoData) || !errors.Is(res.Err, link.ErrTimeout) {
		t.Fatalf("unexpected error chain: %v", res.Err)
	}
	if len(res.Fields) != 0 {
		t.Fatalf("expected empty field map, got %d fields", len(res.Fields))
	}
}

func TestPollDevice_UnknownRegisterIsNotAnError(t *testing.T) {
	d := batteryDescriptor()
	d.Groups = append([]registers.Group{{Name: "mystery", Register: 9999, Words: 1}}, d.Groups...)
	cli := &fakeClient{}
	p, _ := New(Config{Device: d}, cli)

	res := p.PollDevice()
	if res.Err != nil {
		t.Fatalf("PollDevice err=%v", res.Err)
	}
	if res.Groups != 5 {
		t.Fatalf("expected 5 decoded groups, got %d", res.Groups)
	}
}

func TestIsMeta(t *testing.T) {
	if !IsMeta(MetaDevice) || IsMeta("battery_voltage") {
		t.Fatalf("IsMeta misclassifies keys")
	}
}
