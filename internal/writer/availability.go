// internal/writer/availability.go
package writer

import "fmt"

// availabilityWriter delivers one device's availability.
// Unchanged values are skipped unless a re-assert is pending; any publish
// failure schedules a re-assert on the next call.
type availabilityWriter struct {
	sink    Sink
	device  string
	address string

	needFull bool
	last     bool
}

func newAvailabilityWriter(sink Sink, device, address string) *availabilityWriter {
	return &availabilityWriter{
		sink:     sink,
		device:   device,
		address:  address,
		needFull: true,
	}
}

// write publishes online. always forces the publish even when unchanged.
func (aw *availabilityWriter) write(online, always bool) error {
	if !aw.needFull && !always && aw.last == online {
		return nil
	}

	if err := aw.sink.PublishAvailability(aw.device, aw.address, online); err != nil {
		aw.needFull = true
		return fmt.Errorf("availability writer: %w", err)
	}

	aw.needFull = false
	aw.last = online
	return nil
}

func (aw *availabilityWriter) reassert() { aw.needFull = true }
