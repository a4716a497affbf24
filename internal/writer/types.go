// internal/writer/types.go
package writer

import (
	"github.com/tamzrod/renogy-bridge/internal/poller"
	"github.com/tamzrod/renogy-bridge/internal/quality"
	"github.com/tamzrod/renogy-bridge/internal/registers"
)

// Sink is the telemetry destination. Field maps passed to PublishState
// carry no metadata keys.
type Sink interface {
	AnnounceSchema(device, address string, kind registers.Kind, model string) error
	PublishState(device, address string, fields map[string]any) error
	PublishAvailability(device, address string, online bool) error
	PublishValidationStats(device, address string, stats quality.Stats) error
}

// Writer delivers poll results to a sink.
type Writer interface {
	Write(res poller.PollResult) error

	// Offline marks every given device unavailable. Used on shutdown.
	Offline(devs []poller.Descriptor) error

	// Reassert forces the next availability write for every device.
	Reassert()
}
