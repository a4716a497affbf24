// internal/writer/builder.go
package writer

import (
	"log/slog"

	"github.com/tamzrod/renogy-bridge/internal/config"
	wmqtt "github.com/tamzrod/renogy-bridge/internal/writer/mqtt"
)

// BuildMQTT creates the broker client and a Home Assistant sink on top of
// it. Nothing connects until the client's Connect is called.
// Assumes config has already been normalized.
func BuildMQTT(c config.MQTTConfig, logger *slog.Logger) (*wmqtt.Client, *wmqtt.Sink) {
	client := wmqtt.NewClient(wmqtt.Config{
		Host:     c.Host,
		Port:     c.Port,
		ClientID: c.ClientID,
		Username: c.Username,
		Password: c.Password,
	}, logger)

	sink := wmqtt.NewSink(client, wmqtt.Topics{
		Discovery: c.DiscoveryPrefix,
		Base:      c.TopicPrefix,
	}, logger)

	return client, sink
}
