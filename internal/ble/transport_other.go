//go:build !linux

// internal/ble/transport_other.go
package ble

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tamzrod/renogy-bridge/internal/link"
)

var errUnsupported = errors.New("ble: only BlueZ (linux) adapters are supported")

// Transport is unavailable off linux; every call fails.
type Transport struct {
	id string
}

func New(adapter string, _ *slog.Logger) *Transport {
	return &Transport{id: adapter}
}

func (t *Transport) FindByAddress(context.Context, string, time.Duration) (link.Peripheral, error) {
	return link.Peripheral{}, errUnsupported
}

func (t *Transport) Scan(context.Context, time.Duration) ([]link.Peripheral, error) {
	return nil, errUnsupported
}

func (t *Transport) Connect(context.Context, link.Peripheral, time.Duration, func()) (link.Conn, error) {
	return nil, errUnsupported
}
