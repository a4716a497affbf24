// cmd/renogy-bridge/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tamzrod/renogy-bridge/internal/ble"
	"github.com/tamzrod/renogy-bridge/internal/config"
	"github.com/tamzrod/renogy-bridge/internal/link"
	"github.com/tamzrod/renogy-bridge/internal/logging"
	"github.com/tamzrod/renogy-bridge/internal/metrics"
	"github.com/tamzrod/renogy-bridge/internal/poller"
	"github.com/tamzrod/renogy-bridge/internal/quality"
	"github.com/tamzrod/renogy-bridge/internal/writer"
)

const mqttConnectTimeout = 10 * time.Second

func main() {
	var (
		scan         = flag.Bool("scan", false, "scan for nearby Renogy BLE modules and exit")
		scanAll      = flag.Bool("scan-all", false, "scan and list every named BLE device and exit")
		adapter      = flag.String("adapter", "", "bluetooth adapter, e.g. hci1 for a USB dongle (default from config, else hci0)")
		createConfig = flag.Bool("create-config", false, "write a sample config file and exit")
		debug        = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: renogy-bridge [flags] [config.yaml]\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfgPath := "config.yaml"
	if flag.NArg() > 0 {
		cfgPath = flag.Arg(0)
	}

	if *createConfig {
		if err := config.WriteSample(cfgPath); err != nil {
			log.Fatalf("create config failed: %v", err)
		}
		fmt.Printf("Sample configuration created: %s\n", cfgPath)
		fmt.Println("Edit this file with your device and MQTT settings.")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *scan || *scanAll {
		name := *adapter
		if name == "" {
			name = ble.DefaultAdapter
		}
		level := slog.LevelWarn
		if *debug {
			level = slog.LevelDebug
		}
		logger := slog.New(logging.Console(os.Stderr, level))
		if err := runScan(ctx, ble.New(name, logger), *scanAll); err != nil {
			log.Fatalf("scan failed: %v", err)
		}
		return
	}

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config validation failed: %v", err)
	}
	config.Normalize(cfg)
	if *adapter != "" {
		cfg.Bluetooth.Adapter = *adapter
	}

	logger, closeLog, err := logging.New(cfg.Logging, *debug)
	if err != nil {
		log.Fatalf("logging setup failed: %v", err)
	}
	defer closeLog()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("bridge stopped", "err", err)
		closeLog()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting", "devices", len(cfg.Devices), "adapter", cfg.Bluetooth.Adapter,
		"interval", cfg.Polling.IntervalDuration())

	// --------------------
	// Sink side: gate, metrics, MQTT
	// --------------------

	gate := quality.NewManager(logger)
	met := metrics.New()

	client, sink := writer.BuildMQTT(cfg.MQTT, logger)
	w, err := writer.New(writer.Config{
		Sink:   sink,
		Gate:   gate,
		Logger: logger,
		OnPublished: func(res poller.PollResult) {
			met.ObserveFields(res.Device, res.Fields)
		},
	})
	if err != nil {
		return err
	}
	client.OnConnect(w.Reassert)

	connectCtx, cancel := context.WithTimeout(ctx, mqttConnectTimeout)
	err = client.Connect(connectCtx)
	cancel()
	if err != nil {
		client.Disconnect()
		return fmt.Errorf("mqtt connect %s:%d: %w", cfg.MQTT.Host, cfg.MQTT.Port, err)
	}
	defer client.Disconnect()

	// --------------------
	// Source side: transport, sessions, pollers
	// --------------------

	lt := link.DefaultTiming()
	lt.Attempts = cfg.Polling.RetryAttempts
	lt.Backoff = cfg.Polling.RetryDelayDuration()

	fleet, err := poller.Build(cfg.Devices, ble.New(cfg.Bluetooth.Adapter, logger), poller.BuildOptions{
		Interval:   cfg.Polling.IntervalDuration(),
		Timing:     poller.DefaultTiming(),
		Link:       lt,
		WriteUUID:  cfg.Bluetooth.WriteUUID,
		NotifyUUID: cfg.Bluetooth.NotifyUUID,
		Logger:     logger,
		OnPass:     met.ObservePass,
	})
	if err != nil {
		return fmt.Errorf("fleet build failed: %w", err)
	}

	if addr := cfg.Metrics.Listen; addr != "" {
		go func() {
			if err := metrics.Serve(ctx, addr, met.Handler(), logger); err != nil {
				logger.Error("metrics server failed", "addr", addr, "err", err)
			}
		}()
	}

	// ---- channel between fleet and writer ----
	out := make(chan poller.PollResult)
	go fleet.Run(ctx, out)

	// Orchestrator: drains until Run closes out after cancellation.
	for res := range out {
		if res.Err != nil {
			logger.Warn("poll failed", "device", res.Device,
				"code", poller.ErrorCode(res.Err), "available", res.Available, "err", res.Err)
		}

		if err := w.Write(res); err != nil {
			logger.Warn("writer error", "device", res.Device, "err", err)
		}

		if d, ok := fleet.Device(res.Device); ok {
			met.ObserveStatus(d.Snapshot(time.Now()))
		}
		if res.Err == nil {
			met.ObserveRejections(res.Device, gate.Validator(res.Device, res.Kind).Stats())
		}
	}

	// --------------------
	// Shutdown: offline first, then radios, then broker
	// --------------------

	logger.Info("shutting down")
	var errs []error
	if err := w.Offline(fleet.Descriptors()); err != nil {
		errs = append(errs, err)
	}
	if err := fleet.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		logger.Warn("shutdown incomplete", "err", err)
	}
	logger.Info("shutdown complete")
	return nil
}
