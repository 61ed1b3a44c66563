package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/vboginskey/bmv/internal/ble"
	"github.com/vboginskey/bmv/internal/config"
	"github.com/vboginskey/bmv/internal/influx"
	"github.com/vboginskey/bmv/internal/mqtt"
	"github.com/vboginskey/bmv/internal/ut1300"
)

const sinkWriteTimeout = 5 * time.Second

// monitor pairs one connected battery with its decoding session.
type monitor struct {
	dev     *ble.Device
	session *ut1300.Session
}

func Run(ctx context.Context, cfg config.Config) error {
	slog.Info("initializing monitor",
		"ble_adapter", cfg.BLEAdapter,
		"battery_count", cfg.BatteryCount,
		"poll_interval", cfg.PollInterval,
		"influx_url", cfg.InfluxURL,
		"influx_bucket", cfg.InfluxBucket,
		"mqtt_broker", cfg.MQTTBroker,
	)

	sink := influx.NewWriter(cfg)
	defer sink.Close()

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	err := sink.Ping(pingCtx)
	pingCancel()
	if err != nil {
		// Keep monitoring; readings fail individually until the store is back.
		slog.Warn("influx unreachable at startup", "url", cfg.InfluxURL, "error", err)
	}

	var mqttClient *mqtt.Client
	if cfg.MQTTBroker != "" {
		mqttClient = mqtt.NewClient(cfg, slog.Default())
		connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
		err := mqttClient.Connect(connectCtx)
		connectCancel()
		if err != nil {
			slog.Warn("mqtt connection failed (continuing without mqtt)", "error", err)
		}
		defer mqttClient.Disconnect()
	}

	adapter, err := ble.NewAdapter(cfg.BLEAdapter)
	if err != nil {
		return err
	}

	discoverCtx, discoverCancel := context.WithTimeout(ctx, cfg.DiscoverTimeout)
	batteries, err := ble.Discover(discoverCtx, adapter, cfg.BatteryCount)
	discoverCancel()
	if err != nil {
		return err
	}
	if len(batteries) < cfg.BatteryCount {
		slog.Warn("found fewer batteries than configured",
			"found", len(batteries),
			"configured", cfg.BatteryCount,
		)
	}

	var monitors []*monitor
	for _, b := range batteries {
		dev, err := ble.Connect(adapter, b)
		if err != nil {
			slog.Error("battery connect failed", "addr", b.Address.String(), "error", err)
			continue
		}
		defer func() {
			if err := dev.Disconnect(); err != nil {
				slog.Warn("disconnect failed", "device", dev.Name(), "error", err)
			}
		}()

		name := b.Name
		if name == "" {
			name = b.Address.String()
		}
		m := &monitor{dev: dev, session: ut1300.NewSession(name)}

		if err := dev.Subscribe(func(data []byte) {
			handleNotification(ctx, m.session, data, sink, mqttClient)
		}); err != nil {
			slog.Error("subscribe failed", "device", name, "error", err)
			continue
		}
		monitors = append(monitors, m)
		slog.Info("battery session started", "device", name, "addr", b.Address.String())
	}
	if len(monitors) == 0 {
		return errors.New("no battery sessions could be started")
	}

	go reportLoop(ctx, cfg.ReportInterval, monitors)

	pollLoop(ctx, cfg, monitors)

	slog.Info("monitor shutting down")
	return nil
}

// handleNotification is the per-fragment path: accumulate, decode, forward.
// Nothing here is fatal; a bad delivery degrades to "no reading".
func handleNotification(ctx context.Context, s *ut1300.Session, data []byte, sink *influx.Writer, mqttClient *mqtt.Client) {
	reading, err := s.HandleNotification(data)
	if err != nil {
		slog.Warn("frame decode failed", "device", s.Name(), "error", err)
		return
	}
	if reading == nil {
		return
	}

	slog.Debug("reading decoded",
		"device", reading.Device,
		"measurement", reading.Measurement,
	)

	writeCtx, cancel := context.WithTimeout(ctx, sinkWriteTimeout)
	defer cancel()
	if err := sink.WriteReading(writeCtx, reading); err != nil {
		slog.Warn("influx write failed", "device", reading.Device, "error", err)
	}

	if mqttClient != nil {
		if err := mqttClient.PublishReading(reading); err != nil {
			slog.Warn("mqtt publish failed", "device", reading.Device, "error", err)
		}
	}
}

// pollLoop issues the three request commands to every battery each round.
// The gap between commands gives the battery time to stream one reply before
// the next request lands.
func pollLoop(ctx context.Context, cfg config.Config, monitors []*monitor) {
	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	for {
		pollOnce(ctx, cfg.CommandGap, monitors)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func pollOnce(ctx context.Context, gap time.Duration, monitors []*monitor) {
	for _, cmd := range ut1300.Commands {
		for _, m := range monitors {
			if err := m.dev.Request(cmd); err != nil {
				slog.Warn("command write failed", "device", m.dev.Name(), "error", err)
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(gap):
		}
	}
}

// reportLoop periodically logs each session's decode success counters. The
// counters are read concurrently with decoding; Counters() is safe for that.
func reportLoop(ctx context.Context, interval time.Duration, monitors []*monitor) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, m := range monitors {
				c := m.session.Counters()
				slog.Info("decode success counters",
					"device", m.session.Name(),
					"cell_voltages", c.CellVoltages,
					"battery_pack_info", c.PackInfo,
					"current_and_temperature", c.PackStatus,
				)
			}
		}
	}
}
