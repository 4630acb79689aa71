// cmd/sensornode/main.go
//
// sensornode emulates the remote temperature/humidity node: it sends one
// telemetry record per interval to the hub's peer link and waits for the ACK.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smartclock-hub/internal/config"
	"smartclock-hub/internal/data"
	"smartclock-hub/internal/logging"
	"smartclock-hub/internal/peerlink"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	configDir := pflag.String("config", ".", "Directory containing config.yaml")
	hubs := pflag.StringSlice("hub", nil, "Hub peer-link address; repeat to list every channel (overrides node.hubs)")
	interval := pflag.Duration("interval", 0, "Send interval (overrides node.interval)")
	pflag.Parse()

	cfg, err := config.Load(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if len(*hubs) > 0 {
		cfg.Node.Hubs = *hubs
	}
	if *interval > 0 {
		cfg.Node.Interval = *interval
	}

	logger, err := logging.NewLogger(cfg.Log.Level, cfg.Log.Format, "smartclock-sensornode")
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	sender, err := peerlink.NewSender(cfg.Node.Hubs, cfg.Node.AckTimeout, logger)
	if err != nil {
		logger.Fatal("Cannot create sender", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	env := newEnvironment(time.Now().UnixNano())
	ticker := time.NewTicker(cfg.Node.Interval)
	defer ticker.Stop()
	logger.Info("Sensor node started",
		zap.Strings("hubs", cfg.Node.Hubs),
		zap.Duration("interval", cfg.Node.Interval),
	)
	for {
		select {
		case <-ctx.Done():
			logger.Info("Sensor node stopped")
			return
		case <-ticker.C:
			rec := env.next()
			if err := sender.Send(ctx, rec); err != nil {
				logger.Warn("Telemetry not acknowledged",
					zap.Int("channel", sender.Channel()),
					zap.Error(err),
				)
				continue
			}
			logger.Debug("Telemetry sent",
				zap.Float32("temperature", rec.Temperature),
				zap.Float32("humidity", rec.Humidity),
				zap.Int("channel", sender.Channel()),
			)
		}
	}
}

// environment drifts temperature and humidity around indoor values.
type environment struct {
	rnd  *rand.Rand
	temp float64
	hum  float64
}

func newEnvironment(seed int64) *environment {
	return &environment{rnd: rand.New(rand.NewSource(seed)), temp: 27, hum: 65}
}

func (e *environment) next() data.TelemetryRecord {
	e.temp = clamp(e.temp+e.rnd.Float64()-0.5, 15, 40)
	e.hum = clamp(e.hum+2*e.rnd.Float64()-1, 30, 95)
	return data.TelemetryRecord{Temperature: float32(e.temp), Humidity: float32(e.hum)}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
