// cmd/hub/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smartclock-hub/internal/alarm"
	"smartclock-hub/internal/alerting"
	"smartclock-hub/internal/anomaly"
	"smartclock-hub/internal/api"
	"smartclock-hub/internal/clock"
	"smartclock-hub/internal/config"
	"smartclock-hub/internal/coordinator"
	"smartclock-hub/internal/data"
	"smartclock-hub/internal/logging"
	"smartclock-hub/internal/mirror"
	"smartclock-hub/internal/peerlink"
	"smartclock-hub/internal/sensor"
	"smartclock-hub/internal/websocket"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
)

func main() {
	configDir := pflag.String("config", ".", "Directory containing config.yaml")
	logLevel := pflag.String("log-level", "", "Override log.level (debug, info, warn, error)")
	pflag.Parse()

	cfg, err := config.Load(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	logger, err := logging.NewLogger(cfg.Log.Level, cfg.Log.Format, "smartclock-hub")
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Hub stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Push channels ---
	hubs := map[string]*websocket.Hub{}
	for _, name := range []string{api.ChannelTime, api.ChannelTelemetry, api.ChannelSensor, api.ChannelAlarm} {
		hub := websocket.NewHub(name, logger)
		go hub.Run(ctx)
		hubs[name] = hub
	}

	// --- Mirrors ---
	var recorders []mirror.Recorder
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			// The mirror is optional; the hub keeps running without it.
			logger.Warn("Redis unreachable, mirror disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			client.Close()
		} else {
			m := mirror.NewRedisMirror(client, cfg.Redis.StreamMaxLen, logger.Named("redis"))
			go m.Run(ctx)
			recorders = append(recorders, m)
			logger.Info("Redis mirror enabled", zap.String("addr", cfg.Redis.Addr))
		}
	}
	if cfg.Influx.URL != "" {
		recorders = append(recorders, mirror.NewInfluxMirror(cfg.Influx.URL, cfg.Influx.Token, cfg.Influx.Org, cfg.Influx.Bucket, logger.Named("influx")))
		logger.Info("InfluxDB mirror enabled", zap.String("url", cfg.Influx.URL), zap.String("bucket", cfg.Influx.Bucket))
	}
	defer func() {
		for _, r := range recorders {
			if err := r.Close(); err != nil {
				logger.Warn("Mirror close failed", zap.Error(err))
			}
		}
	}()

	// --- Core ---
	registry := alarm.NewRegistry(cfg.Alarm.Capacity)
	coord := coordinator.New(registry, coordinator.Channels{
		Time:      hubs[api.ChannelTime],
		Telemetry: hubs[api.ChannelTelemetry],
		Sensor:    hubs[api.ChannelSensor],
	}, coordinator.Options{
		Alerter:   alerting.NewAlerter(hubs[api.ChannelAlarm], logger),
		Detector:  anomaly.NewDetector(cfg.Anomaly.Rules),
		Recorders: recorders,
	}, logger)

	// --- Periodic tasks ---
	var source clock.TimeSource = clock.SystemSource{}
	if cfg.Clock.Source == "ntp" {
		ntpSource := clock.NewNTPSource(cfg.Clock.NTPServer, cfg.Clock.QueryTimeout, cfg.Clock.SyncInterval, logger)
		go ntpSource.Run(ctx)
		source = ntpSource
	}
	wall := clock.New(source, clock.FixedZone(cfg.Clock.UTCOffset), cfg.Clock.Period, logger)
	go wall.Run(ctx, func(ct data.ClockTime) { coord.OnTick(ct) })

	var reader sensor.AnalogReader = sensor.NewSimulatedReader(time.Now().UnixNano())
	if cfg.Sensor.Reader == "sysfs" {
		reader = sensor.SysfsReader{Path: cfg.Sensor.Path}
	}
	sampler := sensor.NewSampler(reader, cfg.Sensor.Period, logger)
	go sampler.Run(ctx, coord.OnSample)

	// --- Peer link ---
	listener := peerlink.NewUDPListener(cfg.PeerLink.ListenAddr, cfg.PeerLink.ReadTimeout, coord.OnTelemetry, logger)
	if err := listener.Listen(); err != nil {
		return err
	}
	go func() {
		if err := listener.Serve(ctx); err != nil {
			logger.Error("Peer link stopped", zap.Error(err))
		}
	}()
	if cfg.MQTT.Broker != "" {
		sub := peerlink.NewMQTTSubscriber(cfg.MQTT, coord.OnTelemetry, logger)
		if err := sub.Start(); err != nil {
			logger.Warn("MQTT peer link unavailable", zap.String("broker", cfg.MQTT.Broker), zap.Error(err))
		} else {
			defer sub.Stop()
		}
	}

	// --- HTTP servers ---
	handler := api.NewAPIHandler(registry, coord, hubs, logger)
	servers := []*http.Server{newHTTPServer(cfg.Server.HTTPPort, api.SetupRouter(handler, cfg.Server.AllowedOrigins))}
	for channel, port := range map[string]int{
		api.ChannelTime:      cfg.Server.TimePort,
		api.ChannelTelemetry: cfg.Server.TelemetryPort,
		api.ChannelSensor:    cfg.Server.SensorPort,
	} {
		if port == 0 {
			continue
		}
		servers = append(servers, newHTTPServer(port, api.SetupChannelRouter(handler, channel)))
	}

	errc := make(chan error, len(servers))
	for _, srv := range servers {
		srv := srv
		go func() {
			logger.Info("Starting HTTP server", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- fmt.Errorf("serve %s: %w", srv.Addr, err)
			}
		}()
	}

	// --- Graceful Shutdown ---
	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutting down hub")
	case serveErr = <-errc:
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("HTTP server shutdown failed", zap.String("addr", srv.Addr), zap.Error(err))
		}
	}
	logger.Info("Hub stopped")
	return serveErr
}

// newHTTPServer bounds header reads; websocket connections are long-lived so
// no overall read or write timeout is set.
func newHTTPServer(port int, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}
