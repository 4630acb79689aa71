package mirror

import (
	"context"
	"sync"
	"time"

	"smartclock-hub/internal/data"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	LatestKey    = "smartclock:latest"
	ReadingsKey  = "smartclock:readings"
	redisQueue   = 64
	redisTimeout = 2 * time.Second
)

type redisWrite struct {
	latest map[string]interface{}
	stream map[string]interface{}
}

// RedisMirror keeps the latest readings in a hash and appends telemetry to a
// capped stream. Writes go through a bounded queue served by Run.
type RedisMirror struct {
	client    *redis.Client
	maxLen    int64
	queue     chan redisWrite
	logger    *zap.Logger
	closeOnce sync.Once
}

func NewRedisMirror(client *redis.Client, maxLen int64, logger *zap.Logger) *RedisMirror {
	return &RedisMirror{
		client: client,
		maxLen: maxLen,
		queue:  make(chan redisWrite, redisQueue),
		logger: logger,
	}
}

func (m *RedisMirror) RecordTelemetry(rec data.TelemetryRecord, at time.Time) {
	ts := at.UTC().Format(time.RFC3339)
	m.enqueue(redisWrite{
		latest: map[string]interface{}{
			"temperature":  rec.Temperature,
			"humidity":     rec.Humidity,
			"telemetry_at": ts,
		},
		stream: map[string]interface{}{
			"temperature": rec.Temperature,
			"humidity":    rec.Humidity,
			"at":          ts,
		},
	})
}

func (m *RedisMirror) RecordSensor(reading data.SensorReading, at time.Time) {
	m.enqueue(redisWrite{
		latest: map[string]interface{}{
			"sensor_raw":  reading.Raw,
			"air_quality": reading.Label.String(),
			"sensor_at":   at.UTC().Format(time.RFC3339),
		},
	})
}

func (m *RedisMirror) enqueue(w redisWrite) {
	select {
	case m.queue <- w:
	default:
		m.logger.Warn("Redis mirror queue full, dropping write")
	}
}

// Run drains the queue until ctx is done.
func (m *RedisMirror) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case w := <-m.queue:
			if err := m.write(ctx, w); err != nil {
				m.logger.Warn("Redis mirror write failed", zap.Error(err))
			}
		}
	}
}

func (m *RedisMirror) write(ctx context.Context, w redisWrite) error {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()
	if err := m.client.HSet(ctx, LatestKey, w.latest).Err(); err != nil {
		return err
	}
	if w.stream == nil {
		return nil
	}
	return m.client.XAdd(ctx, &redis.XAddArgs{
		Stream: ReadingsKey,
		MaxLen: m.maxLen,
		Values: w.stream,
	}).Err()
}

func (m *RedisMirror) Close() error {
	var err error
	m.closeOnce.Do(func() { err = m.client.Close() })
	return err
}
