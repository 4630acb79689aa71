// Package coordinator owns the hub's shared state and is the single place
// where clock ticks, sensor samples and peer telemetry are turned into
// pushes, alarm matches and mirror writes.
package coordinator

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"smartclock-hub/internal/alarm"
	"smartclock-hub/internal/alerting"
	"smartclock-hub/internal/anomaly"
	"smartclock-hub/internal/data"
	"smartclock-hub/internal/mirror"
	"smartclock-hub/internal/storage"

	"go.uber.org/zap"
)

// ErrMalformedTelemetry marks a peer payload that was dropped.
var ErrMalformedTelemetry = errors.New("malformed telemetry payload")

// Channel is one push channel; Publish must not block.
type Channel interface {
	Publish(message []byte) bool
}

// Channels are the three display push channels.
type Channels struct {
	Time      Channel
	Telemetry Channel
	Sensor    Channel
}

type Coordinator struct {
	state     *storage.State
	registry  *alarm.Registry
	matcher   *alarm.Matcher
	channels  Channels
	alerter   *alerting.Alerter
	detector  *anomaly.Detector
	recorders []mirror.Recorder
	logger    *zap.Logger
	now       func() time.Time

	// telemetryMu keeps stored and published telemetry in the same order
	// when several transports deliver at once.
	telemetryMu sync.Mutex
}

type Options struct {
	Alerter   *alerting.Alerter
	Detector  *anomaly.Detector
	Recorders []mirror.Recorder
}

func New(registry *alarm.Registry, channels Channels, opts Options, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		state:     storage.NewState(),
		registry:  registry,
		matcher:   alarm.NewMatcher(registry),
		channels:  channels,
		alerter:   opts.Alerter,
		detector:  opts.Detector,
		recorders: opts.Recorders,
		logger:    logger,
		now:       time.Now,
	}
}

func (c *Coordinator) Registry() *alarm.Registry { return c.registry }

func (c *Coordinator) Snapshot() data.Snapshot { return c.state.Snapshot() }

// OnTick publishes the new time, then matches alarms against it. It returns
// the alarms that fired.
func (c *Coordinator) OnTick(ct data.ClockTime) []alarm.Entry {
	c.state.SetClock(ct)
	c.channels.Time.Publish([]byte(ct.String()))

	fired := c.matcher.Match(ct)
	if len(fired) > 0 && c.alerter != nil {
		c.alerter.ProcessFired(ct, fired)
	}
	return fired
}

// OnSample stores the reading and publishes the raw value only.
func (c *Coordinator) OnSample(r data.SensorReading) {
	prev, hadPrev := c.state.SetSensor(r)
	c.channels.Sensor.Publish(data.RenderSensor(r.Raw))

	if !hadPrev || prev.Label != r.Label {
		c.logger.Info("Air quality changed",
			zap.Int("raw", r.Raw),
			zap.Stringer("label", r.Label),
		)
	}
	at := c.now()
	for _, rec := range c.recorders {
		rec.RecordSensor(r, at)
	}
}

// OnTelemetry handles one peer-link payload. A payload of the wrong size is
// dropped before any state is touched.
func (c *Coordinator) OnTelemetry(payload []byte) error {
	rec, err := data.DecodeTelemetry(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedTelemetry, err)
	}
	msg, err := data.RenderTelemetry(rec)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedTelemetry, err)
	}

	c.telemetryMu.Lock()
	c.state.SetTelemetry(rec)
	c.channels.Telemetry.Publish(msg)
	c.telemetryMu.Unlock()

	if c.detector != nil {
		for _, f := range c.detector.Check(rec) {
			c.logger.Warn("Telemetry out of range",
				zap.String("metric", f.Metric),
				zap.Float64("value", f.Value),
				zap.String("detail", f.Message),
			)
		}
	}
	at := c.now()
	for _, r := range c.recorders {
		r.RecordTelemetry(rec, at)
	}
	return nil
}
