// Package sensor samples the local gas sensor.
package sensor

import (
	"context"
	"fmt"
	"time"

	"smartclock-hub/internal/data"

	"go.uber.org/zap"
)

// AnalogReader returns one raw ADC value.
type AnalogReader interface {
	Read(ctx context.Context) (int, error)
}

type Sampler struct {
	reader AnalogReader
	period time.Duration
	logger *zap.Logger
}

func NewSampler(reader AnalogReader, period time.Duration, logger *zap.Logger) *Sampler {
	return &Sampler{reader: reader, period: period, logger: logger}
}

// Sample reads once and derives the air-quality label.
func (s *Sampler) Sample(ctx context.Context) (data.SensorReading, error) {
	raw, err := s.reader.Read(ctx)
	if err != nil {
		return data.SensorReading{}, fmt.Errorf("read analog sensor: %w", err)
	}
	return data.SensorReading{Raw: raw, Label: data.ClassifyAirQuality(raw)}, nil
}

// Run samples every period until ctx is done. A failed read skips that cycle.
func (s *Sampler) Run(ctx context.Context, onSample func(data.SensorReading)) {
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()
	for {
		if reading, err := s.Sample(ctx); err != nil {
			s.logger.Warn("Sensor read failed, skipping sample", zap.Error(err))
		} else {
			onSample(reading)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
