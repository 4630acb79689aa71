// Package clock produces the hub's one-second wall-clock ticks.
package clock

import (
	"context"
	"fmt"
	"time"

	"smartclock-hub/internal/data"

	"go.uber.org/zap"
)

// TimeSource supplies the current instant. Implementations bound their own
// latency; Now must not block indefinitely.
type TimeSource interface {
	Now(ctx context.Context) (time.Time, error)
}

// SystemSource trusts the host clock.
type SystemSource struct{}

func (SystemSource) Now(context.Context) (time.Time, error) { return time.Now(), nil }

// alignSlack puts ticks just after a second boundary so scheduling jitter does
// not make two ticks read the same second.
const alignSlack = 100 * time.Millisecond

type WallClock struct {
	source TimeSource
	loc    *time.Location
	period time.Duration
	logger *zap.Logger
}

func New(source TimeSource, loc *time.Location, period time.Duration, logger *zap.Logger) *WallClock {
	if loc == nil {
		loc = time.Local
	}
	return &WallClock{source: source, loc: loc, period: period, logger: logger}
}

// FixedZone builds the display zone from a UTC offset in seconds.
func FixedZone(offsetSeconds int) *time.Location {
	sign := "+"
	off := offsetSeconds
	if off < 0 {
		sign, off = "-", -off
	}
	return time.FixedZone(fmt.Sprintf("UTC%s%02d:%02d", sign, off/3600, off%3600/60), offsetSeconds)
}

// Tick reads the source once and converts it to local clock time.
func (w *WallClock) Tick(ctx context.Context) (data.ClockTime, error) {
	now, err := w.source.Now(ctx)
	if err != nil {
		return data.ClockTime{}, fmt.Errorf("obtain time: %w", err)
	}
	local := now.In(w.loc)
	return data.ClockTime{Hour: local.Hour(), Minute: local.Minute(), Second: local.Second()}, nil
}

// Run ticks every period until ctx is done. A failed read skips that cycle.
func (w *WallClock) Run(ctx context.Context, onTick func(data.ClockTime)) {
	if delay := alignDelay(time.Now(), w.period); delay > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}

	ticker := time.NewTicker(w.period)
	defer ticker.Stop()
	for {
		w.step(ctx, onTick)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *WallClock) step(ctx context.Context, onTick func(data.ClockTime)) {
	ct, err := w.Tick(ctx)
	if err != nil {
		w.logger.Warn("Failed to obtain time, skipping tick", zap.Error(err))
		return
	}
	onTick(ct)
}

// alignDelay returns how long to wait so the first tick lands alignSlack past
// a second boundary. Periods that are not whole seconds are not aligned.
func alignDelay(now time.Time, period time.Duration) time.Duration {
	if period <= 0 || period%time.Second != 0 {
		return 0
	}
	into := now.Sub(now.Truncate(time.Second))
	if into <= alignSlack {
		return alignSlack - into
	}
	return time.Second - into + alignSlack
}
