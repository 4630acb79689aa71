// internal/alerting/alerter.go
package alerting

import (
	"encoding/json"
	"strconv"

	"smartclock-hub/internal/alarm"
	"smartclock-hub/internal/data"

	"go.uber.org/zap"
)

// Publisher is the push channel alarm-fire events go to.
type Publisher interface {
	Publish(message []byte) bool
}

type Alerter struct {
	channel Publisher
	logger  *zap.Logger
}

func NewAlerter(channel Publisher, logger *zap.Logger) *Alerter {
	return &Alerter{channel: channel, logger: logger}
}

// ProcessFired announces each alarm firing at the current tick.
func (a *Alerter) ProcessFired(tick data.ClockTime, fired []alarm.Entry) {
	for _, e := range fired {
		a.logger.Info("Alarm fired",
			zap.Int("slot", e.Slot),
			zap.String("time", e.Time),
			zap.String("label", e.Label),
			zap.String("tick", tick.String()),
		)
		if a.channel == nil {
			continue
		}
		msg, err := json.Marshal(data.Alert{ID: strconv.Itoa(e.Slot), Time: e.Time, Label: e.Label})
		if err != nil {
			a.logger.Error("Failed to encode alarm event", zap.Error(err))
			continue
		}
		a.channel.Publish(msg)
	}
}
