package alerting

import (
	"testing"

	"smartclock-hub/internal/alarm"
	"smartclock-hub/internal/data"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingPublisher struct {
	messages []string
}

func (p *recordingPublisher) Publish(message []byte) bool {
	p.messages = append(p.messages, string(message))
	return true
}

func TestProcessFired_PublishesEachAlarm(t *testing.T) {
	pub := &recordingPublisher{}
	a := NewAlerter(pub, zap.NewNop())

	a.ProcessFired(data.ClockTime{Hour: 7}, []alarm.Entry{
		{Slot: 0, State: alarm.Active, Time: "07:00", Label: "Wake"},
		{Slot: 3, State: alarm.Active, Time: "07:00:00", Label: "Gym"},
	})

	require.Len(t, pub.messages, 2)
	assert.JSONEq(t, `{"id":"0","time":"07:00","label":"Wake"}`, pub.messages[0])
	assert.JSONEq(t, `{"id":"3","time":"07:00:00","label":"Gym"}`, pub.messages[1])
}

func TestProcessFired_NothingFired(t *testing.T) {
	pub := &recordingPublisher{}
	NewAlerter(pub, zap.NewNop()).ProcessFired(data.ClockTime{}, nil)
	assert.Empty(t, pub.messages)
}

func TestProcessFired_NilChannel(t *testing.T) {
	a := NewAlerter(nil, zap.NewNop())
	a.ProcessFired(data.ClockTime{}, []alarm.Entry{{Slot: 1, Time: "00:00"}})
}
