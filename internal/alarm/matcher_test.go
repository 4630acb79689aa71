package alarm

import (
	"testing"

	"smartclock-hub/internal/data"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcher_MinuteGranularity(t *testing.T) {
	r := NewRegistry(5)
	slot, err := r.Create("07:30", "Wake")
	require.NoError(t, err)
	m := NewMatcher(r)

	fired := m.Match(data.ClockTime{Hour: 7, Minute: 30, Second: 0})
	require.Len(t, fired, 1)
	assert.Equal(t, slot, fired[0].Slot)
	assert.Equal(t, "Wake", fired[0].Label)

	assert.Empty(t, m.Match(data.ClockTime{Hour: 7, Minute: 30, Second: 1}))
	assert.Empty(t, m.Match(data.ClockTime{Hour: 7, Minute: 29, Second: 59}))
}

func TestMatcher_SecondGranularity(t *testing.T) {
	r := NewRegistry(5)
	_, err := r.Create("07:30:00", "from dashboard")
	require.NoError(t, err)
	_, err = r.Create("07:30:15", "odd second")
	require.NoError(t, err)
	m := NewMatcher(r)

	fired := m.Match(data.ClockTime{Hour: 7, Minute: 30})
	require.Len(t, fired, 1)
	assert.Equal(t, "from dashboard", fired[0].Label)

	fired = m.Match(data.ClockTime{Hour: 7, Minute: 30, Second: 15})
	require.Len(t, fired, 1)
	assert.Equal(t, "odd second", fired[0].Label)
}

func TestMatcher_RecursAndIgnoresDeleted(t *testing.T) {
	r := NewRegistry(5)
	a, err := r.Create("06:00", "a")
	require.NoError(t, err)
	_, err = r.Create("06:00", "b")
	require.NoError(t, err)
	m := NewMatcher(r)
	tick := data.ClockTime{Hour: 6}

	assert.Len(t, m.Match(tick), 2)
	assert.Len(t, m.Match(tick), 2, "alarms are not consumed by firing")

	require.NoError(t, r.Delete(a))
	fired := m.Match(tick)
	require.Len(t, fired, 1)
	assert.Equal(t, "b", fired[0].Label)
}

func TestMatcher_EmptyRegistry(t *testing.T) {
	m := NewMatcher(NewRegistry(5))
	assert.Empty(t, m.Match(data.ClockTime{}))
}
