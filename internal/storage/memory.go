// internal/storage/memory.go
package storage

import (
	"smartclock-hub/internal/data"
	"sync"
)

// State holds the latest value of every live reading shared between the
// clock task, the sampler, the telemetry receiver and the API handlers.
type State struct {
	mu           sync.RWMutex
	clock        string
	telemetry    data.TelemetryRecord
	hasTelemetry bool
	sensor       data.SensorReading
	hasSensor    bool
}

func NewState() *State {
	return &State{}
}

func (s *State) SetClock(ct data.ClockTime) {
	text := ct.String()
	s.mu.Lock()
	s.clock = text
	s.mu.Unlock()
}

func (s *State) Clock() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clock
}

// SetTelemetry replaces the whole record under the write lock so readers never
// see temperature from one packet paired with humidity from another.
func (s *State) SetTelemetry(rec data.TelemetryRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.telemetry = rec
	s.hasTelemetry = true
}

func (s *State) Telemetry() (data.TelemetryRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.telemetry, s.hasTelemetry
}

// SetSensor stores the reading and returns the previous one.
func (s *State) SetSensor(r data.SensorReading) (prev data.SensorReading, hadPrev bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, hadPrev = s.sensor, s.hasSensor
	s.sensor = r
	s.hasSensor = true
	return prev, hadPrev
}

func (s *State) Sensor() (data.SensorReading, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sensor, s.hasSensor
}

// Snapshot returns a consistent copy of all readings.
func (s *State) Snapshot() data.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return data.Snapshot{
		Time:         s.clock,
		Telemetry:    s.telemetry,
		HasTelemetry: s.hasTelemetry,
		Sensor:       s.sensor,
		HasSensor:    s.hasSensor,
	}
}
