// Package mirror copies live readings to optional external stores. Every
// Recorder must return immediately: the coordinator calls them inline.
package mirror

import (
	"time"

	"smartclock-hub/internal/data"
)

type Recorder interface {
	RecordTelemetry(rec data.TelemetryRecord, at time.Time)
	RecordSensor(reading data.SensorReading, at time.Time)
	Close() error
}
