// internal/data/models.go
package data

import "fmt"

// TelemetryRecord - environmental reading pushed by the remote sensor node
type TelemetryRecord struct {
	Temperature float32 `json:"temperature"`
	Humidity    float32 `json:"humidity"`
}

// AirQuality is the bucketed label derived from the local gas sensor's raw value.
type AirQuality int

const (
	AirExcellent AirQuality = iota
	AirGood
	AirModerate
	AirPoor
	AirVeryPoor
)

var airQualityNames = [...]string{"EXCELLENT", "GOOD", "MODERATE", "POOR", "VERY_POOR"}

func (q AirQuality) String() string {
	if q < AirExcellent || q > AirVeryPoor {
		return fmt.Sprintf("AirQuality(%d)", int(q))
	}
	return airQualityNames[q]
}

// MarshalText lets the label render as its name in JSON.
func (q AirQuality) MarshalText() ([]byte, error) {
	return []byte(q.String()), nil
}

// SensorReading - one sample of the local analog gas sensor
type SensorReading struct {
	Raw   int        `json:"raw"`
	Label AirQuality `json:"label"`
}

// ClockTime - local wall-clock time at one second resolution
type ClockTime struct {
	Hour   int
	Minute int
	Second int
}

// String renders the clock as "HH:MM:SS", the exact text sent on the time channel.
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", c.Hour, c.Minute, c.Second)
}

// Snapshot - copy of all live readings at one instant
type Snapshot struct {
	Time         string          `json:"time"`
	Telemetry    TelemetryRecord `json:"telemetry"`
	HasTelemetry bool            `json:"has_telemetry"`
	Sensor       SensorReading   `json:"sensor"`
	HasSensor    bool            `json:"has_sensor"`
}

// Alert - structure for alarm fire events sent to display clients
type Alert struct {
	ID    string `json:"id"`
	Time  string `json:"time"`
	Label string `json:"label"`
}
