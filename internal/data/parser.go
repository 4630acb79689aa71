// internal/data/parser.go
package data

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// TelemetrySize is the exact wire size of a TelemetryRecord: two float32, no padding.
const TelemetrySize = 8

// ErrTelemetrySize is returned for any payload whose length is not TelemetrySize.
var ErrTelemetrySize = errors.New("telemetry payload has wrong size")

// DecodeTelemetry parses a fixed-layout record. The remote node is little-endian.
func DecodeTelemetry(payload []byte) (TelemetryRecord, error) {
	if len(payload) != TelemetrySize {
		return TelemetryRecord{}, fmt.Errorf("%w: got %d bytes, want %d", ErrTelemetrySize, len(payload), TelemetrySize)
	}
	return TelemetryRecord{
		Temperature: math.Float32frombits(binary.LittleEndian.Uint32(payload[0:4])),
		Humidity:    math.Float32frombits(binary.LittleEndian.Uint32(payload[4:8])),
	}, nil
}

// EncodeTelemetry is the inverse of DecodeTelemetry, used by the sensor node.
func EncodeTelemetry(rec TelemetryRecord) []byte {
	buf := make([]byte, TelemetrySize)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(rec.Temperature))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(rec.Humidity))
	return buf
}

// telemetryEnvelope keeps the display clients' contract: integers quoted as strings.
type telemetryEnvelope struct {
	T string `json:"T"`
	H string `json:"H"`
}

// RenderTelemetry builds the {"T":"<int>","H":"<int>"} message for the telemetry channel.
func RenderTelemetry(rec TelemetryRecord) ([]byte, error) {
	return json.Marshal(telemetryEnvelope{
		T: strconv.Itoa(Truncate(rec.Temperature)),
		H: strconv.Itoa(Truncate(rec.Humidity)),
	})
}

// Truncate converts toward zero. NaN and infinities (failed DHT reads) become 0.
func Truncate(v float32) int {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0
	}
	return int(f)
}

// RenderSensor formats the raw analog value as plain decimal text.
func RenderSensor(raw int) []byte {
	return []byte(strconv.Itoa(raw))
}

// ClassifyAirQuality maps a raw gas-sensor value onto its label.
// Thresholds are ascending and the first match wins.
func ClassifyAirQuality(raw int) AirQuality {
	switch {
	case raw < 50:
		return AirExcellent
	case raw < 100:
		return AirGood
	case raw < 150:
		return AirModerate
	case raw < 200:
		return AirPoor
	default:
		return AirVeryPoor
	}
}
