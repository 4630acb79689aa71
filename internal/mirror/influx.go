package mirror

import (
	"time"

	"smartclock-hub/internal/data"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"go.uber.org/zap"
)

// InfluxMirror writes readings through the client's asynchronous, batching
// write API; WritePoint only appends to an in-memory buffer.
type InfluxMirror struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	logger   *zap.Logger
}

func NewInfluxMirror(url, token, org, bucket string, logger *zap.Logger) *InfluxMirror {
	client := influxdb2.NewClientWithOptions(url, token,
		influxdb2.DefaultOptions().SetBatchSize(50).SetFlushInterval(5000))
	writeAPI := client.WriteAPI(org, bucket)
	// Errors must be obtained before the first write.
	errs := writeAPI.Errors()
	m := &InfluxMirror{client: client, writeAPI: writeAPI, logger: logger}
	go m.drainErrors(errs)
	return m
}

func (m *InfluxMirror) drainErrors(errs <-chan error) {
	for err := range errs {
		m.logger.Warn("InfluxDB write failed", zap.Error(err))
	}
}

func (m *InfluxMirror) RecordTelemetry(rec data.TelemetryRecord, at time.Time) {
	m.writeAPI.WritePoint(influxdb2.NewPoint(
		"environment",
		map[string]string{"source": "peer"},
		map[string]interface{}{
			"temperature": float64(rec.Temperature),
			"humidity":    float64(rec.Humidity),
		},
		at,
	))
}

func (m *InfluxMirror) RecordSensor(reading data.SensorReading, at time.Time) {
	m.writeAPI.WritePoint(influxdb2.NewPoint(
		"air_quality",
		map[string]string{"label": reading.Label.String()},
		map[string]interface{}{"raw": reading.Raw},
		at,
	))
}

func (m *InfluxMirror) Flush() {
	m.writeAPI.Flush()
}

// Close flushes pending points and releases the client.
func (m *InfluxMirror) Close() error {
	m.writeAPI.Flush()
	m.client.Close()
	return nil
}
