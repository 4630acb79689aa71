// internal/anomaly/detector.go
package anomaly

import (
	"fmt"
	"math"
	"sort"

	"smartclock-hub/internal/config"
	"smartclock-hub/internal/data"
)

// Finding describes one telemetry value outside its configured range.
// Findings are informational: the record is still published as received.
type Finding struct {
	Metric  string
	Value   float64
	Message string
}

type Detector struct {
	rules map[string]config.Rule
}

func NewDetector(rules map[string]config.Rule) *Detector {
	return &Detector{rules: rules}
}

// Check checks a telemetry record against the configured rules.
func (d *Detector) Check(rec data.TelemetryRecord) []Finding {
	metrics := map[string]float64{
		"temperature": float64(rec.Temperature),
		"humidity":    float64(rec.Humidity),
	}
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	var findings []Finding
	for _, name := range names {
		value := metrics[name]
		// A DHT read failure arrives as NaN regardless of rules.
		if math.IsNaN(value) || math.IsInf(value, 0) {
			findings = append(findings, Finding{
				Metric:  name,
				Value:   value,
				Message: fmt.Sprintf("%s is not a finite number; remote sensor read likely failed", name),
			})
			continue
		}
		rule, ok := d.rules[name]
		if !ok {
			continue
		}
		if value < rule.Min || value > rule.Max {
			findings = append(findings, Finding{
				Metric:  name,
				Value:   value,
				Message: fmt.Sprintf("%s value %.2f is outside range [%.2f, %.2f]", name, value, rule.Min, rule.Max),
			})
		}
	}
	return findings
}
