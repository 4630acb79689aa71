// internal/alarm/matcher.go
package alarm

import "smartclock-hub/internal/data"

// Matcher compares each clock tick against the registry. Alarms recur daily:
// nothing is disabled after it fires.
type Matcher struct {
	registry *Registry
}

func NewMatcher(registry *Registry) *Matcher {
	return &Matcher{registry: registry}
}

// Match returns the alarms firing at exactly this tick.
func (m *Matcher) Match(ct data.ClockTime) []Entry {
	return m.registry.Due(ct.String())
}
