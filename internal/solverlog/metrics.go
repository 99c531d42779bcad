package solverlog

import (
	"fmt"
	"slices"
	"strings"

	"github.com/san-kum/damaskio/internal/damask"
)

// Metrics maps convergence-error keys to their series. The key set is fixed by
// the first call to Fix; every later append must supply exactly that set.
type Metrics struct {
	keys   []string
	series map[string]*damask.MetricSeries
	fixed  bool
}

func NewMetrics() *Metrics {
	return &Metrics{series: make(map[string]*damask.MetricSeries)}
}

// Fix sets the key set. It fails if a different set was fixed before.
func (m *Metrics) Fix(keys []string) error {
	if m.fixed {
		return m.check(keys)
	}
	m.keys = slices.Clone(keys)
	for _, k := range keys {
		m.series[k] = &damask.MetricSeries{}
	}
	m.fixed = true
	return nil
}

func (m *Metrics) IsFixed() bool { return m.fixed }

// Keys returns the metric keys in discovery order.
func (m *Metrics) Keys() []string {
	return slices.Clone(m.keys)
}

// Series returns the series recorded for key. The slices are shared with m.
func (m *Metrics) Series(key string) (damask.MetricSeries, bool) {
	s, ok := m.series[key]
	if !ok {
		return damask.MetricSeries{}, false
	}
	return *s, true
}

// Map returns every series keyed by metric. The slices are shared with m.
func (m *Metrics) Map() map[string]damask.MetricSeries {
	out := make(map[string]damask.MetricSeries, len(m.keys))
	for _, k := range m.keys {
		out[k] = *m.series[k]
	}
	return out
}

// Len is the number of iterations recorded.
func (m *Metrics) Len() int {
	if len(m.keys) == 0 {
		return 0
	}
	return m.series[m.keys[0]].Len()
}

// Append records one iteration's reports.
func (m *Metrics) Append(report map[string]damask.Metric) error {
	if !m.fixed {
		return fmt.Errorf("append to unfixed metric set: %w", damask.ErrInconsistent)
	}
	if err := m.check(mapKeys(report)); err != nil {
		return err
	}
	for _, k := range m.keys {
		m.series[k].Append(report[k])
	}
	return nil
}

// Extend concatenates other onto m. An unfixed m adopts other's key set.
func (m *Metrics) Extend(other *Metrics) error {
	if !other.IsFixed() {
		return fmt.Errorf("extend from unfixed metric set: %w", damask.ErrInconsistent)
	}
	if err := m.Fix(other.keys); err != nil {
		return err
	}
	for _, k := range m.keys {
		m.series[k].Extend(*other.series[k])
	}
	return nil
}

// check reports the first difference between keys and the fixed set.
func (m *Metrics) check(keys []string) error {
	got := make(map[string]bool, len(keys))
	for _, k := range keys {
		got[k] = true
	}

	var missing, extra []string
	for _, k := range m.keys {
		if !got[k] {
			missing = append(missing, k)
		}
		delete(got, k)
	}
	for k := range got {
		extra = append(extra, k)
	}
	if len(missing) == 0 && len(extra) == 0 {
		return nil
	}
	slices.Sort(extra)

	pe := damask.NewParseError("", damask.ErrInconsistent,
		"metric set %s differs from %s (missing %s, unexpected %s)",
		formatKeys(keys), formatKeys(m.keys), formatKeys(missing), formatKeys(extra))
	if len(missing) > 0 {
		pe.Key = missing[0]
	} else {
		pe.Key = extra[0]
	}
	return pe
}

func mapKeys(report map[string]damask.Metric) []string {
	keys := make([]string, 0, len(report))
	for k := range report {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func formatKeys(keys []string) string {
	return "{" + strings.Join(keys, ", ") + "}"
}
