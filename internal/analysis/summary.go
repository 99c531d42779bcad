package analysis

import (
	"math"
	"sort"

	"github.com/san-kum/damaskio/internal/solverlog"
)

// MetricSummary describes one convergence-error metric over a run.
type MetricSummary struct {
	Key string `json:"key" yaml:"key"`
	// FinalRelative is the relative error of the last iteration of each
	// converged increment.
	FinalRelative []float64 `json:"final_relative" yaml:"final_relative"`
	MinRelative   float64   `json:"min_relative" yaml:"min_relative"`
	MaxRelative   float64   `json:"max_relative" yaml:"max_relative"`
	// WithinTol counts converged increments whose last iteration reports a
	// value at or below tolerance.
	WithinTol int `json:"within_tol" yaml:"within_tol"`
}

type Summary struct {
	Increments    int     `json:"increments" yaml:"increments"`
	Converged     int     `json:"converged" yaml:"converged"`
	NotConverged  int     `json:"not_converged" yaml:"not_converged"`
	Iterations    int     `json:"iterations" yaml:"iterations"`
	MinIterations int     `json:"min_iterations" yaml:"min_iterations"`
	MaxIterations int     `json:"max_iterations" yaml:"max_iterations"`
	MeanIters     float64 `json:"mean_iterations" yaml:"mean_iterations"`
	CutBacks      int     `json:"cut_backs" yaml:"cut_backs"`
	LoadCases     []int   `json:"load_cases" yaml:"load_cases"`
	FinalTime     float64 `json:"final_time" yaml:"final_time"`

	Metrics []MetricSummary `json:"metrics" yaml:"metrics"`
	// WithinTolerance counts converged increments whose last iteration is
	// within tolerance for every metric.
	WithinTolerance int `json:"within_tolerance" yaml:"within_tolerance"`

	Warnings     int         `json:"warnings" yaml:"warnings"`
	WarningCodes map[int]int `json:"warning_codes" yaml:"warning_codes"`
}

// Summarize computes convergence statistics of run.
func Summarize(run *solverlog.LogRun) Summary {
	s := Summary{
		Increments:   run.NumIncrements,
		Converged:    run.NumConverged(),
		Iterations:   run.NumIterations(),
		LoadCases:    []int{},
		Metrics:      []MetricSummary{},
		Warnings:     len(run.Warnings),
		WarningCodes: make(map[int]int),
	}
	s.NotConverged = s.Increments - s.Converged

	for _, w := range run.Warnings {
		s.WarningCodes[w.Code]++
	}

	if s.Converged == 0 {
		return s
	}

	s.MinIterations = math.MaxInt
	seen := make(map[int]bool)
	for k := 0; k < s.Converged; k++ {
		n := run.IncNumIters[k]
		s.MinIterations = min(s.MinIterations, n)
		s.MaxIterations = max(s.MaxIterations, n)
		if run.IncCutBack[k] < 1 {
			s.CutBacks++
		}
		if lc := run.IncLoadCase[k]; !seen[lc] {
			seen[lc] = true
			s.LoadCases = append(s.LoadCases, lc)
		}
	}
	sort.Ints(s.LoadCases)
	s.MeanIters = float64(s.Iterations) / float64(s.Converged)
	s.FinalTime = run.IncTime[s.Converged-1]

	within := make([]bool, s.Converged)
	for k := range within {
		within[k] = run.IncNumIters[k] > 0
	}

	for _, key := range run.Errors.Keys() {
		series, _ := run.Errors.Series(key)
		ms := MetricSummary{
			Key:           key,
			FinalRelative: []float64{},
			MinRelative:   math.Inf(1),
			MaxRelative:   math.Inf(-1),
		}
		for k := 0; k < s.Converged; k++ {
			_, end := run.IterationsOf(k)
			if run.IncNumIters[k] == 0 {
				continue
			}
			last := end - 1
			rel := series.Relative[last]
			ms.FinalRelative = append(ms.FinalRelative, rel)
			ms.MinRelative = math.Min(ms.MinRelative, rel)
			ms.MaxRelative = math.Max(ms.MaxRelative, rel)
			if series.At(last).Converged() {
				ms.WithinTol++
			} else {
				within[k] = false
			}
		}
		if len(ms.FinalRelative) == 0 {
			ms.MinRelative, ms.MaxRelative = 0, 0
		}
		s.Metrics = append(s.Metrics, ms)
	}

	for _, ok := range within {
		if ok {
			s.WithinTolerance++
		}
	}
	return s
}

// Metric returns the summary for key.
func (s Summary) Metric(key string) (MetricSummary, bool) {
	for _, m := range s.Metrics {
		if m.Key == key {
			return m, true
		}
	}
	return MetricSummary{}, false
}

// IterationHistogram counts converged increments by iteration count.
func IterationHistogram(run *solverlog.LogRun) map[int]int {
	h := make(map[int]int)
	for _, n := range run.IncNumIters {
		h[n]++
	}
	return h
}

// RelativeSeries returns log10 of the relative error of key per retained
// iteration. Non-positive errors map to NaN.
func RelativeSeries(run *solverlog.LogRun, key string) ([]float64, bool) {
	series, ok := run.Errors.Series(key)
	if !ok {
		return nil, false
	}
	out := make([]float64, len(series.Relative))
	for i, r := range series.Relative {
		if r > 0 {
			out[i] = math.Log10(r)
		} else {
			out[i] = math.NaN()
		}
	}
	return out, true
}
