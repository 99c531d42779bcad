package analysis

import (
	"math"
	"testing"

	"github.com/san-kum/damaskio/internal/solverlog"
	"github.com/san-kum/damaskio/internal/solverlog/solverlogtest"
)

func parse(t *testing.T, text string) *solverlog.LogRun {
	t.Helper()
	run, err := solverlog.Parse(text)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return run
}

func TestSummarize_Sample(t *testing.T) {
	s := Summarize(parse(t, solverlogtest.Sample()))

	if s.Increments != 4 || s.Converged != 3 || s.NotConverged != 1 {
		t.Errorf("increments = %d/%d/%d, want 4/3/1", s.Increments, s.Converged, s.NotConverged)
	}
	if s.Iterations != 6 {
		t.Errorf("iterations = %d, want 6", s.Iterations)
	}
	if s.MinIterations != 1 || s.MaxIterations != 3 {
		t.Errorf("iteration range = [%d, %d], want [1, 3]", s.MinIterations, s.MaxIterations)
	}
	if s.MeanIters != 2 {
		t.Errorf("mean iterations = %f, want 2", s.MeanIters)
	}
	if s.CutBacks != 1 {
		t.Errorf("cut backs = %d, want 1", s.CutBacks)
	}
	if len(s.LoadCases) != 2 || s.LoadCases[0] != 1 || s.LoadCases[1] != 2 {
		t.Errorf("load cases = %v, want [1 2]", s.LoadCases)
	}
	if s.FinalTime != 3 {
		t.Errorf("final time = %f, want 3", s.FinalTime)
	}
	if s.Warnings != 1 || s.WarningCodes[600] != 1 {
		t.Errorf("warnings = %d %v", s.Warnings, s.WarningCodes)
	}

	if len(s.Metrics) != 2 {
		t.Fatalf("expected 2 metrics, got %d", len(s.Metrics))
	}
	div, ok := s.Metric("error_divergence")
	if !ok {
		t.Fatal("missing error_divergence")
	}
	if len(div.FinalRelative) != 3 || div.FinalRelative[0] != 79.71 {
		t.Errorf("final relative = %v", div.FinalRelative)
	}
	if div.WithinTol != 0 || s.WithinTolerance != 0 {
		t.Errorf("nothing should be within tolerance: %d %d", div.WithinTol, s.WithinTolerance)
	}
}

func TestSummarize_WithinTolerance(t *testing.T) {
	log := solverlogtest.Increment(1, 1, 1, true,
		solverlogtest.Iteration(0, solverlogtest.StrainErr, solverlogtest.DivergenceErr),
		solverlogtest.Iteration(1, solverlogtest.StrainErr, solverlogtest.DivergenceErr)) +
		solverlogtest.Increment(2, 1, 1, true,
			solverlogtest.Iteration(0, solverlogtest.StrainErr, solverlogtest.DivergenceErr))

	s := Summarize(parse(t, log))
	strain, _ := s.Metric("error_strain")
	if strain.WithinTol != 2 {
		t.Errorf("strain within tol = %d, want 2", strain.WithinTol)
	}
	if strain.MinRelative != 0.5 || strain.MaxRelative != 0.5 {
		t.Errorf("strain range = [%f, %f]", strain.MinRelative, strain.MaxRelative)
	}
	if s.WithinTolerance != 0 {
		t.Errorf("divergence is out of tolerance, got %d", s.WithinTolerance)
	}

	only := solverlogtest.Increment(1, 1, 1, true, solverlogtest.Iteration(0, solverlogtest.StrainErr))
	if got := Summarize(parse(t, only)).WithinTolerance; got != 1 {
		t.Errorf("within tolerance = %d, want 1", got)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(parse(t, solverlogtest.Banner))
	if s.Increments != 0 || s.Converged != 0 || s.Iterations != 0 {
		t.Errorf("unexpected counts %+v", s)
	}
	if s.MinIterations != 0 || len(s.Metrics) != 0 {
		t.Errorf("empty run should have zero stats, got %+v", s)
	}
}

func TestIterationHistogram(t *testing.T) {
	h := IterationHistogram(parse(t, solverlogtest.Sample()))
	want := map[int]int{1: 1, 2: 1, 3: 1}
	if len(h) != len(want) {
		t.Fatalf("histogram = %v, want %v", h, want)
	}
	for k, v := range want {
		if h[k] != v {
			t.Errorf("h[%d] = %d, want %d", k, h[k], v)
		}
	}
}

func TestRelativeSeries(t *testing.T) {
	run := parse(t, solverlogtest.Sample())

	ys, ok := RelativeSeries(run, "error_stress_bc")
	if !ok {
		t.Fatal("missing series")
	}
	if len(ys) != 6 {
		t.Fatalf("len = %d, want 6", len(ys))
	}
	if math.Abs(ys[0]-math.Log10(14.48)) > 1e-12 {
		t.Errorf("ys[0] = %f", ys[0])
	}

	if _, ok := RelativeSeries(run, "error_missing"); ok {
		t.Error("expected no series for unknown key")
	}
}
