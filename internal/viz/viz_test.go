package viz

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/damaskio/internal/analysis"
	"github.com/san-kum/damaskio/internal/damask"
	"github.com/san-kum/damaskio/internal/geom"
	"github.com/san-kum/damaskio/internal/solverlog"
	"github.com/san-kum/damaskio/internal/solverlog/solverlogtest"
	"github.com/san-kum/damaskio/internal/watch"
)

func sampleRun(t *testing.T) *solverlog.LogRun {
	t.Helper()
	run, err := solverlog.Parse(solverlogtest.Sample())
	if err != nil {
		t.Fatalf("parse sample: %v", err)
	}
	return run
}

func key(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestConvergencePlot(t *testing.T) {
	run := sampleRun(t)

	out, err := ConvergencePlot(run, nil, PlotOptions{Height: 8, Width: 40})
	if err != nil {
		t.Fatalf("plot: %v", err)
	}
	if !strings.Contains(out, "log10 relative error") {
		t.Errorf("missing caption in\n%s", out)
	}
	if lines := strings.Count(out, "\n"); lines < 8 {
		t.Errorf("expected at least 8 rows, got %d", lines)
	}

	if _, err := ConvergencePlot(run, []string{"error_nope"}, PlotOptions{}); err == nil {
		t.Error("expected error for unknown metric")
	}
}

func manyMetricRun(t *testing.T, n int) *solverlog.LogRun {
	t.Helper()
	keys := make([]string, n)
	for i := range keys {
		keys[i] = fmt.Sprintf("error_m%d", i)
	}
	errs := solverlog.NewMetrics()
	if err := errs.Fix(keys); err != nil {
		t.Fatal(err)
	}
	for it := 0; it < 3; it++ {
		report := make(map[string]damask.Metric, n)
		for i, k := range keys {
			report[k] = damask.Metric{Value: 1, Tol: 1, Relative: float64(i+1) / float64(it+1)}
		}
		if err := errs.Append(report); err != nil {
			t.Fatal(err)
		}
	}
	return &solverlog.LogRun{Errors: errs}
}

func TestConvergencePlotLegends(t *testing.T) {
	for _, color := range []bool{false, true} {
		run := manyMetricRun(t, len(seriesColors)+2)
		out, err := ConvergencePlot(run, nil, PlotOptions{Height: 6, Width: 30, Color: color})
		if err != nil {
			t.Fatalf("color=%v: %v", color, err)
		}
		for _, key := range run.Errors.Keys() {
			if !strings.Contains(out, key) {
				t.Errorf("color=%v: legend missing %s", color, key)
			}
		}
	}
}

func TestConvergencePlotEmptyRun(t *testing.T) {
	run, err := solverlog.Parse(solverlogtest.Banner)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := ConvergencePlot(run, nil, PlotOptions{}); !errors.Is(err, ErrNothingToPlot) {
		t.Errorf("expected ErrNothingToPlot, got %v", err)
	}
	if _, err := IterationsPlot(run, PlotOptions{}); !errors.Is(err, ErrNothingToPlot) {
		t.Errorf("expected ErrNothingToPlot, got %v", err)
	}
}

func TestIterationsPlot(t *testing.T) {
	out, err := IterationsPlot(sampleRun(t), PlotOptions{Height: 5, Width: 20, Color: true})
	if err != nil {
		t.Fatalf("plot: %v", err)
	}
	if !strings.Contains(out, "iterations per converged increment") {
		t.Errorf("missing caption in\n%s", out)
	}
}

func TestRunSummary(t *testing.T) {
	run := sampleRun(t)
	out := RunSummary("sample.out", analysis.Summarize(run))

	for _, want := range []string{"sample.out", "increments", "converged", "error_divergence", "error_stress_bc", "1 warnings"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestGridSummary(t *testing.T) {
	v, err := geom.Parse("3 header\ngrid a 2 b 1 c 1\nsize x 1.0 y 0.5 z 0.5\ngeom_canvas -g 2 1 1\n1 2\n")
	if err != nil {
		t.Fatalf("parse geometry: %v", err)
	}
	out := GridSummary("grain.geom", v)

	for _, want := range []string{"grain.geom", "2 × 1 × 1", "grains", "1 0.5 0.5", "geom_canvas"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestBrowserNavigation(t *testing.T) {
	b := NewBrowser("sample.out", sampleRun(t), nil)

	b.Update(key("k"))
	if b.Cursor() != 0 {
		t.Errorf("cursor moved above first increment: %d", b.Cursor())
	}

	b.Update(key("j"))
	b.Update(key("j"))
	b.Update(key("j"))
	if b.Cursor() != 2 {
		t.Errorf("expected cursor clamped to 2, got %d", b.Cursor())
	}

	b.Update(key("g"))
	if b.Cursor() != 0 {
		t.Errorf("expected cursor 0 after g, got %d", b.Cursor())
	}
	b.Update(key("G"))
	if b.Cursor() != 2 {
		t.Errorf("expected cursor 2 after G, got %d", b.Cursor())
	}

	if b.Metric() != "error_divergence" {
		t.Errorf("unexpected first metric %q", b.Metric())
	}
	b.Update(key("tab"))
	if b.Metric() != "error_stress_bc" {
		t.Errorf("unexpected metric after tab %q", b.Metric())
	}
	b.Update(key("tab"))
	if b.Metric() != "error_divergence" {
		t.Errorf("metric did not wrap: %q", b.Metric())
	}

	b.Update(key("t"))
	if b.Theme().Name != Themes[1].Name {
		t.Errorf("expected theme %s, got %s", Themes[1].Name, b.Theme().Name)
	}

	_, cmd := b.Update(key("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestBrowserSetTheme(t *testing.T) {
	b := NewBrowser("sample.out", sampleRun(t), nil)

	if err := b.SetTheme("ocean"); err != nil {
		t.Fatalf("SetTheme: %v", err)
	}
	if b.Theme().Name != "ocean" {
		t.Errorf("expected ocean, got %s", b.Theme().Name)
	}

	err := b.SetTheme("neon")
	if err == nil || !strings.Contains(err.Error(), strings.Join(ThemeNames(), ", ")) {
		t.Errorf("expected error listing themes, got %v", err)
	}
	if b.Theme().Name != "ocean" {
		t.Errorf("failed SetTheme changed the theme to %s", b.Theme().Name)
	}
}

func TestBrowserView(t *testing.T) {
	b := NewBrowser("sample.out", sampleRun(t), nil)
	b.Update(key("G"))
	view := b.View()

	for _, want := range []string{"sample.out", "3 converged", "inc    3", "load case 2", "F aim", "error_divergence"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestBrowserFollowsUpdates(t *testing.T) {
	updates := make(chan watch.Update, 2)
	b := NewBrowser("sample.out", nil, updates)

	if !strings.Contains(b.View(), "no converged increments") {
		t.Errorf("expected empty view, got\n%s", b.View())
	}

	updates <- watch.Update{Run: sampleRun(t), At: time.Now()}
	msg := b.Init()()
	_, cmd := b.Update(msg)
	if cmd == nil {
		t.Error("expected browser to keep waiting for updates")
	}
	if !strings.Contains(b.View(), "3 converged") {
		t.Errorf("run not replaced:\n%s", b.View())
	}

	updates <- watch.Update{Err: errors.New("truncated log"), At: time.Now()}
	b.Update(cmd())
	view := b.View()
	if !strings.Contains(view, "truncated log") {
		t.Errorf("status missing parse failure:\n%s", view)
	}
	if !strings.Contains(view, "3 converged") {
		t.Errorf("failed parse must keep the previous run:\n%s", view)
	}

	close(updates)
	if msg := cmd(); msg != nil {
		t.Errorf("expected nil message after close, got %v", msg)
	}
}
