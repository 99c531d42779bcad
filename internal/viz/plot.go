package viz

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/damaskio/internal/analysis"
	"github.com/san-kum/damaskio/internal/solverlog"
)

var ErrNothingToPlot = errors.New("nothing to plot")

var seriesColors = []asciigraph.AnsiColor{
	asciigraph.Cyan,
	asciigraph.Magenta,
	asciigraph.Yellow,
	asciigraph.Green,
	asciigraph.Red,
	asciigraph.Blue,
}

// PlotOptions sizes a chart. Zero values fall back to 15 rows and 70 columns.
type PlotOptions struct {
	Height int
	Width  int
	Color  bool
}

func (o PlotOptions) graphOptions(caption string) []asciigraph.Option {
	h, w := o.Height, o.Width
	if h <= 0 {
		h = 15
	}
	if w <= 0 {
		w = 70
	}
	return []asciigraph.Option{
		asciigraph.Height(h),
		asciigraph.Width(w),
		asciigraph.Precision(1),
		asciigraph.Caption(caption),
	}
}

// ConvergencePlot charts log10 of the relative error of each key over all
// retained iterations. An empty keys selects every metric of the run.
func ConvergencePlot(run *solverlog.LogRun, keys []string, opts PlotOptions) (string, error) {
	if len(keys) == 0 {
		keys = run.Errors.Keys()
	}

	var data [][]float64
	var legends []string
	for _, key := range keys {
		series, ok := analysis.RelativeSeries(run, key)
		if !ok {
			return "", fmt.Errorf("unknown metric %q (have %s)", key, strings.Join(run.Errors.Keys(), ", "))
		}
		if !anyFinite(series) {
			continue
		}
		data = append(data, series)
		legends = append(legends, key)
	}
	if len(data) == 0 {
		return "", ErrNothingToPlot
	}

	// legends index the colour list, so both always have one entry per series
	colors := make([]asciigraph.AnsiColor, len(data))
	for i := range colors {
		colors[i] = asciigraph.Default
		if opts.Color {
			colors[i] = seriesColors[i%len(seriesColors)]
		}
	}

	graphOpts := append(opts.graphOptions("log10 relative error per iteration"),
		asciigraph.SeriesColors(colors...),
		asciigraph.SeriesLegends(legends...))
	return asciigraph.PlotMany(data, graphOpts...), nil
}

// IterationsPlot charts the iteration count of each converged increment.
func IterationsPlot(run *solverlog.LogRun, opts PlotOptions) (string, error) {
	if len(run.IncNumIters) == 0 {
		return "", ErrNothingToPlot
	}
	data := make([]float64, len(run.IncNumIters))
	for i, n := range run.IncNumIters {
		data[i] = float64(n)
	}
	graphOpts := append(opts.graphOptions("iterations per converged increment"), asciigraph.Precision(0))
	if opts.Color {
		graphOpts = append(graphOpts, asciigraph.SeriesColors(asciigraph.Cyan))
	}
	return asciigraph.Plot(data, graphOpts...), nil
}

func anyFinite(xs []float64) bool {
	for _, x := range xs {
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			return true
		}
	}
	return false
}
