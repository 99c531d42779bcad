package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/damaskio/internal/analysis"
	"github.com/san-kum/damaskio/internal/solverlog"
)

type Point struct {
	X, Y float64
}

type bounds struct {
	minX, maxX, minY, maxY float64
}

func pointBounds(points []Point) bounds {
	b := bounds{points[0].X, points[0].X, points[0].Y, points[0].Y}
	for _, p := range points {
		b.minX = math.Min(b.minX, p.X)
		b.maxX = math.Max(b.maxX, p.X)
		b.minY = math.Min(b.minY, p.Y)
		b.maxY = math.Max(b.maxY, p.Y)
	}

	rangeX := b.maxX - b.minX
	rangeY := b.maxY - b.minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	b.minX -= rangeX * 0.1
	b.maxX += rangeX * 0.1
	b.minY -= rangeY * 0.1
	b.maxY += rangeY * 0.1
	return b
}

func (b bounds) project(p Point, width, height int) (float64, float64) {
	x := (p.X - b.minX) / (b.maxX - b.minX) * float64(width)
	y := float64(height) - (p.Y-b.minY)/(b.maxY-b.minY)*float64(height)
	return x, y
}

// PolylineSVG draws points as a single path scaled into width x height.
// marks are x positions drawn as dashed vertical lines.
func PolylineSVG(points []Point, marks []float64, width, height int, strokeColor string) string {
	if len(points) < 2 {
		return ""
	}
	b := pointBounds(points)

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)

	for _, m := range marks {
		x, _ := b.project(Point{X: m, Y: b.minY}, width, height)
		fmt.Fprintf(&sb, `<line x1="%.1f" y1="0" x2="%.1f" y2="%d" stroke="#444444" stroke-dasharray="4 4"/>
`, x, x, height)
	}

	fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="M`, strokeColor)
	for i, p := range points {
		x, y := b.project(p, width, height)
		if i == 0 {
			fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
		}
	}
	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}

// ConvergenceSVG plots log10 of the relative error of metric key against
// the iteration index, with a mark at the start of each converged increment.
func ConvergenceSVG(run *solverlog.LogRun, key string, width, height int) (string, error) {
	ys, ok := analysis.RelativeSeries(run, key)
	if !ok {
		return "", fmt.Errorf("no metric %q (have %s)", key, strings.Join(run.Errors.Keys(), ", "))
	}

	points := make([]Point, 0, len(ys))
	for i, y := range ys {
		if math.IsNaN(y) {
			continue
		}
		points = append(points, Point{X: float64(i), Y: y})
	}
	if len(points) < 2 {
		return "", fmt.Errorf("metric %q has %d plottable iterations, need 2", key, len(points))
	}

	marks := make([]float64, 0, run.NumConverged())
	for k := 1; k < run.NumConverged(); k++ {
		start, _ := run.IterationsOf(k)
		marks = append(marks, float64(start))
	}
	return PolylineSVG(points, marks, width, height, "#00ff00"), nil
}
