package viz

import (
	"fmt"
	"sort"
	"strings"

	"github.com/san-kum/damaskio/internal/analysis"
	"github.com/san-kum/damaskio/internal/geom"
)

func row(label, value string) string {
	return MetricLabel.Render(fmt.Sprintf("%-18s", label)) + MetricValue.Render(value)
}

// RunSummary renders the convergence statistics of a parsed log.
func RunSummary(source string, s analysis.Summary) string {
	var b strings.Builder
	b.WriteString(Title.Render("◈ " + source))
	b.WriteString("\n\n")

	b.WriteString(row("increments", fmt.Sprintf("%d", s.Increments)) + "\n")
	b.WriteString(row("converged", fmt.Sprintf("%d", s.Converged)) + "\n")
	if s.NotConverged > 0 {
		b.WriteString(MetricLabel.Render(fmt.Sprintf("%-18s", "not converged")) +
			StatusWarn.Render(fmt.Sprintf("%d", s.NotConverged)) + "\n")
	}
	b.WriteString(row("iterations", fmt.Sprintf("%d", s.Iterations)) + "\n")
	if s.Converged > 0 {
		b.WriteString(row("per increment", fmt.Sprintf("%d..%d (mean %.2f)",
			s.MinIterations, s.MaxIterations, s.MeanIters)) + "\n")
		b.WriteString(row("final time", fmt.Sprintf("%g", s.FinalTime)) + "\n")
		b.WriteString(row("load cases", joinInts(s.LoadCases)) + "\n")
	}
	if s.CutBacks > 0 {
		b.WriteString(row("cut backs", fmt.Sprintf("%d", s.CutBacks)) + "\n")
	}

	if s.Increments > 0 {
		frac := float64(s.Converged) / float64(s.Increments)
		b.WriteString("\n" + ProgressBar(frac, 30) + " " + Subtle.Render(fmt.Sprintf("%.0f%% converged", frac*100)) + "\n")
	}

	if len(s.Metrics) > 0 {
		b.WriteString("\n" + HeaderStyle.Render("metrics") + "\n")
		for _, m := range s.Metrics {
			status := StatusOK.Render("✓")
			if m.WithinTol < len(m.FinalRelative) {
				status = StatusFail.Render("✗")
			}
			b.WriteString(fmt.Sprintf("%s %s %s  %s\n",
				status,
				MetricLabel.Render(fmt.Sprintf("%-16s", m.Key)),
				MetricValue.Render(fmt.Sprintf("%d/%d within tol", m.WithinTol, len(m.FinalRelative))),
				Subtle.Render(fmt.Sprintf("rel %.2e..%.2e", m.MinRelative, m.MaxRelative))))
		}
	}

	if s.Warnings > 0 {
		codes := make([]int, 0, len(s.WarningCodes))
		for c := range s.WarningCodes {
			codes = append(codes, c)
		}
		sort.Ints(codes)
		parts := make([]string, len(codes))
		for i, c := range codes {
			parts[i] = fmt.Sprintf("%d×%d", c, s.WarningCodes[c])
		}
		b.WriteString("\n" + StatusWarn.Render(fmt.Sprintf("⚠ %d warnings", s.Warnings)) +
			" " + Subtle.Render(strings.Join(parts, " ")) + "\n")
	}

	return Panel.Render(strings.TrimRight(b.String(), "\n"))
}

// GridSummary renders the dimensions and grain statistics of a geometry.
func GridSummary(source string, v *geom.VoxelGrid) string {
	var b strings.Builder
	b.WriteString(Title.Render("◈ " + source))
	b.WriteString("\n\n")

	b.WriteString(row("grid", fmt.Sprintf("%d × %d × %d", v.Grid[0], v.Grid[1], v.Grid[2])) + "\n")
	b.WriteString(row("voxels", fmt.Sprintf("%d", v.NumVoxels())) + "\n")
	b.WriteString(row("grains", fmt.Sprintf("%d", v.NumGrains())) + "\n")
	if v.Size != nil {
		b.WriteString(row("size", formatVec(*v.Size)) + "\n")
	}
	if v.Origin != nil {
		b.WriteString(row("origin", formatVec(*v.Origin)) + "\n")
	}
	if v.HomogenizationIdx != nil {
		b.WriteString(row("homogenization", fmt.Sprintf("%d", v.HomogenizationIdx.Max()+1)) + "\n")
	}
	if v.Microstructure != nil {
		b.WriteString(row("microstructures", fmt.Sprintf("%d", v.Microstructure.Len())) + "\n")
	}
	if v.Orientations != nil {
		b.WriteString(row("orientations", fmt.Sprintf("%d (%s %s)",
			v.Orientations.Len(), v.Orientations.Type, v.Orientations.Convention)) + "\n")
	}

	counts := v.GrainIdx.Counts()
	if len(counts) > 0 {
		ids := make([]int, 0, len(counts))
		for id := range counts {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		sizes := make([]float64, len(ids))
		for i, id := range ids {
			sizes[i] = float64(counts[id])
		}
		b.WriteString("\n" + MetricLabel.Render("grain sizes ") + Sparkline(sizes, min(len(sizes), 40)) + "\n")
	}

	if len(v.Meta.Commands) > 0 {
		b.WriteString("\n" + Subtle.Render(strings.Join(v.Meta.Commands, " → ")) + "\n")
	}

	return Panel.Render(strings.TrimRight(b.String(), "\n"))
}

func formatVec(v [3]float64) string {
	return fmt.Sprintf("%g %g %g", v[0], v[1], v[2])
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = fmt.Sprintf("%d", x)
	}
	return strings.Join(parts, ", ")
}
