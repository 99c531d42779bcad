// Package report writes a Markdown convergence report for a parsed solver
// log and renders it to HTML.
package report

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/san-kum/damaskio/internal/analysis"
	"github.com/san-kum/damaskio/internal/damask"
	"github.com/san-kum/damaskio/internal/solverlog"
)

// Input is everything a report is built from. Errors holds the error blocks
// of the diagnostic stream and may be empty.
type Input struct {
	Title   string
	Source  string
	Run     *solverlog.LogRun
	Summary analysis.Summary
	Errors  []damask.Message
}

// Markdown renders the report as GitHub-flavoured Markdown.
func Markdown(in Input) string {
	var sb strings.Builder
	title := in.Title
	if title == "" {
		title = "Convergence report"
	}
	fmt.Fprintf(&sb, "# %s\n\n", title)
	if in.Source != "" {
		fmt.Fprintf(&sb, "Source: `%s`\n\n", in.Source)
	}

	s := in.Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Quantity | Value |\n|---|---|\n")
	row := func(k string, v any) { fmt.Fprintf(&sb, "| %s | %v |\n", k, v) }
	row("Increments", s.Increments)
	row("Converged", s.Converged)
	row("Not converged", s.NotConverged)
	row("Iterations", s.Iterations)
	if s.Converged > 0 {
		row("Iterations per increment", fmt.Sprintf("%d to %d (mean %.2f)", s.MinIterations, s.MaxIterations, s.MeanIters))
		row("Cut-back increments", s.CutBacks)
		row("Load cases", joinInts(s.LoadCases))
		row("Final time", fmt.Sprintf("%g s", s.FinalTime))
		row("Within tolerance", fmt.Sprintf("%d of %d", s.WithinTolerance, s.Converged))
	}
	sb.WriteString("\n")

	if len(s.Metrics) > 0 {
		sb.WriteString("## Metrics\n\n")
		sb.WriteString("| Metric | Final relative (min) | Final relative (max) | Within tol |\n|---|---|---|---|\n")
		for _, m := range s.Metrics {
			fmt.Fprintf(&sb, "| `%s` | %.4g | %.4g | %d |\n", m.Key, m.MinRelative, m.MaxRelative, m.WithinTol)
		}
		sb.WriteString("\n")
	}

	if run := in.Run; run != nil && run.NumConverged() > 0 {
		sb.WriteString("## Increments\n\n")
		sb.WriteString("| # | Increment | Load case | Time | Cut back | Iterations |\n|---|---|---|---|---|---|\n")
		for k := 0; k < run.NumConverged(); k++ {
			fmt.Fprintf(&sb, "| %d | %d | %d | %g | %g | %d |\n",
				run.IncPosition[k], run.IncNumber[k], run.IncLoadCase[k],
				run.IncTime[k], run.IncCutBack[k], run.IncNumIters[k])
		}
		sb.WriteString("\n")

		hist := analysis.IterationHistogram(run)
		counts := make([]int, 0, len(hist))
		for n := range hist {
			counts = append(counts, n)
		}
		sort.Ints(counts)
		sb.WriteString("## Iteration counts\n\n")
		sb.WriteString("| Iterations | Increments |\n|---|---|\n")
		for _, n := range counts {
			fmt.Fprintf(&sb, "| %d | %d |\n", n, hist[n])
		}
		sb.WriteString("\n")
	}

	if len(s.WarningCodes) > 0 {
		sb.WriteString("## Warnings\n\n")
		codes := make([]int, 0, len(s.WarningCodes))
		for c := range s.WarningCodes {
			codes = append(codes, c)
		}
		sort.Ints(codes)
		for _, c := range codes {
			fmt.Fprintf(&sb, "- **%d** x%d", c, s.WarningCodes[c])
			if msg := firstMessage(in.Run, c); msg != "" {
				fmt.Fprintf(&sb, ": %s", msg)
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	if len(in.Errors) > 0 {
		sb.WriteString("## Errors\n\n")
		for _, e := range in.Errors {
			fmt.Fprintf(&sb, "- **%d**: %s\n", e.Code, e.Message)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// HTML renders Markdown output into a standalone HTML page.
func HTML(title, markdown string) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))

	var body bytes.Buffer
	if err := md.Convert([]byte(markdown), &body); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n", htmlEscape(title))
	sb.Write(body.Bytes())
	sb.WriteString("</body>\n</html>\n")
	return sb.String(), nil
}

func firstMessage(run *solverlog.LogRun, code int) string {
	if run == nil {
		return ""
	}
	for _, w := range run.Warnings {
		if w.Code == code {
			return w.Message
		}
	}
	return ""
}

func joinInts(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, ", ")
}

var htmlReplacer = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func htmlEscape(s string) string {
	return htmlReplacer.Replace(s)
}
