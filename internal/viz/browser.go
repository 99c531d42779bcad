package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/damaskio/internal/damask"
	"github.com/san-kum/damaskio/internal/solverlog"
	"github.com/san-kum/damaskio/internal/watch"
)

const listHeight = 12

type updateMsg watch.Update

// Browser is the Bubble Tea model of the increment browser.
type Browser struct {
	source  string
	run     *solverlog.LogRun
	cursor  int
	metric  int
	theme   int
	status  string
	updates <-chan watch.Update
}

// NewBrowser browses run. With a non-nil updates channel the browser
// replaces its run on every successful parse and shows failures in the
// status line.
func NewBrowser(source string, run *solverlog.LogRun, updates <-chan watch.Update) *Browser {
	if run == nil {
		run = &solverlog.LogRun{Errors: solverlog.NewMetrics()}
	}
	return &Browser{source: source, run: run, updates: updates}
}

func (b *Browser) Init() tea.Cmd {
	return b.wait()
}

func (b *Browser) wait() tea.Cmd {
	if b.updates == nil {
		return nil
	}
	ch := b.updates
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return nil
		}
		return updateMsg(u)
	}
}

// Cursor is the position of the selected converged increment.
func (b *Browser) Cursor() int { return b.cursor }

// Metric is the key of the metric shown in the detail panel.
func (b *Browser) Metric() string {
	keys := b.run.Errors.Keys()
	if len(keys) == 0 {
		return ""
	}
	return keys[b.metric%len(keys)]
}

func (b *Browser) Theme() Theme { return Themes[b.theme] }

// SetTheme selects a theme by name.
func (b *Browser) SetTheme(name string) error {
	i, ok := themeIndex(name)
	if !ok {
		return fmt.Errorf("unknown theme %q (available: %s)", name, strings.Join(ThemeNames(), ", "))
	}
	b.theme = i
	return nil
}

func (b *Browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case updateMsg:
		if msg.Err != nil {
			b.status = msg.Err.Error()
		} else {
			b.run = msg.Run
			b.status = fmt.Sprintf("reloaded at %s", msg.At.Format("15:04:05"))
			b.cursor = min(b.cursor, max(b.run.NumConverged()-1, 0))
		}
		return b, b.wait()
	case tea.KeyMsg:
		n := b.run.NumConverged()
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return b, tea.Quit
		case "j", "down":
			if b.cursor < n-1 {
				b.cursor++
			}
		case "k", "up":
			if b.cursor > 0 {
				b.cursor--
			}
		case "g", "home":
			b.cursor = 0
		case "G", "end":
			b.cursor = max(n-1, 0)
		case "tab":
			b.metric++
			if keys := b.run.Errors.Keys(); len(keys) > 0 {
				b.metric %= len(keys)
			} else {
				b.metric = 0
			}
		case "t":
			b.theme = (b.theme + 1) % len(Themes)
		}
	}
	return b, nil
}

func (b *Browser) View() string {
	t := b.Theme()
	title := lipgloss.NewStyle().Bold(true).Foreground(t.Primary)
	muted := t.style(t.Muted)

	var s strings.Builder
	s.WriteString(title.Render("◈ "+b.source) + "\n")
	s.WriteString(muted.Render(fmt.Sprintf("%d increments, %d converged, %d iterations",
		b.run.NumIncrements, b.run.NumConverged(), b.run.NumIterations())) + "\n\n")

	n := b.run.NumConverged()
	if n == 0 {
		s.WriteString(t.style(t.Warning).Render("no converged increments") + "\n")
	} else {
		s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, b.list(t), "  ", b.detail(t)))
		s.WriteString("\n")
	}

	if b.status != "" {
		s.WriteString("\n" + muted.Render(b.status) + "\n")
	}
	s.WriteString("\n" + KeyHint.Render("j/k move • g/G first/last • tab metric • t theme • q quit"))
	return s.String()
}

func (b *Browser) list(t Theme) string {
	n := b.run.NumConverged()
	start := max(0, min(b.cursor-listHeight/2, n-listHeight))
	end := min(n, start+listHeight)

	cur := lipgloss.NewStyle().Bold(true).Foreground(t.Primary)
	normal := t.style(t.Text)

	var s strings.Builder
	for k := start; k < end; k++ {
		line := fmt.Sprintf("inc %4d  t=%-10g %2d it", b.run.IncNumber[k], b.run.IncTime[k], b.run.IncNumIters[k])
		if k == b.cursor {
			s.WriteString(cur.Render("▸ "+line) + "\n")
		} else {
			s.WriteString(normal.Render("  "+line) + "\n")
		}
	}
	return strings.TrimRight(s.String(), "\n")
}

func (b *Browser) detail(t Theme) string {
	k := b.cursor
	startIt, endIt := b.run.IterationsOf(k)
	label := t.style(t.Secondary)

	var s strings.Builder
	s.WriteString(label.Render(fmt.Sprintf("increment %d, load case %d", b.run.IncNumber[k], b.run.IncLoadCase[k])) + "\n")
	if cb := b.run.IncCutBack[k]; cb < 1 {
		s.WriteString(t.style(t.Warning).Render(fmt.Sprintf("cut back %g", cb)) + "\n")
	}
	if endIt == startIt {
		return Panel.Render(s.String() + MetricLabel.Render("no iterations"))
	}

	last := endIt - 1
	s.WriteString("\n" + tensorBlock("F aim", b.run.DeformationGradientAim[last]) + "\n")
	s.WriteString(tensorBlock("P", b.run.PiolaKirchhoffStress[last]) + "\n")

	if key := b.Metric(); key != "" {
		series, _ := b.run.Errors.Series(key)
		rel := series.Relative[startIt:endIt]
		status := t.style(t.Success).Render("✓")
		if !series.At(last).Converged() {
			status = t.style(t.Error).Render("✗")
		}
		s.WriteString(fmt.Sprintf("\n%s %s  %s\n", status, label.Render(key),
			MetricValue.Render(fmt.Sprintf("%.3e / %.3e", series.Value[last], series.Tol[last]))))
		s.WriteString(Sparkline(rel, min(len(rel), 30)) + " " +
			MetricLabel.Render(fmt.Sprintf("rel %.2e", series.Relative[last])))
	}
	return Panel.Render(s.String())
}

func tensorBlock(name string, m damask.Tensor3) string {
	var s strings.Builder
	s.WriteString(MetricLabel.Render(name) + "\n")
	for _, r := range m {
		s.WriteString(fmt.Sprintf("  %12.5e %12.5e %12.5e\n", r[0], r[1], r[2]))
	}
	return strings.TrimRight(s.String(), "\n")
}

// RunBrowser runs b in the alternate screen until the user quits.
func RunBrowser(b *Browser) error {
	_, err := tea.NewProgram(b, tea.WithAltScreen()).Run()
	return err
}
