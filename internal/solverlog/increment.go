package solverlog

import (
	"github.com/san-kum/damaskio/internal/damask"
)

// Increment is the parsed form of one increment chunk. Only Warnings is
// populated when Converged is false.
type Increment struct {
	Converged bool
	Number    int
	Time      float64
	CutBack   float64
	LoadCase  int

	DeformationGradientAim []damask.Tensor3
	PiolaKirchhoffStress   []damask.Tensor3
	Errors                 *Metrics
	NumIters               int

	Warnings []damask.Message
}

// ParseIncrement parses one increment chunk. A chunk without a convergence
// verdict is a normal non-converged increment, not an error.
func ParseIncrement(chunk string) (*Increment, error) {
	warnings, err := ParseWarnings(chunk)
	if err != nil {
		return nil, err
	}
	inc := &Increment{Warnings: warnings}
	if !convergedLine.MatchString(chunk) {
		return inc, nil
	}
	inc.Converged = true

	if err := inc.parsePosition(chunk); err != nil {
		return nil, err
	}

	chunks := SplitIterations(chunk)
	reports := chunks[:len(chunks)-1]

	inc.Errors = NewMetrics()
	inc.DeformationGradientAim = make([]damask.Tensor3, 0, len(reports))
	inc.PiolaKirchhoffStress = make([]damask.Tensor3, 0, len(reports))

	for i, report := range reports {
		it, err := ParseIteration(report)
		if err != nil {
			return nil, damask.AtIteration(err, i)
		}
		if i == 0 {
			if err := inc.Errors.Fix(it.Keys); err != nil {
				return nil, damask.AtIteration(err, i)
			}
		}
		if err := inc.Errors.Append(it.Errors); err != nil {
			return nil, damask.AtIteration(err, i)
		}
		inc.DeformationGradientAim = append(inc.DeformationGradientAim, it.DeformationGradientAim)
		inc.PiolaKirchhoffStress = append(inc.PiolaKirchhoffStress, it.PiolaKirchhoffStress)
	}
	if len(reports) == 0 {
		if err := inc.Errors.Fix(nil); err != nil {
			return nil, err
		}
	}
	inc.NumIters = len(reports)
	return inc, nil
}

// parsePosition reads "Time <t>s: Increment <a>/<b>-<c>/<d> of load case <n>".
func (inc *Increment) parsePosition(chunk string) error {
	m := positionLine.FindStringSubmatch(chunk)
	if m == nil {
		return damask.NewParseError("increment", damask.ErrMissingField,
			"converged increment has no \"Time ...s: Increment a/b-c/d of load case n\" line")
	}

	var err error
	if inc.Time, err = damask.ParseFloat("increment", m[1]); err != nil {
		return err
	}
	if inc.Number, err = damask.ParseInt("increment", m[2]); err != nil {
		return err
	}
	denominator, err := damask.ParseInt("increment", m[5])
	if err != nil {
		return err
	}
	if denominator == 0 {
		return damask.NewParseError("increment", damask.ErrFormat, "cut-back denominator is zero")
	}
	inc.CutBack = 1 / float64(denominator)
	if inc.LoadCase, err = damask.ParseInt("increment", m[6]); err != nil {
		return err
	}
	return nil
}
