// Package solverlogtest renders synthetic solver stdout logs for tests.
package solverlogtest

import (
	"fmt"
	"strings"
)

var (
	IncrementRule = " " + strings.Repeat("#", 75) + "\n"
	IterationRule = " " + strings.Repeat("=", 75) + "\n"
)

const Banner = ` <<<+-  DAMASK_spectral  -+>>>
 Roters et al., Computational Materials Science 158, 2018, 420-478
 Version: v2.0.3
`

// Error lines in the solver's layout. Their keys are error_divergence,
// error_stress_bc and error_strain.
const (
	DivergenceErr = ` error divergence =        79.71 (1.15E+01 / m, tol = 1.44E-01)`
	StressBCErr   = ` error stress BC  =        14.48 (1.45E+07 Pa,  tol = 1.00E+06)`
	StrainErr     = ` error strain     =         0.50 (5.00E-04 -,  tol = 1.00E-03)`
)

// Iteration renders one iteration report whose F11 is 1+0.001n and whose P11
// is 10n.
func Iteration(n int, metrics ...string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, " Increment 1/10 @ Iteration %03d≤%d≤250\n\n", n, n)
	sb.WriteString(" deformation gradient aim =\n")
	fmt.Fprintf(&sb, "   %.7f   0.0000000   0.0000000\n", 1+0.001*float64(n))
	sb.WriteString("   0.0000000   1.0000000   0.0000000\n")
	sb.WriteString("   0.0000000   0.0000000  -1.0000000\n\n")
	sb.WriteString(" ... evaluating constitutive response ......................................\n")
	sb.WriteString(" Piola--Kirchhoff stress       / MPa =\n")
	fmt.Fprintf(&sb, "  %.7f   0.0000000   0.0000000\n", 10*float64(n))
	sb.WriteString("   0.0000000   0.0000000   0.0000000\n")
	sb.WriteString("   0.0000000   0.0000000   2.5000000E+01\n\n")
	for _, m := range metrics {
		sb.WriteString(m)
		sb.WriteString("\n")
	}
	sb.WriteString(IterationRule)
	return sb.String()
}

// Increment renders an increment chunk at time number seconds with cutback
// 1/cutDenominator; iters are pre-rendered iteration reports.
func Increment(number, cutDenominator, loadCase int, converged bool, iters ...string) string {
	var sb strings.Builder
	sb.WriteString(IncrementRule)
	fmt.Fprintf(&sb, " Time %.5Es: Increment %d/10-1/%d of load case %d/2\n", float64(number), number, cutDenominator, loadCase)
	for _, it := range iters {
		sb.WriteString(it)
	}
	if converged {
		fmt.Fprintf(&sb, "\n increment %d converged\n\n", number)
	} else {
		fmt.Fprintf(&sb, "\n increment %d NOT converged\n\n", number)
	}
	return sb.String()
}

// Box renders a box-drawn diagnostic with a two-line message.
func Box(label string, code int, first, second string) string {
	return fmt.Sprintf(` ┌──────────────────────────────────────┐
 │              %s              │
 │                 %d                  │
 ├──────────────────────────────────────┤
 │ %s │
 │ %s │
 └──────────────────────────────────────┘
`, label, code, first, second)
}

// Sample is a small complete log: three converged increments with two
// metrics, one of them cut back, and one non-converged increment carrying a
// warning.
func Sample() string {
	return Banner +
		Increment(1, 1, 1, true,
			Iteration(0, DivergenceErr, StressBCErr),
			Iteration(1, DivergenceErr, StressBCErr)) +
		Increment(2, 1, 1, false,
			Iteration(0, DivergenceErr, StressBCErr)) +
		Box("warning", 600, "cutting back", "") +
		Increment(2, 2, 1, true,
			Iteration(0, DivergenceErr, StressBCErr),
			Iteration(1, DivergenceErr, StressBCErr),
			Iteration(2, DivergenceErr, StressBCErr)) +
		Increment(3, 1, 2, true,
			Iteration(0, DivergenceErr, StressBCErr))
}
