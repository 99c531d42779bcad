// Package analysis computes convergence statistics over a parsed solver log.
//
//   - [Summarize]: increment, iteration and tolerance counts of a run
//   - [IterationHistogram]: converged increments per iteration count
//   - [RelativeSeries]: log10 relative error per iteration, for plotting
//
// # Tolerance
//
// An increment counts as within tolerance when the last iteration reports
// value <= tol for every metric:
//
//	s := analysis.Summarize(run)
//	if s.WithinTolerance < s.Converged {
//	    // some increments converged on the iteration limit
//	}
package analysis
