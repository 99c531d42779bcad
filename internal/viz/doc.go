// Package viz renders parsed solver logs and geometries in the terminal.
//
//   - [RunSummary] and [GridSummary]: styled one-screen summaries
//   - [ConvergencePlot]: ascii chart of log10 relative errors per iteration
//   - [Browser]: interactive increment browser built on Bubble Tea
//
// # Key Bindings
//
//	j/k   - Next/previous increment
//	g/G   - First/last increment
//	tab   - Cycle the plotted metric
//	t     - Cycle colour themes
//	q     - Quit
//
// With a watch channel attached the browser follows a growing log and
// replaces its run whenever a new parse arrives.
package viz
