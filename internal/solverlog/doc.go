// Package solverlog parses the convergence logs written by the DAMASK spectral
// solver into typed records.
//
// The standard-output log is a banner followed by increments separated by a
// rule of 75 '#'. Each increment is a sequence of iteration reports separated
// by a rule of 75 '='; the text after the final '=' rule carries the
// increment's convergence verdict:
//
//	###########################################################################
//	 Time 1.00000E+00s: Increment 3/10-1/1 of load case 2/2
//	 deformation gradient aim =
//	   1.0010000   0.0000000   0.0000000
//	   ...
//	 Piola--Kirchhoff stress / MPa =
//	   ...
//	 error divergence =        79.71 (1.15E+01 / m, tol = 1.44E-01)
//	===========================================================================
//	 increment 3 converged
//
// [Parse] flattens the converged increments of a log into a [LogRun];
// [ParseStderr] extracts the box-drawn error blocks of the diagnostic stream.
//
// Parsing is pure: no state is shared between calls and a failing parse
// never returns a partial record.
package solverlog
