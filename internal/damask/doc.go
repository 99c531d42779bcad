// Package damask holds the record primitives and error taxonomy shared by the
// DAMASK artifact readers.
//
// The readers themselves live in sibling packages:
//
//   - [github.com/san-kum/damaskio/internal/header]: header-line count of a text artifact
//   - [github.com/san-kum/damaskio/internal/solverlog]: spectral solver stdout/stderr logs
//   - [github.com/san-kum/damaskio/internal/geom]: voxel geometry files
//   - [github.com/san-kum/damaskio/internal/table]: ASCII result tables
//
// # Errors
//
// Every reader fails with an error matching one of the sentinels in this
// package under [errors.Is]. Context (increment position, iteration, metric
// key) travels in a [*ParseError]:
//
//	run, err := solverlog.Parse(text)
//	if errors.Is(err, damask.ErrInconsistent) {
//	    var pe *damask.ParseError
//	    errors.As(err, &pe) // pe.Increment, pe.Key ...
//	}
//
// A reader never returns a partially filled record together with an error.
package damask
