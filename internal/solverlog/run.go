package solverlog

import (
	"fmt"
	"io"
	"os"

	"github.com/san-kum/damaskio/internal/damask"
)

// LogRun is the flattened record of every converged increment of a stdout log.
// Iteration-level slices (tensors, IncrementIdx, Errors) are parallel; the
// Inc* slices hold one entry per converged increment.
type LogRun struct {
	DeformationGradientAim []damask.Tensor3
	PiolaKirchhoffStress   []damask.Tensor3
	// IncrementIdx maps each iteration to its increment's position in the log.
	IncrementIdx []int
	Errors       *Metrics

	IncNumber   []int
	IncTime     []float64
	IncCutBack  []float64
	IncLoadCase []int
	// IncPosition is the log position of each converged increment.
	IncPosition []int
	IncNumIters []int

	// Warnings from every increment, converged or not.
	Warnings []damask.Message
	// NumIncrements counts every increment chunk, converged or not.
	NumIncrements int
}

func newLogRun() *LogRun {
	return &LogRun{
		DeformationGradientAim: []damask.Tensor3{},
		PiolaKirchhoffStress:   []damask.Tensor3{},
		IncrementIdx:           []int{},
		Errors:                 NewMetrics(),
		IncNumber:              []int{},
		IncTime:                []float64{},
		IncCutBack:             []float64{},
		IncLoadCase:            []int{},
		IncPosition:            []int{},
		IncNumIters:            []int{},
		Warnings:               []damask.Message{},
	}
}

// NumIterations is the number of retained iterations across the run.
func (r *LogRun) NumIterations() int {
	return len(r.IncrementIdx)
}

// NumConverged is the number of converged increments.
func (r *LogRun) NumConverged() int {
	return len(r.IncNumber)
}

// IterationsOf returns the iteration range [start, end) of the k-th converged increment.
func (r *LogRun) IterationsOf(k int) (start, end int) {
	for i := 0; i < k; i++ {
		start += r.IncNumIters[i]
	}
	return start, start + r.IncNumIters[k]
}

func (r *LogRun) add(position int, inc *Increment) error {
	if err := r.Errors.Extend(inc.Errors); err != nil {
		return err
	}
	r.DeformationGradientAim = append(r.DeformationGradientAim, inc.DeformationGradientAim...)
	r.PiolaKirchhoffStress = append(r.PiolaKirchhoffStress, inc.PiolaKirchhoffStress...)
	for i := 0; i < inc.NumIters; i++ {
		r.IncrementIdx = append(r.IncrementIdx, position)
	}

	r.IncNumber = append(r.IncNumber, inc.Number)
	r.IncTime = append(r.IncTime, inc.Time)
	r.IncCutBack = append(r.IncCutBack, inc.CutBack)
	r.IncLoadCase = append(r.IncLoadCase, inc.LoadCase)
	r.IncPosition = append(r.IncPosition, position)
	r.IncNumIters = append(r.IncNumIters, inc.NumIters)
	return nil
}

// Parse builds a LogRun from the full text of a solver stdout log. The metric
// key set is fixed by the first converged increment; any converged increment
// that disagrees fails the parse.
func Parse(text string) (*LogRun, error) {
	run := newLogRun()
	for position, chunk := range SplitIncrements(text) {
		inc, err := ParseIncrement(chunk)
		if err != nil {
			return nil, damask.AtIncrement(err, position)
		}
		run.NumIncrements++
		run.Warnings = append(run.Warnings, inc.Warnings...)
		if !inc.Converged {
			continue
		}
		if err := run.add(position, inc); err != nil {
			return nil, damask.AtIncrement(err, position)
		}
	}
	return run, nil
}

// ParseReader reads r to the end and parses it.
func ParseReader(r io.Reader) (*LogRun, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	return Parse(string(data))
}

// ParseFile parses the stdout log at path.
func ParseFile(path string) (*LogRun, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	run, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return run, nil
}

// ParseStderrFile reads the error blocks of the diagnostic stream at path.
func ParseStderrFile(path string) ([]damask.Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	msgs, err := ParseStderr(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return msgs, nil
}
