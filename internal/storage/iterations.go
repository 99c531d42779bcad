package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/san-kum/damaskio/internal/damask"
	"github.com/san-kum/damaskio/internal/export"
	"github.com/san-kum/damaskio/internal/solverlog"
)

// Iterations is the iteration-level part of a stored run.
type Iterations struct {
	IncrementIdx           []int
	DeformationGradientAim []damask.Tensor3
	PiolaKirchhoffStress   []damask.Tensor3
	Errors                 *solverlog.Metrics
}

func writeIterations(path string, run *solverlog.LogRun) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := export.IterationsCSV(f, run, -1); err != nil {
		return err
	}
	return f.Close()
}

// LoadIterations reads iterations.csv of a stored run.
func (s *Store) LoadIterations(runID string) (*Iterations, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, iterationsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", runID, ErrNotFound)
		}
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: read iterations: %w", runID, err)
	}
	if len(records) == 0 {
		return nil, damask.NewParseError(iterationsFile, damask.ErrMissingField, "no header row")
	}

	keys, err := metricKeys(records[0])
	if err != nil {
		return nil, err
	}

	it := &Iterations{
		IncrementIdx:           []int{},
		DeformationGradientAim: []damask.Tensor3{},
		PiolaKirchhoffStress:   []damask.Tensor3{},
		Errors:                 solverlog.NewMetrics(),
	}
	if err := it.Errors.Fix(keys); err != nil {
		return nil, err
	}

	for n, rec := range records[1:] {
		inc, err := damask.ParseInt(iterationsFile, rec[0])
		if err != nil {
			return nil, damask.AtIteration(err, n)
		}
		vals := make([]float64, len(rec)-1)
		for i, tok := range rec[1:] {
			if vals[i], err = damask.ParseFloat(iterationsFile, tok); err != nil {
				return nil, damask.AtIteration(err, n)
			}
		}

		var fv, pv [9]float64
		copy(fv[:], vals[0:9])
		copy(pv[:], vals[9:18])
		report := make(map[string]damask.Metric, len(keys))
		for j, k := range keys {
			base := 18 + 3*j
			report[k] = damask.Metric{Value: vals[base], Tol: vals[base+1], Relative: vals[base+2]}
		}
		if err := it.Errors.Append(report); err != nil {
			return nil, damask.AtIteration(err, n)
		}
		it.IncrementIdx = append(it.IncrementIdx, inc)
		it.DeformationGradientAim = append(it.DeformationGradientAim, damask.TensorFromRowMajor(fv))
		it.PiolaKirchhoffStress = append(it.PiolaKirchhoffStress, damask.TensorFromRowMajor(pv))
	}
	return it, nil
}

// metricKeys recovers the metric keys from an iterations.csv header.
func metricKeys(header []string) ([]string, error) {
	if len(header) < 19 || (len(header)-19)%3 != 0 {
		return nil, damask.NewParseError(iterationsFile, damask.ErrInconsistent, "header has %d columns", len(header))
	}
	var keys []string
	for i := 19; i < len(header); i += 3 {
		key, ok := strings.CutSuffix(header[i], export.MetricSuffixes[0])
		if !ok || header[i+1] != key+export.MetricSuffixes[1] || header[i+2] != key+export.MetricSuffixes[2] {
			pe := damask.NewParseError(iterationsFile, damask.ErrInconsistent, "unexpected metric columns")
			pe.Key = header[i]
			return nil, pe
		}
		keys = append(keys, key)
	}
	return keys, nil
}
