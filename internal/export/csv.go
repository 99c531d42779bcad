package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/san-kum/damaskio/internal/solverlog"
)

// MetricSuffixes are appended to each metric key in the CSV header.
var MetricSuffixes = [3]string{"_value", "_tol", "_relative"}

func tensorHeader(prefix string) []string {
	h := make([]string, 0, 9)
	for i := 1; i <= 3; i++ {
		for j := 1; j <= 3; j++ {
			h = append(h, fmt.Sprintf("%s_%d%d", prefix, i, j))
		}
	}
	return h
}

// IterationsHeader is the CSV column layout for the given metric keys:
// increment_idx, F_11..F_33, P_11..P_33, then value, tol and relative of
// each metric.
func IterationsHeader(keys []string) []string {
	header := []string{"increment_idx"}
	header = append(header, tensorHeader("F")...)
	header = append(header, tensorHeader("P")...)
	for _, k := range keys {
		for _, suf := range MetricSuffixes {
			header = append(header, k+suf)
		}
	}
	return header
}

// IterationsCSV writes one row per retained iteration. A negative precision
// uses the shortest representation that parses back exactly.
func IterationsCSV(w io.Writer, run *solverlog.LogRun, precision int) error {
	format := func(v float64) string {
		if precision < 0 {
			return strconv.FormatFloat(v, 'g', -1, 64)
		}
		return strconv.FormatFloat(v, 'e', precision, 64)
	}

	cw := csv.NewWriter(w)
	keys := run.Errors.Keys()
	if err := cw.Write(IterationsHeader(keys)); err != nil {
		return err
	}

	series := run.Errors.Map()
	for i := 0; i < run.NumIterations(); i++ {
		row := []string{strconv.Itoa(run.IncrementIdx[i])}
		for _, v := range run.DeformationGradientAim[i].RowMajor() {
			row = append(row, format(v))
		}
		for _, v := range run.PiolaKirchhoffStress[i].RowMajor() {
			row = append(row, format(v))
		}
		for _, k := range keys {
			s := series[k]
			row = append(row, format(s.Value[i]), format(s.Tol[i]), format(s.Relative[i]))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
