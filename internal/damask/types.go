package damask

import (
	"strconv"
	"strings"
)

// Tensor3 is a row-major 3x3 second-order tensor.
type Tensor3 [3][3]float64

// TensorFromRowMajor builds a tensor from nine row-major components.
func TensorFromRowMajor(v [9]float64) Tensor3 {
	var t Tensor3
	for i := 0; i < 9; i++ {
		t[i/3][i%3] = v[i]
	}
	return t
}

// RowMajor flattens the tensor.
func (t Tensor3) RowMajor() [9]float64 {
	var v [9]float64
	for i := 0; i < 9; i++ {
		v[i] = t[i/3][i%3]
	}
	return v
}

// Vec3 is a spatial 3-vector (size, origin, Euler angle triple).
type Vec3 [3]float64

// Message is one box-drawn solver diagnostic (warning or error).
type Message struct {
	Code    int    `json:"code" yaml:"code"`
	Message string `json:"message" yaml:"message"`
}

// Metric is one convergence-error report of a single iteration.
type Metric struct {
	Value    float64 `json:"value" yaml:"value"`
	Unit     string  `json:"unit" yaml:"unit"`
	Tol      float64 `json:"tol" yaml:"tol"`
	Relative float64 `json:"relative" yaml:"relative"`
}

// Converged reports whether the absolute value is within tolerance.
func (m Metric) Converged() bool {
	return m.Value <= m.Tol
}

// MetricSeries holds one convergence-error metric across iterations.
type MetricSeries struct {
	Value    []float64 `json:"value" yaml:"value"`
	Tol      []float64 `json:"tol" yaml:"tol"`
	Relative []float64 `json:"relative" yaml:"relative"`
}

// Append adds one iteration's report.
func (s *MetricSeries) Append(m Metric) {
	s.Value = append(s.Value, m.Value)
	s.Tol = append(s.Tol, m.Tol)
	s.Relative = append(s.Relative, m.Relative)
}

// Extend concatenates other onto s.
func (s *MetricSeries) Extend(other MetricSeries) {
	s.Value = append(s.Value, other.Value...)
	s.Tol = append(s.Tol, other.Tol...)
	s.Relative = append(s.Relative, other.Relative...)
}

// At returns the report of iteration i.
func (s MetricSeries) At(i int) Metric {
	return Metric{Value: s.Value[i], Tol: s.Tol[i], Relative: s.Relative[i]}
}

func (s MetricSeries) Len() int {
	return len(s.Value)
}

// MetricKey normalizes a metric label such as "stress BC" into "error_stress_bc".
func MetricKey(label string) string {
	fields := strings.Fields(strings.ToLower(label))
	return "error_" + strings.Join(fields, "_")
}

// ParseInt converts a decimal token, mapping failures onto ErrFormat.
func ParseInt(source, token string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(token))
	if err != nil {
		return 0, NewParseError(source, ErrFormat, "integer %q", token)
	}
	return v, nil
}

// ParseFloat converts a fixed or scientific notation token, mapping failures onto ErrFormat.
func ParseFloat(source, token string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(token), 64)
	if err != nil {
		return 0, NewParseError(source, ErrFormat, "real %q", token)
	}
	return v, nil
}
