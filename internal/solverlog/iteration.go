package solverlog

import (
	"github.com/san-kum/damaskio/internal/damask"
)

// Iteration is one nonlinear-solver pass reported inside an increment.
type Iteration struct {
	DeformationGradientAim damask.Tensor3
	PiolaKirchhoffStress   damask.Tensor3
	// Keys lists the metric keys in report order.
	Keys   []string
	Errors map[string]damask.Metric
}

// ParseIteration extracts the two mandatory tensors and every convergence
// error report from one iteration chunk. Zero error reports is valid.
func ParseIteration(chunk string) (*Iteration, error) {
	f, err := parseTensor(chunk, deformationGradientBlock)
	if err != nil {
		return nil, err
	}
	p, err := parseTensor(chunk, piolaKirchhoffBlock)
	if err != nil {
		return nil, err
	}

	it := &Iteration{
		DeformationGradientAim: f,
		PiolaKirchhoffStress:   p,
		Errors:                 make(map[string]damask.Metric),
	}

	for _, m := range errorLine.FindAllStringSubmatch(chunk, -1) {
		key := damask.MetricKey(m[1])
		if _, dup := it.Errors[key]; dup {
			pe := damask.NewParseError("iteration", damask.ErrInconsistent, "metric reported twice")
			pe.Key = key
			return nil, pe
		}
		metric, err := parseMetric(m)
		if err != nil {
			return nil, err
		}
		it.Keys = append(it.Keys, key)
		it.Errors[key] = metric
	}
	return it, nil
}

func parseMetric(m []string) (damask.Metric, error) {
	relative, err := damask.ParseFloat("iteration", m[2])
	if err != nil {
		return damask.Metric{}, err
	}
	value, err := damask.ParseFloat("iteration", m[3])
	if err != nil {
		return damask.Metric{}, err
	}
	tol, err := damask.ParseFloat("iteration", m[5])
	if err != nil {
		return damask.Metric{}, err
	}
	return damask.Metric{
		Value:    value,
		Unit:     m[4],
		Tol:      tol,
		Relative: relative,
	}, nil
}

func parseTensor(chunk string, tb tensorBlock) (damask.Tensor3, error) {
	if !tb.label.MatchString(chunk) {
		return damask.Tensor3{}, damask.NewParseError("iteration", damask.ErrMissingField, "no %s block", tb.name)
	}
	m := tb.block.FindStringSubmatch(chunk)
	if m == nil {
		return damask.Tensor3{}, damask.NewParseError("iteration", damask.ErrFormat, "%s block does not hold nine reals", tb.name)
	}

	tokens := numberToken.FindAllString(m[1], -1)
	if len(tokens) != 9 {
		return damask.Tensor3{}, damask.NewParseError("iteration", damask.ErrFormat, "%s block holds %d reals", tb.name, len(tokens))
	}
	var v [9]float64
	for i, tok := range tokens {
		x, err := damask.ParseFloat("iteration", tok)
		if err != nil {
			return damask.Tensor3{}, err
		}
		v[i] = x
	}
	return damask.TensorFromRowMajor(v), nil
}
