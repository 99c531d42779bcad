package geom

import (
	"regexp"

	"github.com/san-kum/damaskio/internal/damask"
)

// Microstructure is the parsed <microstructure> section: one single-constituent
// entry per grain, with zero-indexed phase and texture references.
type Microstructure struct {
	Labels         []string
	Crystallite    []int
	PhaseIdx       []int
	OrientationIdx []int
	Fraction       []float64
}

func (m *Microstructure) Len() int {
	return len(m.Labels)
}

var constituentEntry = regexp.MustCompile(`^crystallite\s+(\d+)\s+\(constituent\)\s+phase\s+(\d+)\s+texture\s+(\d+)\s+fraction\s+(` + number + `)$`)

// ParseMicrostructure parses the body of a <microstructure> section:
//
//	[Grain1]
//	crystallite 1
//	(constituent)  phase 1  texture 1  fraction 1.0
func ParseMicrostructure(body string) (*Microstructure, error) {
	ents, err := entries("microstructure", body)
	if err != nil {
		return nil, err
	}

	ms := &Microstructure{}
	for i, e := range ents {
		m := constituentEntry.FindStringSubmatch(collapse(e.body))
		if m == nil {
			pe := damask.NewParseError("microstructure", damask.ErrFormat, "entry %d is not a single (constituent) definition", i)
			pe.Key = e.label
			return nil, pe
		}

		var ints [3]int
		for j := range ints {
			if ints[j], err = damask.ParseInt("microstructure", m[j+1]); err != nil {
				return nil, err
			}
		}
		crystallite, phase, texture := ints[0], ints[1], ints[2]
		fraction, err := damask.ParseFloat("microstructure", m[4])
		if err != nil {
			return nil, err
		}
		if phase < 1 || texture < 1 {
			pe := damask.NewParseError("microstructure", damask.ErrInconsistent, "phase and texture are one-indexed, got phase %d texture %d", phase, texture)
			pe.Key = e.label
			return nil, pe
		}

		ms.Labels = append(ms.Labels, e.label)
		ms.Crystallite = append(ms.Crystallite, crystallite)
		ms.PhaseIdx = append(ms.PhaseIdx, phase-1)
		ms.OrientationIdx = append(ms.OrientationIdx, texture-1)
		ms.Fraction = append(ms.Fraction, fraction)
	}
	return ms, nil
}
