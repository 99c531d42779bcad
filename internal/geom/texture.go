package geom

import (
	"regexp"
	"strings"

	"github.com/san-kum/damaskio/internal/damask"
	"github.com/san-kum/damaskio/internal/rotation"
)

// Orientations is the parsed <texture> section: one Euler angle triple per
// texture entry.
type Orientations struct {
	Type         string
	Convention   string
	EulerDegrees bool
	Labels       []string
	EulerAngles  []damask.Vec3
	Scatter      []float64
	Fraction     []float64
}

func (o *Orientations) Len() int {
	return len(o.EulerAngles)
}

// Quaternions converts the Euler angles to unit quaternions.
func (o *Orientations) Quaternions() []rotation.Quaternion {
	out := make([]rotation.Quaternion, len(o.EulerAngles))
	for i, e := range o.EulerAngles {
		angles := rotation.Euler(e)
		if o.EulerDegrees {
			angles = rotation.Radians(e)
		}
		out[i] = rotation.EulerToQuaternion(angles)
	}
	return out
}

// Matrices converts the Euler angles to passive rotation matrices.
func (o *Orientations) Matrices() []rotation.Matrix {
	out := make([]rotation.Matrix, len(o.EulerAngles))
	for i, e := range o.EulerAngles {
		angles := rotation.Euler(e)
		if o.EulerDegrees {
			angles = rotation.Radians(e)
		}
		out[i] = rotation.EulerToMatrix(angles)
	}
	return out
}

var gaussEntry = regexp.MustCompile(`^\(gauss\)\s+phi1\s+(` + number + `)\s+Phi\s+(` + number + `)\s+phi2\s+(` + number + `)` +
	`(?:\s+scatter\s+(` + number + `))?(?:\s+fraction\s+(` + number + `))?$`)

// ParseTexture parses the body of a <texture> section made of (gauss) entries
// with Bunge angles in degrees:
//
//	[Grain1]
//	(gauss)  phi1 358.98  Phi 65.62  phi2 24.48  scatter 0.0  fraction 1.0
func ParseTexture(body string) (*Orientations, error) {
	ents, err := entries("texture", body)
	if err != nil {
		return nil, err
	}

	o := &Orientations{
		Type:         "euler",
		Convention:   "bunge",
		EulerDegrees: true,
	}
	for i, e := range ents {
		m := gaussEntry.FindStringSubmatch(collapse(e.body))
		if m == nil {
			pe := damask.NewParseError("texture", damask.ErrFormat, "entry %d is not a single (gauss) component", i)
			pe.Key = e.label
			return nil, pe
		}

		var v damask.Vec3
		for j := 0; j < 3; j++ {
			if v[j], err = damask.ParseFloat("texture", m[j+1]); err != nil {
				return nil, err
			}
		}
		scatter, fraction := 0.0, 1.0
		if m[4] != "" {
			if scatter, err = damask.ParseFloat("texture", m[4]); err != nil {
				return nil, err
			}
		}
		if m[5] != "" {
			if fraction, err = damask.ParseFloat("texture", m[5]); err != nil {
				return nil, err
			}
		}

		o.Labels = append(o.Labels, e.label)
		o.EulerAngles = append(o.EulerAngles, v)
		o.Scatter = append(o.Scatter, scatter)
		o.Fraction = append(o.Fraction, fraction)
	}
	return o, nil
}

// collapse joins the lines of an entry body with single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
