package rotation

import (
	"math"
	"testing"
)

const eps = 1e-10

func matricesClose(a, b Matrix) bool {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if math.Abs(a[i][j]-b[i][j]) > eps {
				return false
			}
		}
	}
	return true
}

// bunge is the closed-form passive Bunge matrix.
func bunge(e Euler) Matrix {
	c1, s1 := math.Cos(e[0]), math.Sin(e[0])
	c2, s2 := math.Cos(e[1]), math.Sin(e[1])
	c3, s3 := math.Cos(e[2]), math.Sin(e[2])
	return Matrix{
		{c1*c3 - s1*c2*s3, s1*c3 + c1*c2*s3, s2 * s3},
		{-c1*s3 - s1*c2*c3, -s1*s3 + c1*c2*c3, s2 * c3},
		{s1 * s2, -c1 * s2, c2},
	}
}

func TestAxisAngle(t *testing.T) {
	r, err := AxisAngle([3]float64{0, 0, 2}, math.Pi/4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h := math.Sqrt2 / 2
	want := Matrix{{h, -h, 0}, {h, h, 0}, {0, 0, 1}}
	if !matricesClose(r, want) {
		t.Errorf("AxisAngle(z, pi/4) = %v, want %v", r, want)
	}

	if _, err := AxisAngle([3]float64{}, 1); err != ErrZeroAxis {
		t.Errorf("expected ErrZeroAxis, got %v", err)
	}
}

func TestEulerToMatrix(t *testing.T) {
	tests := []struct {
		name  string
		euler Euler
	}{
		{"zero", Euler{0, 0, 0}},
		{"phi1 only", Euler{math.Pi / 2, 0, 0}},
		{"generic", Euler{0.3, 0.5, 1.1}},
		{"large", Euler{5.9, 2.8, 4.2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EulerToMatrix(tt.euler)
			if !matricesClose(got, bunge(tt.euler)) {
				t.Errorf("EulerToMatrix(%v) = %v, want %v", tt.euler, got, bunge(tt.euler))
			}
		})
	}
}

func TestMatrixToEuler_RoundTrip(t *testing.T) {
	tests := []Euler{
		{0.3, 0.5, 1.1},
		{2.0, 1.2, 0.4},
		{-1.0, 2.5, 3.0},
	}

	for _, e := range tests {
		got := MatrixToEuler(EulerToMatrix(e))
		for i := range e {
			if math.Abs(got[i]-e[i]) > eps {
				t.Errorf("round trip of %v gave %v", e, got)
				break
			}
		}
	}
}

func TestMatrixToEuler_Degenerate(t *testing.T) {
	got := MatrixToEuler(EulerToMatrix(Euler{0.4, 0, 0.2}))
	if math.Abs(got[0]-0.6) > eps || got[1] != 0 || got[2] != 0 {
		t.Errorf("expected combined angle 0.6, got %v", got)
	}
}

func TestEulerToQuaternion(t *testing.T) {
	q := EulerToQuaternion(Euler{0, 0, 0})
	if q != (Quaternion{1, 0, 0, 0}) {
		t.Errorf("identity quaternion = %v", q)
	}

	for _, e := range []Euler{{0.3, 0.5, 1.1}, {5.9, 2.8, 4.2}} {
		q := EulerToQuaternion(e)
		norm := q[0]*q[0] + q[1]*q[1] + q[2]*q[2] + q[3]*q[3]
		if math.Abs(norm-1) > eps {
			t.Errorf("quaternion of %v not unit: %v", e, norm)
		}
		if q[0] < 0 {
			t.Errorf("quaternion of %v has negative scalar part", e)
		}
		if !matricesClose(QuaternionToMatrix(q), EulerToMatrix(e)) {
			t.Errorf("quaternion of %v does not reproduce its matrix", e)
		}
	}
}

func TestRadiansDegrees(t *testing.T) {
	e := Radians([3]float64{180, 90, 45})
	if math.Abs(e[0]-math.Pi) > eps || math.Abs(e[1]-math.Pi/2) > eps || math.Abs(e[2]-math.Pi/4) > eps {
		t.Errorf("Radians = %v", e)
	}
	d := Degrees(e)
	if math.Abs(d[2]-45) > eps {
		t.Errorf("Degrees = %v", d)
	}
}
