// Package rotation converts between crystal orientation representations.
//
// Euler angles follow the Bunge (z x' z”) convention (φ1, Φ, φ2) and describe
// a passive rotation of the reference frame. Quaternions use the P = -1 sign
// convention of Rowenhorst et al., Modelling Simul. Mater. Sci. Eng. 23 (2015)
// 083501, with a non-negative scalar part.
package rotation

import (
	"errors"
	"math"
)

// ErrZeroAxis is returned for a rotation axis of zero length.
var ErrZeroAxis = errors.New("rotation: zero-length axis")

// Matrix is a 3x3 rotation matrix.
type Matrix [3][3]float64

// Euler is a Bunge Euler angle triple (φ1, Φ, φ2).
type Euler [3]float64

// Quaternion is (q0, q1, q2, q3) with scalar part q0.
type Quaternion [4]float64

func Identity() Matrix {
	return Matrix{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

func (a Matrix) Mul(b Matrix) Matrix {
	var c Matrix
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				c[i][j] += a[i][k] * b[k][j]
			}
		}
	}
	return c
}

// AxisAngle returns the active rotation by angle (radians) about axis,
// computed with Rodrigues' formula.
func AxisAngle(axis [3]float64, angle float64) (Matrix, error) {
	n := math.Sqrt(axis[0]*axis[0] + axis[1]*axis[1] + axis[2]*axis[2])
	if n == 0 {
		return Matrix{}, ErrZeroAxis
	}
	return rodrigues(axis[0]/n, axis[1]/n, axis[2]/n, angle), nil
}

// rodrigues rotates about the unit axis (x, y, z).
func rodrigues(x, y, z, angle float64) Matrix {
	k := Matrix{
		{0, -z, y},
		{z, 0, -x},
		{-y, x, 0},
	}
	kk := k.Mul(k)
	s, c := math.Sin(angle), math.Cos(angle)

	r := Identity()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] += s*k[i][j] + (1-c)*kk[i][j]
		}
	}
	return r
}

// EulerToMatrix returns the passive rotation matrix of Bunge angles in radians.
// The active rotations are applied with opposite sign in reverse order:
// R = Rz(-φ2) Rx(-Φ) Rz(-φ1).
func EulerToMatrix(e Euler) Matrix {
	rz1 := rodrigues(0, 0, 1, -e[0])
	rx := rodrigues(1, 0, 0, -e[1])
	rz2 := rodrigues(0, 0, 1, -e[2])
	return rz2.Mul(rx).Mul(rz1)
}

// MatrixToEuler recovers Bunge angles in radians from a passive rotation
// matrix. When sin Φ vanishes φ1 and φ2 cannot be separated; the combined
// angle is returned as φ1 and φ2 is 0.
func MatrixToEuler(r Matrix) Euler {
	phi := math.Acos(clamp(r[2][2], -1, 1))
	if math.Abs(math.Sin(phi)) < 1e-12 {
		return Euler{math.Atan2(r[0][1], r[0][0]), phi, 0}
	}
	return Euler{
		math.Atan2(r[2][0], -r[2][1]),
		phi,
		math.Atan2(r[0][2], r[1][2]),
	}
}

// EulerToQuaternion converts Bunge angles in radians.
func EulerToQuaternion(e Euler) Quaternion {
	sigma := 0.5 * (e[0] + e[2])
	delta := 0.5 * (e[0] - e[2])
	c := math.Cos(0.5 * e[1])
	s := math.Sin(0.5 * e[1])

	q := Quaternion{c * math.Cos(sigma), s * math.Cos(delta), s * math.Sin(delta), c * math.Sin(sigma)}
	if q[0] < 0 {
		for i := range q {
			q[i] = -q[i]
		}
	}
	return q
}

// QuaternionToMatrix returns the passive rotation matrix of a unit quaternion.
func QuaternionToMatrix(q Quaternion) Matrix {
	const p = -1.0
	q0, q1, q2, q3 := q[0], q[1], q[2], q[3]
	qbar := q0*q0 - (q1*q1 + q2*q2 + q3*q3)
	return Matrix{
		{qbar + 2*q1*q1, 2 * (q1*q2 - p*q0*q3), 2 * (q1*q3 + p*q0*q2)},
		{2 * (q2*q1 + p*q0*q3), qbar + 2*q2*q2, 2 * (q2*q3 - p*q0*q1)},
		{2 * (q3*q1 - p*q0*q2), 2 * (q3*q2 + p*q0*q1), qbar + 2*q3*q3},
	}
}

// Radians converts an angle triple from degrees.
func Radians(deg [3]float64) Euler {
	return Euler{deg[0] * math.Pi / 180, deg[1] * math.Pi / 180, deg[2] * math.Pi / 180}
}

// Degrees converts an angle triple to degrees.
func Degrees(e Euler) [3]float64 {
	return [3]float64{e[0] * 180 / math.Pi, e[1] * 180 / math.Pi, e[2] * 180 / math.Pi}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
