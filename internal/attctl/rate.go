// Package attctl turns an attitude error into a body-rate command.
package attctl

import (
	"math"

	"github.com/skelterjohn/go.matrix"
	"github.com/westphae/quaternion"
)

// DefaultTimeConstant is the attitude loop time constant in seconds.
const DefaultTimeConstant = 0.3

// ErrorQuat returns desired - measured, component by component.
//
// This is only a reasonable attitude error for small deviations; it is not
// the multiplicative error desired ⊗ conj(measured).
func ErrorQuat(desired, measured quaternion.Quaternion) quaternion.Quaternion {
	return desired.Sub(measured)
}

// kinematics returns the 3x4 map from a quaternion derivative to body rate
// (before the factor 2), evaluated at q:
//
//	p = q0*e1 - q1*e0 - q2*e3 + q3*e2
//	q = q0*e2 - q2*e0 + q1*e3 - q3*e1
//	r = q0*e3 - q1*e2 + q2*e1 - q3*e0
func kinematics(q quaternion.Quaternion) *matrix.DenseMatrix {
	return matrix.MakeDenseMatrix([]float64{
		-q.X, q.W, q.Z, -q.Y,
		-q.Y, -q.Z, q.W, q.X,
		-q.Z, q.Y, -q.X, q.W,
	}, 3, 4)
}

// BodyRate converts the error between desired and measured into a body-frame
// angular rate (rad/s, roll/pitch/yaw). The error is scaled by 2/tc and
// mapped through the quaternion-derivative kinematics at measured.
//
// The output is not clamped. A non-positive tc yields zero.
func BodyRate(desired, measured quaternion.Quaternion, tc float64) [3]float64 {
	if tc <= 0 || math.IsNaN(tc) {
		return [3]float64{}
	}
	k := 2 / tc
	e := ErrorQuat(desired, measured)
	ev := matrix.MakeDenseMatrix([]float64{e.W * k, e.X * k, e.Y * k, e.Z * k}, 4, 1)
	w := matrix.Scaled(matrix.Product(kinematics(measured), ev), 2)
	return [3]float64{w.Get(0, 0), w.Get(1, 0), w.Get(2, 0)}
}

// Clamp limits each axis to [-max, max]. A non-positive max disables the
// limit. Non-finite components are zeroed either way.
func Clamp(rate [3]float64, max float64) [3]float64 {
	for i, v := range rate {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			rate[i] = 0
		}
	}
	if max <= 0 {
		return rate
	}
	for i := range rate {
		if rate[i] > max {
			rate[i] = max
		} else if rate[i] < -max {
			rate[i] = -max
		}
	}
	return rate
}
