package attctl

import (
	"math"

	"github.com/westphae/quaternion"
)

// Propagate advances q by the body rate w (rad/s) over dt seconds using
// q̇ = ½ q ⊗ (0, w) and renormalizes.
func Propagate(q quaternion.Quaternion, w [3]float64, dt float64) quaternion.Quaternion {
	if dt <= 0 {
		return q
	}
	axis := quaternion.Vec3{X: w[0], Y: w[1], Z: w[2]}
	mag := axis.Norm()
	if mag == 0 || math.IsNaN(mag) || math.IsInf(mag, 0) {
		return q
	}
	return quaternion.Prod(q, quaternion.FromAxisAngle(axis, mag*dt)).Unit()
}

// Components returns q as (w, x, y, z).
func Components(q quaternion.Quaternion) [4]float64 {
	return [4]float64{q.W, q.X, q.Y, q.Z}
}
