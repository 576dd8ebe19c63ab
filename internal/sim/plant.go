package sim

import (
	"time"

	"github.com/westphae/quaternion"

	"acro-ng/internal/attctl"
)

// Plant is a rigid-body attitude model: the achieved body rate follows the
// commanded rate through a first-order lag and the attitude integrates the
// achieved rate. Altitude changes at a constant climb rate.
//
// Deterministic for a given sequence of Step calls. Not safe for concurrent use.
type Plant struct {
	Q quaternion.Quaternion
	// Rate is the achieved body rate (rad/s).
	Rate [3]float64
	// AltitudeM is metres, positive up.
	AltitudeM float64
	// ClimbRate is m/s, positive up.
	ClimbRate float64
	RateLag   time.Duration
}

func NewPlant(initialAlt, climbRate float64, rateLag time.Duration) *Plant {
	return &Plant{
		Q:         quaternion.Identity(),
		AltitudeM: initialAlt,
		ClimbRate: climbRate,
		RateLag:   rateLag,
	}
}

// Step advances the model by dt under the commanded body rate.
func (p *Plant) Step(dt time.Duration, cmd [3]float64) {
	if p == nil || dt <= 0 {
		return
	}
	s := dt.Seconds()
	alpha := 1.0
	if p.RateLag > 0 {
		alpha = s / (p.RateLag.Seconds() + s)
	}
	for i := range p.Rate {
		p.Rate[i] += alpha * (cmd[i] - p.Rate[i])
	}
	p.Q = attctl.Propagate(p.Q, p.Rate, s)
	p.AltitudeM += p.ClimbRate * s
}

// VelocityDown is the NED down velocity in m/s.
func (p *Plant) VelocityDown() float64 {
	if p == nil {
		return 0
	}
	return -p.ClimbRate
}
