package altitude

import "time"

// DefaultMaxStep is the longest gap between cycles that is still integrated.
const DefaultMaxStep = 500 * time.Millisecond

// Integrator keeps an altitude setpoint that follows the vehicle's vertical
// motion during a maneuver.
//
// Altitude is metres, positive up. The velocity fed to Update is the NED down
// component, so the setpoint moves by -dt*w.
//
// Not safe for concurrent use.
type Integrator struct {
	maxStep time.Duration

	active   bool
	setpoint float64
	prevAt   time.Duration
	havePrev bool
}

func New(maxStep time.Duration) *Integrator {
	if maxStep <= 0 {
		maxStep = DefaultMaxStep
	}
	return &Integrator{maxStep: maxStep}
}

// Activate latches altitudeM as the reference. The next Update only records
// its timestamp.
func (in *Integrator) Activate(altitudeM float64) {
	in.active = true
	in.setpoint = altitudeM
	in.havePrev = false
	in.prevAt = 0
}

// Reset returns to the inactive state.
func (in *Integrator) Reset() {
	*in = Integrator{maxStep: in.maxStep}
}

func (in *Integrator) Active() bool { return in.active }

func (in *Integrator) Setpoint() float64 { return in.setpoint }

// Update integrates the down velocity w (m/s) since the previous call and
// returns the setpoint. The first call after Activate, a non-positive dt, or a
// gap longer than the max step leave the setpoint unchanged.
func (in *Integrator) Update(now time.Duration, w float64) float64 {
	if !in.active {
		return in.setpoint
	}
	if !in.havePrev {
		in.prevAt = now
		in.havePrev = true
		return in.setpoint
	}
	dt := now - in.prevAt
	in.prevAt = now
	if dt <= 0 || dt > in.maxStep {
		return in.setpoint
	}
	in.setpoint -= dt.Seconds() * w
	return in.setpoint
}
