package acro

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/westphae/quaternion"

	"acro-ng/internal/altitude"
	"acro-ng/internal/attctl"
	"acro-ng/internal/bus"
	"acro-ng/internal/maneuver"
	"acro-ng/internal/trajectory"
)

// Clock supplies monotonic timestamps.
type Clock interface {
	Now() time.Duration
}

type Config struct {
	Trajectory      trajectory.StoreConfig
	FinishThreshold int
	// TimeConstant is the attitude loop time constant in seconds.
	TimeConstant float64
	// MaxBodyRate clamps each output axis (rad/s). Zero disables clamping.
	MaxBodyRate     float64
	AltitudeMaxStep time.Duration
}

// Status is a point-in-time view of the commander for status reporting.
type Status struct {
	Phase              string        `json:"phase"`
	Maneuver           string        `json:"maneuver,omitempty"`
	Elapsed            time.Duration `json:"elapsed_ns"`
	FinishCounter      int           `json:"finish_counter"`
	FinishThreshold    int           `json:"finish_threshold"`
	TrajectorySamples  int           `json:"trajectory_samples"`
	TrajectoryDuration time.Duration `json:"trajectory_duration_ns"`
	LastLoadError      string        `json:"last_load_error,omitempty"`
	Cycles             uint64        `json:"cycles"`
	Published          uint64        `json:"published"`
	Engaged            bool          `json:"engaged"`
	// Holding is set while engaged on an unrecognized maneuver id. No
	// trajectory is flown and the commander holds the measured attitude until
	// a new command arrives.
	Holding bool `json:"holding,omitempty"`
}

// Commander runs one cycle per attitude sample: it tracks the maneuver
// lifecycle, samples the trajectory and publishes a body-rate command.
//
// Cycle and Poll must be called from a single goroutine. Status is safe to
// call concurrently.
type Commander struct {
	cfg   Config
	bus   *bus.Bus
	clock Clock

	attSub  *bus.Subscription[bus.Attitude]
	cmdSub  *bus.Subscription[bus.VehicleCommand]
	posSub  *bus.Subscription[bus.Position]
	rateSub *bus.Subscription[bus.AngularVelocity]

	store   *trajectory.Store
	machine *maneuver.Machine
	alt     *altitude.Integrator

	cmd     bus.VehicleCommand
	pos     bus.Position
	havePos bool
	angVel  bus.AngularVelocity
	traj    *trajectory.Trajectory
	loadErr error

	cycles    uint64
	published uint64

	mu   sync.RWMutex
	snap Status
}

func New(cfg Config, b *bus.Bus, clk Clock) (*Commander, error) {
	if b == nil {
		return nil, fmt.Errorf("acro: bus is nil")
	}
	if clk == nil {
		return nil, fmt.Errorf("acro: clock is nil")
	}
	if cfg.TimeConstant <= 0 {
		cfg.TimeConstant = attctl.DefaultTimeConstant
	}
	c := &Commander{
		cfg:     cfg,
		bus:     b,
		clock:   clk,
		attSub:  b.Attitude.Subscribe(),
		cmdSub:  b.VehicleCommand.Subscribe(),
		posSub:  b.Position.Subscribe(),
		rateSub: b.AngularVelocity.Subscribe(),
		store:   trajectory.NewStore(cfg.Trajectory),
		machine: maneuver.New(cfg.FinishThreshold),
		alt:     altitude.New(cfg.AltitudeMaxStep),
	}
	c.updateSnapshot(0)
	return c, nil
}

// Poll runs a cycle if a new attitude sample has arrived since the last call.
func (c *Commander) Poll() (bus.RateCommand, bool) {
	var att bus.Attitude
	if !c.attSub.Update(&att) {
		return bus.RateCommand{}, false
	}
	return c.Cycle(att)
}

// Cycle processes one attitude sample. It returns the published command and
// true while a maneuver is armed, active or finished; idle cycles publish
// nothing.
func (c *Commander) Cycle(att bus.Attitude) (bus.RateCommand, bool) {
	now := c.clock.Now()
	c.cycles++

	c.cmdSub.Update(&c.cmd)
	if c.posSub.Update(&c.pos) {
		c.havePos = true
	}
	c.rateSub.Update(&c.angVel)

	switch c.machine.Observe(c.cmd) {
	case maneuver.TransitionArmed:
		log.Printf("acro: armed maneuver=%s", c.machine.Maneuver())
	case maneuver.TransitionRearmed:
		c.deactivate()
		log.Printf("acro: maneuver changed, rearmed maneuver=%s", c.machine.Maneuver())
	case maneuver.TransitionReset:
		c.deactivate()
		log.Printf("acro: maneuver cleared (command=%d)", c.cmd.Command)
	}

	if !c.machine.Phase().Engaged() {
		c.updateSnapshot(0)
		return bus.RateCommand{}, false
	}

	if c.machine.Latch(now) {
		c.activate()
	}
	elapsed, ok := c.machine.Elapsed(now)
	if !ok {
		c.updateSnapshot(0)
		return bus.RateCommand{}, false
	}

	if !c.alt.Active() && c.havePos {
		c.alt.Activate(c.pos.AltitudeM)
	}

	m := c.machine.Maneuver()
	desired := att.Q
	var rate [3]float64
	switch {
	case !m.Known():
		// Hold the current attitude. The maneuver never finishes on its own;
		// Status().Holding reports this state.
	case c.traj.Empty():
		desired = quaternion.Identity()
	default:
		var isFinal bool
		desired, isFinal = c.traj.Sample(elapsed)
		if c.machine.RecordSample(isFinal) {
			log.Printf("acro: finished maneuver=%s elapsed=%s", m, elapsed)
		}
		rate = attctl.Clamp(attctl.BodyRate(desired, att.Q, c.cfg.TimeConstant), c.cfg.MaxBodyRate)
	}

	altSp := c.alt.Update(now, c.pos.VelocityDownMps)

	out := bus.RateCommand{
		Timestamp:        now,
		Maneuver:         int(m),
		Elapsed:          elapsed,
		DesiredQ:         attctl.Components(desired),
		BodyRate:         rate,
		AngularVelocity:  c.angVel.XYZ,
		AltitudeSetpoint: altSp,
		Finished:         c.machine.Phase() == maneuver.PhaseFinished,
	}
	c.bus.RateCommand.Publish(out)
	c.published++
	c.updateSnapshot(elapsed)
	return out, true
}

// activate runs once per maneuver, on the cycle the start time is latched.
func (c *Commander) activate() {
	m := c.machine.Maneuver()
	c.traj = nil
	c.loadErr = nil
	if c.havePos {
		c.alt.Activate(c.pos.AltitudeM)
	}
	if !m.Known() {
		log.Printf("acro: unrecognized maneuver id=%d, holding attitude", int(m))
		return
	}
	traj, err := c.store.Load(m)
	if err != nil {
		c.loadErr = err
		log.Printf("acro: maneuver unavailable: %v", err)
		return
	}
	c.traj = traj
	if re := c.store.Truncated(m); re != nil {
		log.Printf("acro: %s trajectory truncated: %v", m, re)
	}
	log.Printf("acro: active maneuver=%s samples=%d duration=%s", m, traj.Len(), traj.Duration())
}

func (c *Commander) deactivate() {
	c.store.Invalidate()
	c.traj = nil
	c.loadErr = nil
	c.alt.Reset()
}

// LoadError returns the error from the current maneuver's trajectory load, if any.
func (c *Commander) LoadError() error {
	return c.loadErr
}

// Phase returns the lifecycle phase after the most recent cycle.
func (c *Commander) Phase() maneuver.Phase {
	if c == nil {
		return maneuver.PhaseIdle
	}
	return c.machine.Phase()
}

func (c *Commander) Status() Status {
	if c == nil {
		return Status{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

func (c *Commander) updateSnapshot(elapsed time.Duration) {
	st := c.machine.State()
	snap := Status{
		Phase:              st.Phase.String(),
		Elapsed:            elapsed,
		FinishCounter:      st.FinishCounter,
		FinishThreshold:    c.machine.FinishThreshold(),
		TrajectorySamples:  c.traj.Len(),
		TrajectoryDuration: c.traj.Duration(),
		Cycles:             c.cycles,
		Published:          c.published,
		Engaged:            st.Phase.Engaged(),
		Holding:            st.Phase.Engaged() && !st.Maneuver.Known(),
	}
	if st.Phase != maneuver.PhaseIdle {
		snap.Maneuver = st.Maneuver.String()
	}
	if c.loadErr != nil {
		snap.LastLoadError = c.loadErr.Error()
	}
	c.mu.Lock()
	c.snap = snap
	c.mu.Unlock()
}
