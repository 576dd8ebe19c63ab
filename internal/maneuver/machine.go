package maneuver

import (
	"fmt"
	"time"

	"acro-ng/internal/bus"
	"acro-ng/internal/trajectory"
)

// DefaultFinishThreshold is the number of consecutive final-sample cycles
// required before a maneuver is declared finished.
const DefaultFinishThreshold = 200

// Phase is the maneuver lifecycle stage.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseArmed
	PhaseActive
	PhaseFinished
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "IDLE"
	case PhaseArmed:
		return "ARMED"
	case PhaseActive:
		return "ACTIVE"
	case PhaseFinished:
		return "FINISHED"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Engaged reports whether the phase produces output.
func (p Phase) Engaged() bool {
	return p == PhaseArmed || p == PhaseActive || p == PhaseFinished
}

// State is a copy of the machine's externally visible state.
type State struct {
	Phase         Phase
	Maneuver      trajectory.Maneuver
	StartTime     time.Duration
	StartLatched  bool
	FinishCounter int
}

// Transition is what Observe did this cycle.
type Transition int

const (
	TransitionNone Transition = iota
	// TransitionArmed: a new maneuver was requested.
	TransitionArmed
	// TransitionReset: the tracked maneuver was dropped; cached data is stale.
	TransitionReset
	// TransitionRearmed: the tracked maneuver was dropped and a different one armed.
	TransitionRearmed
)

// Machine tracks Idle -> Armed -> Active -> Finished -> Idle.
//
// Not safe for concurrent use; it is owned by the commander's cycle.
type Machine struct {
	threshold int

	phase         Phase
	maneuver      trajectory.Maneuver
	startTime     time.Duration
	startLatched  bool
	finishCounter int
}

func New(finishThreshold int) *Machine {
	if finishThreshold <= 0 {
		finishThreshold = DefaultFinishThreshold
	}
	return &Machine{threshold: finishThreshold}
}

func (m *Machine) FinishThreshold() int { return m.threshold }

func (m *Machine) State() State {
	return State{
		Phase:         m.phase,
		Maneuver:      m.maneuver,
		StartTime:     m.startTime,
		StartLatched:  m.startLatched,
		FinishCounter: m.finishCounter,
	}
}

func (m *Machine) Phase() Phase { return m.phase }

func (m *Machine) Maneuver() trajectory.Maneuver { return m.maneuver }

// Observe applies the latest vehicle command. Anything other than
// "do acrobatic" for the tracked maneuver forces Idle first; a
// "do acrobatic" command seen while Idle arms its maneuver.
func (m *Machine) Observe(cmd bus.VehicleCommand) Transition {
	requested := cmd.Command == bus.CmdDoAcrobatic
	id := trajectory.Maneuver(cmd.Maneuver)

	reset := false
	if m.phase != PhaseIdle && (!requested || id != m.maneuver) {
		m.reset()
		reset = true
	}
	if requested && m.phase == PhaseIdle {
		m.phase = PhaseArmed
		m.maneuver = id
		if reset {
			return TransitionRearmed
		}
		return TransitionArmed
	}
	if reset {
		return TransitionReset
	}
	return TransitionNone
}

// Latch records the start time on the first cycle after arming and moves to
// Active. It reports whether the latch happened on this call.
func (m *Machine) Latch(now time.Duration) bool {
	if m.phase != PhaseArmed {
		return false
	}
	m.startTime = now
	m.startLatched = true
	m.finishCounter = 0
	m.phase = PhaseActive
	return true
}

// Elapsed returns time since the latched start. ok is false while no start
// time is latched.
func (m *Machine) Elapsed(now time.Duration) (elapsed time.Duration, ok bool) {
	if !m.startLatched {
		return 0, false
	}
	elapsed = now - m.startTime
	if elapsed < 0 {
		elapsed = 0
	}
	return elapsed, true
}

// RecordSample feeds the sampler's isFinal flag into the finish debounce.
// It reports true on the cycle that transitions to Finished.
func (m *Machine) RecordSample(isFinal bool) bool {
	if m.phase != PhaseActive && m.phase != PhaseFinished {
		return false
	}
	if !isFinal {
		m.finishCounter = 0
		return false
	}
	if m.finishCounter < m.threshold {
		m.finishCounter++
	}
	if m.phase == PhaseActive && m.finishCounter >= m.threshold {
		m.phase = PhaseFinished
		return true
	}
	return false
}

func (m *Machine) reset() {
	m.phase = PhaseIdle
	m.maneuver = 0
	m.startTime = 0
	m.startLatched = false
	m.finishCounter = 0
}
