package maneuver

import (
	"testing"
	"time"

	"acro-ng/internal/bus"
	"acro-ng/internal/trajectory"
)

func doAcro(id trajectory.Maneuver) bus.VehicleCommand {
	return bus.VehicleCommand{Command: bus.CmdDoAcrobatic, Maneuver: int(id)}
}

func TestObserve_ArmsOnOpcode(t *testing.T) {
	m := New(3)
	if tr := m.Observe(bus.VehicleCommand{}); tr != TransitionNone || m.Phase() != PhaseIdle {
		t.Fatalf("transition=%v phase=%s want none,IDLE", tr, m.Phase())
	}
	if tr := m.Observe(doAcro(trajectory.ManeuverLoop)); tr != TransitionArmed {
		t.Fatalf("transition=%v want armed", tr)
	}
	if m.Phase() != PhaseArmed || m.Maneuver() != trajectory.ManeuverLoop {
		t.Fatalf("state=%+v", m.State())
	}
	// Repeating the same command is a no-op.
	if tr := m.Observe(doAcro(trajectory.ManeuverLoop)); tr != TransitionNone || m.Phase() != PhaseArmed {
		t.Fatalf("transition=%v phase=%s", tr, m.Phase())
	}
}

func TestLatch_OnceAfterArming(t *testing.T) {
	m := New(3)
	if m.Latch(time.Second) {
		t.Fatalf("Latch() while idle should not latch")
	}
	if _, ok := m.Elapsed(2 * time.Second); ok {
		t.Fatalf("Elapsed() must not be available before latch")
	}
	m.Observe(doAcro(trajectory.ManeuverLoop))
	if !m.Latch(5 * time.Second) {
		t.Fatalf("Latch() after arming should latch")
	}
	if m.Latch(6 * time.Second) {
		t.Fatalf("Latch() must only happen once")
	}
	el, ok := m.Elapsed(7 * time.Second)
	if !ok || el != 2*time.Second {
		t.Fatalf("elapsed=%s ok=%v want 2s", el, ok)
	}
	if m.Phase() != PhaseActive {
		t.Fatalf("phase=%s want ACTIVE", m.Phase())
	}
}

func TestRecordSample_DebounceToFinished(t *testing.T) {
	m := New(3)
	m.Observe(doAcro(trajectory.ManeuverLoop))
	m.Latch(0)

	m.RecordSample(true)
	m.RecordSample(true)
	// A non-final sample resets the counter.
	m.RecordSample(false)
	if got := m.State().FinishCounter; got != 0 {
		t.Fatalf("counter=%d want 0", got)
	}
	m.RecordSample(true)
	m.RecordSample(true)
	if m.Phase() != PhaseActive {
		t.Fatalf("phase=%s want ACTIVE before threshold", m.Phase())
	}
	if !m.RecordSample(true) {
		t.Fatalf("third consecutive final sample should finish")
	}
	if m.Phase() != PhaseFinished {
		t.Fatalf("phase=%s want FINISHED", m.Phase())
	}
	if m.RecordSample(true) {
		t.Fatalf("finish must be reported once")
	}
}

func TestObserve_OpcodeClearedResets(t *testing.T) {
	m := New(1)
	m.Observe(doAcro(trajectory.ManeuverLoop))
	m.Latch(time.Second)
	m.RecordSample(true)
	if m.Phase() != PhaseFinished {
		t.Fatalf("phase=%s want FINISHED", m.Phase())
	}

	if tr := m.Observe(bus.VehicleCommand{Command: 176}); tr != TransitionReset {
		t.Fatalf("transition=%v want reset", tr)
	}
	st := m.State()
	if st.Phase != PhaseIdle || st.StartLatched || st.FinishCounter != 0 || st.Maneuver != 0 {
		t.Fatalf("state=%+v want zeroed idle", st)
	}

	// Re-arming the same maneuver starts over.
	m.Observe(doAcro(trajectory.ManeuverLoop))
	if m.Phase() != PhaseArmed {
		t.Fatalf("phase=%s want ARMED", m.Phase())
	}
}

func TestObserve_DifferentManeuverRearms(t *testing.T) {
	m := New(5)
	m.Observe(doAcro(trajectory.ManeuverLoop))
	m.Latch(time.Second)

	if tr := m.Observe(doAcro(trajectory.ManeuverBreakLeft)); tr != TransitionRearmed {
		t.Fatalf("transition=%v want rearmed", tr)
	}
	st := m.State()
	if st.Phase != PhaseArmed || st.Maneuver != trajectory.ManeuverBreakLeft || st.StartLatched {
		t.Fatalf("state=%+v", st)
	}
}

func TestPhaseString(t *testing.T) {
	cases := map[Phase]string{
		PhaseIdle:     "IDLE",
		PhaseArmed:    "ARMED",
		PhaseActive:   "ACTIVE",
		PhaseFinished: "FINISHED",
		Phase(9):      "Phase(9)",
	}
	for p, want := range cases {
		if got := p.String(); got != want {
			t.Fatalf("String()=%q want %q", got, want)
		}
	}
}

func TestNew_DefaultThreshold(t *testing.T) {
	if got := New(0).FinishThreshold(); got != DefaultFinishThreshold {
		t.Fatalf("threshold=%d want %d", got, DefaultFinishThreshold)
	}
}
