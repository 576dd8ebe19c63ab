package main

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/westphae/quaternion"

	"acro-ng/internal/trajectory"
)

func norm(q quaternion.Quaternion) float64 {
	return math.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
}

func TestGenerate_AllFiguresWellFormed(t *testing.T) {
	for _, m := range trajectory.Maneuvers() {
		t.Run(m.String(), func(t *testing.T) {
			samples, err := generate(m, 20*time.Millisecond)
			if err != nil {
				t.Fatalf("generate() error: %v", err)
			}
			if samples[0].At != 0 {
				t.Fatalf("first sample at %s", samples[0].At)
			}
			if last := samples[len(samples)-1].At; last != figures[m].duration {
				t.Fatalf("last sample at %s want %s", last, figures[m].duration)
			}
			for i, s := range samples {
				if math.Abs(norm(s.Q)-1) > 1e-9 {
					t.Fatalf("sample %d norm=%v", i, norm(s.Q))
				}
				if i > 0 && s.At <= samples[i-1].At {
					t.Fatalf("sample %d not increasing: %s <= %s", i, s.At, samples[i-1].At)
				}
			}
		})
	}
}

func TestGenerate_LoopEndpoints(t *testing.T) {
	samples, err := generate(trajectory.ManeuverLoop, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("generate() error: %v", err)
	}
	half := samples[len(samples)/2]
	// Halfway through the loop the vehicle is inverted: 180 deg about pitch.
	if math.Abs(half.Q.W) > 1e-9 || math.Abs(math.Abs(half.Q.Y)-1) > 1e-9 {
		t.Fatalf("half-loop q=%v", half.Q)
	}
}

func TestGenerate_BreakTurnsMirror(t *testing.T) {
	l, _ := generate(trajectory.ManeuverBreakLeft, 50*time.Millisecond)
	r, _ := generate(trajectory.ManeuverBreakRight, 50*time.Millisecond)
	if len(l) != len(r) {
		t.Fatalf("len left=%d right=%d", len(l), len(r))
	}
	mid := len(l) / 2
	if math.Abs(l[mid].Q.X+r[mid].Q.X) > 1e-9 || math.Abs(l[mid].Q.Z+r[mid].Q.Z) > 1e-9 {
		t.Fatalf("left=%v right=%v not mirrored", l[mid].Q, r[mid].Q)
	}
}

func TestRun_WritesLoadableCatalog(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "traj")
	if err := run(dir, 25, ""); err != nil {
		t.Fatalf("run() error: %v", err)
	}
	store := trajectory.NewStore(trajectory.StoreConfig{Dir: dir})
	for _, m := range trajectory.Maneuvers() {
		traj, err := store.Load(m)
		if err != nil {
			t.Fatalf("Load(%s) error: %v", m, err)
		}
		if traj.Duration() != figures[m].duration {
			t.Fatalf("%s duration=%s want %s", m, traj.Duration(), figures[m].duration)
		}
		if store.Truncated(m) != nil {
			t.Fatalf("%s truncated: %v", m, store.Truncated(m))
		}
	}
}

func TestRun_Errors(t *testing.T) {
	if err := run(t.TempDir(), 0, ""); err == nil {
		t.Fatalf("expected error for zero rate")
	}
	if err := run(t.TempDir(), 10, "hammerhead"); err == nil {
		t.Fatalf("expected error for unknown maneuver")
	}
}
