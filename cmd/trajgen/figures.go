package main

import (
	"fmt"
	"math"
	"time"

	"github.com/westphae/quaternion"

	"acro-ng/internal/trajectory"
)

var (
	axisX = quaternion.Vec3{X: 1}
	axisY = quaternion.Vec3{Y: 1}
	axisZ = quaternion.Vec3{Z: 1}
)

func deg(d float64) float64 { return d * math.Pi / 180 }

// figure maps normalized progress s in [0,1] to an attitude.
type figure struct {
	duration time.Duration
	at       func(s float64) quaternion.Quaternion
}

// Attitudes compose as yaw * pitch * roll (body to NED).
func ypr(yaw, pitch, roll float64) quaternion.Quaternion {
	return quaternion.Prod(
		quaternion.FromAxisAngle(axisZ, yaw),
		quaternion.FromAxisAngle(axisY, pitch),
		quaternion.FromAxisAngle(axisX, roll),
	).Unit()
}

// ramp goes 0 to 1 over [from, to] and holds outside it.
func ramp(s, from, to float64) float64 {
	switch {
	case s <= from:
		return 0
	case s >= to:
		return 1
	default:
		return (s - from) / (to - from)
	}
}

func breakTurn(dir float64) figure {
	return figure{
		duration: 4 * time.Second,
		at: func(s float64) quaternion.Quaternion {
			bank := dir * deg(60) * (ramp(s, 0, 0.15) - ramp(s, 0.85, 1))
			heading := dir * deg(90) * ramp(s, 0.15, 0.85)
			return ypr(heading, 0, bank)
		},
	}
}

var figures = map[trajectory.Maneuver]figure{
	trajectory.ManeuverLoop: {
		duration: 4 * time.Second,
		at: func(s float64) quaternion.Quaternion {
			return quaternion.FromAxisAngle(axisY, 2*math.Pi*s)
		},
	},
	trajectory.ManeuverImmelmann: {
		duration: 4500 * time.Millisecond,
		at: func(s float64) quaternion.Quaternion {
			pitch := quaternion.FromAxisAngle(axisY, math.Pi*ramp(s, 0, 2.0/3))
			roll := quaternion.FromAxisAngle(axisX, math.Pi*ramp(s, 2.0/3, 1))
			return quaternion.Prod(pitch, roll).Unit()
		},
	},
	trajectory.ManeuverBreakLeft:  breakTurn(-1),
	trajectory.ManeuverBreakRight: breakTurn(1),
	trajectory.ManeuverBarrelRoll: {
		duration: 5 * time.Second,
		at: func(s float64) quaternion.Quaternion {
			return ypr(0, deg(15)*math.Sin(2*math.Pi*s), 2*math.Pi*s)
		},
	},
}

// generate samples m's figure every step, always including the end point.
func generate(m trajectory.Maneuver, step time.Duration) ([]trajectory.Sample, error) {
	f, ok := figures[m]
	if !ok {
		return nil, fmt.Errorf("no figure for maneuver %s", m)
	}
	if step <= 0 {
		return nil, fmt.Errorf("step must be > 0")
	}
	// Whole microseconds keep the file format lossless.
	step = step.Truncate(time.Microsecond)
	if step <= 0 {
		step = time.Microsecond
	}
	var out []trajectory.Sample
	for at := time.Duration(0); at < f.duration; at += step {
		out = append(out, trajectory.Sample{At: at, Q: f.at(float64(at) / float64(f.duration))})
	}
	return append(out, trajectory.Sample{At: f.duration, Q: f.at(1)}), nil
}
