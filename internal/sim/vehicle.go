package sim

import (
	"log"
	"time"

	"acro-ng/internal/bus"
)

// Vehicle closes the loop on the bus: each Step publishes the scripted
// command, position, angular velocity and attitude, then the next Step flies
// the rate command produced in between.
type Vehicle struct {
	bus      *bus.Bus
	plant    *Plant
	timeline *Timeline
	rateSub  *bus.Subscription[bus.RateCommand]

	start     time.Duration
	started   bool
	prevAt    time.Duration
	lastIndex int
}

func NewVehicle(b *bus.Bus, plant *Plant, timeline *Timeline) *Vehicle {
	return &Vehicle{
		bus:       b,
		plant:     plant,
		timeline:  timeline,
		rateSub:   b.RateCommand.Subscribe(),
		lastIndex: -1,
	}
}

func (v *Vehicle) Plant() *Plant {
	if v == nil {
		return nil
	}
	return v.plant
}

// Step advances the plant to now and publishes the new vehicle state.
// A rate command is flown only if one was published since the previous Step;
// otherwise the vehicle is commanded to zero rate.
func (v *Vehicle) Step(now time.Duration) {
	if v == nil {
		return
	}
	if !v.started {
		v.start = now
		v.prevAt = now
		v.started = true
	}

	var rc bus.RateCommand
	if !v.rateSub.Update(&rc) {
		rc = bus.RateCommand{}
	}
	v.plant.Step(now-v.prevAt, rc.BodyRate)
	v.prevAt = now

	if cmd, idx, ok := v.timeline.CommandAt(now - v.start); ok && idx != v.lastIndex {
		v.lastIndex = idx
		cmd.Timestamp = now
		v.bus.VehicleCommand.Publish(cmd)
		log.Printf("sim: command=%d maneuver=%d t=%s", cmd.Command, cmd.Maneuver, now-v.start)
	}

	v.bus.Position.Publish(bus.Position{
		Timestamp:       now,
		AltitudeM:       v.plant.AltitudeM,
		VelocityDownMps: v.plant.VelocityDown(),
	})
	v.bus.AngularVelocity.Publish(bus.AngularVelocity{Timestamp: now, XYZ: v.plant.Rate})
	v.bus.Attitude.Publish(bus.Attitude{Timestamp: now, Q: v.plant.Q})
}

// Done reports whether the script's last keyframe has been reached.
func (v *Vehicle) Done(now time.Duration) bool {
	if v == nil || !v.started {
		return false
	}
	return now-v.start >= v.timeline.End()
}
