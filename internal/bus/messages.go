package bus

import (
	"time"

	"github.com/westphae/quaternion"
)

// CmdDoAcrobatic is the vehicle command opcode that requests a scripted maneuver.
const CmdDoAcrobatic uint16 = 10001

// Timestamps are monotonic offsets from process start.

// Attitude is a measured orientation sample (unit quaternion, body to NED).
type Attitude struct {
	Timestamp time.Duration
	Q         quaternion.Quaternion
}

// AngularVelocity is the measured body rate in rad/s (roll, pitch, yaw).
type AngularVelocity struct {
	Timestamp time.Duration
	XYZ       [3]float64
}

// Position carries the vertical channel used by the altitude reference.
//
// AltitudeM is positive up. VelocityDownMps is the NED down component,
// positive while descending.
type Position struct {
	Timestamp       time.Duration
	AltitudeM       float64
	VelocityDownMps float64
}

// VehicleCommand is the subset of a vehicle command this subsystem consumes.
type VehicleCommand struct {
	Timestamp time.Duration
	Command   uint16
	Maneuver  int
}

// RateCommand is the per-cycle output consumed by the downstream rate controller.
type RateCommand struct {
	Timestamp        time.Duration `json:"timestamp_ns"`
	Maneuver         int           `json:"maneuver"`
	Elapsed          time.Duration `json:"elapsed_ns"`
	DesiredQ         [4]float64    `json:"desired_q"`
	BodyRate         [3]float64    `json:"body_rate"`
	AngularVelocity  [3]float64    `json:"angular_velocity"`
	AltitudeSetpoint float64       `json:"altitude_setpoint_m"`
	Finished         bool          `json:"finished"`
}

// Bus groups the topics shared by the commander and its collaborators.
type Bus struct {
	Attitude        *Topic[Attitude]
	AngularVelocity *Topic[AngularVelocity]
	Position        *Topic[Position]
	VehicleCommand  *Topic[VehicleCommand]
	RateCommand     *Topic[RateCommand]
}

func New() *Bus {
	return &Bus{
		Attitude:        NewTopic[Attitude]("vehicle_attitude"),
		AngularVelocity: NewTopic[AngularVelocity]("vehicle_angular_velocity"),
		Position:        NewTopic[Position]("vehicle_local_position"),
		VehicleCommand:  NewTopic[VehicleCommand]("vehicle_command"),
		RateCommand:     NewTopic[RateCommand]("acrobatic_cmd"),
	}
}
