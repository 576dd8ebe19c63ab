package sim

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"acro-ng/internal/bus"
	"acro-ng/internal/trajectory"
)

// CommandScript is a deterministic timeline of vehicle commands.
//
// Time is expressed as Go duration strings (e.g. "0s", "250ms", "10s").
//
// YAML schema (v1):
//
//	version: 1
//	commands:
//	  - t: 2s
//	    maneuver: loop
//	  - t: 12s
//	    clear: true
//	  - t: 14s
//	    id: 42          # raw maneuver id, bypasses the catalog
//	  - t: 16s
//	    command: 176    # any other opcode
//
// A keyframe without command or clear selects the acrobatic opcode. Keyframes
// must use non-decreasing t values; the last keyframe at or before the
// current time wins.
type CommandScript struct {
	Version  int               `yaml:"version"`
	Commands []CommandKeyframe `yaml:"commands"`
}

// CommandKeyframe is a time-stamped vehicle command.
type CommandKeyframe struct {
	T        time.Duration `yaml:"t"`
	Maneuver string        `yaml:"maneuver"`
	ID       int           `yaml:"id"`
	Command  uint16        `yaml:"command"`
	Clear    bool          `yaml:"clear"`
}

// LoadCommandScript reads and unmarshals a YAML command script from path.
func LoadCommandScript(path string) (CommandScript, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return CommandScript{}, err
	}
	return ParseCommandScriptYAML(b)
}

// ParseCommandScriptYAML parses a YAML command script.
func ParseCommandScriptYAML(b []byte) (CommandScript, error) {
	var s CommandScript
	if err := yaml.Unmarshal(b, &s); err != nil {
		return CommandScript{}, err
	}
	return s, nil
}

type timedCommand struct {
	at  time.Duration
	cmd bus.VehicleCommand
}

// Timeline is the validated, runtime form of a CommandScript.
type Timeline struct {
	steps []timedCommand
}

// NewTimeline validates script and resolves maneuver names to ids.
func NewTimeline(script CommandScript) (*Timeline, error) {
	if script.Version == 0 {
		script.Version = 1
	}
	if script.Version != 1 {
		return nil, fmt.Errorf("unsupported command script version %d", script.Version)
	}
	if len(script.Commands) == 0 {
		return nil, fmt.Errorf("commands is required")
	}

	steps := make([]timedCommand, 0, len(script.Commands))
	for i, k := range script.Commands {
		if k.T < 0 {
			return nil, fmt.Errorf("commands[%d].t must be >= 0", i)
		}
		if i > 0 && k.T < script.Commands[i-1].T {
			return nil, fmt.Errorf("commands[%d].t must be >= commands[%d].t", i, i-1)
		}
		cmd, err := k.resolve()
		if err != nil {
			return nil, fmt.Errorf("commands[%d]: %w", i, err)
		}
		steps = append(steps, timedCommand{at: k.T, cmd: cmd})
	}
	return &Timeline{steps: steps}, nil
}

func (k CommandKeyframe) resolve() (bus.VehicleCommand, error) {
	if k.Clear {
		if k.Maneuver != "" || k.ID != 0 || k.Command != 0 {
			return bus.VehicleCommand{}, fmt.Errorf("clear cannot be combined with other fields")
		}
		return bus.VehicleCommand{}, nil
	}
	if k.Maneuver != "" && k.ID != 0 {
		return bus.VehicleCommand{}, fmt.Errorf("set maneuver or id, not both")
	}
	cmd := bus.VehicleCommand{Command: k.Command, Maneuver: k.ID}
	if cmd.Command == 0 {
		cmd.Command = bus.CmdDoAcrobatic
	}
	if k.Maneuver != "" {
		m, err := trajectory.ParseManeuver(k.Maneuver)
		if err != nil {
			return bus.VehicleCommand{}, err
		}
		cmd.Maneuver = int(m)
	}
	return cmd, nil
}

// CommandAt returns the command in effect at elapsed and the index of its
// keyframe. Before the first keyframe it returns false.
func (tl *Timeline) CommandAt(elapsed time.Duration) (cmd bus.VehicleCommand, index int, ok bool) {
	if tl == nil || len(tl.steps) == 0 {
		return bus.VehicleCommand{}, -1, false
	}
	idx := sort.Search(len(tl.steps), func(i int) bool { return tl.steps[i].at > elapsed })
	if idx == 0 {
		return bus.VehicleCommand{}, -1, false
	}
	return tl.steps[idx-1].cmd, idx - 1, true
}

// End is the time of the last keyframe.
func (tl *Timeline) End() time.Duration {
	if tl == nil || len(tl.steps) == 0 {
		return 0
	}
	return tl.steps[len(tl.steps)-1].at
}
