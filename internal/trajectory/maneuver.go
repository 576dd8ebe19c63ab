package trajectory

import "fmt"

// Maneuver identifies one scripted acrobatic figure.
type Maneuver int

const (
	ManeuverLoop Maneuver = iota + 1
	ManeuverImmelmann
	ManeuverBreakLeft
	ManeuverBreakRight
	ManeuverBarrelRoll
)

type catalogEntry struct {
	name string
	file string
}

var catalog = map[Maneuver]catalogEntry{
	ManeuverLoop:       {name: "loop", file: "loop.txt"},
	ManeuverImmelmann:  {name: "immelmann", file: "immelmann.txt"},
	ManeuverBreakLeft:  {name: "break-left", file: "break_left.txt"},
	ManeuverBreakRight: {name: "break-right", file: "break_right.txt"},
	ManeuverBarrelRoll: {name: "barrel-roll", file: "barrel_roll.txt"},
}

// Known reports whether m is part of the maneuver catalog.
func (m Maneuver) Known() bool {
	_, ok := catalog[m]
	return ok
}

func (m Maneuver) String() string {
	if e, ok := catalog[m]; ok {
		return e.name
	}
	return fmt.Sprintf("Maneuver(%d)", int(m))
}

// FileName returns the default trajectory file name for m, or "" if m is unknown.
func (m Maneuver) FileName() string {
	return catalog[m].file
}

// Maneuvers lists the catalog in id order.
func Maneuvers() []Maneuver {
	out := make([]Maneuver, 0, len(catalog))
	for m := ManeuverLoop; m <= ManeuverBarrelRoll; m++ {
		out = append(out, m)
	}
	return out
}

// ParseManeuver resolves a catalog name (e.g. "break-left") to its id.
func ParseManeuver(name string) (Maneuver, error) {
	for m, e := range catalog {
		if e.name == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("trajectory: unknown maneuver %q", name)
}
