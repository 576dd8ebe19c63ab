package trajectory

import (
	"sort"
	"time"

	"github.com/westphae/quaternion"
)

// Sample is one time-indexed desired orientation.
//
// At is the offset from maneuver start; Q is a unit quaternion (W, X, Y, Z).
type Sample struct {
	At time.Duration
	Q  quaternion.Quaternion
}

// Trajectory is an ordered plan for a single maneuver.
//
// Samples have strictly increasing At. An empty Trajectory is valid and means
// "no data available".
type Trajectory struct {
	Maneuver Maneuver
	Samples  []Sample
}

// Len returns the number of samples.
func (t *Trajectory) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Samples)
}

// Empty reports whether the trajectory holds no samples.
func (t *Trajectory) Empty() bool {
	return t.Len() == 0
}

// Duration returns the timestamp of the last sample.
func (t *Trajectory) Duration() time.Duration {
	if t.Empty() {
		return 0
	}
	return t.Samples[len(t.Samples)-1].At
}

// Sample returns the desired orientation at elapsed using a zero-order hold:
// the sample with the greatest At <= elapsed. Before the first sample the
// first orientation is held. At or beyond the last sample the last orientation
// is returned with isFinal set.
//
// An empty trajectory yields the identity orientation and isFinal=false.
func (t *Trajectory) Sample(elapsed time.Duration) (q quaternion.Quaternion, isFinal bool) {
	if t.Empty() {
		return quaternion.Identity(), false
	}
	s := t.Samples
	last := len(s) - 1
	if elapsed >= s[last].At {
		return s[last].Q, true
	}
	// First index strictly after elapsed; the hold sample precedes it.
	idx := sort.Search(len(s), func(i int) bool { return s[i].At > elapsed })
	if idx <= 0 {
		return s[0].Q, false
	}
	return s[idx-1].Q, false
}
