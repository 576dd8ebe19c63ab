package trajectory

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/westphae/quaternion"
)

func writeTempFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	return path
}

func TestWriteRead_RoundTripSamplesInOrder(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "loop.txt")

	in := []Sample{
		{At: 0, Q: quaternion.Identity()},
		{At: 20 * time.Millisecond, Q: quaternion.Quaternion{W: 0.9961946980917455, Y: 0.08715574274765817}},
		{At: 40 * time.Millisecond, Q: quaternion.Quaternion{W: 0.984807753012208, Y: 0.17364817766693033}},
		{At: 1 * time.Second, Q: yaw90},
	}
	if err := WriteFile(path, ManeuverLoop, in); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer f.Close()

	rr := NewReader(f)
	out, err := rr.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error: %v", err)
	}
	if rr.Stopped() != nil {
		t.Fatalf("unexpected stop: %v", rr.Stopped())
	}
	if !reflect.DeepEqual(out, in) {
		t.Fatalf("samples mismatch\n got: %v\nwant: %v", out, in)
	}
}

func TestWriter_RejectsNonIncreasing(t *testing.T) {
	w, err := CreateWriter(filepath.Join(t.TempDir(), "x.txt"), ManeuverLoop)
	if err != nil {
		t.Fatalf("CreateWriter() error: %v", err)
	}
	defer w.Close()
	if err := w.WriteSample(Sample{At: time.Second, Q: quaternion.Identity()}); err != nil {
		t.Fatalf("WriteSample() error: %v", err)
	}
	if err := w.WriteSample(Sample{At: time.Second, Q: quaternion.Identity()}); err == nil {
		t.Fatalf("expected error for repeated timestamp")
	}
}

func TestReadAll_MalformedRowKeepsPrefix(t *testing.T) {
	cases := []struct {
		name string
		tail string
	}{
		{name: "Garbage", tail: "not,a,row\n"},
		{name: "MissingField", tail: "60000,1,0,0\n"},
		{name: "BadFloat", tail: "60000,1,0,x,0\n"},
		{name: "Backwards", tail: "10000,1,0,0,0\n"},
		{name: "Negative", tail: "-5,1,0,0,0\n"},
		{name: "NaN", tail: "60000,NaN,0,0,0\n"},
		{name: "Inf", tail: "60000,1,Inf,0,0\n"},
		{name: "NegInf", tail: "60000,1,0,0,-Inf\n"},
		{name: "TimestampOverflow", tail: "9223372036854776,1,0,0,0\n"},
	}
	body := "# t_us,qw,qx,qy,qz\n0,1,0,0,0\n\n20000,1,0,0,0\n40000,0.7071,0,0,0.7071\n"
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := NewReader(strings.NewReader(body + tc.tail + "80000,1,0,0,0\n"))
			out, err := rr.ReadAll()
			if err != nil {
				t.Fatalf("ReadAll() error: %v", err)
			}
			if len(out) != 3 {
				t.Fatalf("len=%d want 3", len(out))
			}
			if rr.Stopped() == nil || rr.Stopped().Line != 6 {
				t.Fatalf("stopped=%v want line 6", rr.Stopped())
			}
		})
	}
}

func TestReadAll_RejectionReasons(t *testing.T) {
	cases := []struct {
		row  string
		want string
	}{
		{row: "1000,NaN,0,0,0", want: "non-finite quaternion component"},
		{row: "1000,1,+Inf,0,0", want: "non-finite quaternion component"},
		{row: "9223372036854776,1,0,0,0", want: "timestamp out of range"},
	}
	for _, tc := range cases {
		rr := NewReader(strings.NewReader("0,1,0,0,0\n" + tc.row + "\n"))
		out, err := rr.ReadAll()
		if err != nil {
			t.Fatalf("ReadAll(%q) error: %v", tc.row, err)
		}
		if len(out) != 1 || rr.Stopped() == nil || rr.Stopped().Reason != tc.want {
			t.Fatalf("row %q: len=%d stopped=%v want reason %q", tc.row, len(out), rr.Stopped(), tc.want)
		}
	}

	// The largest representable timestamp is still accepted.
	rr := NewReader(strings.NewReader("9223372036854775,1,0,0,0\n"))
	out, err := rr.ReadAll()
	if err != nil || len(out) != 1 || rr.Stopped() != nil {
		t.Fatalf("max timestamp: len=%d err=%v stopped=%v", len(out), err, rr.Stopped())
	}
	if out[0].At != 9223372036854775*time.Microsecond {
		t.Fatalf("at=%d", out[0].At)
	}
}

func TestStore_OversizedRowKeepsPrefix(t *testing.T) {
	dir := t.TempDir()
	body := "0,1,0,0,0\n20000,1,0,0,0\n" + strings.Repeat("x", 2*1024*1024) + "\n40000,1,0,0,0\n"
	writeTempFile(t, dir, "loop.txt", body)

	s := NewStore(StoreConfig{Dir: dir})
	traj, err := s.Load(ManeuverLoop)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if traj.Len() != 2 {
		t.Fatalf("len=%d want 2", traj.Len())
	}
	if re := s.Truncated(ManeuverLoop); re == nil || re.Line != 3 {
		t.Fatalf("truncated=%v want line 3", re)
	}
}

func TestStore_LoadCachesUntilInvalidate(t *testing.T) {
	tmp := t.TempDir()
	path := writeTempFile(t, tmp, "loop.txt", "0,1,0,0,0\n1000000,0.7071067811865476,0,0,0.7071067811865476\n")

	s := NewStore(StoreConfig{Dir: tmp})
	if got := s.Path(ManeuverLoop); got != path {
		t.Fatalf("path=%q want %q", got, path)
	}
	tr, err := s.Load(ManeuverLoop)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if tr.Len() != 2 || tr.Maneuver != ManeuverLoop {
		t.Fatalf("len=%d maneuver=%s", tr.Len(), tr.Maneuver)
	}

	// Rewrite the file; the cached copy must be served until Invalidate.
	writeTempFile(t, tmp, "loop.txt", "0,1,0,0,0\n")
	tr2, err := s.Load(ManeuverLoop)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if tr2 != tr {
		t.Fatalf("expected cached trajectory")
	}

	s.Invalidate()
	tr3, err := s.Load(ManeuverLoop)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if tr3.Len() != 1 {
		t.Fatalf("len=%d want 1 after invalidate", tr3.Len())
	}
}

func TestStore_FileOverride(t *testing.T) {
	tmp := t.TempDir()
	writeTempFile(t, tmp, "custom.csv", "0,1,0,0,0\n")
	s := NewStore(StoreConfig{Dir: tmp, Files: map[Maneuver]string{ManeuverBreakLeft: "custom.csv"}})
	tr, err := s.Load(ManeuverBreakLeft)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if tr.Len() != 1 {
		t.Fatalf("len=%d want 1", tr.Len())
	}
}

func TestStore_LoadErrors(t *testing.T) {
	tmp := t.TempDir()
	writeTempFile(t, tmp, "immelmann.txt", "# header only\n")
	writeTempFile(t, tmp, "break_right.txt", "garbage\n0,1,0,0,0\n")
	s := NewStore(StoreConfig{Dir: tmp})

	cases := []struct {
		name  string
		m     Maneuver
		cause error
	}{
		{name: "Missing", m: ManeuverLoop, cause: os.ErrNotExist},
		{name: "Empty", m: ManeuverImmelmann, cause: ErrEmpty},
		{name: "FirstRowMalformed", m: ManeuverBreakRight, cause: ErrEmpty},
		{name: "Unknown", m: Maneuver(99), cause: ErrUnknownManeuver},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr, err := s.Load(tc.m)
			if tr != nil {
				t.Fatalf("expected nil trajectory, got %v", tr)
			}
			if !errors.Is(err, ErrUnavailable) {
				t.Fatalf("err=%v want ErrUnavailable", err)
			}
			if !errors.Is(err, tc.cause) {
				t.Fatalf("err=%v want cause %v", err, tc.cause)
			}
			var le *LoadError
			if !errors.As(err, &le) || le.Maneuver != tc.m {
				t.Fatalf("err=%#v want *LoadError for %s", err, tc.m)
			}
		})
	}
}
