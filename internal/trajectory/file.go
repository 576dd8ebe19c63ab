package trajectory

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/westphae/quaternion"
)

// File format: line-oriented ASCII text.
//
// - Blank lines ignored.
// - Lines starting with '#' ignored.
// - Data lines are: <t_us>,<qw>,<qx>,<qy>,<qz>
//   where t_us is integer microseconds since maneuver start.
//
// Timestamps must be strictly increasing. The first row that does not parse
// (or goes backwards in time) ends the read; everything before it is kept.

const (
	maxRowBytes = 1024 * 1024
	// maxTimestampUs is the largest t_us that fits a time.Duration.
	maxTimestampUs = math.MaxInt64 / int64(time.Microsecond)
)

// RowError describes the row that ended a read early.
type RowError struct {
	Line   int
	Text   string
	Reason string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("trajectory: line %d: %s: %q", e.Line, e.Reason, e.Text)
}

type Reader struct {
	r       io.Reader
	stopped *RowError
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Stopped returns the malformed row that ended the last ReadAll, if any.
func (rr *Reader) Stopped() *RowError {
	return rr.stopped
}

// ReadAll parses samples until EOF or the first malformed row.
// Only I/O failures are returned as errors.
func (rr *Reader) ReadAll() ([]Sample, error) {
	s := bufio.NewScanner(rr.r)
	s.Buffer(make([]byte, 0, 64*1024), maxRowBytes)
	rr.stopped = nil

	out := make([]Sample, 0, 1024)
	lineNo := 0
	for s.Scan() {
		lineNo++
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		smp, reason := parseRow(line)
		if reason == "" && len(out) > 0 && smp.At <= out[len(out)-1].At {
			reason = "timestamp not increasing"
		}
		if reason != "" {
			rr.stopped = &RowError{Line: lineNo, Text: line, Reason: reason}
			break
		}
		out = append(out, smp)
	}
	if err := s.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			rr.stopped = &RowError{Line: lineNo + 1, Reason: fmt.Sprintf("row longer than %d bytes", maxRowBytes)}
			return out, nil
		}
		return out, err
	}
	return out, nil
}

func parseRow(line string) (Sample, string) {
	fields := strings.Split(line, ",")
	if len(fields) != 5 {
		return Sample{}, fmt.Sprintf("want 5 fields, got %d", len(fields))
	}
	tsUs, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
	if err != nil {
		return Sample{}, "invalid timestamp"
	}
	if tsUs < 0 {
		return Sample{}, "negative timestamp"
	}
	if tsUs > maxTimestampUs {
		return Sample{}, "timestamp out of range"
	}
	var v [4]float64
	for i := 0; i < 4; i++ {
		f, err := strconv.ParseFloat(strings.TrimSpace(fields[i+1]), 64)
		if err != nil {
			return Sample{}, fmt.Sprintf("invalid quaternion component %d", i)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Sample{}, "non-finite quaternion component"
		}
		v[i] = f
	}
	return Sample{
		At: time.Duration(tsUs) * time.Microsecond,
		Q:  quaternion.Quaternion{W: v[0], X: v[1], Y: v[2], Z: v[3]},
	}, ""
}

type Writer struct {
	f      *os.File
	w      *bufio.Writer
	last   time.Duration
	n      int
	closed bool
}

// CreateWriter creates path and writes a header comment naming the maneuver.
func CreateWriter(path string, m Maneuver) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	bw := bufio.NewWriterSize(f, 64*1024)
	if _, err := fmt.Fprintf(bw, "# maneuver=%s\n# t_us,qw,qx,qy,qz\n", m); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Writer{f: f, w: bw}, nil
}

func (ww *Writer) WriteSample(s Sample) error {
	if ww.closed {
		return errors.New("trajectory writer is closed")
	}
	if ww.n > 0 && s.At <= ww.last {
		return fmt.Errorf("trajectory: sample at %s not after %s", s.At, ww.last)
	}
	us := s.At / time.Microsecond
	if _, err := fmt.Fprintf(ww.w, "%d,%s,%s,%s,%s\n", us,
		formatFloat(s.Q.W), formatFloat(s.Q.X), formatFloat(s.Q.Y), formatFloat(s.Q.Z)); err != nil {
		return err
	}
	ww.last = s.At
	ww.n++
	return nil
}

func (ww *Writer) Close() error {
	if ww.closed {
		return nil
	}
	ww.closed = true
	if err := ww.w.Flush(); err != nil {
		_ = ww.f.Close()
		return err
	}
	return ww.f.Close()
}

// WriteFile writes samples to path in the canonical format.
func WriteFile(path string, m Maneuver, samples []Sample) error {
	w, err := CreateWriter(path, m)
	if err != nil {
		return err
	}
	for _, s := range samples {
		if err := w.WriteSample(s); err != nil {
			_ = w.Close()
			return err
		}
	}
	return w.Close()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
