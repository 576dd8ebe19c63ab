// Package replay records published rate commands and plays them back.
//
// A command log is line-oriented text:
//
//	START
//	# maneuver=loop
//	<t_ns>,<json>
//
// START opens a segment whose record times restart at zero. t_ns is
// nanoseconds since the segment start on the commander's monotonic clock and
// json is one encoded bus.RateCommand. Blank lines and '#' lines are ignored.
package replay

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"acro-ng/internal/bus"
	"acro-ng/internal/trajectory"
)

const startMarker = "START"

// Record is one log entry. A nil Cmd marks a START line.
type Record struct {
	At  time.Duration
	Cmd *bus.RateCommand
}

type Reader struct {
	s      *bufio.Scanner
	lineNo int
}

func NewReader(r io.Reader) *Reader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Reader{s: s}
}

// Next returns the next record, or io.EOF after the last one.
func (rr *Reader) Next() (Record, error) {
	for rr.s.Scan() {
		rr.lineNo++
		line := strings.TrimSpace(rr.s.Text())
		switch {
		case line == "" || line[0] == '#':
			continue
		case line == startMarker:
			return Record{}, nil
		}
		return rr.parse(line)
	}
	if err := rr.s.Err(); err != nil {
		return Record{}, err
	}
	return Record{}, io.EOF
}

func (rr *Reader) parse(line string) (Record, error) {
	tsStr, body, ok := strings.Cut(line, ",")
	if !ok {
		return Record{}, fmt.Errorf("replay: line %d: missing comma", rr.lineNo)
	}
	tsStr, body = strings.TrimSpace(tsStr), strings.TrimSpace(body)
	if tsStr == "" || body == "" {
		return Record{}, fmt.Errorf("replay: line %d: empty field", rr.lineNo)
	}
	ns, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("replay: line %d: timestamp %q: %w", rr.lineNo, tsStr, err)
	}
	if ns < 0 {
		return Record{}, fmt.Errorf("replay: line %d: negative timestamp %d", rr.lineNo, ns)
	}
	cmd := new(bus.RateCommand)
	if err := json.Unmarshal([]byte(body), cmd); err != nil {
		return Record{}, fmt.Errorf("replay: line %d: decode command: %w", rr.lineNo, err)
	}
	return Record{At: time.Duration(ns), Cmd: cmd}, nil
}

func (rr *Reader) ReadAll() ([]Record, error) {
	var recs []Record
	for {
		rec, err := rr.Next()
		if errors.Is(err, io.EOF) {
			return recs, nil
		}
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
}

// ReadFile reads a whole command log.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return NewReader(f).ReadAll()
}

// Segment is the run of commands following one START marker. Times are
// relative to the marker.
type Segment struct {
	Records []Record
}

// Duration returns the time of the last command in the segment.
func (s Segment) Duration() time.Duration {
	if len(s.Records) == 0 {
		return 0
	}
	return s.Records[len(s.Records)-1].At
}

// Segments splits records at START markers. Commands before the first marker
// form a segment of their own; segments with no commands are kept.
func Segments(records []Record) []Segment {
	var out []Segment
	var origin time.Duration
	open := false
	for _, r := range records {
		if r.Cmd == nil {
			out = append(out, Segment{})
			origin = r.At
			open = true
			continue
		}
		if !open {
			out = append(out, Segment{})
			open = true
		}
		at := r.At - origin
		if at < 0 {
			at = 0
		}
		last := &out[len(out)-1]
		last.Records = append(last.Records, Record{At: at, Cmd: r.Cmd})
	}
	return out
}

// Writer appends commands to a log. The first command written sets the
// origin, and a comment naming the maneuver precedes each change of maneuver.
type Writer struct {
	f        *os.File
	w        *bufio.Writer
	origin   time.Duration
	started  bool
	maneuver int
	closed   bool
}

func CreateWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	bw := bufio.NewWriterSize(f, 64*1024)
	if _, err := bw.WriteString(startMarker + "\n"); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Writer{f: f, w: bw}, nil
}

func (ww *Writer) WriteCommand(cmd bus.RateCommand) error {
	if ww == nil || ww.closed {
		return errors.New("replay writer is closed")
	}
	b, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("replay: encode command: %w", err)
	}
	if !ww.started || cmd.Maneuver != ww.maneuver {
		if _, err := fmt.Fprintf(ww.w, "# maneuver=%s\n", trajectory.Maneuver(cmd.Maneuver)); err != nil {
			return err
		}
		ww.maneuver = cmd.Maneuver
	}
	if !ww.started {
		ww.origin = cmd.Timestamp
		ww.started = true
	}
	at := cmd.Timestamp - ww.origin
	if at < 0 {
		at = 0
	}
	_, err = fmt.Fprintf(ww.w, "%d,%s\n", at.Nanoseconds(), b)
	return err
}

func (ww *Writer) Flush() error {
	if ww == nil || ww.closed {
		return nil
	}
	return ww.w.Flush()
}

func (ww *Writer) Close() error {
	if ww == nil || ww.closed {
		return nil
	}
	ww.closed = true
	if err := ww.w.Flush(); err != nil {
		_ = ww.f.Close()
		return err
	}
	return ww.f.Close()
}

type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type timerSleeper struct{}

func (timerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Play calls cb for each command, segment by segment, waiting the recorded
// gap between consecutive commands divided by speed. The first command of a
// segment is delivered without waiting.
func Play(ctx context.Context, records []Record, speed float64, sleeper Sleeper, cb func(cmd bus.RateCommand) error) error {
	if speed <= 0 {
		return fmt.Errorf("speed must be > 0")
	}
	if cb == nil {
		return errors.New("callback is nil")
	}
	if len(records) == 0 {
		return errors.New("no records")
	}
	if sleeper == nil {
		sleeper = timerSleeper{}
	}
	for _, seg := range Segments(records) {
		for i, r := range seg.Records {
			if i > 0 {
				if gap := r.At - seg.Records[i-1].At; gap > 0 {
					if err := sleeper.Sleep(ctx, time.Duration(float64(gap)/speed)); err != nil {
						return err
					}
				}
			}
			if err := cb(*r.Cmd); err != nil {
				return err
			}
		}
	}
	return nil
}
