package main

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"acro-ng/internal/replay"
	"acro-ng/internal/trajectory"
)

type logSummary struct {
	Segments       int
	Commands       int
	Finished       int
	MaxDuration    time.Duration
	MaxBodyRate    float64
	ManeuverCounts map[int]int
}

func summarizeCommandLog(records []replay.Record) logSummary {
	segs := replay.Segments(records)
	s := logSummary{Segments: len(segs), ManeuverCounts: map[int]int{}}
	for _, seg := range segs {
		if d := seg.Duration(); d > s.MaxDuration {
			s.MaxDuration = d
		}
		for _, r := range seg.Records {
			s.Commands++
			if r.Cmd.Finished {
				s.Finished++
			}
			for _, v := range r.Cmd.BodyRate {
				if a := math.Abs(v); a > s.MaxBodyRate {
					s.MaxBodyRate = a
				}
			}
			s.ManeuverCounts[r.Cmd.Maneuver]++
		}
	}
	return s
}

func printLogSummary(w io.Writer, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("path is empty")
	}
	recs, err := replay.ReadFile(path)
	if err != nil {
		return err
	}
	s := summarizeCommandLog(recs)

	fmt.Fprintf(w, "path: %s\n", path)
	fmt.Fprintf(w, "segments: %d\n", s.Segments)
	fmt.Fprintf(w, "commands: %d\n", s.Commands)
	fmt.Fprintf(w, "finished_commands: %d\n", s.Finished)
	fmt.Fprintf(w, "max_duration: %s\n", s.MaxDuration)
	fmt.Fprintf(w, "max_body_rate: %.3f\n", s.MaxBodyRate)

	ids := make([]int, 0, len(s.ManeuverCounts))
	for id := range s.ManeuverCounts {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fmt.Fprintf(w, "maneuver_counts:\n")
	for _, id := range ids {
		fmt.Fprintf(w, "  %d (%s): %d\n", id, trajectory.Maneuver(id), s.ManeuverCounts[id])
	}
	return nil
}
