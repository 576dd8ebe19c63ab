package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"acro-ng/internal/trajectory"
)

func main() {
	var dir string
	var rate float64
	var only string
	flag.StringVar(&dir, "dir", "./trajectories", "Output directory")
	flag.Float64Var(&rate, "rate", 50, "Samples per second")
	flag.StringVar(&only, "maneuver", "", "Generate a single maneuver by name (default: all)")
	flag.Parse()

	if err := run(dir, rate, only); err != nil {
		log.Fatalf("trajgen: %v", err)
	}
}

func run(dir string, rate float64, only string) error {
	if rate <= 0 {
		return fmt.Errorf("rate must be > 0")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	list := trajectory.Maneuvers()
	if only = strings.TrimSpace(only); only != "" {
		m, err := trajectory.ParseManeuver(only)
		if err != nil {
			return err
		}
		list = []trajectory.Maneuver{m}
	}
	step := time.Duration(float64(time.Second) / rate)
	for _, m := range list {
		samples, err := generate(m, step)
		if err != nil {
			return err
		}
		path := filepath.Join(dir, m.FileName())
		if err := trajectory.WriteFile(path, m, samples); err != nil {
			return err
		}
		log.Printf("trajgen: wrote %s samples=%d duration=%s", path, len(samples), samples[len(samples)-1].At)
	}
	return nil
}
