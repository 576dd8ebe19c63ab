// Package indicator drives a GPIO status line that is high while a maneuver
// is being flown.
package indicator

import (
	"fmt"
	"log"
	"sync"
)

type outputLine interface {
	SetValue(v int) error
	Close() error
}

// Indicator mirrors the commander's engaged state onto one output line.
// A nil *Indicator is a valid, disabled indicator. Safe for concurrent use.
type Indicator struct {
	mu   sync.Mutex
	line outputLine
	on   bool
	desc string
}

// Open requests pin on chip as an output, initially low.
func Open(chip string, pin int) (*Indicator, error) {
	if pin <= 0 {
		return nil, fmt.Errorf("indicator: invalid gpio pin %d", pin)
	}
	line, desc, err := openLineFn(chip, pin)
	if err != nil {
		return nil, err
	}
	log.Printf("indicator: using %s", desc)
	return &Indicator{line: line, desc: desc}, nil
}

// Set drives the line high when on. Writes happen only on change.
func (ind *Indicator) Set(on bool) error {
	if ind == nil {
		return nil
	}
	ind.mu.Lock()
	defer ind.mu.Unlock()
	if ind.line == nil || on == ind.on {
		return nil
	}
	v := 0
	if on {
		v = 1
	}
	if err := ind.line.SetValue(v); err != nil {
		return fmt.Errorf("indicator: set %s=%d: %w", ind.desc, v, err)
	}
	ind.on = on
	return nil
}

func (ind *Indicator) On() bool {
	if ind == nil {
		return false
	}
	ind.mu.Lock()
	defer ind.mu.Unlock()
	return ind.on
}

// Close drives the line low and releases it.
func (ind *Indicator) Close() error {
	if ind == nil {
		return nil
	}
	ind.mu.Lock()
	defer ind.mu.Unlock()
	if ind.line == nil {
		return nil
	}
	_ = ind.line.SetValue(0)
	err := ind.line.Close()
	ind.line = nil
	ind.on = false
	return err
}
