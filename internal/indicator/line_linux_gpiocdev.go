//go:build linux && (arm || arm64)

package indicator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/warthog618/go-gpiocdev"
)

// openLine finds BCM GPIO pin by its line name ("GPIO17"), trying the
// configured chip first and then every other gpiochip. If no chip names the
// line, pin is used as an offset on the configured chip.
func openLine(chip string, pin int) (outputLine, string, error) {
	lineName := fmt.Sprintf("GPIO%d", pin)

	primary := chip
	if !strings.HasPrefix(primary, "/") {
		primary = filepath.Join("/dev", primary)
	}
	candidates := []string{primary}
	entries, _ := os.ReadDir("/dev")
	for _, e := range entries {
		p := filepath.Join("/dev", e.Name())
		if strings.HasPrefix(e.Name(), "gpiochip") && p != primary {
			candidates = append(candidates, p)
		}
	}

	for _, chipPath := range candidates {
		c, err := gpiocdev.NewChip(chipPath)
		if err != nil {
			continue
		}
		offset, err := c.FindLine(lineName)
		if err != nil {
			_ = c.Close()
			continue
		}
		l, err := c.RequestLine(offset, gpiocdev.AsOutput(0), gpiocdev.WithConsumer("acro-ng"))
		if err != nil {
			_ = c.Close()
			continue
		}
		return &gpiodLine{chip: c, line: l}, fmt.Sprintf("%s %s (offset %d)", chipPath, lineName, offset), nil
	}

	c, err := gpiocdev.NewChip(primary)
	if err != nil {
		return nil, "", fmt.Errorf("indicator: open %s: %w", primary, err)
	}
	l, err := c.RequestLine(pin, gpiocdev.AsOutput(0), gpiocdev.WithConsumer("acro-ng"))
	if err != nil {
		_ = c.Close()
		return nil, "", fmt.Errorf("indicator: gpio line %q not found and offset %d unavailable on %s: %w", lineName, pin, primary, err)
	}
	return &gpiodLine{chip: c, line: l}, fmt.Sprintf("%s offset %d", primary, pin), nil
}

var openLineFn = openLine

type gpiodLine struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

func (g *gpiodLine) SetValue(v int) error {
	if g == nil || g.line == nil {
		return fmt.Errorf("indicator: gpio line not initialized")
	}
	return g.line.SetValue(v)
}

func (g *gpiodLine) Close() error {
	if g == nil || g.line == nil {
		return nil
	}
	err := g.line.Close()
	g.line = nil
	if g.chip != nil {
		_ = g.chip.Close()
		g.chip = nil
	}
	return err
}
