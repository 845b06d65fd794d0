//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealReader reads the pads from actual hardware using the Linux GPIO
// character device.
type RealReader struct {
	chip  *gpiocdev.Chip
	lines *gpiocdev.Lines
	raw   []int
}

// NewRealReader requests the given line offsets on chip as inputs with
// pull-ups. The touch controller pulls a line low while its pad is touched.
func NewRealReader(chip string, pins []int) (*RealReader, error) {
	if len(pins) == 0 {
		return nil, fmt.Errorf("no pins configured")
	}

	c, err := gpiocdev.NewChip(chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chip, err)
	}

	lines, err := c.RequestLines(pins,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithConsumer("slide-sensor"))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("request pins %v: %w", pins, err)
	}

	return &RealReader{
		chip:  c,
		lines: lines,
		raw:   make([]int, len(pins)),
	}, nil
}

// Read returns the logical pressed state of every pad.
func (r *RealReader) Read() ([]bool, error) {
	if err := r.lines.Values(r.raw); err != nil {
		return nil, fmt.Errorf("read pads: %w", err)
	}
	return invert(r.raw), nil
}

// Close releases GPIO resources.
// Lines are left as inputs with pull-ups, the idle state of the pads.
func (r *RealReader) Close() error {
	var errs []error

	if r.lines != nil {
		if err := r.lines.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullUp); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pads: %w", err))
		}
		if err := r.lines.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pads: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
