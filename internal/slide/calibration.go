package slide

import (
	"errors"
	"fmt"
)

// MaxChannels bounds the number of pads an engine can track.
const MaxChannels = 16

// ErrInvalidCalibration is wrapped by every calibration validation error.
var ErrInvalidCalibration = errors.New("invalid calibration")

// Calibration holds the tuned bounds for one pad layout. It is read-only
// once an Engine has been built from it.
type Calibration struct {
	// Allowed push->release duration per channel, in ticks.
	TimeDiffMin []uint16
	TimeDiffMax []uint16

	// Per segment (gap between channel i and i+1).
	VelocityMin []uint16
	VelocityMax []uint16
	Distance    []uint16

	// Per pair of adjacent segments (junction at channel i+1).
	VelocityDiffMax []uint16

	// Bound on the summed velocity changes over the whole gesture.
	VelocityDiffTotalMax uint32

	// Ticks after the last release before an unfinished session is dropped.
	ReleaseDelay uint16

	// Consecutive ticks needed to confirm a press / a release.
	DebounceScanCount    uint8
	DebounceReleaseCount uint8
}

// DefaultCalibration returns permissive bounds for n channels: a distance
// of 100 per segment and every maximum at 0xff.
func DefaultCalibration(n int) Calibration {
	if n < 2 {
		n = 2
	}
	c := Calibration{
		TimeDiffMin:          make([]uint16, n),
		TimeDiffMax:          make([]uint16, n),
		VelocityMin:          make([]uint16, n-1),
		VelocityMax:          make([]uint16, n-1),
		Distance:             make([]uint16, n-1),
		VelocityDiffMax:      make([]uint16, n-2),
		VelocityDiffTotalMax: 0xff,
		ReleaseDelay:         50,
		DebounceScanCount:    2,
		DebounceReleaseCount: 2,
	}
	for i := range c.TimeDiffMax {
		c.TimeDiffMax[i] = 0xff
	}
	for i := range c.VelocityMax {
		c.VelocityMax[i] = 0xff
		c.Distance[i] = 100
	}
	for i := range c.VelocityDiffMax {
		c.VelocityDiffMax[i] = 0xff
	}
	return c
}

// Channels returns the channel count implied by TimeDiffMax.
func (c Calibration) Channels() int {
	return len(c.TimeDiffMax)
}

// Validate checks that the calibration describes n channels and that every
// range is non-empty.
func (c Calibration) Validate(n int) error {
	if n < 2 || n > MaxChannels {
		return fmt.Errorf("%w: channel count %d out of range [2, %d]", ErrInvalidCalibration, n, MaxChannels)
	}
	lengths := []struct {
		name string
		got  int
		want int
	}{
		{"time_diff_min", len(c.TimeDiffMin), n},
		{"time_diff_max", len(c.TimeDiffMax), n},
		{"velocity_min", len(c.VelocityMin), n - 1},
		{"velocity_max", len(c.VelocityMax), n - 1},
		{"distance", len(c.Distance), n - 1},
		{"velocity_diff_max", len(c.VelocityDiffMax), n - 2},
	}
	for _, l := range lengths {
		if l.got != l.want {
			return fmt.Errorf("%w: %s has %d entries, want %d", ErrInvalidCalibration, l.name, l.got, l.want)
		}
	}
	for i := 0; i < n; i++ {
		if c.TimeDiffMin[i] > c.TimeDiffMax[i] {
			return fmt.Errorf("%w: channel %d time_diff_min %d > time_diff_max %d",
				ErrInvalidCalibration, i, c.TimeDiffMin[i], c.TimeDiffMax[i])
		}
	}
	for i := 0; i < n-1; i++ {
		if c.VelocityMax[i] == 0 {
			return fmt.Errorf("%w: segment %d velocity_max is zero", ErrInvalidCalibration, i)
		}
		if c.VelocityMin[i] > c.VelocityMax[i] {
			return fmt.Errorf("%w: segment %d velocity_min %d > velocity_max %d",
				ErrInvalidCalibration, i, c.VelocityMin[i], c.VelocityMax[i])
		}
		if c.Distance[i] == 0 {
			return fmt.Errorf("%w: segment %d distance is zero", ErrInvalidCalibration, i)
		}
	}
	if c.DebounceScanCount == 0 || c.DebounceReleaseCount == 0 {
		return fmt.Errorf("%w: debounce counts must be at least 1", ErrInvalidCalibration)
	}
	return nil
}

// clone deep-copies the slices so the engine owns its bounds.
func (c Calibration) clone() Calibration {
	cp := c
	cp.TimeDiffMin = append([]uint16(nil), c.TimeDiffMin...)
	cp.TimeDiffMax = append([]uint16(nil), c.TimeDiffMax...)
	cp.VelocityMin = append([]uint16(nil), c.VelocityMin...)
	cp.VelocityMax = append([]uint16(nil), c.VelocityMax...)
	cp.Distance = append([]uint16(nil), c.Distance...)
	cp.VelocityDiffMax = append([]uint16(nil), c.VelocityDiffMax...)
	return cp
}
