// Package gpio provides touch pad reading with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Reader reads the pressed state of every touch pad.
type Reader interface {
	// Read returns one entry per pad, in left-to-right order.
	// Pads are active-low: raw 0 = logical pressed.
	Read() ([]bool, error)

	// Close releases GPIO resources.
	Close() error
}

// DefaultChip is the GPIO chip the pads are wired to.
const DefaultChip = "gpiochip0"

// DefaultPins are the BCM line offsets of a three-pad strip, left to right.
var DefaultPins = []int{5, 6, 13}
