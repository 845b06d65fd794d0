package gpio

// invert maps raw line values to pressed flags: raw 0 = pressed.
func invert(raw []int) []bool {
	out := make([]bool, len(raw))
	for i, v := range raw {
		out[i] = v == 0
	}
	return out
}
