package slide

// TickModulus is the wrap point of the scan tick counter.
const TickModulus = 0xFFFF

// Tick is a scan tick index in [0, TickModulus).
type Tick uint16

// Next returns the tick after t.
func (t Tick) Next() Tick {
	return TickAdd(t, 1)
}

// TickAdd returns a+b on the wrapping counter.
func TickAdd(a, b Tick) Tick {
	return Tick((uint32(a) + uint32(b)) % TickModulus)
}

// TickSub returns the forward distance from b to a.
func TickSub(a, b Tick) Tick {
	return Tick((uint32(a) + TickModulus - uint32(b)%TickModulus) % TickModulus)
}

// TickDiff returns the shorter distance between a and b in either direction.
func TickDiff(a, b Tick) Tick {
	fwd := TickSub(a, b)
	back := TickSub(b, a)
	if back < fwd {
		return back
	}
	return fwd
}
