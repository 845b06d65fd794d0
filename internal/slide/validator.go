package slide

// Verdict is the validator's classification of a finished session.
type Verdict struct {
	Event  EventType
	Reason Reason
}

// Validate checks a finished session against cal. Only channels marked in
// s.Visited are read. Traversal follows the gesture: ascending channel
// indices when the session opened on channel 0, descending otherwise.
func Validate(cal Calibration, s Session, channels []Channel) Verdict {
	return validate(&cal, &s, channels, 0, nil)
}

func validate(cal *Calibration, s *Session, channels []Channel, now Tick, sink Sink) Verdict {
	n := len(channels)
	forward := s.First == 0

	order := make([]int, 0, n)
	for k := 0; k < n; k++ {
		i := k
		if !forward {
			i = n - 1 - k
		}
		if i < len(s.Visited) && s.Visited[i] {
			order = append(order, i)
		}
	}

	reject := func(r Reason, ch int, value, lo, hi uint32) Verdict {
		if sink != nil {
			sink.Trace(Trace{Tick: now, Kind: TraceReject, From: PhaseFinishing, To: PhaseIdle,
				Channel: ch, Reason: r, Event: EventRejected, Value: value, Min: lo, Max: hi})
		}
		return Verdict{Event: EventRejected, Reason: r}
	}

	var (
		prevVelocity uint32
		havePrev     bool
		total        uint32
	)
	for k, i := range order {
		held := uint32(TickDiff(channels[i].ReleaseTick, channels[i].PushTick))
		lo, hi := uint32(cal.TimeDiffMin[i]), uint32(cal.TimeDiffMax[i])
		if held < lo || held > hi {
			return reject(ReasonTimeDiff, i, held, lo, hi)
		}
		if k == 0 {
			// The first pad's press time is unreliable; only its hold is checked.
			continue
		}

		prev := order[k-1]
		elapsed := uint32(TickDiff(channels[i].ReleaseTick, channels[prev].ReleaseTick))
		if elapsed == 0 {
			return reject(ReasonZeroElapsed, i, 0, 0, 0)
		}
		distance, vmin, vmax := span(cal, prev, i)
		velocity := distance / elapsed
		if sink != nil {
			sink.Trace(Trace{Tick: now, Kind: TraceSegment, Channel: i, Value: velocity, Min: vmin, Max: vmax})
		}
		if velocity < vmin || velocity > vmax {
			return reject(ReasonVelocity, i, velocity, vmin, vmax)
		}

		if havePrev {
			delta := absDiff(velocity, prevVelocity)
			// prev is the pad shared by the two segments.
			limit := cal.VelocityDiffTotalMax
			if p := prev - 1; p >= 0 && p < len(cal.VelocityDiffMax) {
				limit = uint32(cal.VelocityDiffMax[p])
			}
			if delta > limit {
				return reject(ReasonVelocityDiff, prev, delta, 0, limit)
			}
			total += delta
		}
		prevVelocity = velocity
		havePrev = true
	}

	if total > cal.VelocityDiffTotalMax {
		return reject(ReasonVelocityDiffTotal, s.Last, total, 0, cal.VelocityDiffTotalMax)
	}

	v := Verdict{Event: EventSlideForward}
	if !forward {
		v.Event = EventSlideBackward
	}
	if sink != nil {
		sink.Trace(Trace{Tick: now, Kind: TraceVerdict, From: PhaseFinishing, To: PhaseIdle, Channel: s.Last, Event: v.Event, Value: total})
	}
	return v
}

// span returns the physical distance between channels a and b and the
// loosest velocity bounds of the segments in between.
func span(cal *Calibration, a, b int) (distance, vmin, vmax uint32) {
	if a > b {
		a, b = b, a
	}
	vmin = uint32(cal.VelocityMin[a])
	for seg := a; seg < b; seg++ {
		distance += uint32(cal.Distance[seg])
		if v := uint32(cal.VelocityMin[seg]); v < vmin {
			vmin = v
		}
		if v := uint32(cal.VelocityMax[seg]); v > vmax {
			vmax = v
		}
	}
	return distance, vmin, vmax
}

func absDiff(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}
