package slide

// Scan summarises the raw input of one tick.
type Scan struct {
	// Number of channels reading pressed
	Count int
	// The pressed channel when Count == 1, otherwise -1
	Index int
}

// sampler runs the counter debounce over every channel.
type sampler struct {
	scanCount    uint8
	releaseCount uint8
	channels     []Channel
}

func newSampler(n int, scanCount, releaseCount uint8) *sampler {
	return &sampler{
		scanCount:    scanCount,
		releaseCount: releaseCount,
		channels:     make([]Channel, n),
	}
}

// update applies one tick of raw readings. Missing entries read as released.
// At most one of PushTick/ReleaseTick is written per channel per tick.
func (s *sampler) update(now Tick, pressed []bool) Scan {
	scan := Scan{Index: -1}
	for i := range s.channels {
		ch := &s.channels[i]
		ch.Pushed = false
		ch.Released = false

		if i < len(pressed) && pressed[i] {
			scan.Count++
			scan.Index = i
			if ch.DebounceCount < s.scanCount {
				ch.DebounceCount++
				if ch.DebounceCount == s.scanCount {
					ch.PushTick = now
					ch.Pushed = true
					ch.ReleaseCount = 0
				}
			} else {
				ch.ReleaseCount = 0
			}
			continue
		}

		if ch.ReleaseCount < s.releaseCount {
			ch.ReleaseCount++
			if ch.ReleaseCount == s.releaseCount {
				ch.ReleaseTick = now
				ch.Released = true
				ch.DebounceCount = 0
			}
		} else {
			ch.DebounceCount = 0
		}
	}
	if scan.Count != 1 {
		scan.Index = -1
	}
	return scan
}

// pressConfirmed reports whether channel i is in a confirmed press.
func (s *sampler) pressConfirmed(i int) bool {
	return s.channels[i].DebounceCount == s.scanCount
}

// releaseConfirmed reports whether channel i is in a confirmed release.
func (s *sampler) releaseConfirmed(i int) bool {
	return s.channels[i].ReleaseCount == s.releaseCount
}

func (s *sampler) reset() {
	for i := range s.channels {
		s.channels[i] = Channel{}
	}
}
