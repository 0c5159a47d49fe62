package world

type StatsBucket struct {
	Spawns        int `json:"spawns"`
	Despawns      int `json:"despawns"`
	BlockedSpawns int `json:"blocked_spawns"`
	SideAdjusts   int `json:"side_adjusts"`
	// CarTicks is the sum over ticks of live cars, for mean occupancy.
	CarTicks int `json:"car_ticks"`
}

type WorldStats struct {
	bucketTicks uint64
	windowTicks uint64

	buckets []StatsBucket
	curIdx  int
	curBase uint64 // start tick (inclusive) of current bucket
}

func NewWorldStats(bucketTicks, windowTicks uint64) *WorldStats {
	if bucketTicks <= 0 {
		bucketTicks = 200
	}
	if windowTicks < bucketTicks {
		windowTicks = bucketTicks
	}
	n := int(windowTicks / bucketTicks)
	if n < 1 {
		n = 1
	}
	return &WorldStats{
		bucketTicks: bucketTicks,
		windowTicks: uint64(n) * bucketTicks,
		buckets:     make([]StatsBucket, n),
	}
}

func (s *WorldStats) rotate(nowTick uint64) {
	if s == nil {
		return
	}
	// Move forward until nowTick is in [curBase, curBase+bucketTicks).
	for nowTick >= s.curBase+s.bucketTicks {
		s.curIdx = (s.curIdx + 1) % len(s.buckets)
		s.buckets[s.curIdx] = StatsBucket{}
		s.curBase += s.bucketTicks
	}
}

// Observe folds one tick worth of events into the current bucket.
func (s *WorldStats) Observe(nowTick uint64, delta StatsBucket) {
	if s == nil {
		return
	}
	s.rotate(nowTick)
	b := &s.buckets[s.curIdx]
	b.Spawns += delta.Spawns
	b.Despawns += delta.Despawns
	b.BlockedSpawns += delta.BlockedSpawns
	b.SideAdjusts += delta.SideAdjusts
	b.CarTicks += delta.CarTicks
}

func (s *WorldStats) WindowTicks() uint64 {
	if s == nil {
		return 0
	}
	return s.windowTicks
}

func (s *WorldStats) Summarize(nowTick uint64) StatsBucket {
	if s == nil {
		return StatsBucket{}
	}
	s.rotate(nowTick)
	var out StatsBucket
	for _, b := range s.buckets {
		out.Spawns += b.Spawns
		out.Despawns += b.Despawns
		out.BlockedSpawns += b.BlockedSpawns
		out.SideAdjusts += b.SideAdjusts
		out.CarTicks += b.CarTicks
	}
	return out
}
