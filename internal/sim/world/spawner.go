package world

// Spawner rolls for a new car on its lane on a fixed cadence after a random
// initial delay. place is the owning road's placement operation.
type Spawner struct {
	lane  int
	place func(lane int) (*Car, bool)

	scheduled bool
	nextTick  uint64
}

func (s *Spawner) Lane() int { return s.lane }

// NextTick is the tick of the next roll; zero until the first roll is scheduled.
func (s *Spawner) NextTick() uint64 { return s.nextTick }

type spawnOutcome uint8

const (
	spawnIdle spawnOutcome = iota
	spawnSkipped
	spawnPlaced
	spawnBlocked
)

// poll runs the trigger for nowTick. It never retries a blocked placement:
// the next trigger simply rolls again.
func (s *Spawner) poll(nowTick uint64, w *World) (spawnOutcome, *Car) {
	if !s.scheduled {
		delay := uint64(1 + w.rng.IntN(w.cfg.SpawnInitialDelayMaxTicks))
		s.nextTick = nowTick + delay
		s.scheduled = true
		return spawnIdle, nil
	}
	if nowTick < s.nextTick {
		return spawnIdle, nil
	}
	s.nextTick = nowTick + uint64(w.cfg.SpawnPeriodTicks)

	roll := 1 + w.rng.IntN(100)
	if roll > w.cfg.SpawnChancePct {
		return spawnSkipped, nil
	}
	c, ok := s.place(s.lane)
	if !ok {
		return spawnBlocked, nil
	}
	return spawnPlaced, c
}
