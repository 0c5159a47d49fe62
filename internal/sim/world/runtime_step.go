package world

import "time"

// Step advances the simulation by one tick. Phases run in a fixed order over
// roads and cars in insertion order:
//
//  1. speed and translate processes of every car
//  2. intersection membership of every car
//  3. driving decisions, every DecisionEveryTicks
//  4. spawner triggers
//  5. despawn sweep, every DespawnEveryTicks
//
// Step must only be called from the goroutine that owns the world.
func (w *World) Step() {
	stepStart := time.Now()
	nowTick := w.tick.Load()

	w.spawnsThisTick = w.spawnsThisTick[:0]
	w.despawnsThisTick = w.despawnsThisTick[:0]
	w.blockedThisTick = 0
	w.sideAdjustsThisTick = 0

	for _, r := range w.roads {
		for _, c := range r.cars {
			c.advance(&w.cfg)
		}
	}
	for _, r := range w.roads {
		for _, c := range r.cars {
			c.updateIntersection()
		}
	}
	if nowTick%uint64(w.cfg.Protocol.DecisionEveryTicks) == 0 {
		for _, r := range w.roads {
			for _, c := range r.cars {
				c.decide(&w.cfg.Protocol, w)
			}
		}
	}
	w.runSpawners(nowTick)
	if nowTick%uint64(w.cfg.DespawnEveryTicks) == 0 {
		w.sweep(nowTick)
	}

	cars := 0
	for _, r := range w.roads {
		cars += len(r.cars)
	}
	w.stats.Observe(nowTick, StatsBucket{
		Spawns:        len(w.spawnsThisTick),
		Despawns:      len(w.despawnsThisTick),
		BlockedSpawns: w.blockedThisTick,
		SideAdjusts:   w.sideAdjustsThisTick,
		CarTicks:      cars,
	})

	w.stepObservers(nowTick)

	digest := w.stateDigest(nowTick)
	if w.tickLogger != nil {
		events := len(w.spawnsThisTick) > 0 || len(w.despawnsThisTick) > 0
		if events || nowTick%uint64(w.cfg.LogEveryTicks) == 0 {
			_ = w.tickLogger.WriteTick(TickLogEntry{
				Tick:     nowTick,
				Cars:     cars,
				Spawns:   append([]RecordedSpawn(nil), w.spawnsThisTick...),
				Despawns: append([]RecordedDespawn(nil), w.despawnsThisTick...),
				Blocked:  w.blockedThisTick,
				Digest:   digest,
			})
		}
	}

	stepMS := float64(time.Since(stepStart).Microseconds()) / 1000.0
	nextTick := w.tick.Add(1)
	w.publishSnapshot(nextTick)
	w.publishMetrics(nextTick, nowTick, stepMS)
}

func (w *World) runSpawners(nowTick uint64) {
	for _, r := range w.roads {
		for _, sp := range r.spawners() {
			out, c := sp.poll(nowTick, w)
			switch out {
			case spawnPlaced:
				w.spawnsThisTick = append(w.spawnsThisTick, RecordedSpawn{CarID: c.id, Road: r.id, Lane: c.lane.Index})
			case spawnBlocked:
				w.blockedThisTick++
			}
		}
	}
}

func (w *World) sweep(nowTick uint64) {
	for _, r := range w.roads {
		for _, c := range r.SweepDespawn() {
			w.despawnsThisTick = append(w.despawnsThisTick, RecordedDespawn{CarID: c.id, Road: r.id, Lane: c.lane.Index})
			if w.tripLogger != nil {
				_ = w.tripLogger.WriteTrip(TripEntry{
					CarID:       c.id,
					Road:        r.id,
					Lane:        c.lane.Index,
					Dir:         c.dir.String(),
					SpawnTick:   c.spawnTick,
					DespawnTick: nowTick,
					SideAdjusts: c.sideAdjusts,
				})
			}
		}
	}
}

func (w *World) publishMetrics(nextTick, nowTick uint64, stepMS float64) {
	m := WorldMetrics{
		Tick:      nextTick,
		Roads:     len(w.roads),
		Junctions: len(w.junctions),
		Observers: len(w.observers),
		QueueDepths: QueueDepths{
			ObserverJoin:  len(w.observerJoin),
			ObserverSub:   len(w.observerSub),
			ObserverLeave: len(w.observerLeave),
		},
		StepMS:           stepMS,
		StatsWindowTicks: w.stats.WindowTicks(),
		StatsWindow:      w.stats.Summarize(nowTick),
	}
	for _, r := range w.roads {
		for _, c := range r.cars {
			m.Cars++
			switch c.state {
			case StateStopSign:
				m.StopSign++
			case StateIntersection:
				m.Intersection++
			default:
				m.Normal++
			}
			if c.speed == 0 {
				m.Stopped++
			}
		}
	}
	w.metrics.Store(m)
}
