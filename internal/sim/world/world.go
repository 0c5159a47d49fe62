package world

import (
	"errors"
	"math/rand/v2"
	"sync/atomic"

	"trafficgrid.ai/internal/sim/geom"
)

// World is a single-threaded authoritative simulation of roads and cars.
// All state must be accessed only from the world loop goroutine; Snapshot,
// Metrics and CurrentTick are safe from any goroutine.
type World struct {
	cfg WorldConfig
	rng *rand.Rand

	tick atomic.Uint64

	roads          []*Road
	junctions      map[int]*Junction
	nextRoadID     int
	nextJunctionID int
	nextCarNum     atomic.Uint64

	// Per-tick event buffers, reset at the start of every step.
	spawnsThisTick      []RecordedSpawn
	despawnsThisTick    []RecordedDespawn
	blockedThisTick     int
	sideAdjustsThisTick int

	// Optional loggers (may be nil). Implemented in internal/persistence/*.
	tickLogger TickLogger
	tripLogger TripLogger

	stats    *WorldStats
	metrics  atomic.Value
	snapshot atomic.Pointer[Snapshot]

	observers     map[string]*observerClient
	observerJoin  chan ObserverJoinRequest
	observerSub   chan ObserverSubscribeRequest
	observerLeave chan string
	stop          chan struct{}
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type TripLogger interface {
	WriteTrip(entry TripEntry) error
}

// TickLogEntry is written every LogEveryTicks ticks and on every tick with
// spawn or despawn events.
type TickLogEntry struct {
	Tick     uint64            `json:"tick"`
	Cars     int               `json:"cars"`
	Spawns   []RecordedSpawn   `json:"spawns,omitempty"`
	Despawns []RecordedDespawn `json:"despawns,omitempty"`
	Blocked  int               `json:"blocked_spawns,omitempty"`
	Digest   string            `json:"digest"`
}

type RecordedSpawn struct {
	CarID string `json:"car_id"`
	Road  int    `json:"road"`
	Lane  int    `json:"lane"`
}

type RecordedDespawn struct {
	CarID string `json:"car_id"`
	Road  int    `json:"road"`
	Lane  int    `json:"lane"`
}

// TripEntry describes one completed car lifetime.
type TripEntry struct {
	CarID       string `json:"car_id"`
	Road        int    `json:"road"`
	Lane        int    `json:"lane"`
	Dir         string `json:"dir"`
	SpawnTick   uint64 `json:"spawn_tick"`
	DespawnTick uint64 `json:"despawn_tick"`
	SideAdjusts int    `json:"side_adjusts"`
}

func New(cfg WorldConfig) (*World, error) {
	cfg.normalize()
	if cfg.SpawnChancePct < 0 || cfg.SpawnChancePct > 100 {
		return nil, errors.New("spawn chance must be within [0,100]")
	}
	seed := uint64(cfg.Seed)
	w := &World{
		cfg:           cfg,
		rng:           rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		junctions:     map[int]*Junction{},
		stats:         NewWorldStats(uint64(cfg.StatsBucketTicks), uint64(cfg.StatsWindowTicks)),
		observers:     map[string]*observerClient{},
		observerJoin:  make(chan ObserverJoinRequest, 16),
		observerSub:   make(chan ObserverSubscribeRequest, 16),
		observerLeave: make(chan string, 16),
		stop:          make(chan struct{}),
	}
	w.publishSnapshot(0)
	return w, nil
}

func (w *World) SetTickLogger(l TickLogger) { w.tickLogger = l }
func (w *World) SetTripLogger(l TripLogger) { w.tripLogger = l }

func (w *World) ObserverJoin() chan<- ObserverJoinRequest           { return w.observerJoin }
func (w *World) ObserverSubscribe() chan<- ObserverSubscribeRequest { return w.observerSub }
func (w *World) ObserverLeave() chan<- string                       { return w.observerLeave }

func (w *World) CurrentTick() uint64 { return w.tick.Load() }
func (w *World) Config() WorldConfig { return w.cfg }

func (w *World) ID() string {
	if w == nil {
		return ""
	}
	return w.cfg.ID
}

func (w *World) TickRateHz() int {
	if w == nil {
		return 0
	}
	return w.cfg.TickRateHz
}

// AddRoad attaches r and creates a junction with every road it overlaps.
// Both records of a junction share one id and stop sign. Each record spans
// the overlap plus a sidewalk on both sides, along its own road.
func (w *World) AddRoad(r *Road) error {
	if r == nil {
		return errors.New("nil road")
	}
	if r.world != nil {
		return ErrRoadAlreadyAdded
	}
	w.nextRoadID++
	r.id = w.nextRoadID
	r.world = w
	r.carLength = w.cfg.CarLength
	r.carWidth = w.cfg.CarWidth

	for _, other := range w.roads {
		if !geom.Intersects(r.rect, other.rect) {
			continue
		}
		ov := geom.Overlap(r.rect, other.rect)
		w.nextJunctionID++
		id := w.nextJunctionID
		off, n := junctionSpan(r, ov)
		a := r.AddCarIntersection(off, n, other, id, true)
		off, n = junctionSpan(other, ov)
		b := other.AddCarIntersection(off, n, r, id, true)
		w.junctions[id] = &Junction{ID: id, Records: [2]*Intersection{a, b}}
	}
	w.roads = append(w.roads, r)
	w.publishSnapshot(w.tick.Load())
	return nil
}

func junctionSpan(r *Road, ov geom.Rect) (offset, length int) {
	if r.Horizontal() {
		return ov.X - SidewalkWidth, ov.W + 2*SidewalkWidth
	}
	return ov.Y - SidewalkWidth, ov.H + 2*SidewalkWidth
}

// Bounds is the union of all road rectangles.
func (w *World) Bounds() geom.Rect {
	var b geom.Rect
	for _, r := range w.roads {
		b = b.Union(r.rect)
	}
	return b
}

func (w *World) Roads() []*Road {
	out := make([]*Road, len(w.roads))
	copy(out, w.roads)
	return out
}

// Cars returns every live car, road by road in roster order.
func (w *World) Cars() []*Car {
	var out []*Car
	for _, r := range w.roads {
		out = append(out, r.cars...)
	}
	return out
}

func (w *World) Junction(id int) *Junction { return w.junctions[id] }

func (w *World) Junctions() int { return len(w.junctions) }

func (w *World) pairedRecord(in *Intersection) *Intersection {
	if w == nil || in == nil || in.kind != KindCar {
		return nil
	}
	j := w.junctions[in.junctionID]
	if j == nil {
		return nil
	}
	return j.Paired(in)
}
