package world

import (
	"fmt"

	"trafficgrid.ai/internal/sim/geom"
)

type RoadConfig struct {
	Name       string
	Rect       geom.Rect
	SpeedLimit int

	// End lengths along the travel axis; End1 at the origin side.
	End1Length int
	End2Length int

	// Positive lanes travel RIGHT or DOWN, negative lanes LEFT or UP.
	PositiveLanes int
	NegativeLanes int
}

// Road is a rectangular carriageway, horizontal when wider than tall.
// Lanes are laid out negative-direction first along the cross axis.
type Road struct {
	id         int
	name       string
	rect       geom.Rect
	speedLimit int

	lanes         []*Lane
	cars          []*Car
	intersections []*Intersection

	carLength int
	carWidth  int

	world    *World
	localSeq uint64
}

func NewRoad(cfg RoadConfig) (*Road, error) {
	n := cfg.PositiveLanes + cfg.NegativeLanes
	if cfg.PositiveLanes < 0 || cfg.NegativeLanes < 0 || n == 0 {
		return nil, ErrNoLanes
	}
	if cfg.Rect.Empty() {
		return nil, fmt.Errorf("road %q: empty rect", cfg.Name)
	}
	if cfg.SpeedLimit < 1 {
		return nil, fmt.Errorf("%w: road %q has %d", ErrBadSpeedLimit, cfg.Name, cfg.SpeedLimit)
	}
	r := &Road{
		name:       cfg.Name,
		rect:       cfg.Rect,
		speedLimit: cfg.SpeedLimit,
		carLength:  DefaultCarLength,
		carWidth:   DefaultCarWidth,
	}
	cross := r.rect.H
	if !r.Horizontal() {
		cross = r.rect.W
	}
	if n*MinLaneWidth > cross {
		return nil, fmt.Errorf("%w: %d lanes need %d across, road %q has %d", ErrTooManyLanes, n, n*MinLaneWidth, cfg.Name, cross)
	}
	laneWidth := cross / n

	neg, pos := geom.DirLeft, geom.DirRight
	if !r.Horizontal() {
		neg, pos = geom.DirUp, geom.DirDown
	}
	for i := 0; i < n; i++ {
		dir := pos
		if i < cfg.NegativeLanes {
			dir = neg
		}
		var lr geom.Rect
		if r.Horizontal() {
			lr = geom.R(r.rect.X, r.rect.Y+i*laneWidth, r.rect.W, laneWidth)
		} else {
			lr = geom.R(r.rect.X+i*laneWidth, r.rect.Y, laneWidth, r.rect.H)
		}
		r.lanes = append(r.lanes, newLane(i, lr, dir, cfg.End1Length, cfg.End2Length))
	}
	return r, nil
}

func (r *Road) ID() int                        { return r.id }
func (r *Road) Name() string                   { return r.name }
func (r *Road) Rect() geom.Rect                { return r.rect }
func (r *Road) SpeedLimit() int                { return r.speedLimit }
func (r *Road) Horizontal() bool               { return r.rect.W > r.rect.H }
func (r *Road) Lanes() []*Lane                 { return r.lanes }
func (r *Road) Intersections() []*Intersection { return r.intersections }

// Cars returns a copy of the roster.
func (r *Road) Cars() []*Car {
	out := make([]*Car, len(r.cars))
	copy(out, r.cars)
	return out
}

func (r *Road) Lane(i int) (*Lane, error) {
	if i < 0 || i >= len(r.lanes) {
		return nil, fmt.Errorf("%w: road %q lane %d", ErrBadLane, r.name, i)
	}
	return r.lanes[i], nil
}

// SetEnds assigns the behaviour of both ends of lane i.
func (r *Road) SetEnds(i int, end1, end2 EndKind) error {
	l, err := r.Lane(i)
	if err != nil {
		return err
	}
	r.setEnd(l, &l.End1, end1)
	r.setEnd(l, &l.End2, end2)
	return nil
}

// AutoEnds puts a spawner at the upstream end and a despawner at the
// downstream end of every lane.
func (r *Road) AutoEnds() {
	for _, l := range r.lanes {
		r.setEnd(l, l.Upstream(), EndSpawner)
		r.setEnd(l, l.Downstream(), EndDespawner)
	}
}

func (r *Road) setEnd(l *Lane, e *RoadEnd, kind EndKind) {
	e.Kind = kind
	e.spawner = nil
	if kind == EndSpawner {
		e.spawner = &Spawner{lane: l.Index, place: r.Spawn}
	}
}

// AddCrosswalk carves a crosswalk zone at offset along the travel axis.
func (r *Road) AddCrosswalk(offset, length int, stopSign bool) *Intersection {
	return r.addIntersection(KindCrosswalk, offset, length, stopSign)
}

// AddPlainIntersection carves a zone with no crossing traffic.
func (r *Road) AddPlainIntersection(offset, length int, stopSign bool) *Intersection {
	return r.addIntersection(KindPlain, offset, length, stopSign)
}

// AddCarIntersection carves the zone where other crosses this road.
// Callers that go through World.AddRoad get the junction registered as well.
func (r *Road) AddCarIntersection(offset, length int, other *Road, junctionID int, stopSign bool) *Intersection {
	in := r.addIntersection(KindCar, offset, length, stopSign)
	in.otherRoad = other
	in.junctionID = junctionID
	return in
}

func (r *Road) addIntersection(kind IntersectionKind, offset, length int, stopSign bool) *Intersection {
	var rect geom.Rect
	if r.Horizontal() {
		rect = geom.R(offset, r.rect.Y, length, r.rect.H)
	} else {
		rect = geom.R(r.rect.X, offset, r.rect.W, length)
	}
	in := &Intersection{kind: kind, rect: rect, stopSign: stopSign, road: r}
	r.intersections = append(r.intersections, in)
	return in
}

// IsClearOfCars reports whether no live car of this road overlaps rect.
func (r *Road) IsClearOfCars(rect geom.Rect) bool {
	for _, c := range r.cars {
		if geom.Intersects(c.rect, rect) {
			return false
		}
	}
	return true
}

// Spawn places a new car at the entry of lane i unless another car of this
// road already overlaps that spot.
func (r *Road) Spawn(i int) (*Car, bool) {
	l, err := r.Lane(i)
	if err != nil {
		return nil, false
	}
	rect := l.entryRect(r.carLength, r.carWidth)
	if !r.IsClearOfCars(rect) {
		return nil, false
	}
	c := &Car{
		id:         r.nextCarID(),
		rect:       rect,
		dir:        l.Dir,
		speedLimit: r.speedLimit,
		road:       r,
		lane:       l,
		state:      StateNormal,
		throttle:   ThrottleIdle,
	}
	if r.world != nil {
		c.spawnTick = r.world.CurrentTick()
	}
	r.cars = append(r.cars, c)
	return c, true
}

func (r *Road) nextCarID() string {
	if r.world != nil {
		return fmt.Sprintf("C%d", r.world.nextCarNum.Add(1))
	}
	r.localSeq++
	return fmt.Sprintf("R%d-C%d", r.id, r.localSeq)
}

// SweepDespawn removes every car overlapping a despawner end of any lane.
// Each car is visited once and the roster is rewritten in place.
func (r *Road) SweepDespawn() []*Car {
	var removed []*Car
	kept := r.cars[:0]
	for _, c := range r.cars {
		gone := false
		for _, l := range r.lanes {
			if l.despawns(c.rect) {
				gone = true
				break
			}
		}
		if gone {
			removed = append(removed, c)
			continue
		}
		kept = append(kept, c)
	}
	for i := len(kept); i < len(r.cars); i++ {
		r.cars[i] = nil
	}
	r.cars = kept
	for _, c := range removed {
		r.release(c)
	}
	return removed
}

// remove destroys c if it belongs to this road.
func (r *Road) remove(c *Car) bool {
	for i, o := range r.cars {
		if o == c {
			r.cars = append(r.cars[:i], r.cars[i+1:]...)
			r.release(c)
			return true
		}
	}
	return false
}

// release clears every reference the road's zones hold to c and marks it destroyed.
func (r *Road) release(c *Car) {
	for _, in := range r.intersections {
		in.deregister(c)
	}
	c.intersection = nil
	c.destroyed = true
	c.throttle = ThrottleIdle
	c.stallRunning = false
}

func (r *Road) spawners() []*Spawner {
	var out []*Spawner
	for _, l := range r.lanes {
		if sp := l.End1.spawner; sp != nil {
			out = append(out, sp)
		}
		if sp := l.End2.spawner; sp != nil {
			out = append(out, sp)
		}
	}
	return out
}
