package world

import (
	"errors"
	"testing"

	"trafficgrid.ai/internal/sim/geom"
)

func TestNewRoad_TooManyLanes(t *testing.T) {
	_, err := NewRoad(RoadConfig{Name: "narrow", Rect: geom.R(0, 0, 10000, 2000), SpeedLimit: 100, PositiveLanes: 3, NegativeLanes: 3})
	if !errors.Is(err, ErrTooManyLanes) {
		t.Fatalf("expected ErrTooManyLanes, got %v", err)
	}
	if _, err := NewRoad(RoadConfig{Name: "exact", Rect: geom.R(0, 0, 10000, 2000), SpeedLimit: 100, PositiveLanes: 3, NegativeLanes: 2}); err != nil {
		t.Fatalf("5 lanes of 400 in 2000: %v", err)
	}
	if _, err := NewRoad(RoadConfig{Name: "none", Rect: geom.R(0, 0, 10000, 2000)}); !errors.Is(err, ErrNoLanes) {
		t.Fatalf("expected ErrNoLanes, got %v", err)
	}
}

func TestNewRoad_RejectsSpeedLimitBelowOne(t *testing.T) {
	for _, limit := range []int{0, -5} {
		_, err := NewRoad(RoadConfig{Name: "slow", Rect: geom.R(0, 0, 10000, 500), SpeedLimit: limit, PositiveLanes: 1})
		if !errors.Is(err, ErrBadSpeedLimit) {
			t.Fatalf("limit %d: expected ErrBadSpeedLimit, got %v", limit, err)
		}
	}
}

func TestIsClearOfCars(t *testing.T) {
	w := newTestWorld(t)
	r := addRoad(t, w, RoadConfig{Name: "h", Rect: geom.R(0, 0, 10000, 500), SpeedLimit: 100, PositiveLanes: 1})
	spot := geom.R(2000, 0, 500, 185)
	if !r.IsClearOfCars(spot) {
		t.Fatalf("empty road should be clear")
	}
	c := placeCar(t, r, 0, 1500, 0)
	if c.Rect().Right() != spot.X {
		t.Fatalf("setup: car right=%d want %d", c.Rect().Right(), spot.X)
	}
	if !r.IsClearOfCars(spot) {
		t.Fatalf("touching edges must count as clear")
	}
	if r.IsClearOfCars(spot.Translate(-1, 0)) {
		t.Fatalf("a 1cm overlap must not be clear")
	}
	r.remove(c)
	if !r.IsClearOfCars(spot.Translate(-1, 0)) {
		t.Fatalf("removed car still blocks")
	}
}

func TestNewRoad_LaneLayout(t *testing.T) {
	r, err := NewRoad(RoadConfig{Name: "h", Rect: geom.R(-2500, 0, 25000, 2000), SpeedLimit: 166, End1Length: 500, End2Length: 600, PositiveLanes: 2, NegativeLanes: 2})
	if err != nil {
		t.Fatalf("road: %v", err)
	}
	if !r.Horizontal() {
		t.Fatalf("expected horizontal")
	}
	want := []geom.Direction{geom.DirLeft, geom.DirLeft, geom.DirRight, geom.DirRight}
	for i, l := range r.Lanes() {
		if l.Dir != want[i] {
			t.Fatalf("lane %d dir=%s want %s", i, l.Dir, want[i])
		}
		if l.Rect != geom.R(-2500, i*500, 25000, 500) {
			t.Fatalf("lane %d rect=%+v", i, l.Rect)
		}
		if l.End1.Rect != geom.R(-2500, i*500, 500, 500) {
			t.Fatalf("lane %d end1=%+v", i, l.End1.Rect)
		}
		if l.End2.Rect != geom.R(22500-600, i*500, 600, 500) {
			t.Fatalf("lane %d end2=%+v", i, l.End2.Rect)
		}
	}

	v, err := NewRoad(RoadConfig{Name: "v", Rect: geom.R(5000, -7000, 2000, 25000), SpeedLimit: 166, PositiveLanes: 2, NegativeLanes: 2})
	if err != nil {
		t.Fatalf("road: %v", err)
	}
	if v.Horizontal() {
		t.Fatalf("expected vertical")
	}
	if v.Lanes()[0].Dir != geom.DirUp || v.Lanes()[3].Dir != geom.DirDown {
		t.Fatalf("vertical lanes: %s .. %s", v.Lanes()[0].Dir, v.Lanes()[3].Dir)
	}
	if v.Lanes()[1].Rect != geom.R(5500, -7000, 500, 25000) {
		t.Fatalf("lane 1 rect=%+v", v.Lanes()[1].Rect)
	}
}

func TestAutoEnds_UpstreamSpawnsDownstreamDespawns(t *testing.T) {
	r, err := NewRoad(RoadConfig{Name: "h", Rect: geom.R(0, 0, 10000, 1000), SpeedLimit: 100, End1Length: 500, End2Length: 500, PositiveLanes: 1, NegativeLanes: 1})
	if err != nil {
		t.Fatalf("road: %v", err)
	}
	r.AutoEnds()
	left, right := r.Lanes()[0], r.Lanes()[1]
	if left.End2.Kind != EndSpawner || left.End1.Kind != EndDespawner {
		t.Fatalf("left lane ends: %s/%s", left.End1.Kind, left.End2.Kind)
	}
	if right.End1.Kind != EndSpawner || right.End2.Kind != EndDespawner {
		t.Fatalf("right lane ends: %s/%s", right.End1.Kind, right.End2.Kind)
	}
	if right.End1.Spawner() == nil || right.End1.Spawner().Lane() != 1 {
		t.Fatalf("spawner not bound to lane 1")
	}
	if right.End2.Spawner() != nil {
		t.Fatalf("despawner end has a spawner")
	}
	if err := r.SetEnds(7, EndEmpty, EndEmpty); !errors.Is(err, ErrBadLane) {
		t.Fatalf("expected ErrBadLane, got %v", err)
	}
}

func TestAddRoad_JunctionSymmetry(t *testing.T) {
	w := newTestWorld(t)
	h := addRoad(t, w, RoadConfig{Name: "h", Rect: geom.R(0, 0, 10000, 2000), SpeedLimit: 100, PositiveLanes: 1, NegativeLanes: 1})
	v := addRoad(t, w, RoadConfig{Name: "v", Rect: geom.R(4000, -3000, 2000, 10000), SpeedLimit: 100, PositiveLanes: 1, NegativeLanes: 1})
	addRoad(t, w, RoadConfig{Name: "far", Rect: geom.R(0, 20000, 10000, 2000), SpeedLimit: 100, PositiveLanes: 1})

	if len(h.Intersections()) != 1 || len(v.Intersections()) != 1 {
		t.Fatalf("intersections: h=%d v=%d", len(h.Intersections()), len(v.Intersections()))
	}
	a, b := h.Intersections()[0], v.Intersections()[0]
	if a.Kind() != KindCar || b.Kind() != KindCar {
		t.Fatalf("kinds: %s %s", a.Kind(), b.Kind())
	}
	if a.JunctionID() != b.JunctionID() || a.JunctionID() == 0 {
		t.Fatalf("junction ids: %d %d", a.JunctionID(), b.JunctionID())
	}
	if a.OtherRoad() != v || b.OtherRoad() != h {
		t.Fatalf("other roads not cross-linked")
	}
	if a.Rect() != geom.R(3850, 0, 2300, 2000) {
		t.Fatalf("h record rect=%+v", a.Rect())
	}
	if b.Rect() != geom.R(4000, -150, 2000, 2300) {
		t.Fatalf("v record rect=%+v", b.Rect())
	}
	if !a.StopSign() || !b.StopSign() {
		t.Fatalf("junction records must carry a stop sign")
	}
	j := w.Junction(a.JunctionID())
	if j == nil || j.Paired(a) != b || j.Paired(b) != a {
		t.Fatalf("junction registry does not pair records")
	}
	if w.pairedRecord(a) != b {
		t.Fatalf("pairedRecord mismatch")
	}
	if w.Junctions() != 1 {
		t.Fatalf("junctions=%d", w.Junctions())
	}
	if got := w.Bounds(); got != geom.R(0, -3000, 10000, 25000) {
		t.Fatalf("bounds=%+v", got)
	}
	if err := w.AddRoad(h); !errors.Is(err, ErrRoadAlreadyAdded) {
		t.Fatalf("expected ErrRoadAlreadyAdded, got %v", err)
	}
}

func TestSpawn_Exclusivity(t *testing.T) {
	w := newTestWorld(t)
	r := addRoad(t, w, RoadConfig{Name: "h", Rect: geom.R(0, 0, 10000, 1000), SpeedLimit: 100, PositiveLanes: 1, NegativeLanes: 1})

	c, ok := r.Spawn(1)
	if !ok {
		t.Fatalf("first spawn refused")
	}
	if c.Speed() != 0 || c.State() != StateNormal || c.Throttle() != ThrottleIdle {
		t.Fatalf("fresh car: speed=%d state=%s throttle=%s", c.Speed(), c.State(), c.Throttle())
	}
	if c.Rect() != geom.R(0, 500+(500-185)/2, 500, 185) {
		t.Fatalf("spawn rect=%+v", c.Rect())
	}
	if _, ok := r.Spawn(1); ok {
		t.Fatalf("second spawn on an occupied entry must be refused")
	}
	if _, ok := r.Spawn(0); !ok {
		t.Fatalf("other lane should accept a spawn")
	}
	c.rect = c.rect.Translate(500, 0)
	if _, ok := r.Spawn(1); !ok {
		t.Fatalf("spawn after the entry cleared was refused")
	}
	if len(r.Cars()) != 3 {
		t.Fatalf("cars=%d", len(r.Cars()))
	}
	ids := map[string]bool{}
	for _, c := range r.Cars() {
		if ids[c.ID()] {
			t.Fatalf("duplicate id %s", c.ID())
		}
		ids[c.ID()] = true
	}
}

func TestSweep_RemovesFromRosterAndZones(t *testing.T) {
	w := newTestWorld(t)
	r := addRoad(t, w, RoadConfig{Name: "h", Rect: geom.R(0, 0, 10000, 500), SpeedLimit: 100, End1Length: 500, End2Length: 500, PositiveLanes: 1})
	if err := r.SetEnds(0, EndDespawner, EndDespawner); err != nil {
		t.Fatalf("ends: %v", err)
	}
	zone := r.AddCrosswalk(0, 800, true)

	atStart := placeCar(t, r, 0, 100, 0)
	middle := placeCar(t, r, 0, 5000, 0)
	atEnd := placeCar(t, r, 0, 9700, 0)
	atStart.updateIntersection()
	if !zone.Contains(atStart) {
		t.Fatalf("car at start should be registered in the crosswalk")
	}

	removed := r.SweepDespawn()
	if len(removed) != 2 {
		t.Fatalf("removed=%d want 2", len(removed))
	}
	if got := r.Cars(); len(got) != 1 || got[0] != middle {
		t.Fatalf("roster after sweep: %v", got)
	}
	for _, c := range []*Car{atStart, atEnd} {
		if !c.Destroyed() || c.Intersection() != nil || c.Throttle() != ThrottleIdle {
			t.Fatalf("car %s not fully released", c.ID())
		}
	}
	if zone.Contains(atStart) {
		t.Fatalf("destroyed car still registered")
	}
	if r.remove(atStart) {
		t.Fatalf("removing a destroyed car twice must fail")
	}
	if !r.remove(middle) || len(r.Cars()) != 0 {
		t.Fatalf("remove middle car failed")
	}
}

func TestUpdateIntersection_NearestZoneOnly(t *testing.T) {
	w := newTestWorld(t)
	r := addRoad(t, w, RoadConfig{Name: "h", Rect: geom.R(0, 0, 10000, 500), SpeedLimit: 100, PositiveLanes: 1})
	first := r.AddCrosswalk(1000, 400, true)
	second := r.AddPlainIntersection(1400, 1000, false)

	// Car spans 1300..1800; its centre is equidistant from both zone centres.
	c := placeCar(t, r, 0, 1300, 0)
	c.updateIntersection()
	if c.Intersection() != first || !first.Contains(c) || second.Contains(c) {
		t.Fatalf("tie should go to the first zone")
	}

	c.rect = c.rect.Translate(100, 0)
	c.updateIntersection()
	if c.Intersection() != second || first.Contains(c) || !second.Contains(c) {
		t.Fatalf("car should move to the nearer zone")
	}

	c.rect = c.rect.Translate(5000, 0)
	c.updateIntersection()
	if c.Intersection() != nil || len(first.Present()) != 0 || len(second.Present()) != 0 {
		t.Fatalf("car left all zones but is still registered")
	}
}
