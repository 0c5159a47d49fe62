package world

import (
	"testing"

	"trafficgrid.ai/internal/sim/geom"
)

func newTestWorld(t *testing.T) *World {
	t.Helper()
	w, err := New(DefaultConfig("test", 42))
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	return w
}

func addRoad(t *testing.T, w *World, cfg RoadConfig) *Road {
	t.Helper()
	r, err := NewRoad(cfg)
	if err != nil {
		t.Fatalf("road %q: %v", cfg.Name, err)
	}
	if err := w.AddRoad(r); err != nil {
		t.Fatalf("add road %q: %v", cfg.Name, err)
	}
	return r
}

// placeCar puts a car with its rear at along (travel axis coordinate) on lane i.
func placeCar(t *testing.T, r *Road, lane int, along, speed int) *Car {
	t.Helper()
	l, err := r.Lane(lane)
	if err != nil {
		t.Fatalf("lane: %v", err)
	}
	rect := l.entryRect(r.carLength, r.carWidth)
	switch l.Dir {
	case geom.DirRight:
		rect.X = along
	case geom.DirLeft:
		rect.X = along - rect.W
	case geom.DirDown:
		rect.Y = along
	case geom.DirUp:
		rect.Y = along - rect.H
	}
	c := &Car{
		id:         r.nextCarID(),
		rect:       rect,
		dir:        l.Dir,
		speed:      speed,
		speedLimit: r.speedLimit,
		road:       r,
		lane:       l,
	}
	r.cars = append(r.cars, c)
	return c
}

func stepN(w *World, n int) {
	for i := 0; i < n; i++ {
		w.Step()
	}
}
