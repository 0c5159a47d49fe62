package log

import (
	"path/filepath"
	"strings"
	"testing"

	"trafficgrid.ai/internal/sim/world"
)

func TestTickAndTripLoggers_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	tl := NewTickLogger(dir)
	for i := uint64(0); i < 3; i++ {
		e := world.TickLogEntry{Tick: i, Cars: int(i), Digest: "d"}
		if i == 1 {
			e.Spawns = []world.RecordedSpawn{{CarID: "C1", Road: 1, Lane: 2}}
		}
		if err := tl.WriteTick(e); err != nil {
			t.Fatalf("write tick: %v", err)
		}
	}
	if err := tl.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	trl := NewTripLogger(dir)
	if err := trl.WriteTrip(world.TripEntry{CarID: "C1", Road: 1, Lane: 2, Dir: "RIGHT", SpawnTick: 1, DespawnTick: 900}); err != nil {
		t.Fatalf("write trip: %v", err)
	}
	if err := trl.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, err := Files(dir, "events")
	if err != nil || len(files) == 0 {
		t.Fatalf("event files=%v err=%v", files, err)
	}
	var ticks []world.TickLogEntry
	for _, f := range files {
		if err := ReadJSONL(f, func(e world.TickLogEntry) error {
			ticks = append(ticks, e)
			return nil
		}); err != nil {
			t.Fatalf("read: %v", err)
		}
	}
	if len(ticks) != 3 || ticks[2].Tick != 2 {
		t.Fatalf("ticks=%+v", ticks)
	}
	if len(ticks[1].Spawns) != 1 || ticks[1].Spawns[0].CarID != "C1" {
		t.Fatalf("spawns lost: %+v", ticks[1])
	}

	files, err = Files(dir, "trips")
	if err != nil || len(files) == 0 {
		t.Fatalf("trip files=%v err=%v", files, err)
	}
	var trips []world.TripEntry
	for _, f := range files {
		if err := ReadJSONL(f, func(e world.TripEntry) error {
			trips = append(trips, e)
			return nil
		}); err != nil {
			t.Fatalf("read: %v", err)
		}
	}
	if len(trips) != 1 || trips[0].DespawnTick != 900 {
		t.Fatalf("trips=%+v", trips)
	}
}

func TestJSONLZstdWriter_OnCloseReportsSegment(t *testing.T) {
	dir := t.TempDir()
	var closed []string
	w := NewJSONLZstdWriterWithOptions(dir, "events", Options{
		RotateLayout: "2006",
		OnClose:      func(p string) { closed = append(closed, p) },
	})
	if err := w.Write(map[string]int{"tick": 1}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if len(closed) != 0 {
		t.Fatalf("segment reported before close: %v", closed)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if len(closed) != 1 || filepath.Dir(closed[0]) != dir || !strings.HasPrefix(filepath.Base(closed[0]), "events-") {
		t.Fatalf("closed=%v", closed)
	}
	// Closing twice reports nothing new.
	_ = w.Close()
	if len(closed) != 1 {
		t.Fatalf("closed=%v", closed)
	}
}
