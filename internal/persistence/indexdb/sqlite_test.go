package indexdb

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"trafficgrid.ai/internal/sim/layout"
	"trafficgrid.ai/internal/sim/tuning"
	"trafficgrid.ai/internal/sim/world"
)

func TestSQLiteIndex_TicksAndTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.db")

	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	_ = idx.WriteTick(world.TickLogEntry{
		Tick:    10,
		Cars:    3,
		Digest:  "d10",
		Blocked: 1,
		Spawns: []world.RecordedSpawn{
			{CarID: "C1", Road: 0, Lane: 2},
			{CarID: "C2", Road: 1, Lane: 0},
		},
	})
	_ = idx.WriteTrip(world.TripEntry{
		CarID:       "C1",
		Road:        0,
		Lane:        2,
		Dir:         "RIGHT",
		SpawnTick:   10,
		DespawnTick: 250,
		SideAdjusts: 1,
	})
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()

	var (
		digest          string
		cars, sp, block int
	)
	if err := db.QueryRow(`SELECT digest,cars,spawns,blocked FROM ticks WHERE tick=10`).Scan(&digest, &cars, &sp, &block); err != nil {
		t.Fatalf("Scan tick: %v", err)
	}
	if digest != "d10" || cars != 3 || sp != 2 || block != 1 {
		t.Fatalf("tick row mismatch: digest=%q cars=%d spawns=%d blocked=%d", digest, cars, sp, block)
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM spawns WHERE tick=10`).Scan(&n); err != nil {
		t.Fatalf("Scan spawns: %v", err)
	}
	if n != 2 {
		t.Fatalf("spawns=%d want=2", n)
	}

	var (
		dir2     string
		duration int64
		adjusts  int
	)
	if err := db.QueryRow(`SELECT dir,duration_ticks,side_adjusts FROM car_trips WHERE car_id='C1'`).Scan(&dir2, &duration, &adjusts); err != nil {
		t.Fatalf("Scan trip: %v", err)
	}
	if dir2 != "RIGHT" || duration != 240 || adjusts != 1 {
		t.Fatalf("trip row mismatch: dir=%q duration=%d adjusts=%d", dir2, duration, adjusts)
	}
}

func TestSQLiteIndex_UpsertConfigs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer func() { _ = idx.Close() }()

	lay := layout.Default()
	if err := idx.UpsertConfigs(tuning.Defaults(), lay); err != nil {
		t.Fatalf("UpsertConfigs: %v", err)
	}
	// Idempotent.
	if err := idx.UpsertConfigs(tuning.Defaults(), lay); err != nil {
		t.Fatalf("UpsertConfigs again: %v", err)
	}

	var digest string
	if err := idx.DB().QueryRow(`SELECT digest FROM configs WHERE name='layout'`).Scan(&digest); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if digest != lay.Digest() {
		t.Fatalf("layout digest=%q want=%q", digest, lay.Digest())
	}
	var n int
	if err := idx.DB().QueryRow(`SELECT COUNT(*) FROM configs`).Scan(&n); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if n != 2 {
		t.Fatalf("configs=%d want=2", n)
	}
}
