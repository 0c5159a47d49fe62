package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (latest run is used unless -run or -db)")
	runDir := fs.String("run", "", "run directory (optional)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	q := "lanes"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		dir, err := resolveRunDir(*dataDir, *worldID, *runDir)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		path = filepath.Join(dir, "index", "world.sqlite")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	if *limit <= 0 {
		*limit = 20
	}
	var rows any
	switch q {
	case "lanes":
		rows, err = queryLaneStats(db)
	case "ticks":
		rows, err = queryTicks(db, *limit)
	case "trips":
		rows, err = queryTrips(db, *limit)
	case "configs":
		rows, err = queryConfigs(db)
	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q, "(want lanes|ticks|trips|configs)")
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(rows)
}

type laneStat struct {
	Road             int     `json:"road"`
	Lane             int     `json:"lane"`
	Dir              string  `json:"dir"`
	Trips            int     `json:"trips"`
	AvgDurationTicks float64 `json:"avg_duration_ticks"`
	MaxDurationTicks int64   `json:"max_duration_ticks"`
	SideAdjusts      int     `json:"side_adjusts"`
}

// queryLaneStats aggregates completed trips per lane.
func queryLaneStats(db *sql.DB) ([]laneStat, error) {
	rows, err := db.Query(`SELECT road,lane,dir,COUNT(*),AVG(duration_ticks),MAX(duration_ticks),SUM(side_adjusts)
		FROM car_trips GROUP BY road,lane,dir ORDER BY road,lane`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []laneStat{}
	for rows.Next() {
		var s laneStat
		if err := rows.Scan(&s.Road, &s.Lane, &s.Dir, &s.Trips, &s.AvgDurationTicks, &s.MaxDurationTicks, &s.SideAdjusts); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type tickRow struct {
	Tick     int64  `json:"tick"`
	Digest   string `json:"digest"`
	Cars     int    `json:"cars"`
	Spawns   int    `json:"spawns"`
	Despawns int    `json:"despawns"`
	Blocked  int    `json:"blocked_spawns"`
}

func queryTicks(db *sql.DB, limit int) ([]tickRow, error) {
	rows, err := db.Query(`SELECT tick,digest,cars,spawns,despawns,blocked FROM ticks ORDER BY tick DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []tickRow{}
	for rows.Next() {
		var r tickRow
		if err := rows.Scan(&r.Tick, &r.Digest, &r.Cars, &r.Spawns, &r.Despawns, &r.Blocked); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type tripRow struct {
	CarID         string `json:"car_id"`
	Road          int    `json:"road"`
	Lane          int    `json:"lane"`
	Dir           string `json:"dir"`
	SpawnTick     int64  `json:"spawn_tick"`
	DespawnTick   int64  `json:"despawn_tick"`
	DurationTicks int64  `json:"duration_ticks"`
	SideAdjusts   int    `json:"side_adjusts"`
}

func queryTrips(db *sql.DB, limit int) ([]tripRow, error) {
	rows, err := db.Query(`SELECT car_id,road,lane,dir,spawn_tick,despawn_tick,duration_ticks,side_adjusts
		FROM car_trips ORDER BY despawn_tick DESC, car_id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []tripRow{}
	for rows.Next() {
		var r tripRow
		if err := rows.Scan(&r.CarID, &r.Road, &r.Lane, &r.Dir, &r.SpawnTick, &r.DespawnTick, &r.DurationTicks, &r.SideAdjusts); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type configRow struct {
	Name      string `json:"name"`
	Digest    string `json:"digest"`
	UpdatedAt string `json:"updated_at"`
}

func queryConfigs(db *sql.DB) ([]configRow, error) {
	rows, err := db.Query(`SELECT name,digest,updated_at FROM configs ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []configRow{}
	for rows.Next() {
		var r configRow
		if err := rows.Scan(&r.Name, &r.Digest, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
