package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"trafficgrid.ai/internal/sim/layout"
	"trafficgrid.ai/internal/sim/tuning"
	"trafficgrid.ai/internal/sim/world"
)

// Index is a queryable read model of the tick and trip streams.
// Writes never block the world loop; entries are dropped when the queue is full.
type Index interface {
	WriteTick(entry world.TickLogEntry) error
	WriteTrip(entry world.TripEntry) error
	UpsertConfigs(tune tuning.Tuning, lay layout.Layout) error
	Stats() Stats
	Close() error
}

type Stats struct {
	QueueDepth    int `json:"queue_depth"`
	QueueCapacity int `json:"queue_capacity"`

	DropTickTotal  uint64 `json:"drop_tick_total"`
	DropTripTotal  uint64 `json:"drop_trip_total"`
	FlushFailTotal uint64 `json:"flush_fail_total"`
}

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropTick atomic.Uint64
	dropTrip atomic.Uint64
}

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqTrip
)

type req struct {
	kind reqKind

	tick world.TickLogEntry
	trip world.TripEntry
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	// NORMAL is a decent durability/perf tradeoff for a secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS configs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			tick INTEGER PRIMARY KEY,
			digest TEXT NOT NULL,
			cars INTEGER NOT NULL,
			spawns INTEGER NOT NULL,
			despawns INTEGER NOT NULL,
			blocked INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS spawns (
			tick INTEGER NOT NULL,
			car_id TEXT NOT NULL,
			road INTEGER NOT NULL,
			lane INTEGER NOT NULL,
			PRIMARY KEY (tick, car_id)
		);`,
		`CREATE TABLE IF NOT EXISTS car_trips (
			car_id TEXT PRIMARY KEY,
			road INTEGER NOT NULL,
			lane INTEGER NOT NULL,
			dir TEXT NOT NULL,
			spawn_tick INTEGER NOT NULL,
			despawn_tick INTEGER NOT NULL,
			duration_ticks INTEGER NOT NULL,
			side_adjusts INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_car_trips_road_lane ON car_trips(road, lane, despawn_tick);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// DB exposes the handle for read-side queries.
func (s *SQLiteIndex) DB() *sql.DB { return s.db }

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) WriteTick(entry world.TickLogEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqTick, tick: entry}:
	default:
		// Drop if the indexer falls behind; JSONL logs remain the source of truth.
		s.dropTick.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) WriteTrip(entry world.TripEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqTrip, trip: entry}:
	default:
		s.dropTrip.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:    len(s.ch),
		QueueCapacity: cap(s.ch),
		DropTickTotal: s.dropTick.Load(),
		DropTripTotal: s.dropTrip.Load(),
	}
}

type configRow struct {
	name   string
	digest string
	data   []byte
}

// configRows canonicalizes the applied tuning and layout.
func configRows(tune tuning.Tuning, lay layout.Layout) []configRow {
	tb, _ := json.Marshal(tune)
	sum := sha256.Sum256(tb)
	lb, _ := json.Marshal(lay)
	return []configRow{
		{name: "tuning", digest: hex.EncodeToString(sum[:]), data: tb},
		{name: "layout", digest: lay.Digest(), data: lb},
	}
}

func (s *SQLiteIndex) UpsertConfigs(tune tuning.Tuning, lay layout.Layout) error {
	if s == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO configs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range configRows(tune, lay) {
		if _, err := stmt.Exec(r.name, r.digest, string(r.data), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	// Prepared statements (on db; executed within tx).
	insertTick, _ := s.db.Prepare(`INSERT OR REPLACE INTO ticks(tick,digest,cars,spawns,despawns,blocked,raw_json) VALUES(?,?,?,?,?,?,?)`)
	insertSpawn, _ := s.db.Prepare(`INSERT OR REPLACE INTO spawns(tick,car_id,road,lane) VALUES(?,?,?,?)`)
	insertTrip, _ := s.db.Prepare(`INSERT OR REPLACE INTO car_trips(car_id,road,lane,dir,spawn_tick,despawn_tick,duration_ticks,side_adjusts) VALUES(?,?,?,?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertTick, insertSpawn, insertTrip} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			// If we can't start a tx, we can't do much; sleep a bit.
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqTick:
			t := r.tick
			b, _ := json.Marshal(t)
			if insertTick != nil {
				if _, err := tx.Stmt(insertTick).Exec(int64(t.Tick), t.Digest, t.Cars, len(t.Spawns), len(t.Despawns), t.Blocked, string(b)); err != nil {
					rollback()
					continue
				}
				opCount++
			}
			for _, sp := range t.Spawns {
				if insertSpawn == nil {
					break
				}
				if _, err := tx.Stmt(insertSpawn).Exec(int64(t.Tick), sp.CarID, sp.Road, sp.Lane); err != nil {
					rollback()
					break
				}
				opCount++
			}

		case reqTrip:
			tr := r.trip
			if insertTrip != nil {
				if _, err := tx.Stmt(insertTrip).Exec(
					tr.CarID,
					tr.Road,
					tr.Lane,
					tr.Dir,
					int64(tr.SpawnTick),
					int64(tr.DespawnTick),
					int64(tr.DespawnTick-tr.SpawnTick),
					tr.SideAdjusts,
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		}
		if tx != nil && (opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait) {
			commit()
		}
	}

	commit()
}
