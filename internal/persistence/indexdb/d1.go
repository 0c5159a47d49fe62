package indexdb

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"trafficgrid.ai/internal/sim/layout"
	"trafficgrid.ai/internal/sim/tuning"
	"trafficgrid.ai/internal/sim/world"
)

// D1Config points the index at an HTTP batch ingest endpoint
// (for example a worker in front of a Cloudflare D1 database).
type D1Config struct {
	Endpoint      string
	Token         string
	WorldID       string
	BatchSize     int
	FlushInterval time.Duration
	HTTPTimeout   time.Duration
	Logger        *log.Logger
}

type D1Index struct {
	cfg        D1Config
	httpClient *http.Client

	ch   chan d1Event
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropTick  atomic.Uint64
	dropTrip  atomic.Uint64
	flushFail atomic.Uint64
}

type d1Event struct {
	Kind    string `json:"kind"`
	WorldID string `json:"world_id"`
	Payload any    `json:"payload"`
}

type d1TickPayload struct {
	Tick     uint64                  `json:"tick"`
	Digest   string                  `json:"digest"`
	Cars     int                     `json:"cars"`
	Blocked  int                     `json:"blocked_spawns,omitempty"`
	Spawns   []world.RecordedSpawn   `json:"spawns,omitempty"`
	Despawns []world.RecordedDespawn `json:"despawns,omitempty"`
}

type d1TripPayload struct {
	world.TripEntry
	DurationTicks uint64 `json:"duration_ticks"`
}

type d1ConfigPayload struct {
	Name      string `json:"name"`
	Digest    string `json:"digest"`
	JSON      string `json:"json"`
	UpdatedAt string `json:"updated_at"`
}

// maxRetainedEvents bounds the batch kept across failed flushes.
const maxRetainedEvents = 8192

func OpenD1(cfg D1Config) (*D1Index, error) {
	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	cfg.WorldID = strings.TrimSpace(cfg.WorldID)
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("empty d1 ingest endpoint")
	}
	if cfg.WorldID == "" {
		return nil, fmt.Errorf("empty world id")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 128
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 500 * time.Millisecond
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}

	d := &D1Index{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
		ch: make(chan d1Event, 32768),
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.loop()
	}()

	return d, nil
}

func (d *D1Index) Close() error {
	if d == nil {
		return nil
	}
	d.once.Do(func() {
		d.closed.Store(true)
		close(d.ch)
		d.wg.Wait()
	})
	return nil
}

func (d *D1Index) WriteTick(entry world.TickLogEntry) error {
	if d == nil || d.closed.Load() {
		return nil
	}
	p := d1TickPayload{
		Tick:     entry.Tick,
		Digest:   entry.Digest,
		Cars:     entry.Cars,
		Blocked:  entry.Blocked,
		Spawns:   entry.Spawns,
		Despawns: entry.Despawns,
	}
	if !d.enqueue(d1Event{Kind: "tick", WorldID: d.cfg.WorldID, Payload: p}) {
		d.dropTick.Add(1)
	}
	return nil
}

func (d *D1Index) WriteTrip(entry world.TripEntry) error {
	if d == nil || d.closed.Load() {
		return nil
	}
	p := d1TripPayload{TripEntry: entry, DurationTicks: entry.DespawnTick - entry.SpawnTick}
	if !d.enqueue(d1Event{Kind: "trip", WorldID: d.cfg.WorldID, Payload: p}) {
		d.dropTrip.Add(1)
	}
	return nil
}

func (d *D1Index) UpsertConfigs(tune tuning.Tuning, lay layout.Layout) error {
	if d == nil || d.closed.Load() {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, r := range configRows(tune, lay) {
		d.enqueue(d1Event{Kind: "config", WorldID: d.cfg.WorldID, Payload: d1ConfigPayload{
			Name:      r.name,
			Digest:    r.digest,
			JSON:      string(r.data),
			UpdatedAt: now,
		}})
	}
	return nil
}

func (d *D1Index) Stats() Stats {
	if d == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:     len(d.ch),
		QueueCapacity:  cap(d.ch),
		DropTickTotal:  d.dropTick.Load(),
		DropTripTotal:  d.dropTrip.Load(),
		FlushFailTotal: d.flushFail.Load(),
	}
}

func (d *D1Index) enqueue(ev d1Event) bool {
	select {
	case d.ch <- ev:
		return true
	default:
		d.printf("d1 index queue full; drop kind=%s world=%s", ev.Kind, ev.WorldID)
		return false
	}
}

func (d *D1Index) loop() {
	ticker := time.NewTicker(d.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]d1Event, 0, d.cfg.BatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := d.sendBatch(batch); err != nil {
			// Keep the batch for the next flush; trim the oldest past the cap.
			d.flushFail.Add(1)
			d.printf("d1 index flush failed batch=%d err=%v", len(batch), err)
			if n := len(batch) - maxRetainedEvents; n > 0 {
				batch = append(batch[:0], batch[n:]...)
			}
			return
		}
		batch = batch[:0]
	}

	for {
		select {
		case ev, ok := <-d.ch:
			if !ok {
				flush()
				return
			}
			batch = append(batch, ev)
			if len(batch) >= d.cfg.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (d *D1Index) sendBatch(events []d1Event) error {
	if len(events) == 0 {
		return nil
	}

	body := struct {
		Events []d1Event `json:"events"`
	}{Events: events}
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		req, err := http.NewRequest(http.MethodPost, d.cfg.Endpoint, bytes.NewReader(buf))
		if err != nil {
			return err
		}
		req.Header.Set("content-type", "application/json")
		if d.cfg.Token != "" {
			req.Header.Set("x-tg-index-token", d.cfg.Token)
		}

		resp, err := d.httpClient.Do(req)
		if err == nil {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 16*1024))
			_ = resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return nil
			}
			err = fmt.Errorf("status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(respBody)))
		}
		lastErr = err
		time.Sleep(time.Duration(100*(1<<attempt)) * time.Millisecond)
	}
	return lastErr
}

func (d *D1Index) printf(format string, args ...any) {
	if d != nil && d.cfg.Logger != nil {
		d.cfg.Logger.Printf(format, args...)
	}
}
