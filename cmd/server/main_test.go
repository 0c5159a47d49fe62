package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"trafficgrid.ai/internal/sim/layout"
	"trafficgrid.ai/internal/sim/world"
)

func newTestMux(t *testing.T, admin bool) (*http.ServeMux, *world.World) {
	t.Helper()
	w, err := world.New(world.DefaultConfig("grid_t", 5))
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	if err := layout.Build(w, layout.Default()); err != nil {
		t.Fatalf("build: %v", err)
	}
	for i := 0; i < 10; i++ {
		w.StepOnce()
	}
	return newMux(serverDeps{worldID: "grid_t", world: w, enableAdmin: admin}), w
}

func get(mux http.Handler, path, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = remote
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	mux, _ := newTestMux(t, false)
	rec := get(mux, "/healthz", "10.0.0.1:1")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rec.Code, rec.Body.String())
	}
}

func TestMetrics_ExposeWorldGauges(t *testing.T) {
	mux, _ := newTestMux(t, false)
	body := get(mux, "/metrics", "10.0.0.1:1").Body.String()
	for _, want := range []string{
		`trafficgrid_world_tick{world="grid_t"} 10`,
		`trafficgrid_world_roads{world="grid_t"} 4`,
		`trafficgrid_world_junctions{world="grid_t"} 4`,
		`trafficgrid_stats_window_ticks{world="grid_t"}`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q:\n%s", want, body)
		}
	}
	if strings.Contains(body, "trafficgrid_index_") {
		t.Fatalf("index metrics rendered without an index")
	}
}

func TestAdminState_LoopbackOnly(t *testing.T) {
	mux, w := newTestMux(t, true)
	if rec := get(mux, "/admin/v1/state", "10.0.0.1:1"); rec.Code != http.StatusForbidden {
		t.Fatalf("remote state: %d", rec.Code)
	}
	rec := get(mux, "/admin/v1/state", "127.0.0.1:5555")
	if rec.Code != http.StatusOK {
		t.Fatalf("state: %d", rec.Code)
	}
	var resp struct {
		WorldID  string         `json:"world_id"`
		Tick     uint64         `json:"tick"`
		Snapshot world.Snapshot `json:"snapshot"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.WorldID != "grid_t" || resp.Tick != w.CurrentTick() || len(resp.Snapshot.Roads) != 4 {
		t.Fatalf("state=%+v", resp)
	}
}

func TestAdminDisabled(t *testing.T) {
	mux, _ := newTestMux(t, false)
	if rec := get(mux, "/admin/v1/state", "127.0.0.1:1"); rec.Code != http.StatusNotFound {
		t.Fatalf("admin should be unrouted, got %d", rec.Code)
	}
}

type recordingSink struct {
	ticks []world.TickLogEntry
	trips []world.TripEntry
}

func (r *recordingSink) WriteTick(e world.TickLogEntry) error {
	r.ticks = append(r.ticks, e)
	return nil
}

func (r *recordingSink) WriteTrip(e world.TripEntry) error {
	r.trips = append(r.trips, e)
	return nil
}

func TestLogSinks_FanOut(t *testing.T) {
	a := &recordingSink{}
	s := logSinks{tick: a, trip: a}
	_ = s.WriteTick(world.TickLogEntry{Tick: 3})
	_ = s.WriteTrip(world.TripEntry{CarID: "C1"})
	if len(a.ticks) != 1 || len(a.trips) != 1 {
		t.Fatalf("ticks=%d trips=%d", len(a.ticks), len(a.trips))
	}
}
