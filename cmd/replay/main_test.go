package main

import (
	"strings"
	"testing"

	"trafficgrid.ai/internal/persistence/archive"
	persistlog "trafficgrid.ai/internal/persistence/log"
	"trafficgrid.ai/internal/sim/layout"
	"trafficgrid.ai/internal/sim/tuning"
	"trafficgrid.ai/internal/sim/world"
)

// recordRun runs a world for n ticks with a tick log, as the server would.
func recordRun(t *testing.T, seed int64, n int) string {
	t.Helper()
	dir := t.TempDir()
	tune := tuning.Defaults()
	tune.Spawn.InitialDelayMaxTicks = 50
	tune.Spawn.ChancePct = 60
	lay := layout.Default()
	if err := archive.WriteRunMeta(dir, archive.RunMeta{WorldID: "grid_r", Seed: seed, Tuning: tune, Layout: lay}); err != nil {
		t.Fatalf("meta: %v", err)
	}

	w, err := world.New(world.ConfigFromTuning("grid_r", seed, tune))
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	if err := layout.Build(w, lay); err != nil {
		t.Fatalf("build: %v", err)
	}
	tl := persistlog.NewTickLogger(dir)
	w.SetTickLogger(tl)
	for i := 0; i < n; i++ {
		w.StepOnce()
	}
	if err := tl.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return dir
}

func TestVerifyRun_MatchesRecordedDigests(t *testing.T) {
	dir := recordRun(t, 99, 1500)
	res, err := verifyRun(dir, 0)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.checked == 0 || res.lastTick == 0 {
		t.Fatalf("nothing checked: %+v", res)
	}
}

func TestVerifyRun_StopsAtToTick(t *testing.T) {
	dir := recordRun(t, 99, 1500)
	res, err := verifyRun(dir, 400)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.lastTick > 400 {
		t.Fatalf("last tick %d past to_tick", res.lastTick)
	}
}

func TestVerifyRun_DetectsSeedMismatch(t *testing.T) {
	dir := recordRun(t, 99, 1500)
	meta, err := archive.ReadRunMeta(dir)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	meta.Seed = 100
	if err := archive.WriteRunMeta(dir, meta); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err = verifyRun(dir, 0)
	if err == nil || !strings.Contains(err.Error(), "mismatch") {
		t.Fatalf("expected mismatch, got %v", err)
	}
}
