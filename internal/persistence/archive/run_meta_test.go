package archive

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"trafficgrid.ai/internal/sim/layout"
	"trafficgrid.ai/internal/sim/tuning"
)

func TestRunMeta_WriteRead(t *testing.T) {
	data := t.TempDir()
	id := NewRunID(time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC))
	if id != "20260304T050607Z" {
		t.Fatalf("run id=%q", id)
	}
	dir := RunDir(data, "grid", id)
	m := RunMeta{
		WorldID:      "grid",
		RunID:        id,
		Seed:         42,
		LayoutDigest: layout.Default().Digest(),
		Tuning:       tuning.Defaults(),
		Layout:       layout.Default(),
	}
	if err := WriteRunMeta(dir, m); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadRunMeta(dir)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !reflect.DeepEqual(got, m) {
		t.Fatalf("round trip mismatch:\n got=%+v\nwant=%+v", got, m)
	}
}

func TestLatestRun_SkipsDirsWithoutMeta(t *testing.T) {
	data := t.TempDir()
	if LatestRun(data, "grid") != "" {
		t.Fatalf("expected no runs")
	}
	for _, id := range []string{"20260101T000000Z", "20260102T000000Z"} {
		if err := WriteRunMeta(RunDir(data, "grid", id), RunMeta{WorldID: "grid", RunID: id}); err != nil {
			t.Fatal(err)
		}
	}
	// Newer dir without run.json is ignored.
	if err := os.MkdirAll(filepath.Join(data, "worlds", "grid", "20260103T000000Z"), 0o755); err != nil {
		t.Fatal(err)
	}
	if got := LatestRun(data, "grid"); filepath.Base(got) != "20260102T000000Z" {
		t.Fatalf("latest=%q", got)
	}
}
