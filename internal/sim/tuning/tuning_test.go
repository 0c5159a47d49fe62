package tuning

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_RepoConfigMatchesDefaults(t *testing.T) {
	got, err := Load(filepath.Join("..", "..", "..", "configs", "tuning.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != Defaults() {
		t.Fatalf("configs/tuning.yaml drifted from Defaults():\n got=%+v\nwant=%+v", got, Defaults())
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte("tick_rate_hz: 50\nspawn:\n  chance_pct: 40\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.TickRateHz != 50 || got.Spawn.ChancePct != 40 {
		t.Fatalf("overrides not applied: %+v", got)
	}
	if got.Spawn.PeriodTicks != Defaults().Spawn.PeriodTicks {
		t.Fatalf("default lost: period=%d", got.Spawn.PeriodTicks)
	}
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tu := Defaults()
	tu.TickRateHz = 0
	tu.Spawn.ChancePct = 101
	err := tu.Validate()
	if err == nil {
		t.Fatalf("expected error")
	}
	for _, want := range []string{"tick_rate_hz", "spawn.chance_pct"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q missing %q", err, want)
		}
	}
}
