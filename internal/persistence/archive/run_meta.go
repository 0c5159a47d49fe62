// Package archive records what a server run was started with, so its logs
// can be replayed and its archived segments identified.
package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"trafficgrid.ai/internal/sim/layout"
	"trafficgrid.ai/internal/sim/tuning"
)

const RunMetaFile = "run.json"

type RunMeta struct {
	WorldID      string        `json:"world_id"`
	RunID        string        `json:"run_id"`
	Seed         int64         `json:"seed"`
	StartedAt    string        `json:"started_at"`
	TuningDigest string        `json:"tuning_digest"`
	LayoutDigest string        `json:"layout_digest"`
	Tuning       tuning.Tuning `json:"tuning"`
	Layout       layout.Layout `json:"layout"`
}

// NewRunID names a run directory by its UTC start time; ids sort by age.
func NewRunID(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// RunDir is dataDir/worlds/<world>/<run>.
func RunDir(dataDir, worldID, runID string) string {
	return filepath.Join(dataDir, "worlds", worldID, runID)
}

func WriteRunMeta(runDir string, m RunMeta) error {
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(runDir, RunMetaFile), b, 0o644)
}

func ReadRunMeta(runDir string) (RunMeta, error) {
	var m RunMeta
	b, err := os.ReadFile(filepath.Join(runDir, RunMetaFile))
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return m, fmt.Errorf("%s: %w", RunMetaFile, err)
	}
	return m, nil
}

// Runs lists run ids of a world that carry a run.json, oldest first.
func Runs(dataDir, worldID string) ([]string, error) {
	ents, err := os.ReadDir(filepath.Join(dataDir, "worlds", worldID))
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range ents {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(dataDir, "worlds", worldID, e.Name(), RunMetaFile)); err != nil {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out, nil
}

// LatestRun returns the newest run dir of a world, or "" if there is none.
func LatestRun(dataDir, worldID string) string {
	runs, err := Runs(dataDir, worldID)
	if err != nil || len(runs) == 0 {
		return ""
	}
	return RunDir(dataDir, worldID, runs[len(runs)-1])
}
