package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"trafficgrid.ai/internal/persistence/archive"
	persistlog "trafficgrid.ai/internal/persistence/log"
	"trafficgrid.ai/internal/sim/layout"
	"trafficgrid.ai/internal/sim/world"
)

func main() {
	var (
		runDir  = flag.String("run", "", "run directory containing run.json and events/ (default: latest run of -world)")
		dataDir = flag.String("data", "./data", "runtime data directory")
		worldID = flag.String("world", "grid_1", "world id (used with -data when -run is empty)")
		toTick  = flag.Uint64("to_tick", 0, "stop at tick (inclusive, optional)")
	)
	flag.Parse()

	dir := strings.TrimSpace(*runDir)
	if dir == "" {
		dir = archive.LatestRun(*dataDir, *worldID)
	}
	if dir == "" {
		fmt.Fprintln(os.Stderr, "no run found; pass -run")
		os.Exit(2)
	}

	res, err := verifyRun(dir, *toTick)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	fmt.Printf("replay ok: run=%s checked=%d entries last_tick=%d\n", filepath.Base(dir), res.checked, res.lastTick)
}

type replayResult struct {
	checked  int
	lastTick uint64
}

var errStop = errors.New("stop")

// verifyRun rebuilds the run's world from run.json and steps it through every
// logged tick, comparing state digests.
func verifyRun(runDir string, toTick uint64) (replayResult, error) {
	var res replayResult

	meta, err := archive.ReadRunMeta(runDir)
	if err != nil {
		return res, err
	}
	w, err := world.New(world.ConfigFromTuning(meta.WorldID, meta.Seed, meta.Tuning))
	if err != nil {
		return res, fmt.Errorf("world: %w", err)
	}
	if err := layout.Build(w, meta.Layout); err != nil {
		return res, fmt.Errorf("build layout: %w", err)
	}

	files, err := persistlog.Files(runDir, "events")
	if err != nil {
		return res, err
	}
	if len(files) == 0 {
		return res, fmt.Errorf("no events files found in %s", runDir)
	}

	for _, path := range files {
		err := persistlog.ReadJSONL(path, func(entry world.TickLogEntry) error {
			if toTick != 0 && entry.Tick > toTick {
				return errStop
			}
			if entry.Tick < w.CurrentTick() {
				return fmt.Errorf("%s: tick %d went backwards (world at %d)", filepath.Base(path), entry.Tick, w.CurrentTick())
			}
			var (
				tick   uint64
				digest string
			)
			for w.CurrentTick() <= entry.Tick {
				tick, digest = w.StepOnce()
			}
			if digest != entry.Digest {
				return fmt.Errorf("digest mismatch at tick %d: got=%s want=%s", tick, digest, entry.Digest)
			}
			if got := len(w.Cars()); got != entry.Cars {
				return fmt.Errorf("car count mismatch at tick %d: got=%d want=%d", tick, got, entry.Cars)
			}
			res.checked++
			res.lastTick = tick
			return nil
		})
		if errors.Is(err, errStop) {
			break
		}
		if err != nil {
			return res, err
		}
	}
	return res, nil
}
