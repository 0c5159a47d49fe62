package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	persistlog "trafficgrid.ai/internal/persistence/log"
	"trafficgrid.ai/internal/sim/world"
)

type logFilter struct {
	fromTick uint64
	toTick   uint64
	carID    string
	road     int
}

func (f logFilter) inRange(tick uint64) bool {
	return tick >= f.fromTick && (f.toTick == 0 || tick <= f.toTick)
}

func (f logFilter) tick(e world.TickLogEntry) bool {
	if !f.inRange(e.Tick) {
		return false
	}
	if f.carID == "" && f.road < 0 {
		return true
	}
	for _, s := range e.Spawns {
		if (f.carID == "" || s.CarID == f.carID) && (f.road < 0 || s.Road == f.road) {
			return true
		}
	}
	for _, d := range e.Despawns {
		if (f.carID == "" || d.CarID == f.carID) && (f.road < 0 || d.Road == f.road) {
			return true
		}
	}
	return false
}

func (f logFilter) trip(e world.TripEntry) bool {
	return f.inRange(e.DespawnTick) &&
		(f.carID == "" || e.CarID == f.carID) &&
		(f.road < 0 || e.Road == f.road)
}

// logCmd prints entries of the events or trips stream of a run as JSON lines.
func logCmd(args []string) {
	fs := flag.NewFlagSet("log", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (latest run is used unless -run)")
	runDir := fs.String("run", "", "run directory (optional)")
	fromTick := fs.Uint64("from_tick", 0, "first tick (inclusive)")
	toTick := fs.Uint64("to_tick", 0, "last tick (inclusive, optional)")
	carID := fs.String("car", "", "only entries mentioning this car id")
	road := fs.Int("road", -1, "only entries on this road id")
	_ = fs.Parse(args)

	stream := "events"
	if fs.NArg() > 0 {
		stream = fs.Arg(0)
	}
	dir, err := resolveRunDir(*dataDir, *worldID, *runDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	f := logFilter{fromTick: *fromTick, toTick: *toTick, carID: *carID, road: *road}
	n, err := dumpStream(os.Stdout, dir, stream, f)
	if err != nil {
		fmt.Fprintln(os.Stderr, "log:", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "%d entries\n", n)
}

func dumpStream(out io.Writer, runDir, stream string, f logFilter) (int, error) {
	if stream != "events" && stream != "trips" {
		return 0, fmt.Errorf("unknown stream %q (want events|trips)", stream)
	}
	files, err := persistlog.Files(runDir, stream)
	if err != nil {
		return 0, err
	}
	enc := json.NewEncoder(out)
	n := 0
	for _, path := range files {
		switch stream {
		case "events":
			err = persistlog.ReadJSONL(path, func(e world.TickLogEntry) error {
				if !f.tick(e) {
					return nil
				}
				n++
				return enc.Encode(e)
			})
		case "trips":
			err = persistlog.ReadJSONL(path, func(e world.TripEntry) error {
				if !f.trip(e) {
					return nil
				}
				n++
				return enc.Encode(e)
			})
		}
		if err != nil {
			return n, err
		}
	}
	return n, nil
}
