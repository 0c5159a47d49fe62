package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"trafficgrid.ai/internal/persistence/archive"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "db":
			dbCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "log":
			logCmd(os.Args[2:])
			return
		case "runs":
			runsCmd(os.Args[2:])
			return
		}
	}
	runsCmd(os.Args[1:])
}

// runsCmd lists worlds, or the runs of one world with their seeds and digests.
func runsCmd(args []string) {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (optional)")
	_ = fs.Parse(args)

	if strings.TrimSpace(*worldID) == "" {
		entries, err := os.ReadDir(filepath.Join(*dataDir, "worlds"))
		if err != nil {
			fmt.Fprintln(os.Stderr, "read:", err)
			os.Exit(1)
		}
		for _, e := range entries {
			if e.IsDir() {
				fmt.Println(e.Name())
			}
		}
		return
	}

	runs, err := archive.Runs(*dataDir, *worldID)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, id := range runs {
		m, err := archive.ReadRunMeta(archive.RunDir(*dataDir, *worldID, id))
		if err != nil {
			fmt.Printf("%s\t(unreadable: %v)\n", id, err)
			continue
		}
		fmt.Printf("%s\tseed=%d\troads=%d\ttuning=%.12s\tlayout=%.12s\n", id, m.Seed, len(m.Layout.Roads), m.TuningDigest, m.LayoutDigest)
	}
}

// resolveRunDir picks -run, else the latest run of -world.
func resolveRunDir(dataDir, worldID, runDir string) (string, error) {
	if d := strings.TrimSpace(runDir); d != "" {
		return d, nil
	}
	if strings.TrimSpace(worldID) == "" {
		return "", fmt.Errorf("missing -world or -run")
	}
	d := archive.LatestRun(dataDir, worldID)
	if d == "" {
		return "", fmt.Errorf("no runs for world %q under %s", worldID, dataDir)
	}
	return d, nil
}
