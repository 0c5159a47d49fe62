package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"trafficgrid.ai/internal/persistence/indexdb"
)

func openRuntimeIndex(runDir, worldID string, disableDB bool, logger *log.Logger) (indexdb.Index, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("TG_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		return indexdb.OpenSQLite(filepath.Join(runDir, "index", "world.sqlite"))
	case "d1":
		endpoint := strings.TrimSpace(os.Getenv("TG_INDEX_D1_INGEST_URL"))
		token := strings.TrimSpace(os.Getenv("TG_INDEX_D1_TOKEN"))
		if endpoint == "" {
			return nil, fmt.Errorf("TG_INDEX_BACKEND=d1 but TG_INDEX_D1_INGEST_URL is empty")
		}
		return indexdb.OpenD1(indexdb.D1Config{
			Endpoint:      endpoint,
			Token:         token,
			WorldID:       worldID,
			BatchSize:     envInt("TG_INDEX_D1_BATCH_SIZE", 128),
			FlushInterval: time.Duration(envInt("TG_INDEX_D1_FLUSH_MS", 500)) * time.Millisecond,
			Logger:        logger,
		})
	default:
		return nil, fmt.Errorf("unsupported TG_INDEX_BACKEND: %s", backend)
	}
}
