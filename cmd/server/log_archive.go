package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"trafficgrid.ai/internal/persistence/archive"
	"trafficgrid.ai/internal/persistence/r2s3"
)

// logArchive uploads closed log segments and the run manifest to object storage.
type logArchive struct {
	enabled      bool
	rotateLayout string
	prefix       string
	client       *r2s3.Client
	archiver     *r2s3.Archiver
}

func buildLogArchive(dataDir string, logger *log.Logger) (*logArchive, error) {
	if !envBool("TG_R2_ARCHIVE", false) {
		return &logArchive{}, nil
	}

	cfg := r2s3.Config{
		Endpoint:        os.Getenv("TG_R2_ENDPOINT"),
		Bucket:          os.Getenv("TG_R2_BUCKET"),
		AccessKeyID:     os.Getenv("TG_R2_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("TG_R2_SECRET_ACCESS_KEY"),
		Region:          os.Getenv("TG_R2_REGION"),
	}
	client, err := r2s3.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("TG_R2_ARCHIVE=true: %w", err)
	}
	prefix := strings.Trim(strings.TrimSpace(os.Getenv("TG_R2_PREFIX")), "/")
	return &logArchive{
		enabled:      true,
		rotateLayout: "2006-01-02-15-04", // 1-minute segments to lower RPO.
		prefix:       prefix,
		client:       client,
		archiver: r2s3.NewArchiver(client, dataDir, r2s3.ArchiverOptions{
			Prefix:  prefix,
			Workers: envInt("TG_R2_UPLOAD_WORKERS", 2),
			Logger:  logger,
		}),
	}, nil
}

func (a *logArchive) Enqueue(localPath string) {
	if a == nil || !a.enabled {
		return
	}
	a.archiver.Enqueue(localPath)
}

// PutManifest uploads run.json next to the run's archived segments.
func (a *logArchive) PutManifest(ctx context.Context, dataDir, runDir string, m archive.RunMeta) error {
	if a == nil || !a.enabled {
		return nil
	}
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(dataDir, filepath.Join(runDir, archive.RunMetaFile))
	if err != nil {
		return err
	}
	key := filepath.ToSlash(rel)
	if a.prefix != "" {
		key = path.Join(a.prefix, key)
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return a.client.PutBytes(ctx, key, b, "application/json")
}

func (a *logArchive) Stats() (r2s3.Stats, bool) {
	if a == nil || !a.enabled {
		return r2s3.Stats{}, false
	}
	return a.archiver.Stats(), true
}

func (a *logArchive) Close() {
	if a == nil || !a.enabled {
		return
	}
	a.archiver.Close()
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
