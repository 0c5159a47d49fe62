package r2s3

import (
	"context"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type Stats struct {
	QueueDepth      int    `json:"queue_depth"`
	QueueCapacity   int    `json:"queue_capacity"`
	EnqueuedTotal   uint64 `json:"enqueued_total"`
	DroppedTotal    uint64 `json:"dropped_total"`
	UploadedTotal   uint64 `json:"uploaded_total"`
	UploadFailTotal uint64 `json:"upload_fail_total"`
	LastSuccessUnix int64  `json:"last_success_unix"`
	LastErrorUnix   int64  `json:"last_error_unix"`
}

type Uploader interface {
	PutFile(ctx context.Context, objectKey, localPath string) error
}

// Archiver uploads closed log segments in the background. Object keys mirror
// the segment's path relative to the data dir, under an optional prefix.
type Archiver struct {
	up      Uploader
	dataDir string
	prefix  string
	logger  *log.Logger

	jobs        chan string
	enqueueWait time.Duration
	backoff     time.Duration
	wg          sync.WaitGroup
	closeOnce   sync.Once

	enqueued    atomic.Uint64
	dropped     atomic.Uint64
	uploaded    atomic.Uint64
	uploadFail  atomic.Uint64
	lastSuccess atomic.Int64
	lastError   atomic.Int64
}

type ArchiverOptions struct {
	Prefix        string
	Workers       int
	QueueCapacity int
	EnqueueWait   time.Duration
	Logger        *log.Logger
}

func NewArchiver(up Uploader, dataDir string, opts ArchiverOptions) *Archiver {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueCapacity <= 0 {
		opts.QueueCapacity = 1024
	}
	if opts.EnqueueWait <= 0 {
		opts.EnqueueWait = 25 * time.Millisecond
	}
	a := &Archiver{
		up:          up,
		dataDir:     dataDir,
		prefix:      strings.Trim(strings.ReplaceAll(opts.Prefix, "\\", "/"), "/"),
		logger:      opts.Logger,
		jobs:        make(chan string, opts.QueueCapacity),
		enqueueWait: opts.EnqueueWait,
		backoff:     200 * time.Millisecond,
	}
	for i := 0; i < opts.Workers; i++ {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			for p := range a.jobs {
				a.uploadOne(p)
			}
		}()
	}
	return a
}

// Enqueue schedules localPath for upload. It waits at most EnqueueWait for
// queue space, since it runs on the log writer's close path.
func (a *Archiver) Enqueue(localPath string) {
	if a == nil {
		return
	}
	a.enqueued.Add(1)
	select {
	case a.jobs <- localPath:
		return
	default:
	}
	timer := time.NewTimer(a.enqueueWait)
	defer timer.Stop()
	select {
	case a.jobs <- localPath:
	case <-timer.C:
		n := a.dropped.Add(1)
		a.printf("archive drop local=%s reason=queue_saturated dropped_total=%d", localPath, n)
	}
}

// Close drains the queue and waits for in-flight uploads.
func (a *Archiver) Close() {
	if a == nil {
		return
	}
	a.closeOnce.Do(func() {
		close(a.jobs)
		a.wg.Wait()
	})
}

func (a *Archiver) Stats() Stats {
	if a == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:      len(a.jobs),
		QueueCapacity:   cap(a.jobs),
		EnqueuedTotal:   a.enqueued.Load(),
		DroppedTotal:    a.dropped.Load(),
		UploadedTotal:   a.uploaded.Load(),
		UploadFailTotal: a.uploadFail.Load(),
		LastSuccessUnix: a.lastSuccess.Load(),
		LastErrorUnix:   a.lastError.Load(),
	}
}

func (a *Archiver) uploadOne(localPath string) {
	key, err := a.ObjectKey(localPath)
	if err != nil {
		a.printf("archive skip local=%s err=%v", localPath, err)
		return
	}
	if err := a.uploadWithRetry(key, localPath); err != nil {
		a.uploadFail.Add(1)
		a.lastError.Store(time.Now().UTC().Unix())
		a.printf("archive upload failed key=%s err=%v", key, err)
		return
	}
	a.uploaded.Add(1)
	a.lastSuccess.Store(time.Now().UTC().Unix())
}

func (a *Archiver) uploadWithRetry(key, localPath string) error {
	const maxAttempts = 4
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		err := a.up.PutFile(ctx, key, localPath)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt < maxAttempts {
			time.Sleep(time.Duration(attempt*attempt) * a.backoff)
		}
	}
	return lastErr
}

// ObjectKey maps a file under the data dir to its bucket key.
func (a *Archiver) ObjectKey(localPath string) (string, error) {
	if localPath == "" {
		return "", fmt.Errorf("empty local path")
	}
	if _, err := os.Stat(localPath); err != nil {
		return "", err
	}
	absBase, err := filepath.Abs(a.dataDir)
	if err != nil {
		return "", err
	}
	absLocal, err := filepath.Abs(localPath)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(absBase, absLocal)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("path %s is outside data dir %s", absLocal, absBase)
	}
	if a.prefix != "" {
		rel = path.Join(a.prefix, rel)
	}
	return rel, nil
}

func (a *Archiver) printf(format string, args ...any) {
	if a.logger != nil {
		a.logger.Printf(format, args...)
	}
}
