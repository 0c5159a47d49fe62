package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"trafficgrid.ai/internal/sim/world"
)

// Options tunes file rotation. The zero value rotates hourly.
type Options struct {
	// RotateLayout is a time layout; a new file starts whenever the formatted
	// UTC time changes.
	RotateLayout string
	// OnClose is called with the path of each segment after it is closed.
	OnClose func(path string)
}

type JSONLZstdWriter struct {
	baseDir string
	prefix  string
	opts    Options

	mu     sync.Mutex
	curSeg string
	f      *os.File
	enc    *zstd.Encoder
	w      *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return NewJSONLZstdWriterWithOptions(baseDir, prefix, Options{})
}

func NewJSONLZstdWriterWithOptions(baseDir, prefix string, opts Options) *JSONLZstdWriter {
	if opts.RotateLayout == "" {
		opts.RotateLayout = "2006-01-02-15"
	}
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
		opts:    opts,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	seg := time.Now().UTC().Format(w.opts.RotateLayout)
	if seg != w.curSeg || w.f == nil {
		if err := w.rotateLocked(seg); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(seg string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	path := w.pathForSegment(seg)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.curSeg = seg
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	closed := ""
	if w.f != nil {
		closed = w.f.Name()
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	if closed != "" && w.opts.OnClose != nil {
		w.opts.OnClose(closed)
	}
	return err1
}

func (w *JSONLZstdWriter) pathForSegment(seg string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, seg))
}

// TickLogger writes tick entries with spawn/despawn events and digests (compressed).
type TickLogger struct{ w *JSONLZstdWriter }

func NewTickLogger(worldDir string) *TickLogger {
	return NewTickLoggerWithOptions(worldDir, Options{})
}

func NewTickLoggerWithOptions(worldDir string, opts Options) *TickLogger {
	return &TickLogger{w: NewJSONLZstdWriterWithOptions(filepath.Join(worldDir, "events"), "events", opts)}
}

func (l *TickLogger) WriteTick(v world.TickLogEntry) error { return l.w.Write(v) }
func (l *TickLogger) Close() error                         { return l.w.Close() }

// TripLogger writes one JSONL entry per despawned car (compressed).
type TripLogger struct{ w *JSONLZstdWriter }

func NewTripLogger(worldDir string) *TripLogger {
	return NewTripLoggerWithOptions(worldDir, Options{})
}

func NewTripLoggerWithOptions(worldDir string, opts Options) *TripLogger {
	return &TripLogger{w: NewJSONLZstdWriterWithOptions(filepath.Join(worldDir, "trips"), "trips", opts)}
}

func (l *TripLogger) WriteTrip(v world.TripEntry) error { return l.w.Write(v) }
func (l *TripLogger) Close() error                      { return l.w.Close() }
