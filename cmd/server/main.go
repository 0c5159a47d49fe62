package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"trafficgrid.ai/internal/persistence/archive"
	"trafficgrid.ai/internal/persistence/indexdb"
	persistlog "trafficgrid.ai/internal/persistence/log"
	"trafficgrid.ai/internal/sim/layout"
	"trafficgrid.ai/internal/sim/tuning"
	"trafficgrid.ai/internal/sim/world"
	"trafficgrid.ai/internal/transport/observer"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		worldID    = flag.String("world", "grid_1", "world id")
		seed       = flag.Int64("seed", 1337, "world seed")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		layoutPath = flag.String("layout", "", "path to layout.yaml (default: <configs>/layout.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable indexing (ticks, trips, configs)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	lp := strings.TrimSpace(*layoutPath)
	if lp == "" {
		lp = filepath.Join(*configDir, "layout.yaml")
	}
	lay, err := layout.Load(lp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load layout: %v", err)
		}
		logger.Printf("layout not found (%s); using the default grid", lp)
		lay = layout.Default()
	}

	w, err := world.New(world.ConfigFromTuning(*worldID, *seed, tune))
	if err != nil {
		logger.Fatalf("world: %v", err)
	}
	if err := layout.Build(w, lay); err != nil {
		logger.Fatalf("build layout: %v", err)
	}

	started := time.Now()
	runID := archive.NewRunID(started)
	runDir := archive.RunDir(*dataDir, *worldID, runID)
	meta := archive.RunMeta{
		WorldID:      *worldID,
		RunID:        runID,
		Seed:         *seed,
		StartedAt:    started.UTC().Format(time.RFC3339Nano),
		TuningDigest: tuningDigest(tune),
		LayoutDigest: lay.Digest(),
		Tuning:       tune,
		Layout:       lay,
	}
	if err := archive.WriteRunMeta(runDir, meta); err != nil {
		logger.Fatalf("write run meta: %v", err)
	}

	// Optional: read-model index backend (does not affect sim determinism).
	idx, err := openRuntimeIndex(runDir, *worldID, *disableDB, logger)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertConfigs(tune, lay); err != nil {
			logger.Printf("index backend: upsert configs: %v", err)
		}
	}

	logArch, err := buildLogArchive(*dataDir, logger)
	if err != nil {
		logger.Fatalf("init log archive: %v", err)
	}
	defer logArch.Close()

	ctx, cancel := signalContext()
	defer cancel()

	if err := logArch.PutManifest(ctx, *dataDir, runDir, meta); err != nil {
		logger.Printf("log archive: put manifest: %v", err)
	}

	logOpts := persistlog.Options{}
	if logArch.enabled {
		logOpts.RotateLayout = logArch.rotateLayout
		logOpts.OnClose = logArch.Enqueue
	}
	tickLog := persistlog.NewTickLoggerWithOptions(runDir, logOpts)
	tripLog := persistlog.NewTripLoggerWithOptions(runDir, logOpts)
	defer tickLog.Close()
	defer tripLog.Close()

	sinks := logSinks{tick: tickLog, trip: tripLog, index: idx}
	w.SetTickLogger(sinks)
	w.SetTripLogger(sinks)

	worldDone := make(chan struct{})
	go func() {
		defer close(worldDone)
		if err := w.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("world stopped: %v", err)
		}
	}()

	mux := newMux(serverDeps{
		worldID:         *worldID,
		world:           w,
		index:           idx,
		archive:         logArch,
		logger:          logger,
		enableAdmin:     envBool("TG_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP()),
		enablePprof:     envBool("TG_ENABLE_PPROF_HTTP", false),
		remoteObservers: envBool("TG_OBSERVER_ALLOW_REMOTE", false),
	})

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("world=%s run=%s seed=%d roads=%d junctions=%d", *worldID, runID, *seed, len(w.Roads()), w.Junctions())
	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
	// Let the world loop finish its last tick before the loggers close.
	<-worldDone
}

type serverDeps struct {
	worldID string
	world   *world.World
	index   indexdb.Index
	archive *logArchive
	logger  *log.Logger

	enableAdmin     bool
	enablePprof     bool
	remoteObservers bool
}

func newMux(d serverDeps) *http.ServeMux {
	w := d.world
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeWorldMetrics(rw, d.worldID, w.Metrics())
		if d.index != nil {
			writeIndexMetrics(rw, d.index.Stats())
		}
		if s, ok := d.archive.Stats(); ok {
			writeArchiveMetrics(rw, s)
		}
	})

	if d.enableAdmin {
		// Local-only admin endpoints (do not affect simulation determinism).
		mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			resp := struct {
				WorldID  string             `json:"world_id"`
				Tick     uint64             `json:"tick"`
				Metrics  world.WorldMetrics `json:"metrics"`
				Snapshot world.Snapshot     `json:"snapshot"`
			}{
				WorldID:  d.worldID,
				Tick:     w.CurrentTick(),
				Metrics:  w.Metrics(),
				Snapshot: w.Snapshot(),
			}
			_ = json.NewEncoder(rw).Encode(resp)
		})

		obsSrv := observer.NewServer(w, d.logger)
		obsSrv.AllowRemote = d.remoteObservers
		mux.HandleFunc("/admin/v1/observer/bootstrap", obsSrv.BootstrapHandler())
		mux.HandleFunc("/admin/v1/observer/ws", obsSrv.WSHandler())
	} else if d.logger != nil {
		d.logger.Printf("admin endpoints disabled (TG_ENABLE_ADMIN_HTTP=false)")
	}
	if d.enablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	return mux
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func tuningDigest(t tuning.Tuning) string {
	b, _ := json.Marshal(t)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

// logSinks fans tick and trip entries out to the JSONL logs and the index.
type logSinks struct {
	tick  world.TickLogger
	trip  world.TripLogger
	index indexdb.Index
}

func (s logSinks) WriteTick(entry world.TickLogEntry) error {
	if s.tick != nil {
		_ = s.tick.WriteTick(entry)
	}
	if s.index != nil {
		_ = s.index.WriteTick(entry)
	}
	return nil
}

func (s logSinks) WriteTrip(entry world.TripEntry) error {
	if s.trip != nil {
		_ = s.trip.WriteTrip(entry)
	}
	if s.index != nil {
		_ = s.index.WriteTrip(entry)
	}
	return nil
}
