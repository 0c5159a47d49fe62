package main

import (
	"bytes"
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"trafficgrid.ai/internal/observerproto"
	"trafficgrid.ai/internal/sim/layout"
	"trafficgrid.ai/internal/sim/world"
	"trafficgrid.ai/internal/transport/observer"
)

func TestWatch_PrintsBootstrapAndTicks(t *testing.T) {
	w, err := world.New(world.DefaultConfig("watch", 3))
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	if err := layout.Build(w, layout.Default()); err != nil {
		t.Fatalf("build: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	obs := observer.NewServer(w, nil)
	mux := http.NewServeMux()
	mux.HandleFunc("/admin/v1/observer/bootstrap", obs.BootstrapHandler())
	mux.HandleFunc("/admin/v1/observer/ws", obs.WSHandler())
	srv := httptest.NewServer(mux)
	defer srv.Close()

	wctx, wcancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer wcancel()
	var out bytes.Buffer
	if err := watch(wctx, srv.URL, 5, 3, &out, log.New(io.Discard, "", 0)); err != nil {
		t.Fatalf("watch: %v", err)
	}
	s := out.String()
	if !strings.Contains(s, "world=watch") || strings.Count(s, "  road ") != 4 {
		t.Fatalf("bootstrap output:\n%s", s)
	}
	if strings.Count(s, "tick=") != 4 {
		t.Fatalf("expected header plus 3 tick lines:\n%s", s)
	}
}

func TestWSURL(t *testing.T) {
	cases := map[string]string{
		"http://localhost:8080": "ws://localhost:8080/admin/v1/observer/ws",
		"https://grid.example/": "wss://grid.example/admin/v1/observer/ws",
	}
	for in, want := range cases {
		if got := wsURL(in); got != want {
			t.Fatalf("wsURL(%q)=%q want %q", in, got, want)
		}
	}
}

func TestSummarize(t *testing.T) {
	tm := observerproto.TickMsg{
		Tick:     40,
		Cars:     []observerproto.CarState{{ID: "C1", State: "STOPSIGN"}, {ID: "C2", State: "NORMAL"}},
		Spawns:   []observerproto.CarRef{{CarID: "C2"}},
		Occupied: []observerproto.Occupancy{{Cars: []string{"C1"}}},
	}
	got := summarize(tm)
	want := "tick=40 cars=2 +1 -0 stopsign=1 crossing=0 occupied=1"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
