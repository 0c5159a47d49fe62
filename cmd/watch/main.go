package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"trafficgrid.ai/internal/observerproto"
)

func main() {
	var (
		addr  = flag.String("addr", "http://localhost:8080", "server base url")
		every = flag.Int("every", 200, "print one line per N ticks")
		limit = flag.Int("max", 0, "exit after N messages (0 = run until interrupted)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[watch] ", log.LstdFlags|log.Lmicroseconds)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := watch(ctx, *addr, *every, *limit, os.Stdout, logger); err != nil && ctx.Err() == nil {
		logger.Fatalf("%v", err)
	}
}

func fetchBootstrap(ctx context.Context, base string) (observerproto.BootstrapResponse, error) {
	var boot observerproto.BootstrapResponse
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(base, "/")+"/admin/v1/observer/bootstrap", nil)
	if err != nil {
		return boot, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return boot, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return boot, fmt.Errorf("bootstrap: status %d", resp.StatusCode)
	}
	err = json.NewDecoder(resp.Body).Decode(&boot)
	return boot, err
}

func wsURL(base string) string {
	u := strings.TrimRight(base, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/admin/v1/observer/ws"
}

// watch prints the grid once, then one summary line per received TICK.
func watch(ctx context.Context, base string, every, limit int, out io.Writer, logger *log.Logger) error {
	boot, err := fetchBootstrap(ctx, base)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "world=%s tick=%d rate=%dHz seed=%d roads=%d\n",
		boot.WorldID, boot.Tick, boot.WorldParams.TickRateHz, boot.WorldParams.Seed, len(boot.Roads))
	for _, r := range boot.Roads {
		fmt.Fprintf(out, "  road %d %q rect=%v lanes=%d intersections=%d\n", r.ID, r.Name, r.Rect, len(r.Lanes), len(r.Intersections))
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL(base), nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	sub := observerproto.SubscribeMsg{Type: "SUBSCRIBE", ProtocolVersion: observerproto.Version, EveryTicks: every}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("send SUBSCRIBE: %w", err)
	}

	seen := 0
	for limit <= 0 || seen < limit {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var tm observerproto.TickMsg
		if err := json.Unmarshal(msg, &tm); err != nil || tm.Type != "TICK" {
			logger.Printf("skip message: %.80s", msg)
			continue
		}
		seen++
		fmt.Fprintln(out, summarize(tm))
	}
	return nil
}

func summarize(tm observerproto.TickMsg) string {
	states := map[string]int{}
	for _, c := range tm.Cars {
		states[c.State]++
	}
	busy := 0
	for _, o := range tm.Occupied {
		busy += len(o.Cars)
	}
	return fmt.Sprintf("tick=%d cars=%d +%d -%d stopsign=%d crossing=%d occupied=%d",
		tm.Tick, len(tm.Cars), len(tm.Spawns), len(tm.Despawns), states["STOPSIGN"], states["INTERSECTION"], busy)
}
