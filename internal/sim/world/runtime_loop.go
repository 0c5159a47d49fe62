package world

import (
	"context"
	"time"
)

// Run drives Step at TickRateHz until ctx is done or Stop is called.
// Observer requests are applied between ticks.
func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.observerJoin:
			w.handleObserverJoin(req)
		case req := <-w.observerSub:
			w.handleObserverSubscribe(req)
		case id := <-w.observerLeave:
			w.handleObserverLeave(id)
		case <-ticker.C:
			w.Step()
		}
	}
}

func (w *World) Stop() { close(w.stop) }

// StepOnce advances the world by a single tick and returns the tick it ran
// and the resulting digest. Not safe while Run is active.
func (w *World) StepOnce() (tick uint64, digest string) {
	tick = w.tick.Load()
	w.Step()
	return tick, w.stateDigest(tick)
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
