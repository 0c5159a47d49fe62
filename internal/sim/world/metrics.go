package world

// WorldMetrics is a thread-safe read-only view of key world runtime signals.
// It is updated from the world loop goroutine and read from HTTP handlers/tests.
type WorldMetrics struct {
	Tick uint64 `json:"tick"`

	Roads     int `json:"roads"`
	Junctions int `json:"junctions"`
	Cars      int `json:"cars"`
	Observers int `json:"observers"`

	// Cars per drive state.
	Normal       int `json:"normal"`
	StopSign     int `json:"stop_sign"`
	Intersection int `json:"intersection"`
	Stopped      int `json:"stopped"`

	QueueDepths QueueDepths `json:"queue_depths"`

	StepMS float64 `json:"step_ms"`

	StatsWindowTicks uint64      `json:"stats_window_ticks"`
	StatsWindow      StatsBucket `json:"stats_window"`
}

type QueueDepths struct {
	ObserverJoin  int `json:"observer_join"`
	ObserverSub   int `json:"observer_sub"`
	ObserverLeave int `json:"observer_leave"`
}

func (w *World) Metrics() WorldMetrics {
	if w == nil {
		return WorldMetrics{}
	}
	v := w.metrics.Load()
	if v == nil {
		return WorldMetrics{}
	}
	m, ok := v.(WorldMetrics)
	if !ok {
		return WorldMetrics{}
	}
	return m
}
