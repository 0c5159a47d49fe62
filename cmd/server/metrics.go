package main

import (
	"fmt"
	"io"

	"trafficgrid.ai/internal/persistence/indexdb"
	"trafficgrid.ai/internal/persistence/r2s3"
	"trafficgrid.ai/internal/sim/world"
)

// writeWorldMetrics renders m in the Prometheus text exposition format.
func writeWorldMetrics(rw io.Writer, worldID string, m world.WorldMetrics) {
	fmt.Fprintf(rw, "# HELP trafficgrid_world_tick Current world tick.\n")
	fmt.Fprintf(rw, "# TYPE trafficgrid_world_tick gauge\n")
	fmt.Fprintf(rw, "trafficgrid_world_tick{world=%q} %d\n", worldID, m.Tick)

	fmt.Fprintf(rw, "# HELP trafficgrid_world_roads Roads in the network.\n")
	fmt.Fprintf(rw, "# TYPE trafficgrid_world_roads gauge\n")
	fmt.Fprintf(rw, "trafficgrid_world_roads{world=%q} %d\n", worldID, m.Roads)

	fmt.Fprintf(rw, "# HELP trafficgrid_world_junctions Road crossings.\n")
	fmt.Fprintf(rw, "# TYPE trafficgrid_world_junctions gauge\n")
	fmt.Fprintf(rw, "trafficgrid_world_junctions{world=%q} %d\n", worldID, m.Junctions)

	fmt.Fprintf(rw, "# HELP trafficgrid_world_cars Live cars.\n")
	fmt.Fprintf(rw, "# TYPE trafficgrid_world_cars gauge\n")
	fmt.Fprintf(rw, "trafficgrid_world_cars{world=%q} %d\n", worldID, m.Cars)

	fmt.Fprintf(rw, "# HELP trafficgrid_world_cars_by_state Live cars per drive state.\n")
	fmt.Fprintf(rw, "# TYPE trafficgrid_world_cars_by_state gauge\n")
	fmt.Fprintf(rw, "trafficgrid_world_cars_by_state{world=%q,state=%q} %d\n", worldID, "NORMAL", m.Normal)
	fmt.Fprintf(rw, "trafficgrid_world_cars_by_state{world=%q,state=%q} %d\n", worldID, "STOPSIGN", m.StopSign)
	fmt.Fprintf(rw, "trafficgrid_world_cars_by_state{world=%q,state=%q} %d\n", worldID, "INTERSECTION", m.Intersection)

	fmt.Fprintf(rw, "# HELP trafficgrid_world_cars_stopped Live cars at speed 0.\n")
	fmt.Fprintf(rw, "# TYPE trafficgrid_world_cars_stopped gauge\n")
	fmt.Fprintf(rw, "trafficgrid_world_cars_stopped{world=%q} %d\n", worldID, m.Stopped)

	fmt.Fprintf(rw, "# HELP trafficgrid_world_observers Connected observers.\n")
	fmt.Fprintf(rw, "# TYPE trafficgrid_world_observers gauge\n")
	fmt.Fprintf(rw, "trafficgrid_world_observers{world=%q} %d\n", worldID, m.Observers)

	fmt.Fprintf(rw, "# HELP trafficgrid_world_queue_depth Channel backlog depth.\n")
	fmt.Fprintf(rw, "# TYPE trafficgrid_world_queue_depth gauge\n")
	fmt.Fprintf(rw, "trafficgrid_world_queue_depth{world=%q,queue=%q} %d\n", worldID, "observer_join", m.QueueDepths.ObserverJoin)
	fmt.Fprintf(rw, "trafficgrid_world_queue_depth{world=%q,queue=%q} %d\n", worldID, "observer_sub", m.QueueDepths.ObserverSub)
	fmt.Fprintf(rw, "trafficgrid_world_queue_depth{world=%q,queue=%q} %d\n", worldID, "observer_leave", m.QueueDepths.ObserverLeave)

	fmt.Fprintf(rw, "# HELP trafficgrid_world_step_ms Last tick step duration in milliseconds.\n")
	fmt.Fprintf(rw, "# TYPE trafficgrid_world_step_ms gauge\n")
	fmt.Fprintf(rw, "trafficgrid_world_step_ms{world=%q} %.3f\n", worldID, m.StepMS)

	fmt.Fprintf(rw, "# HELP trafficgrid_stats_window Rolling window stats.\n")
	fmt.Fprintf(rw, "# TYPE trafficgrid_stats_window gauge\n")
	fmt.Fprintf(rw, "trafficgrid_stats_window{world=%q,metric=%q} %d\n", worldID, "spawns", m.StatsWindow.Spawns)
	fmt.Fprintf(rw, "trafficgrid_stats_window{world=%q,metric=%q} %d\n", worldID, "despawns", m.StatsWindow.Despawns)
	fmt.Fprintf(rw, "trafficgrid_stats_window{world=%q,metric=%q} %d\n", worldID, "blocked_spawns", m.StatsWindow.BlockedSpawns)
	fmt.Fprintf(rw, "trafficgrid_stats_window{world=%q,metric=%q} %d\n", worldID, "side_adjusts", m.StatsWindow.SideAdjusts)
	fmt.Fprintf(rw, "trafficgrid_stats_window{world=%q,metric=%q} %d\n", worldID, "car_ticks", m.StatsWindow.CarTicks)

	fmt.Fprintf(rw, "# HELP trafficgrid_stats_window_ticks Rolling window size in ticks.\n")
	fmt.Fprintf(rw, "# TYPE trafficgrid_stats_window_ticks gauge\n")
	fmt.Fprintf(rw, "trafficgrid_stats_window_ticks{world=%q} %d\n", worldID, m.StatsWindowTicks)
}

func writeIndexMetrics(rw io.Writer, s indexdb.Stats) {
	fmt.Fprintf(rw, "# HELP trafficgrid_index_queue_depth Index writer queue depth.\n")
	fmt.Fprintf(rw, "# TYPE trafficgrid_index_queue_depth gauge\n")
	fmt.Fprintf(rw, "trafficgrid_index_queue_depth %d\n", s.QueueDepth)

	fmt.Fprintf(rw, "# HELP trafficgrid_index_dropped_total Entries dropped because the index queue was full.\n")
	fmt.Fprintf(rw, "# TYPE trafficgrid_index_dropped_total counter\n")
	fmt.Fprintf(rw, "trafficgrid_index_dropped_total{kind=%q} %d\n", "tick", s.DropTickTotal)
	fmt.Fprintf(rw, "trafficgrid_index_dropped_total{kind=%q} %d\n", "trip", s.DropTripTotal)

	fmt.Fprintf(rw, "# HELP trafficgrid_index_flush_fail_total Failed remote index flushes.\n")
	fmt.Fprintf(rw, "# TYPE trafficgrid_index_flush_fail_total counter\n")
	fmt.Fprintf(rw, "trafficgrid_index_flush_fail_total %d\n", s.FlushFailTotal)
}

func writeArchiveMetrics(rw io.Writer, s r2s3.Stats) {
	fmt.Fprintf(rw, "# HELP trafficgrid_archive_queue_depth Log archive upload queue depth.\n")
	fmt.Fprintf(rw, "# TYPE trafficgrid_archive_queue_depth gauge\n")
	fmt.Fprintf(rw, "trafficgrid_archive_queue_depth %d\n", s.QueueDepth)

	fmt.Fprintf(rw, "# HELP trafficgrid_archive_uploaded_total Log segments uploaded.\n")
	fmt.Fprintf(rw, "# TYPE trafficgrid_archive_uploaded_total counter\n")
	fmt.Fprintf(rw, "trafficgrid_archive_uploaded_total %d\n", s.UploadedTotal)

	fmt.Fprintf(rw, "# HELP trafficgrid_archive_upload_fail_total Log segments that failed after retry.\n")
	fmt.Fprintf(rw, "# TYPE trafficgrid_archive_upload_fail_total counter\n")
	fmt.Fprintf(rw, "trafficgrid_archive_upload_fail_total %d\n", s.UploadFailTotal)

	fmt.Fprintf(rw, "# HELP trafficgrid_archive_dropped_total Log segments dropped because the queue stayed full.\n")
	fmt.Fprintf(rw, "# TYPE trafficgrid_archive_dropped_total counter\n")
	fmt.Fprintf(rw, "trafficgrid_archive_dropped_total %d\n", s.DroppedTotal)

	fmt.Fprintf(rw, "# HELP trafficgrid_archive_last_success_unix Unix time of the last upload.\n")
	fmt.Fprintf(rw, "# TYPE trafficgrid_archive_last_success_unix gauge\n")
	fmt.Fprintf(rw, "trafficgrid_archive_last_success_unix %d\n", s.LastSuccessUnix)
}
