package world

import (
	"encoding/json"

	"trafficgrid.ai/internal/observerproto"
	"trafficgrid.ai/internal/sim/geom"
)

// ObserverJoinRequest registers a read-only observer session that receives
// one TICK message every EveryTicks ticks on TickOut.
//
// All observer state is maintained by the world loop goroutine.
type ObserverJoinRequest struct {
	SessionID  string
	TickOut    chan []byte
	EveryTicks int
}

// ObserverSubscribeRequest updates an existing observer session subscription settings.
type ObserverSubscribeRequest struct {
	SessionID  string
	EveryTicks int
}

type observerClient struct {
	id         string
	tickOut    chan []byte
	everyTicks int
}

func (w *World) handleObserverJoin(req ObserverJoinRequest) {
	if req.SessionID == "" || req.TickOut == nil {
		return
	}
	w.observers[req.SessionID] = &observerClient{
		id:         req.SessionID,
		tickOut:    req.TickOut,
		everyTicks: max(1, req.EveryTicks),
	}
}

func (w *World) handleObserverSubscribe(req ObserverSubscribeRequest) {
	c := w.observers[req.SessionID]
	if c == nil {
		return
	}
	c.everyTicks = max(1, req.EveryTicks)
}

func (w *World) handleObserverLeave(id string) {
	delete(w.observers, id)
}

func (w *World) stepObservers(nowTick uint64) {
	if len(w.observers) == 0 {
		return
	}
	var b []byte
	for _, c := range w.observers {
		if nowTick%uint64(c.everyTicks) != 0 {
			continue
		}
		if b == nil {
			var err error
			if b, err = json.Marshal(w.tickMsg(nowTick)); err != nil {
				return
			}
		}
		sendLatest(c.tickOut, b)
	}
}

func (w *World) tickMsg(nowTick uint64) observerproto.TickMsg {
	msg := observerproto.TickMsg{
		Type:            "TICK",
		ProtocolVersion: observerproto.Version,
		Tick:            nowTick,
		Cars:            []observerproto.CarState{},
	}
	for _, r := range w.roads {
		for _, c := range r.cars {
			msg.Cars = append(msg.Cars, observerproto.CarState{
				ID:    c.id,
				Road:  r.id,
				Lane:  c.lane.Index,
				Rect:  WireRect(c.rect),
				Dir:   c.dir.String(),
				Speed: c.speed,
				State: c.state.String(),
			})
		}
		for i, in := range r.intersections {
			if len(in.present) == 0 {
				continue
			}
			occ := observerproto.Occupancy{Road: r.id, Intersection: i}
			for _, c := range in.present {
				occ.Cars = append(occ.Cars, c.id)
			}
			msg.Occupied = append(msg.Occupied, occ)
		}
	}
	for _, s := range w.spawnsThisTick {
		msg.Spawns = append(msg.Spawns, observerproto.CarRef{CarID: s.CarID, Road: s.Road, Lane: s.Lane})
	}
	for _, d := range w.despawnsThisTick {
		msg.Despawns = append(msg.Despawns, observerproto.CarRef{CarID: d.CarID, Road: d.Road, Lane: d.Lane})
	}
	return msg
}

func WireRect(r geom.Rect) observerproto.Rect {
	return observerproto.Rect{r.X, r.Y, r.W, r.H}
}

// Bootstrap describes the static layout for a new observer.
func Bootstrap(s Snapshot, cfg WorldConfig) observerproto.BootstrapResponse {
	resp := observerproto.BootstrapResponse{
		ProtocolVersion: observerproto.Version,
		WorldID:         cfg.ID,
		Tick:            s.Tick,
		WorldParams: observerproto.WorldParams{
			TickRateHz: cfg.TickRateHz,
			Seed:       cfg.Seed,
			CarLength:  cfg.CarLength,
			CarWidth:   cfg.CarWidth,
			StepCM:     cfg.StepCM,
		},
		Bounds: WireRect(s.Bounds),
		Roads:  make([]observerproto.RoadInfo, 0, len(s.Roads)),
	}
	for _, r := range s.Roads {
		ri := observerproto.RoadInfo{
			ID:         r.ID,
			Name:       r.Name,
			Rect:       WireRect(r.Rect),
			SpeedLimit: r.SpeedLimit,
		}
		for _, l := range r.Lanes {
			ri.Lanes = append(ri.Lanes, observerproto.LaneInfo{
				Index: l.Index,
				Rect:  WireRect(l.Rect),
				Dir:   l.Dir.String(),
				End1:  l.End1,
				End2:  l.End2,
			})
		}
		for _, in := range r.Intersections {
			ri.Intersections = append(ri.Intersections, observerproto.IntersectionInfo{
				Kind:       in.Kind,
				Rect:       WireRect(in.Rect),
				StopSign:   in.StopSign,
				JunctionID: in.JunctionID,
				OtherRoad:  in.OtherRoad,
			})
		}
		resp.Roads = append(resp.Roads, ri)
	}
	return resp
}
