package world

import "trafficgrid.ai/internal/sim/geom"

// Snapshot is an immutable copy of the world published after every tick.
type Snapshot struct {
	WorldID string         `json:"world_id"`
	Tick    uint64         `json:"tick"`
	Bounds  geom.Rect      `json:"bounds"`
	Roads   []RoadSnapshot `json:"roads"`
}

type RoadSnapshot struct {
	ID            int                    `json:"id"`
	Name          string                 `json:"name"`
	Rect          geom.Rect              `json:"rect"`
	SpeedLimit    int                    `json:"speed_limit"`
	Lanes         []LaneSnapshot         `json:"lanes"`
	Intersections []IntersectionSnapshot `json:"intersections"`
	Cars          []CarSnapshot          `json:"cars"`
}

type LaneSnapshot struct {
	Index    int            `json:"index"`
	Rect     geom.Rect      `json:"rect"`
	Dir      geom.Direction `json:"dir"`
	End1     string         `json:"end1"`
	End2     string         `json:"end2"`
	End1Rect geom.Rect      `json:"end1_rect"`
	End2Rect geom.Rect      `json:"end2_rect"`
}

type IntersectionSnapshot struct {
	Kind       string    `json:"kind"`
	Rect       geom.Rect `json:"rect"`
	StopSign   bool      `json:"stop_sign"`
	JunctionID int       `json:"junction_id,omitempty"`
	OtherRoad  int       `json:"other_road,omitempty"`
	Present    []string  `json:"present,omitempty"`
}

type CarSnapshot struct {
	ID       string         `json:"id"`
	Lane     int            `json:"lane"`
	Rect     geom.Rect      `json:"rect"`
	Dir      geom.Direction `json:"dir"`
	Speed    int            `json:"speed"`
	State    string         `json:"state"`
	Throttle string         `json:"throttle"`
}

// Snapshot returns the state as of the end of the last completed tick.
func (w *World) Snapshot() Snapshot {
	if w == nil {
		return Snapshot{}
	}
	s := w.snapshot.Load()
	if s == nil {
		return Snapshot{}
	}
	return *s
}

// publishSnapshot builds a fresh snapshot; it never shares slices with live state.
func (w *World) publishSnapshot(tick uint64) {
	s := &Snapshot{WorldID: w.cfg.ID, Tick: tick, Bounds: w.Bounds()}
	s.Roads = make([]RoadSnapshot, 0, len(w.roads))
	for _, r := range w.roads {
		rs := RoadSnapshot{
			ID:         r.id,
			Name:       r.name,
			Rect:       r.rect,
			SpeedLimit: r.speedLimit,
		}
		for _, l := range r.lanes {
			rs.Lanes = append(rs.Lanes, LaneSnapshot{
				Index:    l.Index,
				Rect:     l.Rect,
				Dir:      l.Dir,
				End1:     l.End1.Kind.String(),
				End2:     l.End2.Kind.String(),
				End1Rect: l.End1.Rect,
				End2Rect: l.End2.Rect,
			})
		}
		for _, in := range r.intersections {
			is := IntersectionSnapshot{
				Kind:       in.kind.String(),
				Rect:       in.rect,
				StopSign:   in.stopSign,
				JunctionID: in.junctionID,
			}
			if in.otherRoad != nil {
				is.OtherRoad = in.otherRoad.id
			}
			for _, c := range in.present {
				is.Present = append(is.Present, c.id)
			}
			rs.Intersections = append(rs.Intersections, is)
		}
		rs.Cars = make([]CarSnapshot, 0, len(r.cars))
		for _, c := range r.cars {
			rs.Cars = append(rs.Cars, CarSnapshot{
				ID:       c.id,
				Lane:     c.lane.Index,
				Rect:     c.rect,
				Dir:      c.dir,
				Speed:    c.speed,
				State:    c.state.String(),
				Throttle: c.throttle.String(),
			})
		}
		s.Roads = append(s.Roads, rs)
	}
	w.snapshot.Store(s)
}
