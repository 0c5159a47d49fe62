package world

import "trafficgrid.ai/internal/sim/geom"

// EndKind is the behaviour attached to one end of a lane.
type EndKind uint8

const (
	EndEmpty EndKind = iota
	EndSpawner
	EndDespawner
)

func (k EndKind) String() string {
	switch k {
	case EndSpawner:
		return "SPAWNER"
	case EndDespawner:
		return "DESPAWNER"
	default:
		return "EMPTY"
	}
}

func ParseEndKind(s string) (EndKind, bool) {
	switch s {
	case "EMPTY", "":
		return EndEmpty, true
	case "SPAWNER":
		return EndSpawner, true
	case "DESPAWNER":
		return EndDespawner, true
	}
	return EndEmpty, false
}

// RoadEnd is the entry/exit zone at one end of a lane.
// spawner is set iff Kind == EndSpawner.
type RoadEnd struct {
	Rect    geom.Rect
	Kind    EndKind
	spawner *Spawner
}

func (e *RoadEnd) Spawner() *Spawner { return e.spawner }

// Lane is a one-way travel corridor. End1 sits nearer the road origin, End2 farther.
type Lane struct {
	Index int
	Rect  geom.Rect
	Dir   geom.Direction
	End1  RoadEnd
	End2  RoadEnd
}

func newLane(idx int, rect geom.Rect, dir geom.Direction, end1Len, end2Len int) *Lane {
	l := &Lane{Index: idx, Rect: rect, Dir: dir}
	if dir.Horizontal() {
		l.End1.Rect = geom.R(rect.X, rect.Y, end1Len, rect.H)
		l.End2.Rect = geom.R(rect.Right()-end2Len, rect.Y, end2Len, rect.H)
	} else {
		l.End1.Rect = geom.R(rect.X, rect.Y, rect.W, end1Len)
		l.End2.Rect = geom.R(rect.X, rect.Bottom()-end2Len, rect.W, end2Len)
	}
	return l
}

// Upstream returns the end traffic enters from.
func (l *Lane) Upstream() *RoadEnd {
	if l.Dir == geom.DirRight || l.Dir == geom.DirDown {
		return &l.End1
	}
	return &l.End2
}

// Downstream returns the end traffic leaves through.
func (l *Lane) Downstream() *RoadEnd {
	if l.Dir == geom.DirRight || l.Dir == geom.DirDown {
		return &l.End2
	}
	return &l.End1
}

// despawns reports whether r overlaps a despawner end of this lane.
func (l *Lane) despawns(r geom.Rect) bool {
	if l.End1.Kind == EndDespawner && geom.Intersects(r, l.End1.Rect) {
		return true
	}
	return l.End2.Kind == EndDespawner && geom.Intersects(r, l.End2.Rect)
}

// entryRect is where a new car is placed: flush with the entering edge,
// centred across the lane.
func (l *Lane) entryRect(length, width int) geom.Rect {
	switch l.Dir {
	case geom.DirUp:
		return geom.R(l.Rect.X+(l.Rect.W-width)/2, l.Rect.Bottom()-length, width, length)
	case geom.DirDown:
		return geom.R(l.Rect.X+(l.Rect.W-width)/2, l.Rect.Y, width, length)
	case geom.DirLeft:
		return geom.R(l.Rect.Right()-length, l.Rect.Y+(l.Rect.H-width)/2, length, width)
	default:
		return geom.R(l.Rect.X, l.Rect.Y+(l.Rect.H-width)/2, length, width)
	}
}
