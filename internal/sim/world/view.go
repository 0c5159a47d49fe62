package world

import (
	"github.com/samber/lo"

	"trafficgrid.ai/internal/sim/geom"
)

// View is what a car perceives in one decision: the sensing area, the cars
// inside it (own road plus cross traffic inside junctions it sees) and the
// zones of its own road it overlaps.
type View struct {
	Area          geom.Rect
	Cars          []*Car
	Intersections []*Intersection
}

// sensingArea extends the car rect FRONT ahead, BACK behind and SIDE to both sides.
func sensingArea(r geom.Rect, dir geom.Direction, p *ProtocolConfig) geom.Rect {
	f, b, s := p.FrontViewDistance, p.BackViewDistance, p.SideViewDistance
	switch dir {
	case geom.DirUp:
		return geom.R(r.X-s, r.Y-f, r.W+2*s, f+r.H+b)
	case geom.DirDown:
		return geom.R(r.X-s, r.Y-b, r.W+2*s, b+r.H+f)
	case geom.DirLeft:
		return geom.R(r.X-f, r.Y-s, f+r.W+b, r.H+2*s)
	default:
		return geom.R(r.X-b, r.Y-s, b+r.W+f, r.H+2*s)
	}
}

func (c *Car) look(p *ProtocolConfig) View {
	area := sensingArea(c.rect, c.dir, p)
	v := View{Area: area}
	v.Intersections = lo.Filter(c.road.intersections, func(in *Intersection, _ int) bool {
		return geom.Intersects(in.rect, area)
	})
	v.Cars = lo.Filter(c.road.cars, func(o *Car, _ int) bool {
		return o != c && geom.Intersects(o.rect, area)
	})
	for _, in := range v.Intersections {
		if in.kind != KindCar || in.otherRoad == nil {
			continue
		}
		for _, o := range in.otherRoad.cars {
			if geom.Intersects(o.rect, area) && !lo.Contains(v.Cars, o) {
				v.Cars = append(v.Cars, o)
			}
		}
	}
	return v
}

func (v View) AnyCarIn(r geom.Rect) bool {
	return lo.ContainsBy(v.Cars, func(o *Car) bool { return geom.Intersects(o.rect, r) })
}

func (v View) AnyIntersectionIn(r geom.Rect) bool {
	return v.IntersectionAt(r) != nil
}

// IntersectionAt returns the first perceived zone overlapping r.
func (v View) IntersectionAt(r geom.Rect) *Intersection {
	in, ok := lo.Find(v.Intersections, func(in *Intersection) bool { return geom.Intersects(in.rect, r) })
	if !ok {
		return nil
	}
	return in
}
