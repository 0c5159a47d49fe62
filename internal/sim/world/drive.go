package world

import "trafficgrid.ai/internal/sim/geom"

type SideAdjustResult uint8

const (
	SideAdjustUnsupported SideAdjustResult = iota
)

// decide runs one pass of the driving protocol and dispatches the throttle.
func (c *Car) decide(p *ProtocolConfig, w *World) {
	v := c.look(p)
	var clear bool
	switch c.state {
	case StateStopSign:
		clear = c.stopSign(v, p)
	case StateIntersection:
		clear = c.crossing(v, p, w)
	default:
		clear = c.cruise(v, p)
	}
	if clear {
		c.accelerate()
		return
	}
	c.decelerate()
}

// cruise is NORMAL: follow the car ahead, switch to STOPSIGN when a zone
// enters the stopping distance.
func (c *Car) cruise(v View, p *ProtocolConfig) bool {
	eff := c.effectiveSpeed(p)
	if v.AnyCarIn(c.frontSpace(gap(p, eff, p.StoppedDistance))) {
		return false
	}
	if v.AnyIntersectionIn(c.frontSpace(gap(p, eff, p.IntersectionStopDistance))) {
		c.state = StateStopSign
		return false
	}
	return true
}

// stopSign creeps up to the zone and enters INTERSECTION once stopped at it.
func (c *Car) stopSign(v View, p *ProtocolConfig) bool {
	eff := c.effectiveSpeed(p)
	if v.AnyIntersectionIn(c.frontSpace(gap(p, eff, p.IntersectionStopDistance))) {
		if c.speed > 0 {
			return false
		}
		c.state = StateIntersection
		c.restartStall()
		return true
	}
	return !v.AnyCarIn(c.frontSpace(gap(p, eff, p.StoppedDistance)))
}

// crossing is INTERSECTION: yield to same-road cars ahead and to moving cross
// traffic, return to NORMAL once no zone is just ahead.
func (c *Car) crossing(v View, p *ProtocolConfig, w *World) bool {
	near := c.nearSpace(p.IntersectionStopDistance)
	ahead := v.IntersectionAt(near)
	if ahead == nil {
		c.state = StateNormal
		return true
	}

	eff := c.effectiveSpeed(p)
	ext := c.frontSpace(gap(p, eff, p.StoppedDistance) + c.length() + p.StoppedDistance)
	for _, o := range c.road.cars {
		if o == c || !geom.Intersects(o.rect, ext) {
			continue
		}
		if c.StallSeconds(w.cfg.TickRateHz) > p.StallLimitSeconds {
			w.sideAdjustsThisTick++
			if c.sideAdjust(o) == SideAdjustUnsupported {
				return false
			}
			continue
		}
		return false
	}

	if ahead.kind != KindCar || ahead.otherRoad == nil {
		return true
	}
	for _, o := range ahead.otherRoad.cars {
		if o.speed > 0 && geom.Intersects(o.rect, ahead.rect) {
			return false
		}
	}
	if paired := w.pairedRecord(ahead); paired != nil {
		approach := c.approachSpace(ahead.rect)
		for _, o := range paired.present {
			if o.speed > 0 && geom.Intersects(o.rect, approach) {
				return false
			}
		}
	}
	return true
}

// sideAdjust would steer around a blocker after a long stall. Lateral motion
// is not modelled, so the attempt is counted and the car keeps waiting.
func (c *Car) sideAdjust(_ *Car) SideAdjustResult {
	c.sideAdjusts++
	return SideAdjustUnsupported
}

// effectiveSpeed treats creeping as stopped.
func (c *Car) effectiveSpeed(p *ProtocolConfig) int {
	if c.speed <= p.CreepSpeed {
		return 0
	}
	return c.speed
}

// gap is the following distance at effective speed eff on top of base.
func gap(p *ProtocolConfig, eff, base int) int {
	return int(p.FollowingDistanceRatio*float64(eff)) + base
}

// length is the car's extent along its travel axis.
func (c *Car) length() int {
	if c.dir.Horizontal() {
		return c.rect.W
	}
	return c.rect.H
}

// frontSpace is the strip of the lane d deep in front of the car.
func (c *Car) frontSpace(d int) geom.Rect {
	l, r := c.lane.Rect, c.rect
	switch c.dir {
	case geom.DirUp:
		return geom.R(l.X, r.Y-d, l.W, d)
	case geom.DirDown:
		return geom.R(l.X, r.Bottom(), l.W, d)
	case geom.DirLeft:
		return geom.R(r.X-d, l.Y, d, l.H)
	default:
		return geom.R(r.Right(), l.Y, d, l.H)
	}
}

// nearSpace is d deep in front of the car, as wide as the car itself.
func (c *Car) nearSpace(d int) geom.Rect {
	r := c.rect
	switch c.dir {
	case geom.DirUp:
		return geom.R(r.X, r.Y-d, r.W, d)
	case geom.DirDown:
		return geom.R(r.X, r.Bottom(), r.W, d)
	case geom.DirLeft:
		return geom.R(r.X-d, r.Y, d, r.H)
	default:
		return geom.R(r.Right(), r.Y, d, r.H)
	}
}

// approachSpace spans the lane from the car's front to the far edge of zone.
func (c *Car) approachSpace(zone geom.Rect) geom.Rect {
	l, r := c.lane.Rect, c.rect
	switch c.dir {
	case geom.DirUp:
		return geom.R(l.X, zone.Y, l.W, r.Y-zone.Y)
	case geom.DirDown:
		return geom.R(l.X, r.Bottom(), l.W, zone.Bottom()-r.Bottom())
	case geom.DirLeft:
		return geom.R(zone.X, l.Y, r.X-zone.X, l.H)
	default:
		return geom.R(r.Right(), l.Y, zone.Right()-r.Right(), l.H)
	}
}
