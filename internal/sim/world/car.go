package world

import (
	"github.com/samber/lo"

	"trafficgrid.ai/internal/sim/geom"
)

type DriveState uint8

const (
	StateNormal DriveState = iota
	StateStopSign
	StateIntersection
)

func (s DriveState) String() string {
	switch s {
	case StateStopSign:
		return "STOPSIGN"
	case StateIntersection:
		return "INTERSECTION"
	default:
		return "NORMAL"
	}
}

// Throttle is the single active speed process. Accelerating and decelerating
// are mutually exclusive by construction.
type Throttle uint8

const (
	ThrottleIdle Throttle = iota
	ThrottleAccelerating
	ThrottleDecelerating
)

func (t Throttle) String() string {
	switch t {
	case ThrottleAccelerating:
		return "ACCEL"
	case ThrottleDecelerating:
		return "DECEL"
	default:
		return "IDLE"
	}
}

// Car is an autonomous vehicle bound to one lane of one road.
// Speed is in decimetres per second; positions are in centimetres.
type Car struct {
	id         string
	rect       geom.Rect
	dir        geom.Direction
	speed      int
	speedLimit int

	road         *Road
	lane         *Lane
	intersection *Intersection

	state         DriveState
	throttle      Throttle
	throttleTicks int
	travel        int

	stallRunning bool
	stallTicks   int

	spawnTick   uint64
	sideAdjusts int
	destroyed   bool
}

func (c *Car) ID() string                  { return c.id }
func (c *Car) Rect() geom.Rect             { return c.rect }
func (c *Car) Dir() geom.Direction         { return c.dir }
func (c *Car) Speed() int                  { return c.speed }
func (c *Car) SpeedLimit() int             { return c.speedLimit }
func (c *Car) Road() *Road                 { return c.road }
func (c *Car) Lane() *Lane                 { return c.lane }
func (c *Car) Intersection() *Intersection { return c.intersection }
func (c *Car) State() DriveState           { return c.state }
func (c *Car) Throttle() Throttle          { return c.throttle }
func (c *Car) SpawnTick() uint64           { return c.spawnTick }
func (c *Car) SideAdjusts() int            { return c.sideAdjusts }
func (c *Car) Destroyed() bool             { return c.destroyed }

// StallSeconds is the whole seconds elapsed since the stall timer last restarted.
func (c *Car) StallSeconds(tickRateHz int) int {
	if tickRateHz <= 0 {
		return 0
	}
	return c.stallTicks / tickRateHz
}

// SetState forces the protocol state. Used by scenario setups.
func (c *Car) SetState(s DriveState) {
	c.state = s
	if s == StateIntersection {
		c.restartStall()
	}
}

// SetSpeedLimit overrides the limit inherited from the road.
func (c *Car) SetSpeedLimit(v int) {
	c.speedLimit = max(v, 0)
	c.speed = lo.Clamp(c.speed, 0, c.speedLimit)
}

func (c *Car) accelerate() {
	if c.throttle != ThrottleAccelerating {
		c.throttle = ThrottleAccelerating
		c.throttleTicks = 0
	}
}

// decelerate engages braking; a stopped car just releases the throttle.
func (c *Car) decelerate() {
	if c.speed == 0 {
		c.throttle = ThrottleIdle
		return
	}
	if c.throttle != ThrottleDecelerating {
		c.throttle = ThrottleDecelerating
		c.throttleTicks = 0
	}
}

func (c *Car) restartStall() {
	c.stallRunning = true
	c.stallTicks = 0
}

// advance runs one tick of the speed and translate processes.
func (c *Car) advance(cfg *WorldConfig) {
	if c.destroyed {
		return
	}
	switch c.throttle {
	case ThrottleAccelerating:
		c.throttleTicks++
		if c.throttleTicks%cfg.AccelEveryTicks == 0 && c.speed < c.speedLimit {
			c.speed = lo.Clamp(c.speed+1, 0, c.speedLimit)
		}
	case ThrottleDecelerating:
		c.throttleTicks++
		if c.throttleTicks%cfg.DecelEveryTicks == 0 {
			c.speed = lo.Clamp(c.speed-1, 0, c.speedLimit)
			if c.speed == 0 {
				c.throttle = ThrottleIdle
			}
		}
	}

	// speed dm/s is 10*speed cm/s; one StepCM move per StepCM*rate accumulated.
	if c.speed > 0 {
		c.travel += 10 * c.speed
		threshold := cfg.StepCM * cfg.TickRateHz
		for c.travel >= threshold {
			c.move(cfg.StepCM)
			c.travel -= threshold
		}
	} else {
		c.travel = 0
	}

	if c.stallRunning {
		c.stallTicks++
	}
}

func (c *Car) move(cm int) {
	dx, dy := c.dir.Delta()
	c.rect = c.rect.Translate(dx*cm, dy*cm)
}

// updateIntersection registers c with the overlapping zone of its road whose
// centre is nearest its own, and deregisters it everywhere else.
func (c *Car) updateIntersection() {
	var best *Intersection
	bestD := 0
	for _, in := range c.road.intersections {
		if !geom.Intersects(in.rect, c.rect) {
			continue
		}
		d := geom.DistSq(in.rect, c.rect)
		if best == nil || d < bestD {
			best, bestD = in, d
		}
	}
	for _, in := range c.road.intersections {
		if in != best {
			in.deregister(c)
		}
	}
	if best != nil {
		best.register(c)
	}
	c.intersection = best
}
