package world

import "trafficgrid.ai/internal/sim/geom"

type IntersectionKind uint8

const (
	KindPlain IntersectionKind = iota
	KindCar
	KindCrosswalk
)

func (k IntersectionKind) String() string {
	switch k {
	case KindCar:
		return "CAR"
	case KindCrosswalk:
		return "CROSSWALK"
	default:
		return "PLAIN"
	}
}

// Intersection is a zone carved across a road. For KindCar, otherRoad and
// junctionID identify the crossing road and the shared junction; the crossing
// road owns a second record with the same junctionID.
type Intersection struct {
	kind     IntersectionKind
	rect     geom.Rect
	stopSign bool
	road     *Road

	otherRoad  *Road
	junctionID int

	// Cars of road currently overlapping the zone, in registration order.
	present []*Car
}

func (in *Intersection) Kind() IntersectionKind { return in.kind }
func (in *Intersection) Rect() geom.Rect        { return in.rect }
func (in *Intersection) StopSign() bool         { return in.stopSign }
func (in *Intersection) Road() *Road            { return in.road }
func (in *Intersection) OtherRoad() *Road       { return in.otherRoad }
func (in *Intersection) JunctionID() int        { return in.junctionID }

func (in *Intersection) Present() []*Car {
	out := make([]*Car, len(in.present))
	copy(out, in.present)
	return out
}

func (in *Intersection) Contains(c *Car) bool {
	for _, p := range in.present {
		if p == c {
			return true
		}
	}
	return false
}

func (in *Intersection) register(c *Car) {
	if !in.Contains(c) {
		in.present = append(in.present, c)
	}
}

func (in *Intersection) deregister(c *Car) {
	for i, p := range in.present {
		if p == c {
			in.present = append(in.present[:i], in.present[i+1:]...)
			return
		}
	}
}

// Junction correlates the two CarIntersection records of one physical crossing.
type Junction struct {
	ID      int
	Records [2]*Intersection
}

// Paired returns the record owned by the other road, or nil if rec is not part of j.
func (j *Junction) Paired(rec *Intersection) *Intersection {
	switch rec {
	case j.Records[0]:
		return j.Records[1]
	case j.Records[1]:
		return j.Records[0]
	}
	return nil
}
