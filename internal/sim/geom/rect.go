// Package geom holds the integer axis-aligned geometry shared by every spatial
// query in the simulation. All coordinates are centimeters.
package geom

// Rect is an axis-aligned box. X/Y is the top-left corner; W/H extend right and down.
type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Vec is a translation in centimeters.
type Vec struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func R(x, y, w, h int) Rect { return Rect{X: x, Y: y, W: w, H: h} }

func (r Rect) Right() int  { return r.X + r.W }
func (r Rect) Bottom() int { return r.Y + r.H }

// Empty reports whether r covers no area. Empty rects never intersect anything.
func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

// Center returns the center point, rounded toward the top-left.
func (r Rect) Center() (int, int) {
	return r.X + r.W/2, r.Y + r.H/2
}

func (r Rect) Translate(dx, dy int) Rect {
	r.X += dx
	r.Y += dy
	return r
}

// Intersects reports whether a and b share interior area. Touching edges do not count.
func Intersects(a, b Rect) bool {
	if a.Empty() || b.Empty() {
		return false
	}
	if a.X >= b.Right() || b.X >= a.Right() {
		return false
	}
	if a.Y >= b.Bottom() || b.Y >= a.Bottom() {
		return false
	}
	return true
}

func (r Rect) Intersects(o Rect) bool { return Intersects(r, o) }

// Overlap returns the shared region of a and b, or the zero Rect when they are disjoint.
func Overlap(a, b Rect) Rect {
	if !Intersects(a, b) {
		return Rect{}
	}
	x0 := max(a.X, b.X)
	y0 := max(a.Y, b.Y)
	x1 := min(a.Right(), b.Right())
	y1 := min(a.Bottom(), b.Bottom())
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Union returns the smallest rect covering both. An empty operand is ignored.
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	x0 := min(r.X, o.X)
	y0 := min(r.Y, o.Y)
	x1 := max(r.Right(), o.Right())
	y1 := max(r.Bottom(), o.Bottom())
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// DistSq is the squared distance between the centers of a and b.
func DistSq(a, b Rect) int {
	ax, ay := a.Center()
	bx, by := b.Center()
	dx, dy := ax-bx, ay-by
	return dx*dx + dy*dy
}

// Penetration computes the translation that pushes a out of b along the axis of
// least overlap, and the direction a was pushed. When the overlap is narrower than
// it is tall the push is horizontal, otherwise vertical; the side is picked by
// comparing box centers. Non-overlapping boxes yield a zero vector and DirNone.
func Penetration(a, b Rect) (Vec, Direction) {
	ov := Overlap(a, b)
	if ov.Empty() {
		return Vec{}, DirNone
	}
	ax, ay := a.Center()
	bx, by := b.Center()
	if ov.W < ov.H {
		if ax >= bx {
			return Vec{X: ov.W}, DirRight
		}
		return Vec{X: -ov.W}, DirLeft
	}
	if ay >= by {
		return Vec{Y: ov.H}, DirDown
	}
	return Vec{Y: -ov.H}, DirUp
}
