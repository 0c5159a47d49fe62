package geom

import "testing"

func TestIntersects_EdgesAndEmpty(t *testing.T) {
	a := R(0, 0, 10, 10)
	cases := []struct {
		name string
		b    Rect
		want bool
	}{
		{"overlap", R(5, 5, 10, 10), true},
		{"contained", R(2, 2, 2, 2), true},
		{"touch right edge", R(10, 0, 5, 5), false},
		{"touch bottom edge", R(0, 10, 5, 5), false},
		{"disjoint", R(20, 20, 1, 1), false},
		{"zero width", R(5, 5, 0, 3), false},
		{"negative height", R(5, 5, 3, -3), false},
	}
	for _, tc := range cases {
		if got := Intersects(a, tc.b); got != tc.want {
			t.Fatalf("%s: Intersects=%v want %v", tc.name, got, tc.want)
		}
		if got := Intersects(tc.b, a); got != tc.want {
			t.Fatalf("%s (swapped): Intersects=%v want %v", tc.name, got, tc.want)
		}
	}
}

func TestOverlap(t *testing.T) {
	got := Overlap(R(0, 0, 10, 10), R(5, -5, 10, 8))
	if got != R(5, 0, 5, 3) {
		t.Fatalf("overlap=%+v", got)
	}
	if got := Overlap(R(0, 0, 1, 1), R(3, 3, 1, 1)); got != (Rect{}) {
		t.Fatalf("disjoint overlap=%+v", got)
	}
}

func TestUnion(t *testing.T) {
	u := R(-2500, 0, 25000, 2000).Union(R(5000, -7000, 2000, 25000))
	if u != R(-2500, -7000, 25000, 25000) {
		t.Fatalf("union=%+v", u)
	}
	if got := (Rect{}).Union(R(1, 2, 3, 4)); got != R(1, 2, 3, 4) {
		t.Fatalf("empty union=%+v", got)
	}
}

func TestPenetration(t *testing.T) {
	b := R(0, 0, 100, 100)

	// Narrow horizontal overlap on the right side of b: push right.
	v, d := Penetration(R(90, 10, 50, 50), b)
	if v != (Vec{X: 10}) || d != DirRight {
		t.Fatalf("right push: v=%+v d=%s", v, d)
	}
	if moved := R(90, 10, 50, 50).Translate(v.X, v.Y); Intersects(moved, b) {
		t.Fatalf("still overlapping after push: %+v", moved)
	}

	// Narrow horizontal overlap on the left side: push left.
	v, d = Penetration(R(-40, 10, 50, 50), b)
	if v != (Vec{X: -10}) || d != DirLeft {
		t.Fatalf("left push: v=%+v d=%s", v, d)
	}

	// Shallow vertical overlap from above: push up.
	v, d = Penetration(R(10, -45, 50, 50), b)
	if v != (Vec{Y: -5}) || d != DirUp {
		t.Fatalf("up push: v=%+v d=%s", v, d)
	}

	// Square overlap resolves vertically.
	v, d = Penetration(R(95, 95, 20, 20), b)
	if v != (Vec{Y: 5}) || d != DirDown {
		t.Fatalf("tie push: v=%+v d=%s", v, d)
	}

	v, d = Penetration(R(200, 200, 5, 5), b)
	if v != (Vec{}) || d != DirNone {
		t.Fatalf("no overlap: v=%+v d=%s", v, d)
	}
}

func TestDirectionRoundTrip(t *testing.T) {
	for _, d := range []Direction{DirUp, DirDown, DirLeft, DirRight} {
		if ParseDirection(d.String()) != d {
			t.Fatalf("round trip failed for %s", d)
		}
	}
	if DirLeft.Horizontal() != true || DirUp.Horizontal() != false {
		t.Fatalf("Horizontal wrong")
	}
}
