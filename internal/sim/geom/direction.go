package geom

// Direction is a travel or push direction on the grid. Screen convention: +Y is down.
type Direction uint8

const (
	DirNone Direction = iota
	DirUp
	DirDown
	DirLeft
	DirRight
)

func (d Direction) String() string {
	switch d {
	case DirUp:
		return "UP"
	case DirDown:
		return "DOWN"
	case DirLeft:
		return "LEFT"
	case DirRight:
		return "RIGHT"
	default:
		return "NONE"
	}
}

// Horizontal reports whether d runs along the X axis.
func (d Direction) Horizontal() bool { return d == DirLeft || d == DirRight }

// Delta returns the unit step for d.
func (d Direction) Delta() (int, int) {
	switch d {
	case DirUp:
		return 0, -1
	case DirDown:
		return 0, 1
	case DirLeft:
		return -1, 0
	case DirRight:
		return 1, 0
	}
	return 0, 0
}

// ParseDirection is the inverse of String. Unknown names map to DirNone.
func ParseDirection(s string) Direction {
	switch s {
	case "UP":
		return DirUp
	case "DOWN":
		return DirDown
	case "LEFT":
		return DirLeft
	case "RIGHT":
		return DirRight
	}
	return DirNone
}

func (d Direction) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Direction) UnmarshalText(b []byte) error {
	*d = ParseDirection(string(b))
	return nil
}
