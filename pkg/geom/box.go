// Package geom implements axis-aligned integer boxes with inclusive bounds
// and the exact set operations the reactor partition is built on.
package geom

import (
	"errors"
	"fmt"
)

// MaxCoord bounds every coordinate so that the volume of any box, and the
// lit total of any disjoint set of boxes, fits in an int64.
const MaxCoord = 1_000_000

var (
	ErrInvalidBox   = errors.New("geom: invalid box (min > max)")
	ErrInvalidSplit = errors.New("geom: split boundary outside box")
	ErrOutOfRange   = errors.New("geom: coordinate out of range")
)

type Axis int

const (
	X Axis = iota
	Y
	Z
)

var axes = [3]Axis{X, Y, Z}

func (a Axis) String() string {
	switch a {
	case X:
		return "x"
	case Y:
		return "y"
	case Z:
		return "z"
	}
	return fmt.Sprintf("axis(%d)", int(a))
}

type Point struct {
	X, Y, Z int64
}

func (p Point) Get(a Axis) int64 {
	switch a {
	case X:
		return p.X
	case Y:
		return p.Y
	default:
		return p.Z
	}
}

// With returns a copy of p with coordinate a replaced by v.
func (p Point) With(a Axis, v int64) Point {
	switch a {
	case X:
		p.X = v
	case Y:
		p.Y = v
	default:
		p.Z = v
	}
	return p
}

// Box is the closed cuboid [Min.X,Max.X] x [Min.Y,Max.Y] x [Min.Z,Max.Z].
type Box struct {
	Min Point
	Max Point
}

// InRange reports whether every coordinate of p is within ±MaxCoord.
func (p Point) InRange() bool {
	for _, ax := range axes {
		if v := p.Get(ax); v < -MaxCoord || v > MaxCoord {
			return false
		}
	}
	return true
}

func NewBox(min, max Point) (Box, error) {
	if !min.InRange() || !max.InRange() {
		return Box{}, fmt.Errorf("%w: min=%v max=%v exceeds ±%d", ErrOutOfRange, min, max, MaxCoord)
	}
	if min.X > max.X || min.Y > max.Y || min.Z > max.Z {
		return Box{}, fmt.Errorf("%w: min=%v max=%v", ErrInvalidBox, min, max)
	}
	return Box{Min: min, Max: max}, nil
}

// MustBox is NewBox for literals known to be valid.
func MustBox(x0, x1, y0, y1, z0, z1 int64) Box {
	b, err := NewBox(Point{x0, y0, z0}, Point{x1, y1, z1})
	if err != nil {
		panic(err)
	}
	return b
}

// Cube returns the box spanning -r..r on every axis, clipped to ±MaxCoord.
func Cube(r int64) Box {
	if r < 0 {
		r = -r
	}
	if r < 0 || r > MaxCoord {
		r = MaxCoord
	}
	return Box{Min: Point{-r, -r, -r}, Max: Point{r, r, r}}
}

func (b Box) Volume() int64 {
	return (b.Max.X - b.Min.X + 1) * (b.Max.Y - b.Min.Y + 1) * (b.Max.Z - b.Min.Z + 1)
}

func (b Box) Contains(p Point) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Encloses reports whether every cell of o is inside b.
func (b Box) Encloses(o Box) bool {
	return b.Contains(o.Min) && b.Contains(o.Max)
}

func (b Box) Intersects(o Box) bool {
	return b.Min.X <= o.Max.X && b.Max.X >= o.Min.X &&
		b.Min.Y <= o.Max.Y && b.Max.Y >= o.Min.Y &&
		b.Min.Z <= o.Max.Z && b.Max.Z >= o.Min.Z
}

// Overlap returns the intersection of a and b. ok is false when the boxes
// are disjoint on at least one axis.
func Overlap(a, b Box) (Box, bool) {
	var lo, hi Point
	for _, ax := range axes {
		l := max(a.Min.Get(ax), b.Min.Get(ax))
		h := min(a.Max.Get(ax), b.Max.Get(ax))
		if l > h {
			return Box{}, false
		}
		lo = lo.With(ax, l)
		hi = hi.With(ax, h)
	}
	return Box{Min: lo, Max: hi}, true
}

// Split cuts b along axis so that boundary is the first coordinate of right.
func (b Box) Split(axis Axis, boundary int64) (left, right Box, err error) {
	if !(b.Min.Get(axis) < boundary && boundary <= b.Max.Get(axis)) {
		return Box{}, Box{}, fmt.Errorf("%w: %s=%d not in (%d, %d]",
			ErrInvalidSplit, axis, boundary, b.Min.Get(axis), b.Max.Get(axis))
	}
	left = Box{Min: b.Min, Max: b.Max.With(axis, boundary-1)}
	right = Box{Min: b.Min.With(axis, boundary), Max: b.Max}
	return left, right, nil
}

// Bounds returns the smallest box enclosing all given boxes.
func Bounds(boxes ...Box) (Box, bool) {
	if len(boxes) == 0 {
		return Box{}, false
	}
	out := boxes[0]
	for _, b := range boxes[1:] {
		for _, ax := range axes {
			out.Min = out.Min.With(ax, min(out.Min.Get(ax), b.Min.Get(ax)))
			out.Max = out.Max.With(ax, max(out.Max.Get(ax), b.Max.Get(ax)))
		}
	}
	return out, true
}

// String renders b in instruction syntax.
func (b Box) String() string {
	return fmt.Sprintf("x=%d..%d,y=%d..%d,z=%d..%d",
		b.Min.X, b.Max.X, b.Min.Y, b.Max.Y, b.Min.Z, b.Max.Z)
}
