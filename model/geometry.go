package model

import "math"

// Vec2 is a point or displacement in the simulation plane, in picometres.
type Vec2 struct {
	X float64
	Y float64
}

// Add returns v + other.
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{X: v.X + other.X, Y: v.Y + other.Y}
}

// Sub returns v - other.
func (v Vec2) Sub(other Vec2) Vec2 {
	return Vec2{X: v.X - other.X, Y: v.Y - other.Y}
}

// Scale returns v multiplied by s.
func (v Vec2) Scale(s float64) Vec2 {
	return Vec2{X: v.X * s, Y: v.Y * s}
}

// Dot returns the dot product of two vectors.
func (v Vec2) Dot(other Vec2) float64 {
	return v.X*other.X + v.Y*other.Y
}

// Len returns the Euclidean norm of the vector.
func (v Vec2) Len() float64 {
	return math.Hypot(v.X, v.Y)
}

// DistanceTo returns the straight-line distance between two points.
func (v Vec2) DistanceTo(other Vec2) float64 {
	return v.Sub(other).Len()
}

// Normalized returns the unit vector pointing along v. The zero vector is
// returned unchanged.
func (v Vec2) Normalized() Vec2 {
	l := v.Len()
	if l == 0 {
		return v
	}
	return Vec2{X: v.X / l, Y: v.Y / l}
}

// Angle returns the direction of v in radians, in (-π, π].
func (v Vec2) Angle() float64 {
	return math.Atan2(v.Y, v.X)
}

// Polar builds a vector from a magnitude and an angle in radians.
func Polar(magnitude, angle float64) Vec2 {
	return Vec2{X: magnitude * math.Cos(angle), Y: magnitude * math.Sin(angle)}
}

// Vec3 is a Vec2 plus a depth coordinate. Depth runs from 0 (the plane the DNA
// lives in) down to -1 (fully faded into the background).
type Vec3 struct {
	X float64
	Y float64
	Z float64
}

// XY drops the depth coordinate.
func (v Vec3) XY() Vec2 {
	return Vec2{X: v.X, Y: v.Y}
}

// At returns the in-plane point p placed at depth z.
func At(p Vec2, z float64) Vec3 {
	return Vec3{X: p.X, Y: p.Y, Z: z}
}

// Range is a closed one-dimensional interval.
type Range struct {
	Min float64
	Max float64
}

// Length returns Max - Min.
func (r Range) Length() float64 {
	return r.Max - r.Min
}

// Empty reports whether the range has no positive extent.
func (r Range) Empty() bool {
	return r.Max <= r.Min
}

// Contains reports whether x lies in [Min, Max].
func (r Range) Contains(x float64) bool {
	return x >= r.Min && x <= r.Max
}

// Overlaps reports whether two ranges share at least one point.
func (r Range) Overlaps(other Range) bool {
	return r.Min <= other.Max && other.Min <= r.Max
}

// DistanceTo returns the gap between two ranges, or 0 when they overlap.
func (r Range) DistanceTo(other Range) float64 {
	switch {
	case r.Overlaps(other):
		return 0
	case r.Max < other.Min:
		return other.Min - r.Max
	default:
		return r.Min - other.Max
	}
}

// Rect is an axis-aligned rectangle. Biomolecule shapes are reduced to their
// bounding rectangles for every containment test.
type Rect struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// RectCenteredAt builds a w×h rectangle centred on c.
func RectCenteredAt(c Vec2, w, h float64) Rect {
	return Rect{MinX: c.X - w/2, MinY: c.Y - h/2, MaxX: c.X + w/2, MaxY: c.Y + h/2}
}

// Width returns the horizontal extent.
func (r Rect) Width() float64 { return r.MaxX - r.MinX }

// Height returns the vertical extent.
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

// Center returns the midpoint of the rectangle.
func (r Rect) Center() Vec2 {
	return Vec2{X: (r.MinX + r.MaxX) / 2, Y: (r.MinY + r.MaxY) / 2}
}

// Translate shifts the rectangle by d.
func (r Rect) Translate(d Vec2) Rect {
	return Rect{MinX: r.MinX + d.X, MinY: r.MinY + d.Y, MaxX: r.MaxX + d.X, MaxY: r.MaxY + d.Y}
}

// Contains reports whether p lies inside or on the edge of r.
func (r Rect) Contains(p Vec2) bool {
	return p.X >= r.MinX && p.X <= r.MaxX && p.Y >= r.MinY && p.Y <= r.MaxY
}

// ContainsRect reports whether other lies fully inside r.
func (r Rect) ContainsRect(other Rect) bool {
	return other.MinX >= r.MinX && other.MaxX <= r.MaxX && other.MinY >= r.MinY && other.MaxY <= r.MaxY
}

// Intersects reports whether the two rectangles overlap.
func (r Rect) Intersects(other Rect) bool {
	return r.MinX <= other.MaxX && other.MinX <= r.MaxX && r.MinY <= other.MaxY && other.MinY <= r.MaxY
}

// XRange returns the horizontal extent as a Range.
func (r Rect) XRange() Range { return Range{Min: r.MinX, Max: r.MaxX} }

// YRange returns the vertical extent as a Range.
func (r Rect) YRange() Range { return Range{Min: r.MinY, Max: r.MaxY} }

// Corners returns the four corners counter-clockwise from (MinX, MinY).
func (r Rect) Corners() [4]Vec2 {
	return [4]Vec2{
		{X: r.MinX, Y: r.MinY},
		{X: r.MaxX, Y: r.MinY},
		{X: r.MaxX, Y: r.MaxY},
		{X: r.MinX, Y: r.MaxY},
	}
}

// Union returns the smallest rectangle covering both r and other.
func (r Rect) Union(other Rect) Rect {
	return Rect{
		MinX: math.Min(r.MinX, other.MinX),
		MinY: math.Min(r.MinY, other.MinY),
		MaxX: math.Max(r.MaxX, other.MaxX),
		MaxY: math.Max(r.MaxY, other.MaxY),
	}
}

// Intersection returns the overlap of r and other. ok is false when they do
// not overlap.
func (r Rect) Intersection(other Rect) (out Rect, ok bool) {
	out = Rect{
		MinX: math.Max(r.MinX, other.MinX),
		MinY: math.Max(r.MinY, other.MinY),
		MaxX: math.Min(r.MaxX, other.MaxX),
		MaxY: math.Min(r.MaxY, other.MaxY),
	}
	return out, out.MinX <= out.MaxX && out.MinY <= out.MaxY
}

// Inset shrinks the rectangle by dx on the left and right and dy on the top and
// bottom. A dimension that would become negative collapses onto the centre.
func (r Rect) Inset(dx, dy float64) Rect {
	c := r.Center()
	out := Rect{MinX: r.MinX + dx, MinY: r.MinY + dy, MaxX: r.MaxX - dx, MaxY: r.MaxY - dy}
	if out.MinX > out.MaxX {
		out.MinX, out.MaxX = c.X, c.X
	}
	if out.MinY > out.MaxY {
		out.MinY, out.MaxY = c.Y, c.Y
	}
	return out
}
