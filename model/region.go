package model

import "math"

// RegionType identifies the shape of a region.
type RegionType string

const (
	RegionTypeRect      RegionType = "rect"
	RegionTypeCircle    RegionType = "circle"
	RegionTypePolygon   RegionType = "polygon"
	RegionTypeUnbounded RegionType = "unbounded"
)

// Region is an arbitrary area of the simulation plane that shapes can be
// tested against.
type Region interface {
	Type() RegionType
	ContainsPoint(p Vec2) bool
	// ContainsRect reports whether the whole rectangle lies inside the region.
	ContainsRect(r Rect) bool
	// Bounds is the bounding box of the region.
	Bounds() Rect
}

// RectRegion is an axis-aligned rectangular region.
type RectRegion struct {
	Rect Rect
}

func (r RectRegion) Type() RegionType          { return RegionTypeRect }
func (r RectRegion) ContainsPoint(p Vec2) bool { return r.Rect.Contains(p) }
func (r RectRegion) ContainsRect(o Rect) bool  { return r.Rect.ContainsRect(o) }
func (r RectRegion) Bounds() Rect              { return r.Rect }

// CircleRegion is a disc.
type CircleRegion struct {
	Center Vec2
	Radius float64
}

func (c CircleRegion) Type() RegionType { return RegionTypeCircle }

func (c CircleRegion) ContainsPoint(p Vec2) bool {
	return p.DistanceTo(c.Center) <= c.Radius
}

// ContainsRect holds when all four corners are inside; a disc is convex.
func (c CircleRegion) ContainsRect(r Rect) bool {
	for _, corner := range r.Corners() {
		if !c.ContainsPoint(corner) {
			return false
		}
	}
	return true
}

func (c CircleRegion) Bounds() Rect {
	return RectCenteredAt(c.Center, 2*c.Radius, 2*c.Radius)
}

// PolygonRegion is a simple (possibly concave) polygon.
type PolygonRegion struct {
	Vertices []Vec2
}

func (p PolygonRegion) Type() RegionType { return RegionTypePolygon }

// ContainsPoint uses the even-odd ray casting rule.
func (p PolygonRegion) ContainsPoint(pt Vec2) bool {
	n := len(p.Vertices)
	if n < 3 {
		return false
	}
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := p.Vertices[i], p.Vertices[j]
		if (a.Y > pt.Y) != (b.Y > pt.Y) {
			xCross := (b.X-a.X)*(pt.Y-a.Y)/(b.Y-a.Y) + a.X
			if pt.X < xCross {
				inside = !inside
			}
		}
	}
	return inside
}

// ContainsRect requires every corner inside, no polygon vertex strictly inside
// the rectangle and no polygon edge crossing a rectangle edge, which covers
// concave outlines.
func (p PolygonRegion) ContainsRect(r Rect) bool {
	corners := r.Corners()
	for _, c := range corners {
		if !p.ContainsPoint(c) {
			return false
		}
	}
	for _, v := range p.Vertices {
		if v.X > r.MinX && v.X < r.MaxX && v.Y > r.MinY && v.Y < r.MaxY {
			return false
		}
	}
	n := len(p.Vertices)
	for i := 0; i < n; i++ {
		a, b := p.Vertices[i], p.Vertices[(i+1)%n]
		for k := 0; k < 4; k++ {
			if segmentsCross(a, b, corners[k], corners[(k+1)%4]) {
				return false
			}
		}
	}
	return true
}

func (p PolygonRegion) Bounds() Rect {
	if len(p.Vertices) == 0 {
		return Rect{}
	}
	out := Rect{MinX: p.Vertices[0].X, MinY: p.Vertices[0].Y, MaxX: p.Vertices[0].X, MaxY: p.Vertices[0].Y}
	for _, v := range p.Vertices[1:] {
		out = out.Union(Rect{MinX: v.X, MinY: v.Y, MaxX: v.X, MaxY: v.Y})
	}
	return out
}

// unboundedRegion accepts everything.
type unboundedRegion struct{}

func (unboundedRegion) Type() RegionType        { return RegionTypeUnbounded }
func (unboundedRegion) ContainsPoint(Vec2) bool { return true }
func (unboundedRegion) ContainsRect(Rect) bool  { return true }

func (unboundedRegion) Bounds() Rect {
	return Rect{MinX: math.Inf(-1), MinY: math.Inf(-1), MaxX: math.Inf(1), MaxY: math.Inf(1)}
}

// segmentsCross reports a proper crossing; touching endpoints and collinear
// overlaps do not count.
func segmentsCross(p1, p2, q1, q2 Vec2) bool {
	d1 := cross(q1, q2, p1)
	d2 := cross(q1, q2, p2)
	d3 := cross(p1, p2, q1)
	d4 := cross(p1, p2, q2)
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

func cross(o, a, b Vec2) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}
