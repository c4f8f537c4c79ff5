package model

// MotionBounds is the region a moving shape must stay inside. The zero value
// is unbounded.
type MotionBounds struct {
	region Region
}

// Unbounded returns bounds that accept every shape.
func Unbounded() MotionBounds {
	return MotionBounds{}
}

// NewMotionBounds wraps a region. A nil region yields unbounded bounds.
func NewMotionBounds(r Region) MotionBounds {
	return MotionBounds{region: r}
}

// Region returns the underlying region.
func (b MotionBounds) Region() Region {
	if b.region == nil {
		return unboundedRegion{}
	}
	return b.region
}

// IsBounded reports whether a real region constrains motion.
func (b MotionBounds) IsBounded() bool {
	return b.region != nil && b.region.Type() != RegionTypeUnbounded
}

// InBounds reports whether shape lies fully inside the bounds.
func (b MotionBounds) InBounds(shape Rect) bool {
	if !b.IsBounded() {
		return true
	}
	return b.region.ContainsRect(shape)
}

// WouldLeave reports whether moving shape at velocity for dt seconds would put
// it outside the bounds.
func (b MotionBounds) WouldLeave(shape Rect, velocity Vec2, dt float64) bool {
	return !b.InBounds(shape.Translate(velocity.Scale(dt)))
}

// Center returns the centre of the bounding box, or the origin when unbounded.
func (b MotionBounds) Center() Vec2 {
	if !b.IsBounded() {
		return Vec2{}
	}
	return b.region.Bounds().Center()
}
