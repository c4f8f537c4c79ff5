// Package motion computes where a biomolecule goes next. Strategies are small
// values: Advance never mutates the receiver, it returns the next position and
// the strategy value to use on the following tick.
package motion

import (
	"math"

	"github.com/signalsfoundry/gene-expression-sim/internal/logging"
	"github.com/signalsfoundry/gene-expression-sim/model"
)

// DepthRampDistance is the vertical distance from the DNA over which the depth
// floor falls from 0 to -1.
const DepthRampDistance = 1000.0

// Rand is the slice of *rand.Rand the strategies draw from. Passing the
// engine's seeded source keeps a run reproducible.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// Input carries everything a strategy may read for one tick.
type Input struct {
	Position model.Vec3
	// Shape is the agent's bounding rectangle at Position.
	Shape  model.Rect
	Bounds model.MotionBounds
	// DnaBand is the vertical extent of the DNA; an empty range means no DNA.
	DnaBand model.Range
	Dt      float64
	Rand    Rand
	Log     logging.Logger
}

func (in Input) logger() logging.Logger {
	if in.Log == nil {
		return logging.Noop()
	}
	return in.Log
}

// shapeAt returns the agent's shape moved to p.
func (in Input) shapeAt(p model.Vec2) model.Rect {
	return in.Shape.Translate(p.Sub(in.Position.XY()))
}

// Strategy is a motion behaviour.
type Strategy interface {
	Advance(in Input) (model.Vec3, Strategy)
	Name() string
}

// PointSource reports a point that may move between ticks, such as an
// attachment site.
type PointSource interface {
	Point() model.Vec2
}

// PointFunc adapts a function to PointSource.
type PointFunc func() model.Vec2

// Point calls f.
func (f PointFunc) Point() model.Vec2 { return f() }

// FixedPoint is a PointSource that never moves.
type FixedPoint model.Vec2

// Point returns p.
func (p FixedPoint) Point() model.Vec2 { return model.Vec2(p) }

func uniform(r Rand, rg model.Range) float64 {
	return rg.Min + r.Float64()*rg.Length()
}

// bounce finds a velocity that keeps the shape in bounds for this tick: flip X,
// flip Y, flip both, head for the bounds centre, and finally stand still.
func bounce(in Input, v model.Vec2) model.Vec2 {
	candidates := []model.Vec2{
		{X: -v.X, Y: v.Y},
		{X: v.X, Y: -v.Y},
		{X: -v.X, Y: -v.Y},
	}
	toCenter := in.Bounds.Center().Sub(in.Shape.Center())
	if toCenter.Len() > 0 {
		candidates = append(candidates, toCenter.Normalized().Scale(v.Len()))
	}
	for _, c := range candidates {
		if !in.Bounds.WouldLeave(in.Shape, c, in.Dt) {
			return c
		}
	}
	return model.Vec2{}
}

// depthFloor is the deepest the shape may sit: 0 while it overlaps the DNA
// band, falling to -1 with distance from it.
func depthFloor(shape model.Rect, band model.Range) float64 {
	if band.Empty() {
		return -1
	}
	d := shape.YRange().DistanceTo(band)
	if d == 0 {
		return 0
	}
	return -math.Min(1, d/DepthRampDistance)
}

// stepDepth integrates depth inside [floor, 0], turning the depth velocity
// around at either limit.
func stepDepth(z, vz, dt, floor float64) (float64, float64) {
	z += vz * dt
	if z < floor {
		z = floor
		vz = math.Abs(vz)
	}
	if z > 0 {
		z = 0
		vz = -math.Abs(vz)
	}
	return z, vz
}

// Stillness keeps the agent where it is.
type Stillness struct{}

// Advance returns the current position.
func (s Stillness) Advance(in Input) (model.Vec3, Strategy) { return in.Position, s }

// Name identifies the strategy.
func (Stillness) Name() string { return "stillness" }
