package motion

import (
	"context"

	"github.com/signalsfoundry/gene-expression-sim/internal/logging"
	"github.com/signalsfoundry/gene-expression-sim/model"
)

const (
	// MeanderRandomShare and MeanderDirectShare weight the two sub-steps of
	// MeanderToDestination.
	MeanderRandomShare = 0.6
	MeanderDirectShare = 0.4
)

// MoveDirectlyToDestination heads straight for Destination minus Offset at a
// constant speed, arriving at depth 0.
type MoveDirectlyToDestination struct {
	Destination PointSource
	Offset      model.Vec2
	Speed       float64
	warned      bool
}

// NewMoveDirectlyToDestination builds the strategy.
func NewMoveDirectlyToDestination(dest PointSource, offset model.Vec2, speed float64) MoveDirectlyToDestination {
	return MoveDirectlyToDestination{Destination: dest, Offset: offset, Speed: speed}
}

// Target returns the point the agent is heading to.
func (s MoveDirectlyToDestination) Target() model.Vec2 {
	return s.Destination.Point().Sub(s.Offset)
}

// Advance moves one tick, snapping onto the target instead of overshooting.
func (s MoveDirectlyToDestination) Advance(in Input) (model.Vec3, Strategy) {
	next, st := s.step(in)
	return next, st
}

func (s MoveDirectlyToDestination) step(in Input) (model.Vec3, MoveDirectlyToDestination) {
	target := s.Target()
	if !s.warned && !in.Bounds.InBounds(in.shapeAt(target)) {
		in.logger().Warn(context.Background(), "destination lies outside motion bounds",
			logging.Float("x", target.X),
			logging.Float("y", target.Y),
		)
		s.warned = true
	}

	pos := in.Position.XY()
	toTarget := target.Sub(pos)
	dist := toTarget.Len()
	travel := s.Speed * in.Dt
	if dist <= travel || dist == 0 {
		return model.At(target, 0), s
	}
	next := pos.Add(toTarget.Normalized().Scale(travel))
	// Depth closes at the same rate as the in-plane distance so both reach
	// zero together.
	z := in.Position.Z * (1 - travel/dist)
	return model.At(next, z), s
}

// Name identifies the strategy.
func (MoveDirectlyToDestination) Name() string { return "move_directly_to_destination" }

// MeanderToDestination wanders toward its destination: each tick blends a
// random walk step with a direct step.
type MeanderToDestination struct {
	direct MoveDirectlyToDestination
	walk   RandomWalk
}

// NewMeanderToDestination builds the strategy with a default random walk.
func NewMeanderToDestination(dest PointSource, offset model.Vec2, speed float64) MeanderToDestination {
	return MeanderToDestination{
		direct: NewMoveDirectlyToDestination(dest, offset, speed),
		walk:   NewRandomWalk(),
	}
}

// Advance moves one tick. Once the destination falls within the agent's own
// shape the direct strategy takes over completely.
func (s MeanderToDestination) Advance(in Input) (model.Vec3, Strategy) {
	if in.Shape.Contains(s.direct.Target()) {
		next, d := s.direct.step(in)
		s.direct = d
		return next, s
	}

	walked, w := s.walk.step(in)
	direct, d := s.direct.step(in)
	s.walk, s.direct = w, d

	pos := in.Position
	blend := model.Vec3{
		X: pos.X + MeanderRandomShare*(walked.X-pos.X) + MeanderDirectShare*(direct.X-pos.X),
		Y: pos.Y + MeanderRandomShare*(walked.Y-pos.Y) + MeanderDirectShare*(direct.Y-pos.Y),
		Z: pos.Z + MeanderRandomShare*(walked.Z-pos.Z) + MeanderDirectShare*(direct.Z-pos.Z),
	}
	if !in.Bounds.InBounds(in.shapeAt(blend.XY())) {
		return walked, s
	}
	return blend, s
}

// Name identifies the strategy.
func (MeanderToDestination) Name() string { return "meander_to_destination" }
