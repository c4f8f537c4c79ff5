package motion

import (
	"math"

	"github.com/signalsfoundry/gene-expression-sim/model"
)

var (
	// DefaultWalkSpeed is the speed range of RandomWalk.
	DefaultWalkSpeed = model.Range{Min: 200, Max: 400}
	// DefaultWanderSpeed is the speed range of WanderInGeneralDirection.
	DefaultWanderSpeed = model.Range{Min: 100, Max: 500}
	// DefaultHold is how long a chosen velocity is kept, in seconds.
	DefaultHold = model.Range{Min: 0.25, Max: 1.25}
	// DefaultDepthSpeed is the depth speed range, in depth units per second.
	DefaultDepthSpeed = model.Range{Min: 0.3, Max: 0.6}
)

// MaxWanderDeviation is how far a wander direction may stray from its heading.
const MaxWanderDeviation = math.Pi / 6

// walk is the countdown and velocity shared by the random strategies.
type walk struct {
	velocity      model.Vec2
	depthVelocity float64
	countdown     float64
}

type walkParams struct {
	speed      model.Range
	hold       model.Range
	depthSpeed model.Range
}

func (p walkParams) roll(r Rand, angle float64) walk {
	vz := uniform(r, p.depthSpeed)
	if r.Float64() < 0.5 {
		vz = -vz
	}
	return walk{
		velocity:      model.Polar(uniform(r, p.speed), angle),
		depthVelocity: vz,
		countdown:     uniform(r, p.hold),
	}
}

func (w walk) advance(in Input, p walkParams, angle func(Rand) float64) (model.Vec3, walk) {
	w.countdown -= in.Dt
	if w.countdown <= 0 {
		w = p.roll(in.Rand, angle(in.Rand))
	}
	if in.Bounds.WouldLeave(in.Shape, w.velocity, in.Dt) {
		w.velocity = bounce(in, w.velocity)
		w.countdown = uniform(in.Rand, p.hold)
	}
	next := in.Position.XY().Add(w.velocity.Scale(in.Dt))
	var z float64
	z, w.depthVelocity = stepDepth(in.Position.Z, w.depthVelocity, in.Dt, depthFloor(in.shapeAt(next), in.DnaBand))
	return model.At(next, z), w
}

// RandomWalk moves in a random direction, re-rolling speed, direction and hold
// time whenever the hold time runs out.
type RandomWalk struct {
	Speed      model.Range
	Hold       model.Range
	DepthSpeed model.Range
	state      walk
}

// NewRandomWalk returns a RandomWalk with the default ranges.
func NewRandomWalk() RandomWalk {
	return RandomWalk{Speed: DefaultWalkSpeed, Hold: DefaultHold, DepthSpeed: DefaultDepthSpeed}
}

// Advance moves one tick.
func (s RandomWalk) Advance(in Input) (model.Vec3, Strategy) {
	next, st := s.step(in)
	return next, st
}

func (s RandomWalk) step(in Input) (model.Vec3, RandomWalk) {
	p := walkParams{speed: s.Speed, hold: s.Hold, depthSpeed: s.DepthSpeed}
	next, w := s.state.advance(in, p, func(r Rand) float64 { return r.Float64() * 2 * math.Pi })
	s.state = w
	return next, s
}

// Name identifies the strategy.
func (RandomWalk) Name() string { return "random_walk" }

// Velocity returns the in-plane velocity in use.
func (s RandomWalk) Velocity() model.Vec2 { return s.state.velocity }

// WanderInGeneralDirection is a random walk whose directions stay within
// MaxWanderDeviation of Direction.
type WanderInGeneralDirection struct {
	Direction  model.Vec2
	Speed      model.Range
	Hold       model.Range
	DepthSpeed model.Range
	state      walk
}

// NewWanderInGeneralDirection returns a wander along direction with the default
// ranges.
func NewWanderInGeneralDirection(direction model.Vec2) WanderInGeneralDirection {
	return WanderInGeneralDirection{
		Direction:  direction,
		Speed:      DefaultWanderSpeed,
		Hold:       DefaultHold,
		DepthSpeed: DefaultDepthSpeed,
	}
}

// Advance moves one tick.
func (s WanderInGeneralDirection) Advance(in Input) (model.Vec3, Strategy) {
	p := walkParams{speed: s.Speed, hold: s.Hold, depthSpeed: s.DepthSpeed}
	heading := s.Direction.Angle()
	next, w := s.state.advance(in, p, func(r Rand) float64 {
		return heading + (r.Float64()*2-1)*MaxWanderDeviation
	})
	s.state = w
	return next, s
}

// Name identifies the strategy.
func (WanderInGeneralDirection) Name() string { return "wander_in_general_direction" }

// Velocity returns the in-plane velocity in use.
func (s WanderInGeneralDirection) Velocity() model.Vec2 { return s.state.velocity }
