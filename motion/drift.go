package motion

import (
	"github.com/signalsfoundry/gene-expression-sim/model"
)

const (
	// DefaultPreFadeTime is how long DriftThenTeleport drifts before sinking.
	DefaultPreFadeTime = 1.5
	// DefaultTeleportDepthSpeed sinks from 0 to -1 in 1.5 s.
	DefaultTeleportDepthSpeed = 1 / 1.5
)

// teleportAttempts bounds the search for a landing point that fits a
// non-rectangular bounds region.
const teleportAttempts = 32

// DriftThenTeleport drifts at a constant velocity, then sinks to depth -1 and
// reappears at a random point inside one of Zones. After the jump it holds
// still; callers check Teleported to move on.
//
// The drift bounces off the motion bounds like the random walks do, and the
// landing point keeps the whole shape inside both the zone and the bounds.
// When no zone overlaps the bounds the agent stays where it sank.
type DriftThenTeleport struct {
	Velocity   model.Vec2
	Zones      []model.Rect
	DepthSpeed float64
	preFade    float64
	teleported bool
}

// NewDriftThenTeleport builds the strategy with the default timings.
func NewDriftThenTeleport(velocity model.Vec2, zones []model.Rect) DriftThenTeleport {
	return DriftThenTeleport{
		Velocity:   velocity,
		Zones:      zones,
		DepthSpeed: DefaultTeleportDepthSpeed,
		preFade:    DefaultPreFadeTime,
	}
}

// Teleported reports whether the jump has happened.
func (s DriftThenTeleport) Teleported() bool { return s.teleported }

// Advance moves one tick.
func (s DriftThenTeleport) Advance(in Input) (model.Vec3, Strategy) {
	if s.teleported {
		return in.Position, s
	}
	if in.Bounds.WouldLeave(in.Shape, s.Velocity, in.Dt) {
		s.Velocity = bounce(in, s.Velocity)
	}
	next := in.Position.XY().Add(s.Velocity.Scale(in.Dt))
	if s.preFade > 0 {
		s.preFade -= in.Dt
		return model.At(next, in.Position.Z), s
	}
	z := in.Position.Z - s.DepthSpeed*in.Dt
	if z > -1 {
		return model.At(next, z), s
	}
	s.teleported = true
	if dest, ok := s.landing(in); ok {
		return model.At(dest, -1), s
	}
	return model.At(next, -1), s
}

// landing picks a point in a random zone, trying the others in turn, where
// the shape fits inside the zone and the bounds.
func (s DriftThenTeleport) landing(in Input) (model.Vec2, bool) {
	if len(s.Zones) == 0 {
		return model.Vec2{}, false
	}
	hw, hh := in.Shape.Width()/2, in.Shape.Height()/2
	first := in.Rand.Intn(len(s.Zones))
	for i := range s.Zones {
		zone := s.Zones[(first+i)%len(s.Zones)]
		inner := zone.Inset(hw, hh)
		if in.Bounds.IsBounded() {
			var ok bool
			inner, ok = inner.Intersection(in.Bounds.Region().Bounds().Inset(hw, hh))
			if !ok {
				continue
			}
		}
		for n := 0; n < teleportAttempts; n++ {
			p := model.Vec2{
				X: inner.MinX + in.Rand.Float64()*inner.Width(),
				Y: inner.MinY + in.Rand.Float64()*inner.Height(),
			}
			if in.Bounds.InBounds(model.RectCenteredAt(p, 2*hw, 2*hh)) {
				return p, true
			}
		}
	}
	return model.Vec2{}, false
}

// Name identifies the strategy.
func (DriftThenTeleport) Name() string { return "drift_then_teleport" }
