package core

import (
	"github.com/signalsfoundry/gene-expression-sim/model"
	"github.com/signalsfoundry/gene-expression-sim/motion"
)

// Fragment state names.
const (
	StateHeldByDestroyer = "held_by_destroyer"
	StateFading          = "fading"
)

// MessengerRnaFragment is a piece cut off an mRNA. The destroyer holds it
// while it grows to its target length, then lets it drift off and fade.
type MessengerRnaFragment struct {
	*Biomolecule
	target   float64
	length   float64
	released bool
}

func newMessengerRnaFragment(e *SimulationEngine, holder *Biomolecule, target float64) *MessengerRnaFragment {
	f := &MessengerRnaFragment{
		Biomolecule: newBiomolecule(e, model.KindMessengerRnaFragment, holder.position),
		target:      target,
	}
	f.setMotion(motion.FollowPoint{
		Target: motion.PointFunc(func() model.Vec2 { return holder.position.XY() }),
		Offset: model.Vec2{Y: -holder.height / 2},
	})
	return f
}

// TargetLength is the length the fragment grows to before release.
func (f *MessengerRnaFragment) TargetLength() float64 { return f.target }

// Length is the fragment's current length.
func (f *MessengerRnaFragment) Length() float64 { return f.length }

// Released reports whether the destroyer has let go.
func (f *MessengerRnaFragment) Released() bool { return f.released }

// StateName names the current state.
func (f *MessengerRnaFragment) StateName() string {
	if f.released {
		return StateFading
	}
	return StateHeldByDestroyer
}

// Step fades a released fragment and moves it.
func (f *MessengerRnaFragment) Step(dt float64) {
	if f.released {
		f.setExistence(f.existence - dt/f.engine.rates.FragmentFade)
	}
	f.advance(dt)
}

func (f *MessengerRnaFragment) grow(delta float64) {
	if delta >= f.target-f.length {
		f.length = f.target
		return
	}
	f.length += delta
}

func (f *MessengerRnaFragment) full() bool { return f.length >= f.target }

func (f *MessengerRnaFragment) release() {
	if f.released {
		return
	}
	f.released = true
	f.setMotion(motion.NewWanderInGeneralDirection(model.Vec2{Y: 1}))
	f.engine.metrics.IncFragmentReleased()
}
