package core

import (
	"github.com/signalsfoundry/gene-expression-sim/model"
	"github.com/signalsfoundry/gene-expression-sim/motion"
)

// Agent is a live biomolecule as the engine and its collaborators see it.
type Agent interface {
	ID() model.AgentID
	Kind() model.MoleculeKind
	Position() model.Vec3
	Shape() model.Rect
	ExistenceStrength() float64
	// StateName names the current attachment state, for snapshots and logs.
	StateName() string
	Step(dt float64)

	biomolecule() *Biomolecule
}

// Biomolecule holds what every agent has in common: identity, position,
// shape, the current motion strategy and the existence strength that removes
// the agent when it reaches 0.
type Biomolecule struct {
	id        model.AgentID
	kind      model.MoleculeKind
	engine    *SimulationEngine
	position  model.Vec3
	width     float64
	height    float64
	motion    motion.Strategy
	existence float64

	userControlled bool
	movableByUser  bool
}

func newBiomolecule(e *SimulationEngine, kind model.MoleculeKind, pos model.Vec3) *Biomolecule {
	size := shapeSizes[kind]
	return &Biomolecule{
		id:            e.nextAgentID(),
		kind:          kind,
		engine:        e,
		position:      pos,
		width:         size.X,
		height:        size.Y,
		motion:        motion.Stillness{},
		existence:     1,
		movableByUser: kind != model.KindMessengerRna && kind != model.KindMessengerRnaFragment,
	}
}

// shapeSizes are the bounding box sizes of each kind, in picometres.
var shapeSizes = map[model.MoleculeKind]model.Vec2{
	model.KindRnaPolymerase:         {X: 340, Y: 270},
	model.KindTranscriptionFactor:   {X: 120, Y: 100},
	model.KindRibosome:              {X: 200, Y: 250},
	model.KindMessengerRnaDestroyer: {X: 150, Y: 100},
	model.KindMessengerRna:          {X: 1, Y: 1},
	model.KindMessengerRnaFragment:  {X: 20, Y: 20},
	model.KindProtein:               {X: 80, Y: 80},
}

func (b *Biomolecule) biomolecule() *Biomolecule { return b }

// ID returns the agent id.
func (b *Biomolecule) ID() model.AgentID { return b.id }

// Kind returns the molecule family.
func (b *Biomolecule) Kind() model.MoleculeKind { return b.kind }

// Position returns the position, with depth in Z.
func (b *Biomolecule) Position() model.Vec3 { return b.position }

// Shape returns the bounding rectangle at the current position.
func (b *Biomolecule) Shape() model.Rect {
	return model.RectCenteredAt(b.position.XY(), b.width, b.height)
}

// ExistenceStrength is 1 for a fully present agent and 0 for one about to be
// removed.
func (b *Biomolecule) ExistenceStrength() float64 { return b.existence }

// UserControlled reports whether a user is holding the agent.
func (b *Biomolecule) UserControlled() bool { return b.userControlled }

// MovableByUser reports whether the agent may be grabbed.
func (b *Biomolecule) MovableByUser() bool { return b.movableByUser }

// MotionName names the current motion strategy.
func (b *Biomolecule) MotionName() string { return b.motion.Name() }

func (b *Biomolecule) setPosition(p model.Vec3) { b.position = p }

func (b *Biomolecule) setMotion(s motion.Strategy) { b.motion = s }

func (b *Biomolecule) setExistence(v float64) {
	switch {
	case v < 0:
		v = 0
	case v > 1:
		v = 1
	}
	b.existence = v
}

func (b *Biomolecule) motionInput(dt float64) motion.Input {
	e := b.engine
	return motion.Input{
		Position: b.position,
		Shape:    b.Shape(),
		Bounds:   e.bounds,
		DnaBand:  e.dnaBand(),
		Dt:       dt,
		Rand:     e.rand,
		Log:      e.log,
	}
}

// advance asks the motion strategy for the next position.
func (b *Biomolecule) advance(dt float64) {
	next, s := b.motion.Advance(b.motionInput(dt))
	b.position = next
	b.motion = s
}
