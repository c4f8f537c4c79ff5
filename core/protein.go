package core

import (
	"math"

	"github.com/signalsfoundry/gene-expression-sim/attachment"
	"github.com/signalsfoundry/gene-expression-sim/model"
	"github.com/signalsfoundry/gene-expression-sim/motion"
)

// StateHeldByRibosome is the protein's state while it is being synthesised.
const StateHeldByRibosome = "held_by_ribosome"

// Protein is made by a translating ribosome, which holds and positions it
// until translation ends. Released proteins wander and may be captured.
type Protein struct {
	*Biomolecule
	GenericAttachment
	protein    model.ProteinKind
	machine    *AttachmentStateMachine
	proportion float64
}

func newProtein(e *SimulationEngine, kind model.ProteinKind, pos model.Vec3) *Protein {
	p := &Protein{
		Biomolecule: newBiomolecule(e, model.KindProtein, pos),
		protein:     kind,
	}
	p.machine = newAttachmentStateMachine(p.Biomolecule, p)
	p.machine.TransitionTo(heldByRibosome{})
	p.setFullSizeProportion(0)
	return p
}

// ProteinKind returns which protein this is.
func (p *Protein) ProteinKind() model.ProteinKind { return p.protein }

// Machine returns the attachment state machine.
func (p *Protein) Machine() *AttachmentStateMachine { return p.machine }

// StateName names the current state.
func (p *Protein) StateName() string { return p.machine.StateName() }

// FullSizeProportion is how much of the protein has been synthesised.
func (p *Protein) FullSizeProportion() float64 { return p.proportion }

// Released reports whether the ribosome has let go of the protein.
func (p *Protein) Released() bool {
	_, held := p.machine.State().(heldByRibosome)
	return !held
}

// Step runs the state machine and then moves.
func (p *Protein) Step(dt float64) {
	p.machine.Step(dt)
	p.advance(dt)
}

func (p *Protein) setFullSizeProportion(v float64) {
	p.proportion = math.Max(0, math.Min(1, v))
	full := shapeSizes[model.KindProtein]
	scale := math.Max(p.proportion, 0.1)
	p.width = full.X * scale
	p.height = full.Y * scale
}

// release hands the protein to the simulation.
func (p *Protein) release() {
	if p.Released() {
		return
	}
	p.machine.ForceUnattachedAndAvailable()
}

// Proteins never bind anything.
func (p *Protein) ProposeAttachment(*AttachmentStateMachine) (attachment.Handle, bool) {
	return attachment.Handle{}, false
}

type heldByRibosome struct{}

func (heldByRibosome) Name() string { return StateHeldByRibosome }

func (heldByRibosome) Enter(m *AttachmentStateMachine) { m.owner.setMotion(motion.Stillness{}) }

func (heldByRibosome) Step(*AttachmentStateMachine, float64) {}
