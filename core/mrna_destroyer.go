package core

import (
	"github.com/signalsfoundry/gene-expression-sim/attachment"
	"github.com/signalsfoundry/gene-expression-sim/model"
)

// StateAttachedAndDestroying is the destroyer's attached state.
const StateAttachedAndDestroying = "attached_and_destroying"

// MessengerRnaDestroyer binds the 5' end of an mRNA and chews it into
// fragments until nothing is left, then removes the strand.
type MessengerRnaDestroyer struct {
	*Biomolecule
	machine *AttachmentStateMachine

	mrna     *MessengerRna
	fragment *MessengerRnaFragment
}

func newMessengerRnaDestroyer(e *SimulationEngine, pos model.Vec3) *MessengerRnaDestroyer {
	d := &MessengerRnaDestroyer{Biomolecule: newBiomolecule(e, model.KindMessengerRnaDestroyer, pos)}
	d.machine = newAttachmentStateMachine(d.Biomolecule, d)
	return d
}

// Machine returns the attachment state machine.
func (d *MessengerRnaDestroyer) Machine() *AttachmentStateMachine { return d.machine }

// StateName names the current state.
func (d *MessengerRnaDestroyer) StateName() string { return d.machine.StateName() }

// Step runs the state machine and then moves.
func (d *MessengerRnaDestroyer) Step(dt float64) {
	d.machine.Step(dt)
	d.advance(dt)
}

// AttachedStateName satisfies AttachedStateNamer.
func (d *MessengerRnaDestroyer) AttachedStateName() string { return StateAttachedAndDestroying }

func (d *MessengerRnaDestroyer) ProposeAttachment(*AttachmentStateMachine) (attachment.Handle, bool) {
	rna := d.engine.nearestMessengerRna(d.position.XY(), (*MessengerRna).AcceptsDestroyer)
	if rna == nil {
		return attachment.Handle{}, false
	}
	return rna.site, true
}

func (d *MessengerRnaDestroyer) EnterAttached(m *AttachmentStateMachine) {
	rna := d.engine.messengerRnaForSite(m.site)
	if rna == nil {
		m.Detach()
		return
	}
	d.mrna = rna
	rna.startDestruction(d.id)
	followSite(m)
}

func (d *MessengerRnaDestroyer) StepAttached(m *AttachmentStateMachine, dt float64) {
	e := d.engine
	if d.mrna == nil || d.mrna.removed {
		m.Detach()
		return
	}
	remaining := e.rates.DestructionRate * dt
	for remaining > 0 && !d.mrna.FullyDestroyed() {
		if d.fragment == nil {
			d.fragment = e.spawnFragment(d, uniformIn(e.rand, e.rates.FragmentLength))
		}
		want := d.fragment.target - d.fragment.length
		if want > remaining {
			want = remaining
		}
		got := d.mrna.advanceDestruction(want)
		if got <= 0 {
			break
		}
		d.fragment.grow(got)
		remaining -= got
		if d.fragment.full() {
			d.fragment.release()
			d.fragment = nil
		}
	}
	if !d.mrna.FullyDestroyed() {
		return
	}
	if d.fragment != nil {
		d.fragment.release()
		d.fragment = nil
	}
	m.releaseSite()
	e.removeMessengerRna(d.mrna)
	d.mrna = nil
	m.Detach()
}

// Detached releases a partial fragment. The mRNA stays where it is.
func (d *MessengerRnaDestroyer) Detached(*AttachmentStateMachine) {
	if d.fragment != nil {
		d.fragment.release()
		d.fragment = nil
	}
	if d.mrna != nil && !d.mrna.removed {
		d.mrna.destroyer = model.NoAgent
		if len(d.mrna.ribosomes) > 0 {
			d.mrna.transitionTo(beingTranslated{})
		} else {
			d.mrna.transitionTo(wanderingAroundCytoplasm{})
		}
	}
	d.mrna = nil
}

func uniformIn(r interface{ Float64() float64 }, rg model.Range) float64 {
	return rg.Min + r.Float64()*(rg.Max-rg.Min)
}
