package core

import (
	"context"

	"github.com/signalsfoundry/gene-expression-sim/attachment"
	"github.com/signalsfoundry/gene-expression-sim/internal/logging"
	"github.com/signalsfoundry/gene-expression-sim/model"
	"github.com/signalsfoundry/gene-expression-sim/motion"
)

// StateAttachedAndTranslating is the ribosome's attached state.
const StateAttachedAndTranslating = "attached_and_translating"

// RibosomeChannelOffset places the ribosome so its mRNA channel sits on the
// strand.
var RibosomeChannelOffset = model.Vec2{Y: -80}

// Ribosome binds the 5' end of a free mRNA, moves along it building a protein
// and detaches when the whole strand has been read.
type Ribosome struct {
	*Biomolecule
	machine *AttachmentStateMachine

	mrna       *MessengerRna
	protein    *Protein
	translated float64
	cleared    bool
}

func newRibosome(e *SimulationEngine, pos model.Vec3) *Ribosome {
	r := &Ribosome{Biomolecule: newBiomolecule(e, model.KindRibosome, pos)}
	r.machine = newAttachmentStateMachine(r.Biomolecule, r)
	r.machine.DestinationOffset = RibosomeChannelOffset
	return r
}

// Machine returns the attachment state machine.
func (r *Ribosome) Machine() *AttachmentStateMachine { return r.machine }

// StateName names the current state.
func (r *Ribosome) StateName() string { return r.machine.StateName() }

// Translating reports whether the ribosome is working on an mRNA.
func (r *Ribosome) Translating() bool { return r.mrna != nil }

// TranslatedLength is how much of the current mRNA has been read.
func (r *Ribosome) TranslatedLength() float64 { return r.translated }

// Step runs the state machine and then moves.
func (r *Ribosome) Step(dt float64) {
	r.machine.Step(dt)
	r.advance(dt)
}

// AttachedStateName satisfies AttachedStateNamer.
func (r *Ribosome) AttachedStateName() string { return StateAttachedAndTranslating }

// TranslationPoint satisfies motion.TranslationTrack.
func (r *Ribosome) TranslationPoint() (model.Vec2, bool) {
	if r.mrna == nil || r.mrna.removed {
		return model.Vec2{}, false
	}
	return r.mrna.PointAt(r.translated), true
}

// ProposeAttachment picks the nearest mRNA that will take a ribosome.
func (r *Ribosome) ProposeAttachment(*AttachmentStateMachine) (attachment.Handle, bool) {
	rna := r.engine.nearestMessengerRna(r.position.XY(), (*MessengerRna).AcceptsRibosome)
	if rna == nil {
		return attachment.Handle{}, false
	}
	return rna.site, true
}

func (r *Ribosome) EnterAttached(m *AttachmentStateMachine) {
	e := r.engine
	rna := e.messengerRnaForSite(m.site)
	if rna == nil {
		e.log.Warn(context.Background(), "ribosome attached to a site with no mRNA",
			logging.Uint64("ribosome", uint64(r.id)),
			logging.String("site", m.site.String()),
		)
		m.Detach()
		return
	}
	r.mrna = rna
	r.translated = 0
	r.cleared = false
	rna.startTranslation(r.id)
	r.protein = e.spawnProtein(rna.protein, model.At(r.proteinAnchor(), 0))
	r.setMotion(motion.RibosomeTranslatingRna{Track: r, ChannelOffset: m.DestinationOffset})
}

func (r *Ribosome) StepAttached(m *AttachmentStateMachine, dt float64) {
	e := r.engine
	if r.mrna == nil || r.mrna.removed {
		e.log.Warn(context.Background(), "translating ribosome lost its mRNA",
			logging.Uint64("ribosome", uint64(r.id)),
		)
		m.Detach()
		return
	}
	length := r.mrna.length
	r.translated += e.rates.TranslationRate * dt
	if r.translated > length {
		r.translated = length
	}
	if r.protein != nil {
		if length > 0 {
			r.protein.setFullSizeProportion(r.translated / length)
		}
		r.protein.setPosition(model.At(r.proteinAnchor(), r.protein.position.Z))
	}
	if !r.cleared && r.translated >= e.rates.ClearAttachmentLength {
		// Let the next ribosome or a destroyer in behind us.
		m.releaseSite()
		r.cleared = true
	}
	if r.translated < length {
		return
	}
	kind := r.mrna.protein
	r.mrna.finishTranslation(r.id)
	r.mrna = nil
	if r.protein != nil {
		r.protein.release()
		r.protein = nil
	}
	e.metrics.IncTranslation(string(kind))
	m.Detach()
}

// Detached lets go of the mRNA and releases a partly built protein.
func (r *Ribosome) Detached(*AttachmentStateMachine) {
	if r.mrna != nil {
		r.mrna.finishTranslation(r.id)
		r.mrna = nil
	}
	if r.protein != nil {
		r.protein.release()
		r.protein = nil
	}
	r.translated = 0
	r.cleared = false
}

// proteinAnchor is where the growing protein hangs off the ribosome.
func (r *Ribosome) proteinAnchor() model.Vec2 {
	return r.position.XY().Add(model.Vec2{Y: r.height / 2})
}
