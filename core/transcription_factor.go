package core

import (
	"github.com/signalsfoundry/gene-expression-sim/attachment"
	"github.com/signalsfoundry/gene-expression-sim/model"
)

// TranscriptionFactor docks on the regulatory sites reserved for its config
// and random-walks along the DNA like a polymerase, without ever
// transcribing. While docked on a gene it enables or blocks that gene.
// Docking and letting go use the GenericAttachment hooks.
type TranscriptionFactor struct {
	*Biomolecule
	GenericAttachment
	config  model.TranscriptionFactorConfig
	machine *AttachmentStateMachine
}

func newTranscriptionFactor(e *SimulationEngine, cfg model.TranscriptionFactorConfig, pos model.Vec3) *TranscriptionFactor {
	tf := &TranscriptionFactor{
		Biomolecule: newBiomolecule(e, model.KindTranscriptionFactor, pos),
		config:      cfg,
	}
	tf.machine = newAttachmentStateMachine(tf.Biomolecule, tf)
	return tf
}

// Config returns the factor's configuration.
func (tf *TranscriptionFactor) Config() model.TranscriptionFactorConfig { return tf.config }

// Machine returns the attachment state machine.
func (tf *TranscriptionFactor) Machine() *AttachmentStateMachine { return tf.machine }

// StateName names the current state.
func (tf *TranscriptionFactor) StateName() string { return tf.machine.StateName() }

// Step runs the state machine and then moves.
func (tf *TranscriptionFactor) Step(dt float64) {
	tf.machine.Step(dt)
	tf.advance(dt)
}

func (tf *TranscriptionFactor) ProposeAttachment(m *AttachmentStateMachine) (attachment.Handle, bool) {
	d := tf.engine.dna
	if d == nil {
		return attachment.Handle{}, false
	}
	return d.ProposeSite(model.KindTranscriptionFactor, tf.config.Name, m.dnaFit())
}

func (tf *TranscriptionFactor) StepAttached(m *AttachmentStateMachine, dt float64) {
	invariant(m.arena().Occupant(m.site) == tf.id, "transcription factor %d stepping a site it does not hold", tf.id)
	m.stepBasePairWalk(model.KindTranscriptionFactor, tf.config.Name, dt)
}
