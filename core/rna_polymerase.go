package core

import (
	"context"
	"log/slog"

	"github.com/signalsfoundry/gene-expression-sim/attachment"
	"github.com/signalsfoundry/gene-expression-sim/dna"
	"github.com/signalsfoundry/gene-expression-sim/internal/logging"
	"github.com/signalsfoundry/gene-expression-sim/model"
	"github.com/signalsfoundry/gene-expression-sim/motion"
)

// Polymerase state names.
const (
	StateAttachedToBasePair      = "attached_to_base_pair"
	StateAttachedAndConforming   = "attached_and_conforming"
	StateAttachedAndTranscribing = "attached_and_transcribing"
	StateAttachedAndDeconforming = "attached_and_deconforming"
	StateBeingRecycled           = "being_recycled"
)

type polymerasePhase int

const (
	phaseAttachedToBasePair polymerasePhase = iota
	phaseConforming
	phaseTranscribing
	phaseDeconforming
)

// shouldTranscribe decides, once per attachment, whether a polymerase on a
// gene's site starts transcribing. Sites at or below the default affinity
// never transcribe.
func shouldTranscribe(affinity, draw float64, onGene bool) bool {
	return onGene && affinity > attachment.DefaultAffinity && draw < affinity
}

// RnaPolymerase walks the DNA and, when it lands on a gene's polymerase site
// and wins the transcribe roll, opens the strands and transcribes the gene
// into an mRNA.
type RnaPolymerase struct {
	*Biomolecule
	machine *AttachmentStateMachine

	phase        polymerasePhase
	transcribe   bool
	conformation float64
	gene         *dna.Gene
	separation   dna.SeparationID
	fictional    attachment.Handle
	mrna         *MessengerRna
}

func newRnaPolymerase(e *SimulationEngine, pos model.Vec3) *RnaPolymerase {
	p := &RnaPolymerase{Biomolecule: newBiomolecule(e, model.KindRnaPolymerase, pos)}
	p.machine = newAttachmentStateMachine(p.Biomolecule, p)
	return p
}

// Machine returns the attachment state machine.
func (p *RnaPolymerase) Machine() *AttachmentStateMachine { return p.machine }

// StateName names the current state.
func (p *RnaPolymerase) StateName() string { return p.machine.StateName() }

// ConformationalChange is 0 when idle and 1 when fully open for transcription.
func (p *RnaPolymerase) ConformationalChange() float64 { return p.conformation }

// Transcript returns the mRNA being synthesised, if any.
func (p *RnaPolymerase) Transcript() *MessengerRna { return p.mrna }

// Step runs the state machine and then moves.
func (p *RnaPolymerase) Step(dt float64) {
	p.machine.Step(dt)
	p.advance(dt)
}

// forceTranscribe makes the next attachment to a gene site transcribe.
func (p *RnaPolymerase) forceTranscribe() { p.transcribe = true }

// AttachedStateName satisfies AttachedStateNamer.
func (p *RnaPolymerase) AttachedStateName() string {
	switch p.phase {
	case phaseConforming:
		return StateAttachedAndConforming
	case phaseTranscribing:
		return StateAttachedAndTranscribing
	case phaseDeconforming:
		return StateAttachedAndDeconforming
	default:
		return StateAttachedToBasePair
	}
}

// ProposeAttachment looks for the best free polymerase site on the DNA.
func (p *RnaPolymerase) ProposeAttachment(m *AttachmentStateMachine) (attachment.Handle, bool) {
	d := p.engine.dna
	if d == nil {
		return attachment.Handle{}, false
	}
	return d.ProposeSite(model.KindRnaPolymerase, "", m.dnaFit())
}

// EnterAttached rolls whether to transcribe from this site.
func (p *RnaPolymerase) EnterAttached(m *AttachmentStateMachine) {
	p.phase = phaseAttachedToBasePair
	followSite(m)
	e := p.engine
	gene := e.dna.GeneForPolymeraseSite(m.site)
	draw := e.rand.Float64()
	if p.transcribe {
		p.transcribe = gene != nil
	} else {
		p.transcribe = shouldTranscribe(e.arena.Affinity(m.site), draw, gene != nil)
	}
	p.gene = gene
}

// StepAttached runs the current sub-state.
func (p *RnaPolymerase) StepAttached(m *AttachmentStateMachine, dt float64) {
	switch p.phase {
	case phaseAttachedToBasePair:
		if p.transcribe {
			p.startConforming(m)
			return
		}
		m.stepBasePairWalk(model.KindRnaPolymerase, "", dt)
	case phaseConforming:
		p.stepConforming(m, dt)
	case phaseTranscribing:
		p.stepTranscribing(m, dt)
	case phaseDeconforming:
		p.stepDeconforming(m, dt)
	}
}

// Detached drops everything a transcription holds. A transcript cut short is
// released as it is.
func (p *RnaPolymerase) Detached(m *AttachmentStateMachine) {
	e := p.engine
	if p.mrna != nil {
		p.mrna.releaseFromPolymerase()
		p.mrna = nil
	}
	if p.separation != 0 {
		e.dna.RemoveSeparation(p.separation)
		p.separation = 0
	}
	if p.fictional.Valid() {
		if site, ok := e.arena.Site(p.fictional); ok {
			m.lastAttachment = site.Position
		}
		e.arena.Vacate(p.fictional, p.id)
		_ = e.arena.Release(p.fictional)
		if m.site == p.fictional {
			m.site = attachment.Handle{}
		}
		p.fictional = attachment.Handle{}
	}
	p.phase = phaseAttachedToBasePair
	p.transcribe = false
	p.conformation = 0
	p.gene = nil
}

func (p *RnaPolymerase) startConforming(m *AttachmentStateMachine) {
	e := p.engine
	p.transcribe = false
	p.phase = phaseConforming
	p.conformation = 0
	p.separation = e.dna.AddSeparation(e.arena.Position(m.site).X, p.width/2)
}

func (p *RnaPolymerase) stepConforming(m *AttachmentStateMachine, dt float64) {
	e := p.engine
	p.conformation += e.rates.ConformationalChangeRate * dt
	if p.conformation >= 1 {
		p.conformation = 1
	}
	e.dna.UpdateSeparation(p.separation, e.arena.Position(m.site).X, p.conformation)
	if p.conformation >= 1 {
		p.startTranscribing(m)
	}
}

// startTranscribing moves the polymerase onto a site of its own that slides
// along the gene, frees the gene's site for the next polymerase and starts the
// transcript.
func (p *RnaPolymerase) startTranscribing(m *AttachmentStateMachine) {
	e := p.engine
	geneSite := m.site
	pos := e.arena.Position(geneSite)
	h := e.arena.Allocate(pos, attachment.MaxAffinity, "transcribing")
	if err := e.arena.Claim(h, p.id); err == nil {
		_ = e.arena.MarkAttached(h, p.id)
	}
	e.arena.Vacate(geneSite, p.id)
	p.fictional = h
	m.site = h
	followSite(m)

	p.mrna = e.spawnMessengerRna(p.gene, p.transcriptAnchor(pos), p.id)
	p.phase = phaseTranscribing
	e.metrics.IncTranscription(p.gene.Name())
	if e.log.Enabled(context.Background(), slog.LevelDebug) {
		e.log.Debug(context.Background(), "transcription started",
			logging.Uint64("polymerase", uint64(p.id)),
			logging.String("gene", p.gene.Name()),
		)
	}
}

// transcriptAnchor is where the transcript leaves the polymerase when the
// polymerase sits on site.
func (p *RnaPolymerase) transcriptAnchor(site model.Vec2) model.Vec2 {
	return site.Sub(p.machine.DestinationOffset).Add(model.Vec2{Y: p.height / 2})
}

func (p *RnaPolymerase) stepTranscribing(m *AttachmentStateMachine, dt float64) {
	e := p.engine
	pos := e.arena.Position(m.site)
	endX := p.gene.TranscribedEndX()
	travel := e.rates.TranscriptionSpeed * dt
	if left := endX - pos.X; travel > left {
		travel = left
	}
	if travel < 0 {
		travel = 0
	}
	pos.X += travel
	e.arena.SetPosition(m.site, pos)
	e.dna.UpdateSeparation(p.separation, pos.X, p.conformation)
	if p.mrna != nil {
		p.mrna.grow(travel, p.transcriptAnchor(pos))
	}
	p.clearPathAhead(pos)

	if pos.X >= endX {
		if p.mrna != nil {
			p.mrna.releaseFromPolymerase()
			p.mrna = nil
		}
		p.phase = phaseDeconforming
	}
}

// clearPathAhead knocks strand-attached agents that overlap the polymerase and
// sit ahead of it off the DNA.
func (p *RnaPolymerase) clearPathAhead(site model.Vec2) {
	e := p.engine
	shape := model.RectCenteredAt(site.Sub(p.machine.DestinationOffset), p.width, p.height)
	for _, a := range e.agents {
		if a.ID() == p.id {
			continue
		}
		holder, ok := a.(machineHolder)
		if !ok {
			continue
		}
		om := holder.Machine()
		if !om.IsAttachedToDna() {
			continue
		}
		other := e.arena.Position(om.site)
		if other.X <= site.X || !shape.Intersects(a.Shape()) {
			continue
		}
		om.ForceUnattachedButUnavailable()
	}
}

func (p *RnaPolymerase) stepDeconforming(m *AttachmentStateMachine, dt float64) {
	e := p.engine
	p.conformation -= e.rates.ConformationalChangeRate * dt
	if p.conformation > 0 {
		e.dna.UpdateSeparation(p.separation, e.arena.Position(m.site).X, p.conformation)
		return
	}
	p.conformation = 0
	if len(e.recycleZones) > 0 {
		p.Detached(m)
		m.TransitionTo(beingRecycled{})
		return
	}
	m.Detach()
}

// beingRecycled drifts the polymerase away from the gene it finished and
// teleports it into a recycle zone.
type beingRecycled struct{}

func (beingRecycled) Name() string { return StateBeingRecycled }

func (beingRecycled) Enter(m *AttachmentStateMachine) {
	e := m.engine()
	m.detachFromDnaThreshold = 1
	m.owner.setMotion(motion.NewDriftThenTeleport(model.Vec2{Y: e.rates.RecycleDriftSpeed}, e.recycleZones))
}

func (beingRecycled) Step(m *AttachmentStateMachine, _ float64) {
	if s, ok := m.owner.motion.(motion.DriftThenTeleport); ok && !s.Teleported() {
		return
	}
	m.TransitionTo(unattachedAndAvailable{})
}
