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

// State names shared by every family.
const (
	StateUnattachedAndAvailable   = "unattached_and_available"
	StateMovingTowardAttachment   = "moving_toward_attachment"
	StateAttached                 = "attached"
	StateUnattachedButUnavailable = "unattached_but_unavailable"
)

// AttachmentState is one state of an AttachmentStateMachine.
type AttachmentState interface {
	Name() string
	Enter(m *AttachmentStateMachine)
	Step(m *AttachmentStateMachine, dt float64)
}

// Behavior is what a molecule family plugs into the generic machine: how it
// looks for partners and what it does once attached.
type Behavior interface {
	// ProposeAttachment returns a free site the agent wants to bind to.
	ProposeAttachment(m *AttachmentStateMachine) (attachment.Handle, bool)
	EnterAttached(m *AttachmentStateMachine)
	StepAttached(m *AttachmentStateMachine, dt float64)
	// Detached runs whenever the machine leaves an attachment early or late,
	// so the behavior can drop whatever it was holding. It must be idempotent.
	Detached(m *AttachmentStateMachine)
}

// AttachedStateNamer lets a behavior name its attached sub-state.
type AttachedStateNamer interface {
	AttachedStateName() string
}

// AttachmentStateMachine drives one agent through attaching to, staying on
// and leaving attachment sites.
type AttachmentStateMachine struct {
	owner    *Biomolecule
	behavior Behavior
	state    AttachmentState
	site     attachment.Handle

	// DestinationOffset is where the agent sits relative to its site: the
	// agent's position is the site position minus the offset.
	DestinationOffset model.Vec2

	lastAttachment model.Vec2
	countdown      float64
	// detachFromDnaThreshold is the chance a detaching DNA walker hops to a
	// neighbour instead of letting go. It decays with every hop.
	detachFromDnaThreshold float64
	transitions            uint64
}

func newAttachmentStateMachine(owner *Biomolecule, behavior Behavior) *AttachmentStateMachine {
	m := &AttachmentStateMachine{
		owner:                  owner,
		behavior:               behavior,
		detachFromDnaThreshold: 1,
	}
	m.TransitionTo(unattachedAndAvailable{})
	return m
}

func (m *AttachmentStateMachine) engine() *SimulationEngine { return m.owner.engine }
func (m *AttachmentStateMachine) arena() *attachment.Arena  { return m.owner.engine.arena }

// State returns the current state.
func (m *AttachmentStateMachine) State() AttachmentState { return m.state }

// StateName names the current state, using the behavior's sub-state name
// while attached.
func (m *AttachmentStateMachine) StateName() string {
	if _, ok := m.state.(attachedState); ok {
		if n, ok := m.behavior.(AttachedStateNamer); ok {
			return n.AttachedStateName()
		}
	}
	return m.state.Name()
}

// Site returns the claimed site, which is the zero handle when none is held.
func (m *AttachmentStateMachine) Site() attachment.Handle { return m.site }

// Step advances the current state.
func (m *AttachmentStateMachine) Step(dt float64) {
	m.state.Step(m, dt)
}

// TransitionTo enters s and makes it current. A transition made from inside
// s.Enter wins over s.
func (m *AttachmentStateMachine) TransitionTo(s AttachmentState) {
	m.transitions++
	n := m.transitions
	prev := ""
	if m.state != nil {
		prev = m.state.Name()
	}
	s.Enter(m)
	if m.transitions == n {
		m.state = s
	}
	e := m.engine()
	if e.log.Enabled(context.Background(), slog.LevelDebug) {
		e.log.Debug(context.Background(), "attachment state transition",
			logging.Uint64("agent", uint64(m.owner.id)),
			logging.String("kind", m.owner.kind.String()),
			logging.String("from", prev),
			logging.String("to", s.Name()),
		)
	}
}

// IsAttached reports whether the agent holds a site and has arrived on it.
func (m *AttachmentStateMachine) IsAttached() bool {
	return m.site.Valid() && m.arena().Occupant(m.site) == m.owner.id && m.arena().IsAttached(m.site)
}

// IsMovingTowardAttachment reports whether the agent holds a site it has not
// reached yet.
func (m *AttachmentStateMachine) IsMovingTowardAttachment() bool {
	return m.site.Valid() && m.arena().Occupant(m.site) == m.owner.id && !m.arena().IsAttached(m.site)
}

// IsAttachedToDna reports whether the agent sits on one of the DNA's sites.
func (m *AttachmentStateMachine) IsAttachedToDna() bool {
	d := m.engine().dna
	return d != nil && m.IsAttached() && d.OwnsSite(m.site)
}

// ForceUnattachedAndAvailable drops any attachment and makes the agent look
// for partners straight away.
func (m *AttachmentStateMachine) ForceUnattachedAndAvailable() {
	m.behavior.Detached(m)
	m.releaseSite()
	m.TransitionTo(unattachedAndAvailable{})
}

// ForceUnattachedButUnavailable drops any attachment and makes the agent
// wander off for the cool-down.
func (m *AttachmentStateMachine) ForceUnattachedButUnavailable() {
	m.behavior.Detached(m)
	m.releaseSite()
	m.TransitionTo(unattachedButUnavailable{})
}

// Detach is the normal end of an attachment: release the site and wander away
// from it.
func (m *AttachmentStateMachine) Detach() {
	m.ForceUnattachedButUnavailable()
}

// claim takes h for the agent and starts moving to it. DNA sites are
// approached in a straight line; anything else, such as an mRNA end, is
// meandered toward.
func (m *AttachmentStateMachine) claim(h attachment.Handle, speed float64) bool {
	if err := m.arena().Claim(h, m.owner.id); err != nil {
		return false
	}
	m.site = h
	d := m.engine().dna
	m.TransitionTo(movingTowardAttachment{speed: speed, meander: d == nil || !d.OwnsSite(h)})
	return true
}

// hop moves from the current DNA site to a neighbour without leaving the DNA.
func (m *AttachmentStateMachine) hop(to attachment.Handle) bool {
	from := m.site
	if err := m.arena().Claim(to, m.owner.id); err != nil {
		return false
	}
	m.arena().Vacate(from, m.owner.id)
	m.site = to
	m.detachFromDnaThreshold *= m.engine().rates.HopThresholdDecay
	m.TransitionTo(movingTowardAttachment{speed: m.engine().rates.HopSpeed})
	return true
}

func (m *AttachmentStateMachine) releaseSite() {
	if !m.site.Valid() {
		return
	}
	if site, ok := m.arena().Site(m.site); ok {
		m.lastAttachment = site.Position
	}
	m.arena().Vacate(m.site, m.owner.id)
	m.site = attachment.Handle{}
}

// dnaFit describes the agent for DNA site searches.
func (m *AttachmentStateMachine) dnaFit() dna.Fit {
	return dna.Fit{
		Position: m.owner.position.XY(),
		Shape:    m.owner.Shape(),
		Bounds:   m.engine().bounds,
		Offset:   m.DestinationOffset,
	}
}

// stepBasePairWalk is the attached behavior shared by the DNA walkers: draw
// against the half-life model and, on a detach draw, either hop to a free
// neighbour or let go of the DNA. It reports whether the agent is still on
// its site.
func (m *AttachmentStateMachine) stepBasePairWalk(kind model.MoleculeKind, cfg string, dt float64) bool {
	e := m.engine()
	affinity := e.arena.Affinity(m.site)
	if e.rand.Float64() >= ProbabilityOfDetachment(affinity, dt, e.rates.HalfLifeAtHalfAffinity) {
		return true
	}
	if e.dna != nil && e.rand.Float64() < m.detachFromDnaThreshold {
		neighbours := e.dna.AdjacentSites(kind, m.site, cfg, m.dnaFit())
		e.rand.Shuffle(len(neighbours), func(i, j int) { neighbours[i], neighbours[j] = neighbours[j], neighbours[i] })
		for _, h := range neighbours {
			if m.hop(h) {
				return false
			}
		}
	}
	m.Detach()
	return false
}

type unattachedAndAvailable struct{}

func (unattachedAndAvailable) Name() string { return StateUnattachedAndAvailable }

func (unattachedAndAvailable) Enter(m *AttachmentStateMachine) {
	m.releaseSite()
	m.owner.setMotion(motion.NewRandomWalk())
}

func (unattachedAndAvailable) Step(m *AttachmentStateMachine, _ float64) {
	h, ok := m.behavior.ProposeAttachment(m)
	if !ok {
		return
	}
	m.claim(h, m.engine().rates.ApproachSpeed)
}

type movingTowardAttachment struct {
	speed   float64
	meander bool
}

func (movingTowardAttachment) Name() string { return StateMovingTowardAttachment }

func (s movingTowardAttachment) Enter(m *AttachmentStateMachine) {
	dest := motion.PointFunc(m.arena().Locator(m.site))
	if s.meander {
		m.owner.setMotion(motion.NewMeanderToDestination(dest, m.DestinationOffset, s.speed))
		return
	}
	m.owner.setMotion(motion.NewMoveDirectlyToDestination(dest, m.DestinationOffset, s.speed))
}

func (movingTowardAttachment) Step(m *AttachmentStateMachine, _ float64) {
	arena := m.arena()
	site, ok := arena.Site(m.site)
	if !ok || site.Occupant != m.owner.id {
		// Stolen or gone: the handle is no longer ours to vacate.
		m.site = attachment.Handle{}
		m.TransitionTo(unattachedAndAvailable{})
		return
	}
	target := site.Position.Sub(m.DestinationOffset)
	if m.owner.position.XY().DistanceTo(target) > m.engine().rates.ArrivalTolerance {
		return
	}
	if err := arena.MarkAttached(m.site, m.owner.id); err != nil {
		m.site = attachment.Handle{}
		m.TransitionTo(unattachedAndAvailable{})
		return
	}
	m.engine().metrics.IncAttachment(m.owner.kind.String())
	m.TransitionTo(attachedState{})
}

type attachedState struct{}

func (attachedState) Name() string { return StateAttached }

func (attachedState) Enter(m *AttachmentStateMachine) {
	m.behavior.EnterAttached(m)
}

func (attachedState) Step(m *AttachmentStateMachine, dt float64) {
	m.behavior.StepAttached(m, dt)
}

type unattachedButUnavailable struct{}

func (unattachedButUnavailable) Name() string { return StateUnattachedButUnavailable }

func (unattachedButUnavailable) Enter(m *AttachmentStateMachine) {
	m.releaseSite()
	m.detachFromDnaThreshold = 1
	m.countdown = m.engine().rates.UnavailableCoolDown
	away := m.owner.position.XY().Sub(m.lastAttachment)
	if away.Len() == 0 {
		away = model.Vec2{Y: 1}
	}
	m.owner.setMotion(motion.NewWanderInGeneralDirection(away))
}

func (unattachedButUnavailable) Step(m *AttachmentStateMachine, dt float64) {
	m.countdown -= dt
	if m.countdown <= 0 {
		m.TransitionTo(unattachedAndAvailable{})
	}
}

// GenericAttachment is the default attached behavior: follow the site for a
// fixed time, then detach. Families embed it and override what they need.
type GenericAttachment struct {
	remaining float64
}

// EnterAttached starts the countdown and pins the agent to its site.
func (g *GenericAttachment) EnterAttached(m *AttachmentStateMachine) {
	g.remaining = m.engine().rates.GenericAttachTime
	followSite(m)
}

// StepAttached detaches when the countdown runs out.
func (g *GenericAttachment) StepAttached(m *AttachmentStateMachine, dt float64) {
	invariant(m.arena().Occupant(m.site) == m.owner.id, "agent %d stepping a site it does not hold", m.owner.id)
	g.remaining -= dt
	if g.remaining <= 0 {
		m.Detach()
	}
}

// Detached has nothing to drop.
func (g *GenericAttachment) Detached(*AttachmentStateMachine) {}

func followSite(m *AttachmentStateMachine) {
	m.owner.setMotion(motion.FollowAttachmentSite{
		Site:   motion.PointFunc(m.arena().Locator(m.site)),
		Offset: m.DestinationOffset,
	})
}
