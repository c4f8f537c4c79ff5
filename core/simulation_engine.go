package core

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/gene-expression-sim/attachment"
	"github.com/signalsfoundry/gene-expression-sim/dna"
	"github.com/signalsfoundry/gene-expression-sim/internal/logging"
	"github.com/signalsfoundry/gene-expression-sim/ledger"
	"github.com/signalsfoundry/gene-expression-sim/model"
)

const tracerName = "github.com/signalsfoundry/gene-expression-sim/core"

// spawnMargin pads the DNA's bounds to form the spawn area of an unbounded
// engine.
const spawnMargin = 1000.0

var (
	// ErrBiomoleculeNotFound indicates an agent id that is not live.
	ErrBiomoleculeNotFound = errors.New("biomolecule not found")
	// ErrNotAProtein indicates a capture of something other than a protein.
	ErrNotAProtein = errors.New("biomolecule is not a protein")
	// ErrProteinHeld indicates a capture or grab of a protein its ribosome
	// has not released yet.
	ErrProteinHeld = errors.New("protein is still held by its ribosome")
	// ErrNotMovable indicates a grab of an agent users may not move.
	ErrNotMovable = errors.New("biomolecule cannot be moved by the user")
	// ErrUnsupportedKind indicates a kind that cannot be added directly.
	ErrUnsupportedKind = errors.New("unsupported molecule kind")
)

// MetricsRecorder receives simulation counters. Implementations must be cheap:
// the engine calls them from inside Step.
type MetricsRecorder interface {
	SetLiveCounts(counts map[string]int)
	ObserveStepDuration(seconds float64)
	IncAttachment(kind string)
	IncTranscription(gene string)
	IncTranslation(protein string)
	IncMessengerRnaDestroyed()
	IncFragmentReleased()
	IncProteinCaptured(protein string)
	SetProteinLevel(protein string, level float64)
}

type noopMetrics struct{}

func (noopMetrics) SetLiveCounts(map[string]int)    {}
func (noopMetrics) ObserveStepDuration(float64)     {}
func (noopMetrics) IncAttachment(string)            {}
func (noopMetrics) IncTranscription(string)         {}
func (noopMetrics) IncTranslation(string)           {}
func (noopMetrics) IncMessengerRnaDestroyed()       {}
func (noopMetrics) IncFragmentReleased()            {}
func (noopMetrics) IncProteinCaptured(string)       {}
func (noopMetrics) SetProteinLevel(string, float64) {}

// EngineConfig describes the world an engine simulates.
type EngineConfig struct {
	// DNA is optional; without it only the cytoplasm agents have work to do.
	DNA    *dna.Config
	Bounds model.MotionBounds
	// RecycleZones are where polymerases reappear after transcribing. With
	// none they simply detach.
	RecycleZones []model.Rect
	// FadeMessengerRna makes finished transcripts fade out instead of
	// wandering off to be translated.
	FadeMessengerRna bool
	// Rates defaults to DefaultRates when left zero.
	Rates Rates
}

// EngineOption customises SimulationEngine construction.
type EngineOption func(*SimulationEngine)

// WithLogger attaches a structured logger.
func WithLogger(log logging.Logger) EngineOption {
	return func(e *SimulationEngine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithMetricsRecorder attaches an optional metrics recorder.
func WithMetricsRecorder(m MetricsRecorder) EngineOption {
	return func(e *SimulationEngine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithRand sets the random source every stochastic decision draws from.
func WithRand(r *rand.Rand) EngineOption {
	return func(e *SimulationEngine) {
		if r != nil {
			e.rand = r
		}
	}
}

// WithSeed seeds a fresh random source.
func WithSeed(seed int64) EngineOption {
	return func(e *SimulationEngine) {
		e.rand = rand.New(rand.NewSource(seed))
	}
}

// WithLedger shares a protein ledger with the engine.
func WithLedger(l *ledger.Ledger) EngineOption {
	return func(e *SimulationEngine) {
		if l != nil {
			e.ledger = l
		}
	}
}

// machineHolder is implemented by every agent driven by an
// AttachmentStateMachine.
type machineHolder interface {
	Machine() *AttachmentStateMachine
}

// SimulationEngine owns every agent, the DNA and the attachment sites, and
// advances them one frame at a time. It is not safe for concurrent use; the
// driver calls Step from a single goroutine.
type SimulationEngine struct {
	log     logging.Logger
	metrics MetricsRecorder
	tracer  trace.Tracer
	rand    *rand.Rand
	rates   Rates

	arena            *attachment.Arena
	dna              *dna.Molecule
	bounds           model.MotionBounds
	recycleZones     []model.Rect
	fadeMessengerRna bool
	ledger           *ledger.Ledger

	agents []Agent
	mrnas  []*MessengerRna
	byID   map[model.AgentID]Agent

	stepping      bool
	pendingAdd    []Agent
	pendingRemove map[model.AgentID]struct{}

	lastID  model.AgentID
	simTime float64
	frames  uint64
}

// NewSimulationEngine builds the DNA and an empty population.
func NewSimulationEngine(cfg EngineConfig, opts ...EngineOption) (*SimulationEngine, error) {
	rates := cfg.Rates
	if rates == (Rates{}) {
		rates = DefaultRates()
	}
	if err := rates.Validate(); err != nil {
		return nil, err
	}
	e := &SimulationEngine{
		log:              logging.Noop(),
		metrics:          noopMetrics{},
		tracer:           otel.Tracer(tracerName),
		rand:             rand.New(rand.NewSource(1)),
		rates:            rates,
		arena:            attachment.NewArena(),
		bounds:           cfg.Bounds,
		recycleZones:     append([]model.Rect(nil), cfg.RecycleZones...),
		fadeMessengerRna: cfg.FadeMessengerRna,
		byID:             make(map[model.AgentID]Agent),
		pendingRemove:    make(map[model.AgentID]struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	if e.ledger == nil {
		e.ledger = ledger.New(ledger.DefaultAveragingTime)
	}
	if cfg.DNA != nil {
		mol, err := dna.NewMolecule(e.arena, *cfg.DNA)
		if err != nil {
			return nil, fmt.Errorf("build dna: %w", err)
		}
		e.dna = mol
	}
	return e, nil
}

// Rates returns the engine's constants.
func (e *SimulationEngine) Rates() Rates { return e.rates }

// Arena exposes the attachment sites.
func (e *SimulationEngine) Arena() *attachment.Arena { return e.arena }

// DNA returns the molecule, or nil when the engine has none.
func (e *SimulationEngine) DNA() *dna.Molecule { return e.dna }

// Ledger returns the protein ledger.
func (e *SimulationEngine) Ledger() *ledger.Ledger { return e.ledger }

// Bounds returns the motion bounds every agent moves within.
func (e *SimulationEngine) Bounds() model.MotionBounds { return e.bounds }

// SimTime is the simulated time elapsed, in seconds.
func (e *SimulationEngine) SimTime() float64 { return e.simTime }

// Frames counts completed steps.
func (e *SimulationEngine) Frames() uint64 { return e.frames }

func (e *SimulationEngine) nextAgentID() model.AgentID {
	e.lastID++
	return e.lastID
}

// dnaBand is the DNA's vertical extent, empty without DNA.
func (e *SimulationEngine) dnaBand() model.Range {
	if e.dna == nil {
		return model.Range{}
	}
	return e.dna.Band()
}

// Step advances the world by dt seconds.
func (e *SimulationEngine) Step(dt float64) {
	e.StepContext(context.Background(), dt)
}

// StepContext advances the world by dt seconds under a tracing span. Agents
// step in insertion order, then the mRNAs, then the DNA. Agents added or
// removed during the step join or leave the population at its end.
func (e *SimulationEngine) StepContext(ctx context.Context, dt float64) {
	_, span := e.tracer.Start(ctx, "SimulationEngine.Step", trace.WithAttributes(
		attribute.Float64("sim.dt", dt),
		attribute.Int("sim.agents", len(e.agents)),
		attribute.Int("sim.mrnas", len(e.mrnas)),
	))
	defer span.End()
	start := time.Now()
	if dt < 0 {
		dt = 0
	}

	e.stepping = true
	for _, a := range e.agents {
		if e.skip(a) {
			continue
		}
		a.Step(dt)
	}
	for _, r := range e.mrnas {
		if r.removed || e.skip(r) {
			continue
		}
		r.Step(dt)
	}
	if e.dna != nil {
		e.dna.Step(dt)
	}
	for _, a := range e.agents {
		if a.ExistenceStrength() <= 0 {
			e.retire(a)
		}
	}
	for _, r := range e.mrnas {
		if r.ExistenceStrength() <= 0 {
			e.removeMessengerRna(r)
		}
	}
	e.stepping = false
	e.flush()

	e.simTime += dt
	e.frames++
	e.ledger.UpdateLevels(e.liveProteinCounts(), dt)
	e.recordMetrics(time.Since(start))
	span.SetAttributes(attribute.Float64("sim.time", e.simTime))
}

func (e *SimulationEngine) skip(a Agent) bool {
	if a.biomolecule().userControlled {
		return true
	}
	_, gone := e.pendingRemove[a.ID()]
	return gone
}

// add puts an agent in the population, deferring while a step is running.
func (e *SimulationEngine) add(a Agent) {
	if e.stepping {
		e.pendingAdd = append(e.pendingAdd, a)
		return
	}
	e.insert(a)
}

func (e *SimulationEngine) insert(a Agent) {
	e.byID[a.ID()] = a
	if r, ok := a.(*MessengerRna); ok {
		e.mrnas = append(e.mrnas, r)
		return
	}
	e.agents = append(e.agents, a)
}

// remove takes an agent out of the population at the end of the step.
func (e *SimulationEngine) remove(a Agent) {
	e.pendingRemove[a.ID()] = struct{}{}
	if !e.stepping {
		e.flush()
	}
}

// retire drops whatever an agent holds and removes it.
func (e *SimulationEngine) retire(a Agent) {
	if h, ok := a.(machineHolder); ok {
		m := h.Machine()
		m.behavior.Detached(m)
		m.releaseSite()
	}
	if r, ok := a.(*MessengerRna); ok {
		e.removeMessengerRna(r)
		return
	}
	e.remove(a)
}

// removeMessengerRna takes a strand out of the model. It runs at most once per
// strand.
func (e *SimulationEngine) removeMessengerRna(r *MessengerRna) {
	if r.removed {
		return
	}
	r.removed = true
	_ = e.arena.Release(r.site)
	if r.FullyDestroyed() {
		e.metrics.IncMessengerRnaDestroyed()
	}
	e.remove(r)
}

func (e *SimulationEngine) flush() {
	for _, a := range e.pendingAdd {
		if _, gone := e.pendingRemove[a.ID()]; gone {
			continue
		}
		e.insert(a)
	}
	e.pendingAdd = e.pendingAdd[:0]
	if len(e.pendingRemove) == 0 {
		return
	}
	kept := e.agents[:0]
	for _, a := range e.agents {
		if _, gone := e.pendingRemove[a.ID()]; !gone {
			kept = append(kept, a)
		}
	}
	for i := len(kept); i < len(e.agents); i++ {
		e.agents[i] = nil
	}
	e.agents = kept
	keptRna := e.mrnas[:0]
	for _, r := range e.mrnas {
		if _, gone := e.pendingRemove[r.ID()]; !gone {
			keptRna = append(keptRna, r)
		}
	}
	for i := len(keptRna); i < len(e.mrnas); i++ {
		e.mrnas[i] = nil
	}
	e.mrnas = keptRna
	for id := range e.pendingRemove {
		delete(e.byID, id)
		delete(e.pendingRemove, id)
	}
}

// Agent looks up a live agent.
func (e *SimulationEngine) Agent(id model.AgentID) (Agent, bool) {
	a, ok := e.byID[id]
	return a, ok
}

// Agents returns the live agents other than mRNAs, in step order.
func (e *SimulationEngine) Agents() []Agent {
	out := make([]Agent, len(e.agents))
	copy(out, e.agents)
	return out
}

// MessengerRnas returns the live mRNAs, in step order.
func (e *SimulationEngine) MessengerRnas() []*MessengerRna {
	out := make([]*MessengerRna, len(e.mrnas))
	copy(out, e.mrnas)
	return out
}

// Count returns how many live agents of kind there are.
func (e *SimulationEngine) Count(kind model.MoleculeKind) int {
	if kind == model.KindMessengerRna {
		return len(e.mrnas)
	}
	n := 0
	for _, a := range e.agents {
		if a.Kind() == kind {
			n++
		}
	}
	return n
}

// AddBiomolecules adds count agents of kind at random points of the spawn
// area. Transcription factors go through AddTranscriptionFactors.
func (e *SimulationEngine) AddBiomolecules(kind model.MoleculeKind, count int) ([]model.AgentID, error) {
	ids := make([]model.AgentID, 0, count)
	for i := 0; i < count; i++ {
		var a Agent
		switch kind {
		case model.KindRnaPolymerase:
			a = newRnaPolymerase(e, e.spawnPoint(kind))
		case model.KindRibosome:
			a = newRibosome(e, e.spawnPoint(kind))
		case model.KindMessengerRnaDestroyer:
			a = newMessengerRnaDestroyer(e, e.spawnPoint(kind))
		default:
			return ids, fmt.Errorf("%w: cannot add %s directly", ErrUnsupportedKind, kind)
		}
		e.add(a)
		ids = append(ids, a.ID())
	}
	return ids, nil
}

// addable reports whether AddBiomolecules accepts kind.
func addable(kind model.MoleculeKind) bool {
	switch kind {
	case model.KindRnaPolymerase, model.KindRibosome, model.KindMessengerRnaDestroyer:
		return true
	}
	return false
}

// AddTranscriptionFactors adds count factors of a registered config.
func (e *SimulationEngine) AddTranscriptionFactors(config string, count int) ([]model.AgentID, error) {
	cfg, err := e.transcriptionFactorConfig(config)
	if err != nil {
		return nil, err
	}
	ids := make([]model.AgentID, 0, count)
	for i := 0; i < count; i++ {
		tf := newTranscriptionFactor(e, cfg, e.spawnPoint(model.KindTranscriptionFactor))
		e.add(tf)
		ids = append(ids, tf.ID())
	}
	return ids, nil
}

func (e *SimulationEngine) transcriptionFactorConfig(name string) (model.TranscriptionFactorConfig, error) {
	if e.dna == nil {
		return model.TranscriptionFactorConfig{}, fmt.Errorf("%w: %q (no dna)", dna.ErrUnknownTranscriptionFactor, name)
	}
	return e.dna.TranscriptionFactorConfig(name)
}

// SetPolymeraseAffinity sets the configured polymerase affinity of a gene.
func (e *SimulationEngine) SetPolymeraseAffinity(gene string, affinity float64) error {
	if e.dna == nil {
		return fmt.Errorf("%w: %q (no dna)", dna.ErrUnknownGene, gene)
	}
	g, err := e.dna.Gene(gene)
	if err != nil {
		return err
	}
	g.SetPolymeraseAffinity(affinity)
	return nil
}

// SetTranscriptionFactorAffinity sets the affinity of every site reserved for
// a transcription factor config.
func (e *SimulationEngine) SetTranscriptionFactorAffinity(config string, affinity float64) error {
	if e.dna == nil {
		return fmt.Errorf("%w: %q (no dna)", dna.ErrUnknownTranscriptionFactor, config)
	}
	return e.dna.SetTranscriptionFactorAffinity(config, affinity)
}

// SetTranscriptionFactorCount adds or removes factors of a config until count
// are live. Unattached factors are removed before attached ones, newest first.
func (e *SimulationEngine) SetTranscriptionFactorCount(config string, count int) error {
	if count < 0 {
		count = 0
	}
	if _, err := e.transcriptionFactorConfig(config); err != nil {
		return err
	}
	var live []*TranscriptionFactor
	for _, a := range append(e.Agents(), e.pendingAdd...) {
		tf, ok := a.(*TranscriptionFactor)
		if !ok || tf.config.Name != config {
			continue
		}
		if _, gone := e.pendingRemove[tf.id]; gone {
			continue
		}
		live = append(live, tf)
	}
	switch {
	case len(live) < count:
		_, err := e.AddTranscriptionFactors(config, count-len(live))
		return err
	case len(live) > count:
		sort.SliceStable(live, func(i, j int) bool {
			bi, bj := live[i].machine.site.Valid(), live[j].machine.site.Valid()
			if bi != bj {
				return !bi
			}
			return live[i].id > live[j].id
		})
		for _, tf := range live[:len(live)-count] {
			e.retire(tf)
		}
		e.log.Debug(context.Background(), "transcription factors removed",
			logging.String("config", config),
			logging.Int("removed", len(live)-count),
		)
	}
	return nil
}

// CaptureProtein removes a released protein and records it in the ledger.
func (e *SimulationEngine) CaptureProtein(id model.AgentID) (model.ProteinKind, error) {
	a, ok := e.byID[id]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrBiomoleculeNotFound, id)
	}
	p, ok := a.(*Protein)
	if !ok {
		return "", fmt.Errorf("%w: %d is a %s", ErrNotAProtein, id, a.Kind())
	}
	if !p.Released() {
		return "", fmt.Errorf("%w: %d", ErrProteinHeld, id)
	}
	e.retire(p)
	e.ledger.RecordCapture(p.protein)
	e.metrics.IncProteinCaptured(string(p.protein))
	return p.protein, nil
}

// Grab hands an agent to the user: it drops any attachment and stops being
// stepped until Release.
func (e *SimulationEngine) Grab(id model.AgentID) error {
	a, ok := e.byID[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrBiomoleculeNotFound, id)
	}
	b := a.biomolecule()
	if !b.movableByUser {
		return fmt.Errorf("%w: %d is a %s", ErrNotMovable, id, a.Kind())
	}
	if p, ok := a.(*Protein); ok && !p.Released() {
		return fmt.Errorf("%w: %d", ErrProteinHeld, id)
	}
	if h, ok := a.(machineHolder); ok {
		switch a.Kind() {
		case model.KindRibosome, model.KindMessengerRnaDestroyer:
			h.Machine().ForceUnattachedButUnavailable()
		default:
			h.Machine().ForceUnattachedAndAvailable()
		}
	}
	b.userControlled = true
	return nil
}

// DragTo moves a grabbed agent.
func (e *SimulationEngine) DragTo(id model.AgentID, pos model.Vec2) error {
	a, ok := e.byID[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrBiomoleculeNotFound, id)
	}
	b := a.biomolecule()
	b.setPosition(model.At(pos, 0))
	return nil
}

// Release hands a grabbed agent back to the simulation at pos.
func (e *SimulationEngine) Release(id model.AgentID, pos model.Vec2) error {
	a, ok := e.byID[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrBiomoleculeNotFound, id)
	}
	b := a.biomolecule()
	b.setPosition(model.At(pos, 0))
	b.userControlled = false
	return nil
}

func (e *SimulationEngine) spawnMessengerRna(g *dna.Gene, anchor model.Vec2, polymerase model.AgentID) *MessengerRna {
	r := newMessengerRna(e, g.Name(), g.Protein(), anchor, polymerase)
	e.add(r)
	return r
}

func (e *SimulationEngine) spawnProtein(kind model.ProteinKind, pos model.Vec3) *Protein {
	p := newProtein(e, kind, pos)
	e.add(p)
	return p
}

func (e *SimulationEngine) spawnFragment(d *MessengerRnaDestroyer, target float64) *MessengerRnaFragment {
	f := newMessengerRnaFragment(e, d.Biomolecule, target)
	e.add(f)
	return f
}

// nearestMessengerRna returns the closest live strand that accept takes,
// within the mRNA proposal range. Earlier strands win ties.
func (e *SimulationEngine) nearestMessengerRna(pos model.Vec2, accept func(*MessengerRna) bool) *MessengerRna {
	var best *MessengerRna
	bestDist := e.rates.MessengerRnaProposal
	for _, r := range e.mrnas {
		if r.removed || !accept(r) {
			continue
		}
		d := e.arena.Position(r.site).DistanceTo(pos)
		if d <= bestDist && (best == nil || d < bestDist) {
			best, bestDist = r, d
		}
	}
	return best
}

func (e *SimulationEngine) messengerRnaForSite(h attachment.Handle) *MessengerRna {
	for _, r := range e.mrnas {
		if r.site == h && !r.removed {
			return r
		}
	}
	for _, a := range e.pendingAdd {
		if r, ok := a.(*MessengerRna); ok && r.site == h && !r.removed {
			return r
		}
	}
	return nil
}

// spawnArea is where new agents appear.
func (e *SimulationEngine) spawnArea() model.Rect {
	if e.bounds.IsBounded() {
		return e.bounds.Region().Bounds()
	}
	if e.dna != nil {
		b := e.dna.Bounds()
		return model.Rect{MinX: b.MinX - spawnMargin, MinY: b.MinY - spawnMargin, MaxX: b.MaxX + spawnMargin, MaxY: b.MaxY + spawnMargin}
	}
	return model.RectCenteredAt(model.Vec2{}, 2*spawnMargin, 2*spawnMargin)
}

// spawnPoint picks a random point where a kind's shape fits in bounds.
func (e *SimulationEngine) spawnPoint(kind model.MoleculeKind) model.Vec3 {
	size := shapeSizes[kind]
	area := e.spawnArea().Inset(size.X/2, size.Y/2)
	for i := 0; i < 100; i++ {
		p := model.Vec2{
			X: area.MinX + e.rand.Float64()*area.Width(),
			Y: area.MinY + e.rand.Float64()*area.Height(),
		}
		if e.bounds.InBounds(model.RectCenteredAt(p, size.X, size.Y)) {
			return model.At(p, 0)
		}
	}
	return model.At(e.bounds.Center(), 0)
}

// liveProteinCounts counts released proteins per kind, with every gene's
// protein present so absent kinds decay.
func (e *SimulationEngine) liveProteinCounts() map[model.ProteinKind]int {
	counts := make(map[model.ProteinKind]int)
	if e.dna != nil {
		for _, g := range e.dna.Genes() {
			counts[g.Protein()] = 0
		}
	}
	for _, a := range e.agents {
		if p, ok := a.(*Protein); ok && p.Released() {
			counts[p.protein]++
		}
	}
	return counts
}

func (e *SimulationEngine) recordMetrics(took time.Duration) {
	counts := map[string]int{model.KindMessengerRna.String(): len(e.mrnas)}
	for _, a := range e.agents {
		counts[a.Kind().String()]++
	}
	e.metrics.SetLiveCounts(counts)
	e.metrics.ObserveStepDuration(took.Seconds())
	for kind, level := range e.ledger.Levels() {
		e.metrics.SetProteinLevel(string(kind), level)
	}
}
