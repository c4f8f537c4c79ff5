package core

import (
	"math"

	"github.com/signalsfoundry/gene-expression-sim/attachment"
	"github.com/signalsfoundry/gene-expression-sim/model"
	"github.com/signalsfoundry/gene-expression-sim/motion"
)

// mRNA state names.
const (
	StateBeingSynthesized         = "being_synthesized"
	StateDetachingFromPolymerase  = "detaching_from_polymerase"
	StateUnattachedAndFading      = "unattached_and_fading"
	StateWanderingAroundCytoplasm = "wandering_around_cytoplasm"
	StateBeingTranslated          = "being_translated"
	StateBeingDestroyed           = "being_destroyed"
)

// messengerRnaSegmentLength is the longest straight run in the strand's
// polyline before it bends.
const messengerRnaSegmentLength = 40.0

// messengerRnaWinding is the angle between successive segments.
const messengerRnaWinding = math.Pi / 4

// segmentEpsilon is how short of messengerRnaSegmentLength a segment may be
// and still count as full.
const segmentEpsilon = 1e-9

type messengerRnaState interface {
	Name() string
	Enter(r *MessengerRna)
	Step(r *MessengerRna, dt float64)
}

// MessengerRna is a transcript. It is stepped after the other agents and runs
// its own small state machine: synthesised by a polymerase, then wandering,
// translated by ribosomes, and finally destroyed or faded.
//
// Its geometry is a polyline from the 5' end (index 0) to the 3' end. Ribosomes
// and destroyers work from the 5' end; the destroyed prefix is no longer part
// of the visible strand.
type MessengerRna struct {
	*Biomolecule
	protein model.ProteinKind
	gene    string

	points    []model.Vec2
	length    float64
	destroyed float64
	heading   float64
	bend      float64
	segment   float64

	site       attachment.Handle
	state      messengerRnaState
	polymerase model.AgentID
	ribosomes  map[model.AgentID]struct{}
	destroyer  model.AgentID
	countdown  float64
	removed    bool
}

func newMessengerRna(e *SimulationEngine, gene string, protein model.ProteinKind, anchor model.Vec2, polymerase model.AgentID) *MessengerRna {
	r := &MessengerRna{
		Biomolecule: newBiomolecule(e, model.KindMessengerRna, model.At(anchor, 0)),
		protein:     protein,
		gene:        gene,
		points:      []model.Vec2{anchor},
		heading:     -math.Pi / 2,
		bend:        messengerRnaWinding,
		polymerase:  polymerase,
		ribosomes:   make(map[model.AgentID]struct{}),
	}
	r.site = e.arena.Allocate(anchor, attachment.DefaultAffinity, "mrna")
	r.transitionTo(beingSynthesized{})
	r.refreshShape()
	return r
}

// StateName names the current state.
func (r *MessengerRna) StateName() string { return r.state.Name() }

// Protein returns the protein the transcript codes for.
func (r *MessengerRna) Protein() model.ProteinKind { return r.protein }

// Gene names the gene the transcript was made from.
func (r *MessengerRna) Gene() string { return r.gene }

// Length is the total length transcribed so far.
func (r *MessengerRna) Length() float64 { return r.length }

// DestroyedLength is how much of the 5' end has been destroyed.
func (r *MessengerRna) DestroyedLength() float64 { return r.destroyed }

// FullyDestroyed reports whether nothing is left to destroy.
func (r *MessengerRna) FullyDestroyed() bool {
	return r.length > 0 && r.destroyed >= r.length
}

// Site returns the attachment site ribosomes and destroyers bind to.
func (r *MessengerRna) Site() attachment.Handle { return r.site }

// Removed reports whether the engine has taken the strand out of the model.
func (r *MessengerRna) Removed() bool { return r.removed }

// Points returns a copy of the visible polyline, 5' end first.
func (r *MessengerRna) Points() []model.Vec2 {
	if r.destroyed <= 0 {
		out := make([]model.Vec2, len(r.points))
		copy(out, r.points)
		return out
	}
	out := []model.Vec2{r.PointAt(r.destroyed)}
	travelled := 0.0
	for i := 1; i < len(r.points); i++ {
		travelled += r.points[i].DistanceTo(r.points[i-1])
		if travelled > r.destroyed {
			out = append(out, r.points[i])
		}
	}
	return out
}

// PointAt returns the point at distance d along the strand from the 5' end,
// clamped to the strand.
func (r *MessengerRna) PointAt(d float64) model.Vec2 {
	if len(r.points) == 0 {
		return r.position.XY()
	}
	if d <= 0 {
		return r.points[0]
	}
	for i := 1; i < len(r.points); i++ {
		seg := r.points[i].Sub(r.points[i-1])
		l := seg.Len()
		if d <= l {
			if l == 0 {
				return r.points[i]
			}
			return r.points[i-1].Add(seg.Scale(d / l))
		}
		d -= l
	}
	return r.points[len(r.points)-1]
}

// AcceptsRibosome reports whether a ribosome may claim the strand's site now.
func (r *MessengerRna) AcceptsRibosome() bool {
	switch r.state.(type) {
	case wanderingAroundCytoplasm, beingTranslated:
	default:
		return false
	}
	return !r.removed && r.length > 0 && r.destroyer == model.NoAgent && r.engine.arena.IsAvailable(r.site)
}

// AcceptsDestroyer reports whether a destroyer may claim the strand's site now.
func (r *MessengerRna) AcceptsDestroyer() bool {
	switch r.state.(type) {
	case wanderingAroundCytoplasm, beingTranslated:
	default:
		return false
	}
	return !r.removed && r.length > 0 && r.destroyer == model.NoAgent && r.engine.arena.IsAvailable(r.site)
}

// Step runs the current state and moves the strand.
func (r *MessengerRna) Step(dt float64) {
	r.state.Step(r, dt)
	before := r.position.XY()
	r.advance(dt)
	if d := r.position.XY().Sub(before); d != (model.Vec2{}) {
		for i := range r.points {
			r.points[i] = r.points[i].Add(d)
		}
	}
	r.syncSite()
}

func (r *MessengerRna) transitionTo(s messengerRnaState) {
	s.Enter(r)
	r.state = s
}

// grow adds length at the 3' end, which stays pinned to anchor, and pushes
// older material away along a winding path. The open segment's length is
// tracked rather than measured from its points, so a full segment is
// recognised exactly.
func (r *MessengerRna) grow(delta float64, anchor model.Vec2) {
	if delta > 0 {
		r.length += delta
		for delta > 0 {
			last := len(r.points) - 1
			if last == 0 || r.segment >= messengerRnaSegmentLength-segmentEpsilon {
				r.heading += r.bend
				r.bend = -r.bend
				r.points = append(r.points, r.points[last])
				last++
				r.segment = 0
			}
			step := math.Min(delta, messengerRnaSegmentLength-r.segment)
			r.segment += step
			r.points[last] = r.points[last-1].Add(model.Polar(r.segment, r.heading))
			delta -= step
		}
	}
	shift := anchor.Sub(r.points[len(r.points)-1])
	for i := range r.points {
		r.points[i] = r.points[i].Add(shift)
	}
	r.refreshShape()
	r.syncSite()
}

// refreshShape recentres the agent on the polyline's bounding box so motion
// bounds apply to the whole strand.
func (r *MessengerRna) refreshShape() {
	box := model.Rect{MinX: r.points[0].X, MinY: r.points[0].Y, MaxX: r.points[0].X, MaxY: r.points[0].Y}
	for _, p := range r.points[1:] {
		box = box.Union(model.Rect{MinX: p.X, MinY: p.Y, MaxX: p.X, MaxY: p.Y})
	}
	r.width = math.Max(1, box.Width())
	r.height = math.Max(1, box.Height())
	r.position = model.At(box.Center(), r.position.Z)
}

func (r *MessengerRna) syncSite() {
	if !r.removed {
		r.engine.arena.SetPosition(r.site, r.PointAt(r.destroyed))
	}
}

// releaseFromPolymerase ends synthesis. An empty transcript is removed.
func (r *MessengerRna) releaseFromPolymerase() {
	if _, ok := r.state.(beingSynthesized); !ok {
		return
	}
	r.polymerase = model.NoAgent
	if r.length <= 0 {
		// Cut off before anything was transcribed: there is no strand.
		r.engine.removeMessengerRna(r)
		return
	}
	if r.engine.fadeMessengerRna {
		r.transitionTo(unattachedAndFading{})
		return
	}
	r.transitionTo(detachingFromPolymerase{})
}

func (r *MessengerRna) startTranslation(ribosome model.AgentID) {
	r.ribosomes[ribosome] = struct{}{}
	if r.destroyer == model.NoAgent {
		r.transitionTo(beingTranslated{})
	}
}

func (r *MessengerRna) finishTranslation(ribosome model.AgentID) {
	delete(r.ribosomes, ribosome)
	if _, ok := r.state.(beingTranslated); ok && len(r.ribosomes) == 0 {
		r.transitionTo(wanderingAroundCytoplasm{})
	}
}

// Ribosomes returns how many ribosomes are translating the strand.
func (r *MessengerRna) Ribosomes() int { return len(r.ribosomes) }

func (r *MessengerRna) startDestruction(destroyer model.AgentID) {
	r.destroyer = destroyer
	r.transitionTo(beingDestroyed{})
}

// advanceDestruction destroys up to delta more of the strand and returns the
// amount actually destroyed.
func (r *MessengerRna) advanceDestruction(delta float64) float64 {
	left := r.length - r.destroyed
	if delta > left {
		delta = left
	}
	if delta <= 0 {
		return 0
	}
	r.destroyed += delta
	r.syncSite()
	return delta
}

type beingSynthesized struct{}

func (beingSynthesized) Name() string { return StateBeingSynthesized }

func (beingSynthesized) Enter(r *MessengerRna) { r.setMotion(motion.Stillness{}) }

func (beingSynthesized) Step(*MessengerRna, float64) {}

type detachingFromPolymerase struct{}

func (detachingFromPolymerase) Name() string { return StateDetachingFromPolymerase }

func (detachingFromPolymerase) Enter(r *MessengerRna) {
	r.countdown = r.engine.rates.DetachFromPolymerase
	r.setMotion(motion.NewWanderInGeneralDirection(model.Vec2{Y: 1}))
}

func (detachingFromPolymerase) Step(r *MessengerRna, dt float64) {
	r.countdown -= dt
	if r.countdown <= 0 {
		r.transitionTo(wanderingAroundCytoplasm{})
	}
}

type unattachedAndFading struct{}

func (unattachedAndFading) Name() string { return StateUnattachedAndFading }

func (unattachedAndFading) Enter(r *MessengerRna) {
	r.countdown = r.engine.rates.MessengerRnaPreFade
	r.setMotion(motion.NewWanderInGeneralDirection(model.Vec2{Y: 1}))
}

func (unattachedAndFading) Step(r *MessengerRna, dt float64) {
	if r.countdown > 0 {
		r.countdown -= dt
		return
	}
	r.setExistence(r.existence - dt/r.engine.rates.MessengerRnaFade)
}

type wanderingAroundCytoplasm struct{}

func (wanderingAroundCytoplasm) Name() string { return StateWanderingAroundCytoplasm }

func (wanderingAroundCytoplasm) Enter(r *MessengerRna) { r.setMotion(motion.NewRandomWalk()) }

func (wanderingAroundCytoplasm) Step(*MessengerRna, float64) {}

type beingTranslated struct{}

func (beingTranslated) Name() string { return StateBeingTranslated }

func (beingTranslated) Enter(r *MessengerRna) { r.setMotion(motion.Stillness{}) }

func (beingTranslated) Step(*MessengerRna, float64) {}

type beingDestroyed struct{}

func (beingDestroyed) Name() string { return StateBeingDestroyed }

func (beingDestroyed) Enter(r *MessengerRna) { r.setMotion(motion.Stillness{}) }

func (beingDestroyed) Step(*MessengerRna, float64) {}
