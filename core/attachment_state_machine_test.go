package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/gene-expression-sim/attachment"
	"github.com/signalsfoundry/gene-expression-sim/model"
)

// dockingFamily binds once to a fixed site and otherwise relies on the
// GenericAttachment hooks.
type dockingFamily struct {
	GenericAttachment
	site    attachment.Handle
	offered bool
}

func (f *dockingFamily) ProposeAttachment(*AttachmentStateMachine) (attachment.Handle, bool) {
	if f.offered {
		return attachment.Handle{}, false
	}
	f.offered = true
	return f.site, true
}

func TestGenericAttachmentCountsDownThenWandersAway(t *testing.T) {
	e := newTestEngine(t, testEngineConfig(), WithSeed(5))
	at := model.Vec2{X: 5000, Y: 5000}
	site := e.Arena().Allocate(at, 0.5, "dock")
	b := newBiomolecule(e, model.KindProtein, model.At(at, 0))
	family := &dockingFamily{site: site}
	m := newAttachmentStateMachine(b, family)

	const dt = 0.1
	step := func() {
		m.Step(dt)
		b.advance(dt)
	}

	for i := 0; i < 5 && !m.IsAttached(); i++ {
		step()
	}
	require.True(t, m.IsAttached())
	require.Equal(t, StateAttached, m.StateName())
	assert.Equal(t, "follow_attachment_site", b.MotionName())

	attached := 0.0
	for m.StateName() == StateAttached && attached < 10 {
		step()
		attached += dt
	}
	assert.InDelta(t, e.Rates().GenericAttachTime, attached, dt+1e-9)
	require.Equal(t, StateUnattachedButUnavailable, m.StateName())
	assert.False(t, m.Site().Valid())
	assert.True(t, e.Arena().IsAvailable(site))
	assert.Equal(t, "wander_in_general_direction", b.MotionName())

	for i := 0; i < 10; i++ {
		step()
	}
	assert.Greater(t, b.Position().XY().DistanceTo(at), 0.0, "the agent moves off its old site")
	assert.Greater(t, b.Position().Y, at.Y, "with no offset the agent wanders up, away from the site")
}

func TestTranscriptionFactorUsesGenericDocking(t *testing.T) {
	e := newTestEngine(t, testEngineConfig())
	cfg, err := e.DNA().TranscriptionFactorConfig("act")
	require.NoError(t, err)
	tf := newTranscriptionFactor(e, cfg, model.At(e.DNA().BasePairPosition(150), 0))

	h := e.DNA().TranscriptionFactorSite(150, "act")
	require.True(t, tf.machine.claim(h, e.Rates().ApproachSpeed))
	assert.Equal(t, "move_directly_to_destination", tf.MotionName(), "DNA sites are approached head on")
	tf.Step(0.1)
	require.True(t, tf.machine.IsAttached())
	assert.Equal(t, "follow_attachment_site", tf.MotionName())
	assert.Equal(t, e.Rates().GenericAttachTime, tf.remaining)
}

// hopEngine detaches on every draw, so each attached step either hops or
// lets go of the DNA.
func hopEngine(t *testing.T, seed int64) *SimulationEngine {
	t.Helper()
	cfg := testEngineConfig()
	cfg.Rates = DefaultRates()
	cfg.Rates.HalfLifeAtHalfAffinity = 1e-9
	return newTestEngine(t, cfg, WithSeed(seed))
}

// dockedFactor attaches a transcription factor to the plain site at base
// pair i.
func dockedFactor(t *testing.T, e *SimulationEngine, i int) *TranscriptionFactor {
	t.Helper()
	cfg, err := e.DNA().TranscriptionFactorConfig("act")
	require.NoError(t, err)
	tf := newTranscriptionFactor(e, cfg, model.At(e.DNA().BasePairPosition(i), 0))
	require.True(t, tf.machine.claim(e.DNA().TranscriptionFactorSite(i, "act"), e.Rates().ApproachSpeed))
	tf.Step(0.01)
	require.True(t, tf.machine.IsAttachedToDna())
	return tf
}

func TestBasePairWalkHopsToShuffledFreeNeighbour(t *testing.T) {
	const at = 150
	chosen := make(map[int]int)
	for seed := int64(1); seed <= 40; seed++ {
		e := hopEngine(t, seed)
		tf := dockedFactor(t, e, at)
		from := tf.machine.Site()

		assert.False(t, tf.machine.stepBasePairWalk(model.KindTranscriptionFactor, "act", 0.1))
		require.Equal(t, StateMovingTowardAttachment, tf.StateName(), "seed %d", seed)
		assert.Equal(t, 0.5, tf.machine.detachFromDnaThreshold)
		assert.True(t, e.Arena().IsAvailable(from), "the old site is vacated")

		idx, ok := e.DNA().BasePairIndexOf(tf.machine.Site())
		require.True(t, ok)
		require.Contains(t, []int{at - 1, at + 1}, idx)
		chosen[idx]++
	}
	assert.Positive(t, chosen[at-1], "left neighbour never chosen")
	assert.Positive(t, chosen[at+1], "right neighbour never chosen")

	// With the left neighbour taken the hop always goes right.
	e := hopEngine(t, 1)
	require.NoError(t, e.Arena().Claim(e.DNA().TranscriptionFactorSite(at-1, "act"), 999))
	tf := dockedFactor(t, e, at)
	tf.machine.stepBasePairWalk(model.KindTranscriptionFactor, "act", 0.1)
	idx, _ := e.DNA().BasePairIndexOf(tf.machine.Site())
	assert.Equal(t, at+1, idx)
}

func TestBasePairWalkThresholdHalvesThenResets(t *testing.T) {
	e := hopEngine(t, 11)
	tf := dockedFactor(t, e, 150)

	hops := 0
	want := 1.0
	for i := 0; i < 1000 && tf.StateName() != StateUnattachedButUnavailable; i++ {
		if !tf.machine.IsAttached() {
			tf.Step(0.1)
			continue
		}
		tf.machine.stepBasePairWalk(model.KindTranscriptionFactor, "act", 0.1)
		if tf.StateName() == StateMovingTowardAttachment {
			hops++
			want *= e.Rates().HopThresholdDecay
			require.Equal(t, want, tf.machine.detachFromDnaThreshold, "after hop %d", hops)
		}
	}
	require.Equal(t, StateUnattachedButUnavailable, tf.StateName())
	assert.GreaterOrEqual(t, hops, 1, "the first detach draw always hops")
	assert.Equal(t, 1.0, tf.machine.detachFromDnaThreshold, "letting go resets the threshold")
	assert.False(t, tf.machine.Site().Valid())
}

func TestBasePairWalkLetsGoWithoutFreeNeighbour(t *testing.T) {
	e := hopEngine(t, 2)
	const at = 150
	for _, j := range []int{at - 1, at + 1} {
		require.NoError(t, e.Arena().Claim(e.DNA().TranscriptionFactorSite(j, "act"), model.AgentID(900+j)))
	}
	tf := dockedFactor(t, e, at)
	from := tf.machine.Site()

	assert.False(t, tf.machine.stepBasePairWalk(model.KindTranscriptionFactor, "act", 0.1))
	assert.Equal(t, StateUnattachedButUnavailable, tf.StateName())
	assert.True(t, e.Arena().IsAvailable(from))
	assert.Equal(t, 1.0, tf.machine.detachFromDnaThreshold)
}
