package dna

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/gene-expression-sim/attachment"
	"github.com/signalsfoundry/gene-expression-sim/model"
)

func testMolecule(t *testing.T) *Molecule {
	t.Helper()
	m, err := NewMolecule(attachment.NewArena(), Config{
		Origin:    model.Vec2{X: 0, Y: 0},
		BasePairs: 200,
		TranscriptionFactors: []model.TranscriptionFactorConfig{
			{Name: "tf-pos", Positive: true, Affinity: 0.8},
			{Name: "tf-neg", Positive: false, Affinity: 0.6},
		},
		Genes: []model.GeneDefinition{
			{
				Name:               "gene-1",
				Regulatory:         model.BasePairRange{Start: 10, End: 30},
				Transcribed:        model.BasePairRange{Start: 31, End: 90},
				Protein:            "A",
				PolymeraseAffinity: 0.5,
				TranscriptionFactors: []model.TranscriptionFactorPlacement{
					{Offset: 5, Config: "tf-pos"},
					{Offset: 12, Config: "tf-neg"},
				},
			},
			{
				Name:               "gene-2",
				Regulatory:         model.BasePairRange{Start: 100, End: 110},
				Transcribed:        model.BasePairRange{Start: 111, End: 190},
				Protein:            "B",
				PolymeraseAffinity: 0.7,
			},
		},
	})
	require.NoError(t, err)
	return m
}

func unbounded(pos model.Vec2) Fit {
	return Fit{Position: pos, Shape: model.RectCenteredAt(pos, 100, 100), Bounds: model.Unbounded()}
}

func TestBasePairAddressing(t *testing.T) {
	m := testMolecule(t)
	assert.Equal(t, 34.0, m.BasePairXOffset(1))
	assert.Equal(t, 10, m.BasePairIndexFromX(340))
	assert.Equal(t, 10, m.BasePairIndexFromX(350))
	assert.Equal(t, 0, m.BasePairIndexFromX(-1000))
	assert.Equal(t, 199, m.BasePairIndexFromX(1e9))
	assert.Equal(t, model.Range{Min: -100, Max: 100}, m.Band())
}

func TestLayoutValidation(t *testing.T) {
	arena := attachment.NewArena()
	_, err := NewMolecule(arena, Config{BasePairs: 50, Genes: []model.GeneDefinition{
		{Name: "a", Regulatory: model.BasePairRange{Start: 0, End: 5}, Transcribed: model.BasePairRange{Start: 6, End: 20}},
		{Name: "b", Regulatory: model.BasePairRange{Start: 15, End: 25}, Transcribed: model.BasePairRange{Start: 26, End: 30}},
	}})
	assert.ErrorIs(t, err, ErrInvalidLayout)

	_, err = NewMolecule(arena, Config{BasePairs: 50, Genes: []model.GeneDefinition{
		{Name: "a", Regulatory: model.BasePairRange{Start: 0, End: 5}, Transcribed: model.BasePairRange{Start: 6, End: 60}},
	}})
	assert.ErrorIs(t, err, ErrInvalidLayout)

	_, err = NewMolecule(arena, Config{BasePairs: 50, Genes: []model.GeneDefinition{
		{Name: "a", Regulatory: model.BasePairRange{Start: 0, End: 5}, Transcribed: model.BasePairRange{Start: 6, End: 20},
			TranscriptionFactors: []model.TranscriptionFactorPlacement{{Offset: 1, Config: "missing"}}},
	}})
	assert.ErrorIs(t, err, ErrUnknownTranscriptionFactor)

	_, err = NewMolecule(arena, Config{BasePairs: 50, Genes: []model.GeneDefinition{
		{Name: "a", Regulatory: model.BasePairRange{Start: 0, End: 10}, Transcribed: model.BasePairRange{Start: 5, End: 20}},
	}})
	assert.ErrorIs(t, err, model.ErrInvalidGene)
}

func TestGeneSitesReplaceDefaults(t *testing.T) {
	m := testMolecule(t)
	g, err := m.Gene("gene-1")
	require.NoError(t, err)

	assert.Equal(t, g.PolymeraseSite(), m.PolymeraseSite(30))
	assert.Equal(t, g, m.GeneForPolymeraseSite(m.PolymeraseSite(30)))
	assert.Nil(t, m.GeneForPolymeraseSite(m.PolymeraseSite(29)))

	pos := g.TranscriptionFactorSites("tf-pos")
	require.Len(t, pos, 1)
	assert.Equal(t, pos[0], m.TranscriptionFactorSite(15, "tf-pos"))
	assert.NotEqual(t, pos[0], m.TranscriptionFactorSite(15, "tf-neg"), "other configs use the default site")
	assert.Equal(t, 0.8, m.Arena().Affinity(pos[0]))

	_, err = m.Gene("nope")
	assert.ErrorIs(t, err, ErrUnknownGene)
	assert.Len(t, g.PlacementHints(), 3)
}

func TestGeneAffinityFollowsTranscriptionFactors(t *testing.T) {
	m := testMolecule(t)
	arena := m.Arena()
	g, _ := m.Gene("gene-1")
	site := g.PolymeraseSite()

	// The positive factor is missing.
	assert.Equal(t, attachment.MinAffinity, arena.Affinity(site))

	pos := g.TranscriptionFactorSites("tf-pos")[0]
	require.NoError(t, arena.Claim(pos, 1))
	m.Step(0.1)
	assert.Equal(t, attachment.MinAffinity, arena.Affinity(site), "moving toward the site does not count")

	require.NoError(t, arena.MarkAttached(pos, 1))
	m.Step(0.1)
	assert.Equal(t, 0.5, arena.Affinity(site))

	neg := g.TranscriptionFactorSites("tf-neg")[0]
	require.NoError(t, arena.Claim(neg, 2))
	require.NoError(t, arena.MarkAttached(neg, 2))
	m.Step(0.1)
	assert.Equal(t, attachment.MinAffinity, arena.Affinity(site), "blocking wins")

	// gene-2 has no placements and is always enabled.
	g2, _ := m.Gene("gene-2")
	assert.Equal(t, 0.7, arena.Affinity(g2.PolymeraseSite()))
	g2.SetPolymeraseAffinity(0.9)
	assert.Equal(t, 0.9, arena.Affinity(g2.PolymeraseSite()))
}

func TestSetTranscriptionFactorAffinity(t *testing.T) {
	m := testMolecule(t)
	require.NoError(t, m.SetTranscriptionFactorAffinity("tf-neg", 0.2))
	g, _ := m.Gene("gene-1")
	assert.Equal(t, 0.2, m.Arena().Affinity(g.TranscriptionFactorSites("tf-neg")[0]))
	assert.ErrorIs(t, m.SetTranscriptionFactorAffinity("nope", 0.2), ErrUnknownTranscriptionFactor)
}

func TestAdjacentSites(t *testing.T) {
	m := testMolecule(t)
	arena := m.Arena()
	current := m.PolymeraseSite(50)
	fit := unbounded(m.BasePairPosition(50))

	got := m.AdjacentSites(model.KindRnaPolymerase, current, "", fit)
	assert.Equal(t, []attachment.Handle{m.PolymeraseSite(49), m.PolymeraseSite(51)}, got)

	require.NoError(t, arena.Claim(m.PolymeraseSite(49), 9))
	got = m.AdjacentSites(model.KindRnaPolymerase, current, "", fit)
	assert.Equal(t, []attachment.Handle{m.PolymeraseSite(51)}, got)

	// Ends of the molecule have a single neighbour.
	got = m.AdjacentSites(model.KindRnaPolymerase, m.PolymeraseSite(0), "", unbounded(m.BasePairPosition(0)))
	assert.Equal(t, []attachment.Handle{m.PolymeraseSite(1)}, got)

	// Bounds that end just right of base pair 51 exclude the right neighbour.
	x := m.BasePairXOffset(50)
	bounded := Fit{
		Position: model.Vec2{X: x},
		Shape:    model.RectCenteredAt(model.Vec2{X: x}, 20, 20),
		Bounds:   model.NewMotionBounds(model.RectRegion{Rect: model.Rect{MinX: x - 100, MinY: -100, MaxX: x + 20, MaxY: 100}}),
	}
	require.True(t, arena.Vacate(m.PolymeraseSite(49), 9))
	got = m.AdjacentSites(model.KindRnaPolymerase, current, "", bounded)
	assert.Equal(t, []attachment.Handle{m.PolymeraseSite(49)}, got)
}

func TestAdjacentTranscriptionFactorSitesSkipSeparations(t *testing.T) {
	m := testMolecule(t)
	current := m.TranscriptionFactorSite(60, "tf-neg")
	fit := unbounded(m.BasePairPosition(60))

	id := m.AddSeparation(m.BasePairXOffset(61), 20)
	require.True(t, m.UpdateSeparation(id, m.BasePairXOffset(61), 1))
	m.Step(1)

	got := m.AdjacentSites(model.KindTranscriptionFactor, current, "tf-neg", fit)
	assert.Equal(t, []attachment.Handle{m.TranscriptionFactorSite(59, "tf-neg")}, got)

	// Polymerase sites are unaffected.
	got = m.AdjacentSites(model.KindRnaPolymerase, m.PolymeraseSite(60), "", fit)
	assert.Len(t, got, 2)

	m.RemoveSeparation(id)
	got = m.AdjacentSites(model.KindTranscriptionFactor, current, "tf-neg", fit)
	assert.Len(t, got, 2)
}

func TestProposeSitePrefersAffinityThenDistance(t *testing.T) {
	m := testMolecule(t)
	g2, _ := m.Gene("gene-2")

	// Near gene-2's polymerase site (index 110, affinity 0.7).
	h, ok := m.ProposeSite(model.KindRnaPolymerase, "", unbounded(m.BasePairPosition(105)))
	require.True(t, ok)
	assert.Equal(t, g2.PolymeraseSite(), h)

	// Far from any gene every candidate has the default affinity; the nearest wins.
	h, ok = m.ProposeSite(model.KindRnaPolymerase, "", unbounded(model.Vec2{X: m.BasePairXOffset(60) + 1, Y: 50}))
	require.True(t, ok)
	assert.Equal(t, m.PolymeraseSite(60), h)

	// Equidistant between 60 and 61: the lower index wins.
	h, ok = m.ProposeSite(model.KindRnaPolymerase, "", unbounded(model.Vec2{X: m.BasePairXOffset(60) + BasePairSpacing/2}))
	require.True(t, ok)
	assert.Equal(t, m.PolymeraseSite(60), h)

	// Out of range vertically.
	_, ok = m.ProposeSite(model.KindRnaPolymerase, "", unbounded(model.Vec2{X: 0, Y: 5000}))
	assert.False(t, ok)
}

func TestProposeSiteForTranscriptionFactor(t *testing.T) {
	m := testMolecule(t)
	g, _ := m.Gene("gene-1")
	want := g.TranscriptionFactorSites("tf-pos")[0]

	h, ok := m.ProposeSite(model.KindTranscriptionFactor, "tf-pos", unbounded(m.BasePairPosition(20)))
	require.True(t, ok)
	assert.Equal(t, want, h)

	require.NoError(t, m.Arena().Claim(want, 4))
	h, ok = m.ProposeSite(model.KindTranscriptionFactor, "tf-pos", unbounded(m.BasePairPosition(20)))
	require.True(t, ok)
	assert.NotEqual(t, want, h)
}

func TestSeparationsEase(t *testing.T) {
	m := testMolecule(t)
	id := m.AddSeparation(500, 200)
	require.True(t, m.UpdateSeparation(id, 510, 0.5))
	m.Step(0.1)

	s, ok := m.Separation(id)
	require.True(t, ok)
	assert.Equal(t, 510.0, s.X)
	assert.InDelta(t, 40, s.HalfWidth, 1e-9)
	assert.Greater(t, m.StrandOffsetAt(510), 0.0)
	assert.Equal(t, 0.0, m.StrandOffsetAt(2000))

	m.Step(10)
	s, _ = m.Separation(id)
	assert.InDelta(t, 100, s.HalfWidth, 1e-9)

	id2 := m.AddSeparation(3000, 200)
	assert.Len(t, m.Separations(), 2)
	assert.Equal(t, id, m.Separations()[0].ID)
	m.RemoveSeparation(id2)
	assert.False(t, m.UpdateSeparation(id2, 0, 1))
}

func TestSitesRideSeparatedStrands(t *testing.T) {
	m := testMolecule(t)
	arena := m.Arena()
	g, _ := m.Gene("gene-1")
	x := m.BasePairXOffset(30)
	id := m.AddSeparation(x, 170)
	require.True(t, m.UpdateSeparation(id, x, 1))
	m.Step(1)

	assert.InDelta(t, Diameter/2, arena.Position(g.PolymeraseSite()).Y, 1e-9)
	assert.InDelta(t, Diameter/2, arena.Position(m.TranscriptionFactorSite(30, "")).Y, 1e-9)
	edge := arena.Position(m.PolymeraseSite(33)).Y
	assert.Greater(t, edge, 0.0)
	assert.Less(t, edge, Diameter/2)
	assert.Equal(t, x, arena.Position(g.PolymeraseSite()).X, "sites only move across the strand")
	assert.Equal(t, 0.0, arena.Position(m.PolymeraseSite(150)).Y)

	m.RemoveSeparation(id)
	m.Step(0.1)
	assert.Equal(t, m.BasePairPosition(30), arena.Position(g.PolymeraseSite()))
	assert.Equal(t, m.BasePairPosition(33), arena.Position(m.PolymeraseSite(33)))
}
