package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRangeDistanceTo(t *testing.T) {
	cases := []struct {
		name string
		a, b Range
		want float64
	}{
		{"overlap", Range{0, 10}, Range{5, 15}, 0},
		{"touching", Range{0, 10}, Range{10, 20}, 0},
		{"b above", Range{0, 10}, Range{30, 40}, 20},
		{"b below", Range{30, 40}, Range{0, 10}, 20},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, tc.a.DistanceTo(tc.b), 1e-9)
			assert.InDelta(t, tc.want, tc.b.DistanceTo(tc.a), 1e-9)
		})
	}
}

func TestRectInsetCollapsesOnCentre(t *testing.T) {
	r := Rect{MinX: 0, MinY: 0, MaxX: 10, MaxY: 100}
	in := r.Inset(20, 10)
	assert.Equal(t, 5.0, in.MinX)
	assert.Equal(t, 5.0, in.MaxX)
	assert.Equal(t, 10.0, in.MinY)
	assert.Equal(t, 90.0, in.MaxY)
}

func TestRectIntersection(t *testing.T) {
	a := Rect{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10}
	got, ok := a.Intersection(Rect{MinX: 5, MinY: -5, MaxX: 20, MaxY: 5})
	require.True(t, ok)
	assert.Equal(t, Rect{MinX: 5, MinY: 0, MaxX: 10, MaxY: 5}, got)

	_, ok = a.Intersection(Rect{MinX: 11, MinY: 0, MaxX: 20, MaxY: 10})
	assert.False(t, ok)
}

func TestPolar(t *testing.T) {
	v := Polar(2, math.Pi/2)
	assert.InDelta(t, 0, v.X, 1e-12)
	assert.InDelta(t, 2, v.Y, 1e-12)
	assert.InDelta(t, math.Pi/2, v.Angle(), 1e-12)
}

func TestPolygonRegionConcave(t *testing.T) {
	// A U shape: the slot between the arms is outside.
	u := PolygonRegion{Vertices: []Vec2{
		{0, 0}, {100, 0}, {100, 100}, {60, 100}, {60, 40}, {40, 40}, {40, 100}, {0, 100},
	}}

	require.True(t, u.ContainsPoint(Vec2{20, 75}))
	require.False(t, u.ContainsPoint(Vec2{50, 75}))

	assert.True(t, u.ContainsRect(Rect{MinX: 10, MinY: 10, MaxX: 90, MaxY: 30}))
	assert.True(t, u.ContainsRect(Rect{MinX: 5, MinY: 50, MaxX: 35, MaxY: 90}))
	// Every corner sits in an arm but the rectangle spans the slot.
	assert.False(t, u.ContainsRect(Rect{MinX: 10, MinY: 50, MaxX: 90, MaxY: 90}))
}

func TestCircleRegionContainsRect(t *testing.T) {
	c := CircleRegion{Center: Vec2{}, Radius: 10}
	assert.True(t, c.ContainsRect(RectCenteredAt(Vec2{}, 10, 10)))
	assert.False(t, c.ContainsRect(RectCenteredAt(Vec2{}, 16, 16)))
}

func TestMotionBounds(t *testing.T) {
	b := NewMotionBounds(RectRegion{Rect: Rect{MinX: -100, MinY: -100, MaxX: 100, MaxY: 100}})
	shape := RectCenteredAt(Vec2{90, 0}, 10, 10)

	require.True(t, b.IsBounded())
	assert.True(t, b.InBounds(shape))
	assert.True(t, b.WouldLeave(shape, Vec2{X: 100}, 0.1))
	assert.False(t, b.WouldLeave(shape, Vec2{X: -100}, 0.1))
	assert.Equal(t, Vec2{}, b.Center())

	open := Unbounded()
	assert.False(t, open.IsBounded())
	assert.True(t, open.InBounds(RectCenteredAt(Vec2{1e12, 1e12}, 1, 1)))
	assert.False(t, open.WouldLeave(shape, Vec2{X: 1e9}, 1))
}

func TestGeneDefinitionValidate(t *testing.T) {
	good := GeneDefinition{
		Name:               "gene-1",
		Regulatory:         BasePairRange{Start: 10, End: 30},
		Transcribed:        BasePairRange{Start: 31, End: 120},
		Protein:            "A",
		PolymeraseAffinity: 0.8,
		TranscriptionFactors: []TranscriptionFactorPlacement{
			{Offset: 5, Config: "tf-pos"},
		},
	}
	require.NoError(t, good.Validate())

	overlapping := good
	overlapping.Transcribed = BasePairRange{Start: 30, End: 120}
	assert.ErrorIs(t, overlapping.Validate(), ErrInvalidGene)

	badOffset := good
	badOffset.TranscriptionFactors = []TranscriptionFactorPlacement{{Offset: 21, Config: "tf-pos"}}
	assert.ErrorIs(t, badOffset.Validate(), ErrInvalidGene)
}

func TestParseMoleculeKind(t *testing.T) {
	k, err := ParseMoleculeKind("ribosome")
	require.NoError(t, err)
	assert.Equal(t, KindRibosome, k)
	assert.Equal(t, "ribosome", k.String())

	_, err = ParseMoleculeKind("unknown")
	assert.Error(t, err)
}

func TestMoleculeKindText(t *testing.T) {
	b, err := KindMessengerRnaDestroyer.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "mrna_destroyer", string(b))

	var k MoleculeKind
	require.NoError(t, k.UnmarshalText([]byte("transcription_factor")))
	assert.Equal(t, KindTranscriptionFactor, k)
	assert.Error(t, k.UnmarshalText([]byte("widget")))
}
