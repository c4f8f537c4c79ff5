package attachment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/gene-expression-sim/model"
)

func TestClaimIsExclusive(t *testing.T) {
	a := NewArena()
	h := a.Allocate(model.Vec2{X: 10}, 0.5, "dna")

	require.NoError(t, a.Claim(h, 1))
	require.NoError(t, a.Claim(h, 1), "re-claim by the holder is a no-op")
	assert.ErrorIs(t, a.Claim(h, 2), ErrSiteOccupied)
	assert.Equal(t, model.AgentID(1), a.Occupant(h))
	assert.False(t, a.IsAvailable(h))
	assert.False(t, a.IsAttached(h))

	require.ErrorIs(t, a.MarkAttached(h, 2), ErrNotOccupant)
	require.NoError(t, a.MarkAttached(h, 1))
	assert.True(t, a.IsAttached(h))

	assert.False(t, a.Vacate(h, 2), "only the occupant may vacate")
	assert.True(t, a.Vacate(h, 1))
	assert.True(t, a.IsAvailable(h))
	assert.False(t, a.IsAttached(h))
}

func TestReleasedHandleGoesStale(t *testing.T) {
	a := NewArena()
	h := a.Allocate(model.Vec2{}, 0.5, "transcribing")
	require.NoError(t, a.Release(h))
	assert.Equal(t, 0, a.Len())

	_, ok := a.Site(h)
	assert.False(t, ok)
	assert.ErrorIs(t, a.Claim(h, 1), ErrStaleHandle)
	assert.ErrorIs(t, a.Release(h), ErrStaleHandle)

	// The slot is reused with a new generation; the old handle stays stale.
	h2 := a.Allocate(model.Vec2{X: 5}, 0.5, "mrna")
	assert.NotEqual(t, h, h2)
	assert.False(t, a.IsAvailable(h))
	assert.True(t, a.IsAvailable(h2))
}

func TestAffinityIsClamped(t *testing.T) {
	a := NewArena()
	lo := a.Allocate(model.Vec2{}, 0, "dna")
	hi := a.Allocate(model.Vec2{}, 1, "dna")
	assert.Equal(t, MinAffinity, a.Affinity(lo))
	assert.Equal(t, MaxAffinity, a.Affinity(hi))

	a.SetAffinity(lo, 0.3)
	assert.Equal(t, 0.3, a.Affinity(lo))
}

func TestLocatorTracksMovingSite(t *testing.T) {
	a := NewArena()
	h := a.Allocate(model.Vec2{X: 1}, 0.5, "mrna")
	loc := a.Locator(h)
	a.SetPosition(h, model.Vec2{X: 2, Y: 3})
	assert.Equal(t, model.Vec2{X: 2, Y: 3}, loc())
}

func TestEachVisitsLiveSites(t *testing.T) {
	a := NewArena()
	h1 := a.Allocate(model.Vec2{}, 0.5, "dna")
	h2 := a.Allocate(model.Vec2{}, 0.5, "dna")
	require.NoError(t, a.Release(h1))

	var seen []Handle
	a.Each(func(h Handle, _ Site) { seen = append(seen, h) })
	assert.Equal(t, []Handle{h2}, seen)
}

func TestZeroHandle(t *testing.T) {
	var h Handle
	assert.False(t, h.Valid())
	assert.Equal(t, "site(none)", h.String())
	assert.False(t, NewArena().IsAvailable(h))
}
