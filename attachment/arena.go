// Package attachment owns every attachment site in a simulation. Sites live in
// an arena and are addressed by generation-checked handles, so the DNA, the
// mRNA strands and the agents can all refer to the same site without holding
// pointers into each other.
package attachment

import (
	"errors"
	"fmt"

	"github.com/signalsfoundry/gene-expression-sim/model"
)

const (
	// DefaultAffinity is the affinity of an ordinary stretch of DNA.
	DefaultAffinity = 0.05
	// MinAffinity and MaxAffinity bound stored affinities so the half-life
	// model never sees the degenerate end points.
	MinAffinity = 0.001
	MaxAffinity = 0.999
)

var (
	// ErrStaleHandle indicates the handle refers to a released site.
	ErrStaleHandle = errors.New("stale attachment site handle")
	// ErrSiteOccupied indicates another agent already claimed the site.
	ErrSiteOccupied = errors.New("attachment site occupied")
	// ErrNotOccupant indicates the caller does not hold the site.
	ErrNotOccupant = errors.New("agent does not occupy attachment site")
)

// Handle addresses a site in an Arena. The zero Handle addresses nothing.
type Handle struct {
	index      uint32
	generation uint32
}

// Valid reports whether h was ever issued by an arena.
func (h Handle) Valid() bool { return h.generation != 0 }

func (h Handle) String() string {
	if !h.Valid() {
		return "site(none)"
	}
	return fmt.Sprintf("site(%d#%d)", h.index, h.generation)
}

// Site is a point where exactly one biomolecule may bind at a time.
type Site struct {
	Position model.Vec2
	Affinity float64
	// Occupant is the agent attached or moving to attach, or model.NoAgent.
	Occupant model.AgentID
	// Attached is set once the occupant has arrived.
	Attached bool
	// Label describes the owner for diagnostics ("dna", "mrna", ...).
	Label string
}

// Available reports whether nobody holds the site.
func (s Site) Available() bool { return s.Occupant == model.NoAgent }

type slot struct {
	site       Site
	generation uint32
	live       bool
}

// Arena stores sites. It is not safe for concurrent use; the simulation steps
// on a single goroutine.
type Arena struct {
	slots []slot
	free  []uint32
	live  int
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

// ClampAffinity maps any affinity into [MinAffinity, MaxAffinity].
func ClampAffinity(a float64) float64 {
	switch {
	case a < MinAffinity:
		return MinAffinity
	case a > MaxAffinity:
		return MaxAffinity
	default:
		return a
	}
}

// Allocate creates a new unoccupied site.
func (a *Arena) Allocate(pos model.Vec2, affinity float64, label string) Handle {
	site := Site{Position: pos, Affinity: ClampAffinity(affinity), Label: label}
	a.live++
	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		s := &a.slots[idx]
		s.generation++
		s.site = site
		s.live = true
		return Handle{index: idx, generation: s.generation}
	}
	a.slots = append(a.slots, slot{site: site, generation: 1, live: true})
	return Handle{index: uint32(len(a.slots) - 1), generation: 1}
}

// Release frees a site. Any occupant reference is dropped with it.
func (a *Arena) Release(h Handle) error {
	s, err := a.slot(h)
	if err != nil {
		return err
	}
	s.live = false
	s.site = Site{}
	a.free = append(a.free, h.index)
	a.live--
	return nil
}

// Len returns the number of live sites.
func (a *Arena) Len() int { return a.live }

// Site returns a copy of the site addressed by h.
func (a *Arena) Site(h Handle) (Site, bool) {
	s, err := a.slot(h)
	if err != nil {
		return Site{}, false
	}
	return s.site, true
}

// Position returns the site position, or the zero vector for a stale handle.
func (a *Arena) Position(h Handle) model.Vec2 {
	s, err := a.slot(h)
	if err != nil {
		return model.Vec2{}
	}
	return s.site.Position
}

// Affinity returns the site affinity, or 0 for a stale handle.
func (a *Arena) Affinity(h Handle) float64 {
	s, err := a.slot(h)
	if err != nil {
		return 0
	}
	return s.site.Affinity
}

// Occupant returns the agent holding the site.
func (a *Arena) Occupant(h Handle) model.AgentID {
	s, err := a.slot(h)
	if err != nil {
		return model.NoAgent
	}
	return s.site.Occupant
}

// IsAvailable reports whether the site exists and nobody holds it.
func (a *Arena) IsAvailable(h Handle) bool {
	s, err := a.slot(h)
	return err == nil && s.site.Available()
}

// IsAttached reports whether the site's occupant has arrived.
func (a *Arena) IsAttached(h Handle) bool {
	s, err := a.slot(h)
	return err == nil && s.site.Occupant != model.NoAgent && s.site.Attached
}

// Claim records agent as the occupant. Claiming a site the agent already holds
// is a no-op.
func (a *Arena) Claim(h Handle, agent model.AgentID) error {
	s, err := a.slot(h)
	if err != nil {
		return err
	}
	switch s.site.Occupant {
	case agent:
		return nil
	case model.NoAgent:
		s.site.Occupant = agent
		s.site.Attached = false
		return nil
	default:
		return fmt.Errorf("%w: %s held by agent %d", ErrSiteOccupied, h, s.site.Occupant)
	}
}

// MarkAttached flags the occupant as arrived.
func (a *Arena) MarkAttached(h Handle, agent model.AgentID) error {
	s, err := a.slot(h)
	if err != nil {
		return err
	}
	if s.site.Occupant != agent {
		return fmt.Errorf("%w: %s, agent %d", ErrNotOccupant, h, agent)
	}
	s.site.Attached = true
	return nil
}

// Vacate clears the site if agent holds it and reports whether it did.
func (a *Arena) Vacate(h Handle, agent model.AgentID) bool {
	s, err := a.slot(h)
	if err != nil || s.site.Occupant != agent || agent == model.NoAgent {
		return false
	}
	s.site.Occupant = model.NoAgent
	s.site.Attached = false
	return true
}

// SetPosition moves the site.
func (a *Arena) SetPosition(h Handle, pos model.Vec2) {
	if s, err := a.slot(h); err == nil {
		s.site.Position = pos
	}
}

// SetAffinity updates the site's affinity, clamped into the valid range.
func (a *Arena) SetAffinity(h Handle, affinity float64) {
	if s, err := a.slot(h); err == nil {
		s.site.Affinity = ClampAffinity(affinity)
	}
}

// Locator returns a function reporting the site's current position, for
// motion strategies that chase a moving site.
func (a *Arena) Locator(h Handle) func() model.Vec2 {
	return func() model.Vec2 { return a.Position(h) }
}

// Each visits every live site in index order.
func (a *Arena) Each(fn func(h Handle, s Site)) {
	for i := range a.slots {
		s := &a.slots[i]
		if !s.live {
			continue
		}
		fn(Handle{index: uint32(i), generation: s.generation}, s.site)
	}
}

func (a *Arena) slot(h Handle) (*slot, error) {
	if !h.Valid() || int(h.index) >= len(a.slots) {
		return nil, fmt.Errorf("%w: %s", ErrStaleHandle, h)
	}
	s := &a.slots[h.index]
	if !s.live || s.generation != h.generation {
		return nil, fmt.Errorf("%w: %s", ErrStaleHandle, h)
	}
	return s, nil
}
