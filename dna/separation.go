package dna

import (
	"math"
	"sort"
)

// SeparationGrowthRate is how fast a separation's half-width follows its
// target, in picometres per second.
const SeparationGrowthRate = 400.0

// SeparationID identifies an active strand separation.
type SeparationID uint64

// Separation is a region where the two strands are parted around a
// transcribing polymerase.
type Separation struct {
	ID SeparationID
	X  float64
	// TargetHalfWidth is the half-width at full separation.
	TargetHalfWidth float64
	// Proportion in [0,1] scales the separation; polymerases ramp it with
	// their conformational change.
	Proportion float64
	// HalfWidth is the current half-width, eased toward
	// TargetHalfWidth*Proportion by Molecule.Step.
	HalfWidth float64
}

// Covers reports whether x lies under the parted strands.
func (s Separation) Covers(x float64) bool {
	return s.Proportion > 0 && s.HalfWidth > 0 && math.Abs(x-s.X) <= s.HalfWidth
}

// strandOffset is the vertical offset of each strand at x, peaking at the
// separation centre.
func (s Separation) strandOffset(x float64) float64 {
	if !s.Covers(x) {
		return 0
	}
	return s.Proportion * (Diameter / 2) * (1 - math.Abs(x-s.X)/s.HalfWidth)
}

// AddSeparation starts a separation at x with no opening.
func (m *Molecule) AddSeparation(x, targetHalfWidth float64) SeparationID {
	m.nextSeparation++
	id := m.nextSeparation
	m.separations[id] = &Separation{ID: id, X: x, TargetHalfWidth: targetHalfWidth}
	return id
}

// UpdateSeparation moves a separation and sets its proportion. It reports
// false for an unknown id.
func (m *Molecule) UpdateSeparation(id SeparationID, x, proportion float64) bool {
	s, ok := m.separations[id]
	if !ok {
		return false
	}
	s.X = x
	s.Proportion = math.Max(0, math.Min(1, proportion))
	return true
}

// RemoveSeparation closes a separation.
func (m *Molecule) RemoveSeparation(id SeparationID) {
	delete(m.separations, id)
}

// Separation returns a copy of the separation.
func (m *Molecule) Separation(id SeparationID) (Separation, bool) {
	s, ok := m.separations[id]
	if !ok {
		return Separation{}, false
	}
	return *s, true
}

// Separations returns every active separation ordered by id.
func (m *Molecule) Separations() []Separation {
	out := make([]Separation, 0, len(m.separations))
	for _, s := range m.separations {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// StrandOffsetAt is how far each strand is pushed from the centre line at x.
// Overlapping separations do not add up; the widest wins.
func (m *Molecule) StrandOffsetAt(x float64) float64 {
	var off float64
	for _, s := range m.separations {
		off = math.Max(off, s.strandOffset(x))
	}
	return off
}

func (m *Molecule) underSeparation(x float64) bool {
	for _, s := range m.separations {
		if s.Covers(x) {
			return true
		}
	}
	return false
}

func (m *Molecule) stepSeparations(dt float64) {
	for _, s := range m.separations {
		target := s.TargetHalfWidth * s.Proportion
		step := SeparationGrowthRate * dt
		switch {
		case s.HalfWidth < target:
			s.HalfWidth = math.Min(target, s.HalfWidth+step)
		case s.HalfWidth > target:
			s.HalfWidth = math.Max(target, s.HalfWidth-step)
		}
	}
}

// liftSites raises every site by the strand offset at its base pair, so
// agents docked under a separation ride the parted strand. Sites drop back
// onto the centre line once the separations close.
func (m *Molecule) liftSites() {
	if len(m.separations) == 0 && !m.sitesLifted {
		return
	}
	lifted := false
	for h, ref := range m.refs {
		pos := m.BasePairPosition(ref.index)
		if off := m.StrandOffsetAt(pos.X); off > 0 {
			pos.Y += off
			lifted = true
		}
		m.arena.SetPosition(h, pos)
	}
	m.sitesLifted = lifted
}
