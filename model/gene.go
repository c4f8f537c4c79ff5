package model

import (
	"errors"
	"fmt"
)

// ErrInvalidGene indicates a gene definition failed validation.
var ErrInvalidGene = errors.New("invalid gene")

// BasePairRange is an inclusive range of base-pair indices.
type BasePairRange struct {
	Start int
	End   int
}

// Contains reports whether index i lies in the range.
func (r BasePairRange) Contains(i int) bool {
	return i >= r.Start && i <= r.End
}

// Len returns the number of base pairs covered.
func (r BasePairRange) Len() int {
	return r.End - r.Start + 1
}

// TranscriptionFactorPlacement says where a transcription factor of a given
// config may dock, as an offset from the start of the regulatory region.
type TranscriptionFactorPlacement struct {
	Offset int
	Config string
}

// GeneDefinition is the static layout of a gene on the DNA.
type GeneDefinition struct {
	Name        string
	Regulatory  BasePairRange
	Transcribed BasePairRange
	Protein     ProteinKind
	// PolymeraseAffinity is the affinity the polymerase site takes when the
	// transcription factors allow transcription.
	PolymeraseAffinity   float64
	TranscriptionFactors []TranscriptionFactorPlacement
}

// Validate checks the ordering invariants of the two regions and the
// placements.
func (g GeneDefinition) Validate() error {
	if g.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidGene)
	}
	if g.Regulatory.Start < 0 || g.Regulatory.End < g.Regulatory.Start {
		return fmt.Errorf("%w: gene %q has malformed regulatory region %+v", ErrInvalidGene, g.Name, g.Regulatory)
	}
	if g.Transcribed.End < g.Transcribed.Start {
		return fmt.Errorf("%w: gene %q has malformed transcribed region %+v", ErrInvalidGene, g.Name, g.Transcribed)
	}
	if g.Transcribed.Start <= g.Regulatory.End {
		return fmt.Errorf("%w: gene %q transcribed region must start after regulatory region end %d", ErrInvalidGene, g.Name, g.Regulatory.End)
	}
	if g.PolymeraseAffinity < 0 || g.PolymeraseAffinity > 1 {
		return fmt.Errorf("%w: gene %q polymerase affinity %v outside [0,1]", ErrInvalidGene, g.Name, g.PolymeraseAffinity)
	}
	for _, p := range g.TranscriptionFactors {
		if p.Offset < 0 || p.Offset >= g.Regulatory.Len() {
			return fmt.Errorf("%w: gene %q transcription factor offset %d outside regulatory region", ErrInvalidGene, g.Name, p.Offset)
		}
		if p.Config == "" {
			return fmt.Errorf("%w: gene %q transcription factor placement without config", ErrInvalidGene, g.Name)
		}
	}
	return nil
}
