package dna

import (
	"fmt"

	"github.com/signalsfoundry/gene-expression-sim/attachment"
	"github.com/signalsfoundry/gene-expression-sim/model"
)

// PlacementHint tells a UI where a molecule of a given kind would dock on a
// gene.
type PlacementHint struct {
	Kind     model.MoleculeKind
	Config   string
	Position model.Vec2
}

type tfSite struct {
	placement model.TranscriptionFactorPlacement
	index     int
	positive  bool
	handle    attachment.Handle
}

// Gene is a gene laid out on a Molecule. It owns the polymerase site at the
// end of its regulatory region and one site per transcription factor
// placement.
type Gene struct {
	def                model.GeneDefinition
	mol                *Molecule
	polymeraseSite     attachment.Handle
	polymeraseAffinity float64
	tfSites            []tfSite
}

// Name returns the gene name.
func (g *Gene) Name() string { return g.def.Name }

// Definition returns the static layout.
func (g *Gene) Definition() model.GeneDefinition { return g.def }

// Protein returns the protein the gene codes for.
func (g *Gene) Protein() model.ProteinKind { return g.def.Protein }

// PolymeraseSite returns the site a polymerase must occupy to transcribe.
func (g *Gene) PolymeraseSite() attachment.Handle { return g.polymeraseSite }

// PolymeraseAffinity returns the configured affinity used when transcription
// factors allow transcription.
func (g *Gene) PolymeraseAffinity() float64 { return g.polymeraseAffinity }

// SetPolymeraseAffinity changes the configured polymerase affinity and
// refreshes the site.
func (g *Gene) SetPolymeraseAffinity(a float64) {
	g.polymeraseAffinity = attachment.ClampAffinity(a)
	g.updateAffinity()
}

// ContainsBasePair reports whether index i lies in the regulatory or
// transcribed region.
func (g *Gene) ContainsBasePair(i int) bool {
	return i >= g.def.Regulatory.Start && i <= g.def.Transcribed.End
}

// TranscribedStartX is where transcription begins.
func (g *Gene) TranscribedStartX() float64 {
	return g.mol.BasePairXOffset(g.def.Transcribed.Start)
}

// TranscribedEndX is where the polymerase releases its transcript.
func (g *Gene) TranscribedEndX() float64 {
	return g.mol.BasePairXOffset(g.def.Transcribed.End)
}

// TranscribedLength is the length of a complete transcript.
func (g *Gene) TranscribedLength() float64 {
	return g.TranscribedEndX() - g.TranscribedStartX()
}

// TranscriptionFactorSites returns the sites reserved for cfg on this gene.
func (g *Gene) TranscriptionFactorSites(cfg string) []attachment.Handle {
	var out []attachment.Handle
	for _, s := range g.tfSites {
		if s.placement.Config == cfg {
			out = append(out, s.handle)
		}
	}
	return out
}

// PlacementHints lists every docking point on the gene.
func (g *Gene) PlacementHints() []PlacementHint {
	arena := g.mol.arena
	hints := []PlacementHint{{Kind: model.KindRnaPolymerase, Position: arena.Position(g.polymeraseSite)}}
	for _, s := range g.tfSites {
		hints = append(hints, PlacementHint{
			Kind:     model.KindTranscriptionFactor,
			Config:   s.placement.Config,
			Position: arena.Position(s.handle),
		})
	}
	return hints
}

// TranscriptionBlocked reports whether a negative factor is attached.
func (g *Gene) TranscriptionBlocked() bool {
	for _, s := range g.tfSites {
		if !s.positive && g.mol.arena.IsAttached(s.handle) {
			return true
		}
	}
	return false
}

// TranscriptionEnabled reports whether every positive placement is filled. A
// gene without positive placements is always enabled.
func (g *Gene) TranscriptionEnabled() bool {
	for _, s := range g.tfSites {
		if s.positive && !g.mol.arena.IsAttached(s.handle) {
			return false
		}
	}
	return true
}

// updateAffinity recomputes the polymerase site affinity. A blocking factor
// wins over enabling ones.
func (g *Gene) updateAffinity() {
	a := g.polymeraseAffinity
	if g.TranscriptionBlocked() || !g.TranscriptionEnabled() {
		a = attachment.MinAffinity
	}
	g.mol.arena.SetAffinity(g.polymeraseSite, a)
}

func (g *Gene) setTranscriptionFactorAffinity(cfg string, a float64) {
	for _, s := range g.tfSites {
		if s.placement.Config == cfg {
			g.mol.arena.SetAffinity(s.handle, a)
		}
	}
}

func (g *Gene) tfSiteAt(index int, cfg string) (attachment.Handle, bool) {
	for _, s := range g.tfSites {
		if s.index == index && s.placement.Config == cfg {
			return s.handle, true
		}
	}
	return attachment.Handle{}, false
}

func (g *Gene) String() string {
	return fmt.Sprintf("gene(%s %d..%d)", g.def.Name, g.def.Regulatory.Start, g.def.Transcribed.End)
}
