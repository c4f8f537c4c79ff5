// Package dna lays genes out along a DNA molecule and answers the spatial
// questions agents ask about it: where a base pair is, which attachment sites
// neighbour a given one, and which nearby site is the best to bind to.
package dna

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/signalsfoundry/gene-expression-sim/attachment"
	"github.com/signalsfoundry/gene-expression-sim/model"
)

const (
	// BasePairSpacing is the distance between adjacent base pairs.
	BasePairSpacing = 34.0
	// Diameter is the width of the double helix.
	Diameter = 200.0
	// ProposalRange is how far an agent looks for a site to bind to.
	ProposalRange = 400.0
)

var (
	// ErrInvalidLayout indicates genes overlap or fall off the molecule.
	ErrInvalidLayout = errors.New("invalid dna layout")
	// ErrUnknownGene indicates a gene name that is not on the molecule.
	ErrUnknownGene = errors.New("unknown gene")
	// ErrUnknownTranscriptionFactor indicates a config name that is not
	// registered.
	ErrUnknownTranscriptionFactor = errors.New("unknown transcription factor")
)

// Config describes a molecule to build.
type Config struct {
	// Origin is the centre-line position of base pair 0.
	Origin               model.Vec2
	BasePairs            int
	Genes                []model.GeneDefinition
	TranscriptionFactors []model.TranscriptionFactorConfig
}

type siteRef struct {
	index int
	kind  model.MoleculeKind
}

// Fit describes the agent asking for a site, so sites that would push its
// shape out of its motion bounds can be skipped.
type Fit struct {
	Position model.Vec2
	Shape    model.Rect
	Bounds   model.MotionBounds
	// Offset is the agent's destination offset: it sits at site - Offset.
	Offset model.Vec2
}

func (f Fit) fitsAt(site model.Vec2) bool {
	return f.Bounds.InBounds(f.Shape.Translate(site.Sub(f.Offset).Sub(f.Position)))
}

// Molecule is a strand of DNA carrying genes. It allocates its attachment
// sites in the shared arena.
type Molecule struct {
	arena     *attachment.Arena
	origin    model.Vec2
	basePairs int

	polymeraseSites []attachment.Handle
	tfSites         []attachment.Handle
	refs            map[attachment.Handle]siteRef

	genes    []*Gene
	tfConfig map[string]model.TranscriptionFactorConfig

	separations    map[SeparationID]*Separation
	nextSeparation SeparationID
	// sitesLifted is set while any site sits off the centre line.
	sitesLifted bool
}

// NewMolecule validates the layout and allocates every site.
func NewMolecule(arena *attachment.Arena, cfg Config) (*Molecule, error) {
	if cfg.BasePairs <= 0 {
		return nil, fmt.Errorf("%w: base pair count %d", ErrInvalidLayout, cfg.BasePairs)
	}
	m := &Molecule{
		arena:       arena,
		origin:      cfg.Origin,
		basePairs:   cfg.BasePairs,
		refs:        make(map[attachment.Handle]siteRef),
		tfConfig:    make(map[string]model.TranscriptionFactorConfig),
		separations: make(map[SeparationID]*Separation),
	}
	for _, tf := range cfg.TranscriptionFactors {
		if tf.Name == "" {
			return nil, fmt.Errorf("%w: transcription factor without name", ErrInvalidLayout)
		}
		if _, dup := m.tfConfig[tf.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate transcription factor %q", ErrInvalidLayout, tf.Name)
		}
		m.tfConfig[tf.Name] = tf
	}

	m.polymeraseSites = make([]attachment.Handle, cfg.BasePairs)
	m.tfSites = make([]attachment.Handle, cfg.BasePairs)
	for i := 0; i < cfg.BasePairs; i++ {
		pos := m.BasePairPosition(i)
		m.polymeraseSites[i] = arena.Allocate(pos, attachment.DefaultAffinity, "dna")
		m.refs[m.polymeraseSites[i]] = siteRef{index: i, kind: model.KindRnaPolymerase}
		m.tfSites[i] = arena.Allocate(pos, attachment.DefaultAffinity, "dna")
		m.refs[m.tfSites[i]] = siteRef{index: i, kind: model.KindTranscriptionFactor}
	}

	prevEnd := -1
	for _, def := range cfg.Genes {
		if err := def.Validate(); err != nil {
			return nil, err
		}
		if def.Regulatory.Start <= prevEnd {
			return nil, fmt.Errorf("%w: gene %q overlaps or precedes the previous gene", ErrInvalidLayout, def.Name)
		}
		if def.Transcribed.End >= cfg.BasePairs {
			return nil, fmt.Errorf("%w: gene %q ends at %d beyond %d base pairs", ErrInvalidLayout, def.Name, def.Transcribed.End, cfg.BasePairs)
		}
		prevEnd = def.Transcribed.End
		g, err := m.addGene(def)
		if err != nil {
			return nil, err
		}
		m.genes = append(m.genes, g)
	}
	for _, g := range m.genes {
		g.updateAffinity()
	}
	return m, nil
}

func (m *Molecule) addGene(def model.GeneDefinition) (*Gene, error) {
	g := &Gene{def: def, mol: m, polymeraseAffinity: attachment.ClampAffinity(def.PolymeraseAffinity)}
	idx := def.Regulatory.End
	g.polymeraseSite = m.arena.Allocate(m.BasePairPosition(idx), g.polymeraseAffinity, "gene:"+def.Name)
	m.refs[g.polymeraseSite] = siteRef{index: idx, kind: model.KindRnaPolymerase}
	for _, p := range def.TranscriptionFactors {
		tf, ok := m.tfConfig[p.Config]
		if !ok {
			return nil, fmt.Errorf("%w: %q on gene %q", ErrUnknownTranscriptionFactor, p.Config, def.Name)
		}
		i := def.Regulatory.Start + p.Offset
		h := m.arena.Allocate(m.BasePairPosition(i), tf.Affinity, "gene:"+def.Name)
		m.refs[h] = siteRef{index: i, kind: model.KindTranscriptionFactor}
		g.tfSites = append(g.tfSites, tfSite{placement: p, index: i, positive: tf.Positive, handle: h})
	}
	return g, nil
}

// Arena returns the arena the sites live in.
func (m *Molecule) Arena() *attachment.Arena { return m.arena }

// BasePairs returns the number of base pairs.
func (m *Molecule) BasePairs() int { return m.basePairs }

// Length is the distance from the first to the last base pair.
func (m *Molecule) Length() float64 {
	return float64(m.basePairs-1) * BasePairSpacing
}

// Band is the vertical extent of the double helix.
func (m *Molecule) Band() model.Range {
	return model.Range{Min: m.origin.Y - Diameter/2, Max: m.origin.Y + Diameter/2}
}

// Bounds is the rectangle the molecule occupies.
func (m *Molecule) Bounds() model.Rect {
	b := m.Band()
	return model.Rect{MinX: m.origin.X, MinY: b.Min, MaxX: m.origin.X + m.Length(), MaxY: b.Max}
}

// BasePairXOffset converts a base-pair index to an x coordinate.
func (m *Molecule) BasePairXOffset(i int) float64 {
	return m.origin.X + float64(i)*BasePairSpacing
}

// BasePairIndexFromX returns the base pair nearest x, clamped to the
// molecule.
func (m *Molecule) BasePairIndexFromX(x float64) int {
	i := int(math.Round((x - m.origin.X) / BasePairSpacing))
	switch {
	case i < 0:
		return 0
	case i >= m.basePairs:
		return m.basePairs - 1
	default:
		return i
	}
}

// BasePairPosition is the centre-line position of base pair i.
func (m *Molecule) BasePairPosition(i int) model.Vec2 {
	return model.Vec2{X: m.BasePairXOffset(i), Y: m.origin.Y}
}

// Genes returns the genes in base-pair order.
func (m *Molecule) Genes() []*Gene { return m.genes }

// Gene looks a gene up by name.
func (m *Molecule) Gene(name string) (*Gene, error) {
	for _, g := range m.genes {
		if g.def.Name == name {
			return g, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownGene, name)
}

// GeneAt returns the gene covering base pair i, or nil.
func (m *Molecule) GeneAt(i int) *Gene {
	for _, g := range m.genes {
		if g.ContainsBasePair(i) {
			return g
		}
	}
	return nil
}

// GeneForPolymeraseSite returns the gene whose polymerase site is h, or nil
// for an ordinary stretch of DNA.
func (m *Molecule) GeneForPolymeraseSite(h attachment.Handle) *Gene {
	for _, g := range m.genes {
		if g.polymeraseSite == h {
			return g
		}
	}
	return nil
}

// TranscriptionFactorConfig returns a registered config.
func (m *Molecule) TranscriptionFactorConfig(name string) (model.TranscriptionFactorConfig, error) {
	cfg, ok := m.tfConfig[name]
	if !ok {
		return model.TranscriptionFactorConfig{}, fmt.Errorf("%w: %q", ErrUnknownTranscriptionFactor, name)
	}
	return cfg, nil
}

// SetTranscriptionFactorAffinity changes the affinity of every site reserved
// for the config.
func (m *Molecule) SetTranscriptionFactorAffinity(name string, a float64) error {
	cfg, ok := m.tfConfig[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTranscriptionFactor, name)
	}
	cfg.Affinity = a
	m.tfConfig[name] = cfg
	for _, g := range m.genes {
		g.setTranscriptionFactorAffinity(name, a)
	}
	return nil
}

// PolymeraseSite returns the polymerase site at base pair i: the gene's own
// site at the end of a regulatory region, the default site elsewhere.
func (m *Molecule) PolymeraseSite(i int) attachment.Handle {
	for _, g := range m.genes {
		if g.def.Regulatory.End == i {
			return g.polymeraseSite
		}
	}
	return m.polymeraseSites[i]
}

// TranscriptionFactorSite returns the site a factor of config cfg would use
// at base pair i.
func (m *Molecule) TranscriptionFactorSite(i int, cfg string) attachment.Handle {
	if g := m.GeneAt(i); g != nil {
		if h, ok := g.tfSiteAt(i, cfg); ok {
			return h
		}
	}
	return m.tfSites[i]
}

// BasePairIndexOf returns the base pair a site sits on.
func (m *Molecule) BasePairIndexOf(h attachment.Handle) (int, bool) {
	ref, ok := m.refs[h]
	return ref.index, ok
}

// OwnsSite reports whether h is one of the molecule's sites.
func (m *Molecule) OwnsSite(h attachment.Handle) bool {
	_, ok := m.refs[h]
	return ok
}

func (m *Molecule) siteFor(kind model.MoleculeKind, i int, cfg string) attachment.Handle {
	if kind == model.KindTranscriptionFactor {
		return m.TranscriptionFactorSite(i, cfg)
	}
	return m.PolymeraseSite(i)
}

func (m *Molecule) usable(kind model.MoleculeKind, h attachment.Handle, fit Fit) bool {
	site, ok := m.arena.Site(h)
	if !ok || !site.Available() {
		return false
	}
	if kind == model.KindTranscriptionFactor && m.underSeparation(site.Position.X) {
		return false
	}
	return fit.fitsAt(site.Position)
}

// AdjacentSites returns the free neighbours of current for a molecule of the
// given kind, left candidate first. Callers shuffle before choosing.
func (m *Molecule) AdjacentSites(kind model.MoleculeKind, current attachment.Handle, cfg string, fit Fit) []attachment.Handle {
	i, ok := m.BasePairIndexOf(current)
	if !ok {
		return nil
	}
	var out []attachment.Handle
	for _, j := range []int{i - 1, i + 1} {
		if j < 0 || j >= m.basePairs {
			continue
		}
		h := m.siteFor(kind, j, cfg)
		if m.usable(kind, h, fit) {
			out = append(out, h)
		}
	}
	return out
}

// ProposeSite picks the best free site within ProposalRange of the agent:
// highest affinity first, then nearest, then lowest base-pair index.
func (m *Molecule) ProposeSite(kind model.MoleculeKind, cfg string, fit Fit) (attachment.Handle, bool) {
	pos := fit.Position
	band := m.Band()
	if (model.Range{Min: pos.Y - ProposalRange, Max: pos.Y + ProposalRange}).DistanceTo(band) > 0 {
		return attachment.Handle{}, false
	}
	lo := m.BasePairIndexFromX(pos.X - ProposalRange)
	hi := m.BasePairIndexFromX(pos.X + ProposalRange)

	type candidate struct {
		h        attachment.Handle
		index    int
		affinity float64
		dist     float64
	}
	var cands []candidate
	for i := lo; i <= hi; i++ {
		h := m.siteFor(kind, i, cfg)
		site, ok := m.arena.Site(h)
		if !ok {
			continue
		}
		d := site.Position.DistanceTo(pos)
		if d > ProposalRange || !m.usable(kind, h, fit) {
			continue
		}
		cands = append(cands, candidate{h: h, index: i, affinity: site.Affinity, dist: d})
	}
	if len(cands) == 0 {
		return attachment.Handle{}, false
	}
	sort.Slice(cands, func(a, b int) bool {
		ca, cb := cands[a], cands[b]
		if ca.affinity != cb.affinity {
			return ca.affinity > cb.affinity
		}
		if ca.dist != cb.dist {
			return ca.dist < cb.dist
		}
		return ca.index < cb.index
	})
	return cands[0].h, true
}

// Step refreshes the gene polymerase sites from transcription factor
// occupancy, eases the strand separations and moves the sites under them.
func (m *Molecule) Step(dt float64) {
	for _, g := range m.genes {
		g.updateAffinity()
	}
	m.stepSeparations(dt)
	m.liftSites()
}
