// core/scenario_loader.go
package core

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/gene-expression-sim/dna"
	"github.com/signalsfoundry/gene-expression-sim/model"
)

// ErrInvalidScenario indicates a scenario file that cannot be simulated.
var ErrInvalidScenario = errors.New("invalid scenario")

// Scenario is a loaded scenario file: the world to build, who lives in it and
// what changes as it runs.
type Scenario struct {
	Name   string
	Seed   int64
	Engine EngineConfig
	// TranscriptionFactors holds the starting count per config, in file order.
	TranscriptionFactors []TranscriptionFactorCount
	Molecules            []MoleculeCount
	Schedule             []ScheduledEvent
}

// TranscriptionFactorCount is how many factors of a config to start with.
type TranscriptionFactorCount struct {
	Config string
	Count  int
}

// MoleculeCount is how many agents of a kind to start with.
type MoleculeCount struct {
	Kind  model.MoleculeKind
	Count int
}

// internal YAML shapes – unexported so the file format can evolve on its own.
type scenarioYAML struct {
	Name                 string                    `yaml:"name"`
	Seed                 int64                     `yaml:"seed"`
	Bounds               *boundsYAML               `yaml:"bounds"`
	DNA                  *dnaYAML                  `yaml:"dna"`
	TranscriptionFactors []transcriptionFactorYAML `yaml:"transcription_factors"`
	Molecules            map[string]int            `yaml:"molecules"`
	RecycleZones         []rectYAML                `yaml:"recycle_zones"`
	FadeMessengerRna     bool                      `yaml:"fade_mrna"`
	Rates                yaml.Node                 `yaml:"rates"`
	Schedule             []ScheduledEvent          `yaml:"schedule"`
}

type boundsYAML struct {
	Rect    *rectYAML   `yaml:"rect"`
	Circle  *circleYAML `yaml:"circle"`
	Polygon []vecYAML   `yaml:"polygon"`
}

type rectYAML struct {
	MinX float64 `yaml:"min_x"`
	MinY float64 `yaml:"min_y"`
	MaxX float64 `yaml:"max_x"`
	MaxY float64 `yaml:"max_y"`
}

type circleYAML struct {
	Center vecYAML `yaml:"center"`
	Radius float64 `yaml:"radius"`
}

type vecYAML struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

type dnaYAML struct {
	Origin    vecYAML    `yaml:"origin"`
	BasePairs int        `yaml:"base_pairs"`
	Genes     []geneYAML `yaml:"genes"`
}

type geneYAML struct {
	Name                 string          `yaml:"name"`
	Protein              string          `yaml:"protein"`
	Regulatory           rangeYAML       `yaml:"regulatory"`
	Transcribed          rangeYAML       `yaml:"transcribed"`
	PolymeraseAffinity   *float64        `yaml:"polymerase_affinity"`
	TranscriptionFactors []placementYAML `yaml:"transcription_factors"`
}

type rangeYAML struct {
	Start int `yaml:"start"`
	End   int `yaml:"end"`
}

type placementYAML struct {
	Offset int    `yaml:"offset"`
	Config string `yaml:"config"`
}

type transcriptionFactorYAML struct {
	Name     string   `yaml:"name"`
	Positive bool     `yaml:"positive"`
	Affinity *float64 `yaml:"affinity"`
	Count    int      `yaml:"count"`
}

func (r rectYAML) rect() model.Rect {
	return model.Rect{MinX: r.MinX, MinY: r.MinY, MaxX: r.MaxX, MaxY: r.MaxY}
}

func (v vecYAML) vec() model.Vec2 { return model.Vec2{X: v.X, Y: v.Y} }

// LoadScenarioFile reads a YAML scenario from path.
func LoadScenarioFile(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("LoadScenario: %w", err)
	}
	defer f.Close()
	return LoadScenario(f)
}

// LoadScenario reads a YAML scenario from r and validates it far enough that
// building an engine from it only fails on DNA layout errors. Rates absent
// from the file keep their defaults.
func LoadScenario(r io.Reader) (*Scenario, error) {
	var payload scenarioYAML
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("LoadScenario: decode failed: %w", err)
	}

	s := &Scenario{
		Name: payload.Name,
		Seed: payload.Seed,
		Engine: EngineConfig{
			FadeMessengerRna: payload.FadeMessengerRna,
			Rates:            DefaultRates(),
		},
	}

	// 1) Rates
	if !payload.Rates.IsZero() {
		if err := payload.Rates.Decode(&s.Engine.Rates); err != nil {
			return nil, fmt.Errorf("LoadScenario: rates: %w", err)
		}
	}
	if err := s.Engine.Rates.Validate(); err != nil {
		return nil, fmt.Errorf("LoadScenario: %w", err)
	}

	// 2) Bounds and recycle zones
	bounds, err := payload.Bounds.motionBounds()
	if err != nil {
		return nil, fmt.Errorf("LoadScenario: %w", err)
	}
	s.Engine.Bounds = bounds
	for i, z := range payload.RecycleZones {
		rect := z.rect()
		if rect.Width() <= 0 || rect.Height() <= 0 {
			return nil, fmt.Errorf("LoadScenario: %w: recycle zone %d is empty", ErrInvalidScenario, i)
		}
		s.Engine.RecycleZones = append(s.Engine.RecycleZones, rect)
	}

	// 3) Transcription factors
	tfConfigs := make([]model.TranscriptionFactorConfig, 0, len(payload.TranscriptionFactors))
	for _, tf := range payload.TranscriptionFactors {
		if tf.Name == "" {
			return nil, fmt.Errorf("LoadScenario: %w: transcription factor with empty name", ErrInvalidScenario)
		}
		if tf.Count < 0 {
			return nil, fmt.Errorf("LoadScenario: %w: transcription factor %q has negative count", ErrInvalidScenario, tf.Name)
		}
		cfg := model.TranscriptionFactorConfig{Name: tf.Name, Positive: tf.Positive, Affinity: 0.5}
		if tf.Affinity != nil {
			cfg.Affinity = *tf.Affinity
		}
		tfConfigs = append(tfConfigs, cfg)
		if tf.Count > 0 {
			s.TranscriptionFactors = append(s.TranscriptionFactors, TranscriptionFactorCount{Config: tf.Name, Count: tf.Count})
		}
	}

	// 4) DNA
	if payload.DNA != nil {
		cfg := &dna.Config{
			Origin:               payload.DNA.Origin.vec(),
			BasePairs:            payload.DNA.BasePairs,
			TranscriptionFactors: tfConfigs,
		}
		for _, g := range payload.DNA.Genes {
			cfg.Genes = append(cfg.Genes, g.definition())
		}
		s.Engine.DNA = cfg
	} else if len(tfConfigs) > 0 {
		return nil, fmt.Errorf("LoadScenario: %w: transcription factors need a dna section", ErrInvalidScenario)
	}

	// 5) Molecules
	for _, name := range sortedKeys(payload.Molecules) {
		kind, err := model.ParseMoleculeKind(name)
		if err != nil {
			return nil, fmt.Errorf("LoadScenario: %w: %v", ErrInvalidScenario, err)
		}
		if !addable(kind) {
			return nil, fmt.Errorf("LoadScenario: %w: %s cannot be placed by the scenario", ErrInvalidScenario, name)
		}
		count := payload.Molecules[name]
		if count < 0 {
			return nil, fmt.Errorf("LoadScenario: %w: negative count for %s", ErrInvalidScenario, name)
		}
		s.Molecules = append(s.Molecules, MoleculeCount{Kind: kind, Count: count})
	}

	// 6) Schedule
	for i, ev := range payload.Schedule {
		if ev.At < 0 {
			return nil, fmt.Errorf("LoadScenario: %w: schedule event %d at negative time", ErrInvalidScenario, i)
		}
		if _, err := ev.Decode(); err != nil {
			return nil, fmt.Errorf("LoadScenario: schedule event %d: %w", i, err)
		}
	}
	s.Schedule = payload.Schedule
	return s, nil
}

func (b *boundsYAML) motionBounds() (model.MotionBounds, error) {
	if b == nil {
		return model.Unbounded(), nil
	}
	set := 0
	if b.Rect != nil {
		set++
	}
	if b.Circle != nil {
		set++
	}
	if len(b.Polygon) > 0 {
		set++
	}
	switch {
	case set == 0:
		return model.Unbounded(), nil
	case set > 1:
		return model.MotionBounds{}, fmt.Errorf("%w: bounds must be one of rect, circle or polygon", ErrInvalidScenario)
	case b.Rect != nil:
		r := b.Rect.rect()
		if r.Width() <= 0 || r.Height() <= 0 {
			return model.MotionBounds{}, fmt.Errorf("%w: empty bounds rect", ErrInvalidScenario)
		}
		return model.NewMotionBounds(model.RectRegion{Rect: r}), nil
	case b.Circle != nil:
		if b.Circle.Radius <= 0 {
			return model.MotionBounds{}, fmt.Errorf("%w: bounds circle radius %v", ErrInvalidScenario, b.Circle.Radius)
		}
		return model.NewMotionBounds(model.CircleRegion{Center: b.Circle.Center.vec(), Radius: b.Circle.Radius}), nil
	default:
		if len(b.Polygon) < 3 {
			return model.MotionBounds{}, fmt.Errorf("%w: bounds polygon needs 3 vertices, got %d", ErrInvalidScenario, len(b.Polygon))
		}
		verts := make([]model.Vec2, len(b.Polygon))
		for i, v := range b.Polygon {
			verts[i] = v.vec()
		}
		return model.NewMotionBounds(model.PolygonRegion{Vertices: verts}), nil
	}
}

func (g geneYAML) definition() model.GeneDefinition {
	def := model.GeneDefinition{
		Name:               g.Name,
		Regulatory:         model.BasePairRange{Start: g.Regulatory.Start, End: g.Regulatory.End},
		Transcribed:        model.BasePairRange{Start: g.Transcribed.Start, End: g.Transcribed.End},
		Protein:            model.ProteinKind(g.Protein),
		PolymeraseAffinity: 0.5,
	}
	if def.Protein == "" {
		def.Protein = model.ProteinKind(g.Name)
	}
	if g.PolymeraseAffinity != nil {
		def.PolymeraseAffinity = *g.PolymeraseAffinity
	}
	for _, p := range g.TranscriptionFactors {
		def.TranscriptionFactors = append(def.TranscriptionFactors, model.TranscriptionFactorPlacement{Offset: p.Offset, Config: p.Config})
	}
	return def
}

// NewEngine builds an engine for the scenario and populates it. Options are
// applied after the scenario's seed, so WithRand or WithSeed override it.
func (s *Scenario) NewEngine(opts ...EngineOption) (*SimulationEngine, error) {
	all := append([]EngineOption{WithSeed(s.Seed)}, opts...)
	e, err := NewSimulationEngine(s.Engine, all...)
	if err != nil {
		return nil, err
	}
	for _, tf := range s.TranscriptionFactors {
		if _, err := e.AddTranscriptionFactors(tf.Config, tf.Count); err != nil {
			return nil, err
		}
	}
	for _, mc := range s.Molecules {
		if _, err := e.AddBiomolecules(mc.Kind, mc.Count); err != nil {
			return nil, err
		}
	}
	return e, nil
}
