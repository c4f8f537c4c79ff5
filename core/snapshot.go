package core

import (
	"github.com/signalsfoundry/gene-expression-sim/dna"
	"github.com/signalsfoundry/gene-expression-sim/model"
)

// AgentView is a read-only picture of one agent after a step.
type AgentView struct {
	ID             model.AgentID
	Kind           model.MoleculeKind
	State          string
	Motion         string
	Position       model.Vec3
	Shape          model.Rect
	Existence      float64
	AttachedToDna  bool
	UserControlled bool
}

// MessengerRnaView adds a strand's geometry to its AgentView.
type MessengerRnaView struct {
	AgentView
	Gene            string
	Protein         model.ProteinKind
	Length          float64
	DestroyedLength float64
	Points          []model.Vec2
	Ribosomes       int
}

// Snapshot is the state rendering and reporting collaborators poll once per
// frame. It shares nothing with the engine.
type Snapshot struct {
	SimTime       float64
	Frame         uint64
	Agents        []AgentView
	MessengerRnas []MessengerRnaView
	Separations   []dna.Separation
	Captured      map[model.ProteinKind]int
	Levels        map[model.ProteinKind]float64
	AverageLevel  float64
}

// Snapshot copies the current state out of the engine.
func (e *SimulationEngine) Snapshot() Snapshot {
	s := Snapshot{
		SimTime:       e.simTime,
		Frame:         e.frames,
		Agents:        make([]AgentView, 0, len(e.agents)),
		MessengerRnas: make([]MessengerRnaView, 0, len(e.mrnas)),
		Captured:      e.ledger.CapturedCounts(),
		Levels:        e.ledger.Levels(),
		AverageLevel:  e.ledger.AverageLevel(),
	}
	for _, a := range e.agents {
		s.Agents = append(s.Agents, viewOf(a))
	}
	for _, r := range e.mrnas {
		s.MessengerRnas = append(s.MessengerRnas, MessengerRnaView{
			AgentView:       viewOf(r),
			Gene:            r.gene,
			Protein:         r.protein,
			Length:          r.length,
			DestroyedLength: r.destroyed,
			Points:          r.Points(),
			Ribosomes:       len(r.ribosomes),
		})
	}
	if e.dna != nil {
		s.Separations = e.dna.Separations()
	}
	return s
}

func viewOf(a Agent) AgentView {
	b := a.biomolecule()
	v := AgentView{
		ID:             b.id,
		Kind:           b.kind,
		State:          a.StateName(),
		Motion:         b.MotionName(),
		Position:       b.position,
		Shape:          b.Shape(),
		Existence:      b.existence,
		UserControlled: b.userControlled,
	}
	if h, ok := a.(machineHolder); ok {
		v.AttachedToDna = h.Machine().IsAttachedToDna()
	}
	return v
}

// CountByState tallies agents of a kind by state name.
func (s Snapshot) CountByState(kind model.MoleculeKind) map[string]int {
	out := make(map[string]int)
	for _, a := range s.Agents {
		if a.Kind == kind {
			out[a.State]++
		}
	}
	for _, r := range s.MessengerRnas {
		if r.Kind == kind {
			out[r.State]++
		}
	}
	return out
}
