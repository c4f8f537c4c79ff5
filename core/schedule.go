package core

import (
	"context"
	"fmt"
	"sort"

	"github.com/mitchellh/mapstructure"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/gene-expression-sim/internal/logging"
	"github.com/signalsfoundry/gene-expression-sim/model"
)

// Schedule action names.
const (
	ActionSetPolymeraseAffinity          = "set-polymerase-affinity"
	ActionSetTranscriptionFactorAffinity = "set-transcription-factor-affinity"
	ActionSetTranscriptionFactorCount    = "set-transcription-factor-count"
	ActionAddBiomolecules                = "add-biomolecules"
)

// ScheduledEvent is a parameter change applied once simulated time reaches
// At. Args are loosely typed in the file and decoded per action.
type ScheduledEvent struct {
	At     float64        `yaml:"at"`
	Action string         `yaml:"action"`
	Args   map[string]any `yaml:"args"`
}

// Action is a decoded parameter change.
type Action interface {
	Apply(e *SimulationEngine) error
}

// SetPolymeraseAffinityAction changes a gene's configured polymerase affinity.
type SetPolymeraseAffinityAction struct {
	Gene     string  `mapstructure:"gene"`
	Affinity float64 `mapstructure:"affinity"`
}

func (a SetPolymeraseAffinityAction) Apply(e *SimulationEngine) error {
	return e.SetPolymeraseAffinity(a.Gene, a.Affinity)
}

// SetTranscriptionFactorAffinityAction changes the affinity of a config's
// docking sites.
type SetTranscriptionFactorAffinityAction struct {
	Config   string  `mapstructure:"config"`
	Affinity float64 `mapstructure:"affinity"`
}

func (a SetTranscriptionFactorAffinityAction) Apply(e *SimulationEngine) error {
	return e.SetTranscriptionFactorAffinity(a.Config, a.Affinity)
}

// SetTranscriptionFactorCountAction reconciles the live count of a config.
type SetTranscriptionFactorCountAction struct {
	Config string `mapstructure:"config"`
	Count  int    `mapstructure:"count"`
}

func (a SetTranscriptionFactorCountAction) Apply(e *SimulationEngine) error {
	return e.SetTranscriptionFactorCount(a.Config, a.Count)
}

// AddBiomoleculesAction adds agents of a kind. Config is required for
// transcription factors and ignored otherwise.
type AddBiomoleculesAction struct {
	Kind   string `mapstructure:"kind"`
	Count  int    `mapstructure:"count"`
	Config string `mapstructure:"config"`
}

func (a AddBiomoleculesAction) Apply(e *SimulationEngine) error {
	kind, err := model.ParseMoleculeKind(a.Kind)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	if kind == model.KindTranscriptionFactor {
		_, err = e.AddTranscriptionFactors(a.Config, a.Count)
		return err
	}
	_, err = e.AddBiomolecules(kind, a.Count)
	return err
}

// Decode turns the event's args into a typed action, rejecting unknown
// actions and unknown or mistyped args.
func (ev ScheduledEvent) Decode() (Action, error) {
	var out Action
	switch ev.Action {
	case ActionSetPolymeraseAffinity:
		var a SetPolymeraseAffinityAction
		if err := decodeArgs(ev.Args, &a); err != nil {
			return nil, err
		}
		if a.Gene == "" {
			return nil, fmt.Errorf("%w: %s needs a gene", ErrInvalidScenario, ev.Action)
		}
		out = a
	case ActionSetTranscriptionFactorAffinity:
		var a SetTranscriptionFactorAffinityAction
		if err := decodeArgs(ev.Args, &a); err != nil {
			return nil, err
		}
		if a.Config == "" {
			return nil, fmt.Errorf("%w: %s needs a config", ErrInvalidScenario, ev.Action)
		}
		out = a
	case ActionSetTranscriptionFactorCount:
		var a SetTranscriptionFactorCountAction
		if err := decodeArgs(ev.Args, &a); err != nil {
			return nil, err
		}
		if a.Config == "" || a.Count < 0 {
			return nil, fmt.Errorf("%w: %s needs a config and a count >= 0", ErrInvalidScenario, ev.Action)
		}
		out = a
	case ActionAddBiomolecules:
		var a AddBiomoleculesAction
		if err := decodeArgs(ev.Args, &a); err != nil {
			return nil, err
		}
		kind, err := model.ParseMoleculeKind(a.Kind)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
		}
		if kind == model.KindTranscriptionFactor && a.Config == "" {
			return nil, fmt.Errorf("%w: adding transcription factors needs a config", ErrInvalidScenario)
		}
		if kind != model.KindTranscriptionFactor && !addable(kind) {
			return nil, fmt.Errorf("%w: %s cannot be added", ErrInvalidScenario, a.Kind)
		}
		if a.Count <= 0 {
			return nil, fmt.Errorf("%w: %s needs a positive count", ErrInvalidScenario, ev.Action)
		}
		out = a
	default:
		return nil, fmt.Errorf("%w: unknown action %q", ErrInvalidScenario, ev.Action)
	}
	return out, nil
}

func decodeArgs(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(args); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	return nil
}

// Schedule hands out scheduled events in time order as simulated time
// passes. Events at the same time keep their file order.
type Schedule struct {
	events []ScheduledEvent
	next   int
	log    logging.Logger
	tracer trace.Tracer

	observers []func(ev ScheduledEvent, err error)
}

// NewSchedule sorts the events.
func NewSchedule(events []ScheduledEvent, log logging.Logger) *Schedule {
	if log == nil {
		log = logging.Noop()
	}
	sorted := append([]ScheduledEvent(nil), events...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].At < sorted[j].At })
	return &Schedule{events: sorted, log: log, tracer: otel.Tracer(tracerName)}
}

// OnApplied registers fn to run after each event is applied, with the
// event's error if it failed.
func (s *Schedule) OnApplied(fn func(ev ScheduledEvent, err error)) {
	if fn != nil {
		s.observers = append(s.observers, fn)
	}
}

// Remaining counts events not yet applied.
func (s *Schedule) Remaining() int { return len(s.events) - s.next }

// Due pops the events whose time has come.
func (s *Schedule) Due(simTime float64) []ScheduledEvent {
	start := s.next
	for s.next < len(s.events) && s.events[s.next].At <= simTime {
		s.next++
	}
	return s.events[start:s.next]
}

// ApplyDue applies every due event to e. A failing event is logged and
// skipped; the first error is returned once all due events have run.
func (s *Schedule) ApplyDue(ctx context.Context, e *SimulationEngine) error {
	var first error
	for _, ev := range s.Due(e.SimTime()) {
		_, span := s.tracer.Start(ctx, "Schedule.Apply", trace.WithAttributes(
			attribute.String("schedule.action", ev.Action),
			attribute.Float64("schedule.at", ev.At),
		))
		err := applyEvent(e, ev)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.log.Warn(ctx, "scheduled event failed",
				logging.String("action", ev.Action),
				logging.Float("at", ev.At),
				logging.Err(err),
			)
			if first == nil {
				first = err
			}
		} else {
			s.log.Info(ctx, "scheduled event applied",
				logging.String("action", ev.Action),
				logging.Float("at", ev.At),
				logging.Float("sim_time", e.SimTime()),
			)
		}
		span.End()
		for _, fn := range s.observers {
			fn(ev, err)
		}
	}
	return first
}

func applyEvent(e *SimulationEngine, ev ScheduledEvent) error {
	a, err := ev.Decode()
	if err != nil {
		return err
	}
	return a.Apply(e)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
