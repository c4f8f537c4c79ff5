package main

import (
	"context"
	"sync"
	"time"

	"github.com/signalsfoundry/gene-expression-sim/core"
	"github.com/signalsfoundry/gene-expression-sim/internal/logging"
	"github.com/signalsfoundry/gene-expression-sim/internal/observability"
	"github.com/signalsfoundry/gene-expression-sim/model"
	"github.com/signalsfoundry/gene-expression-sim/timectrl"
)

var _ core.MetricsRecorder = (*observability.SimulationCollector)(nil)

// simulation owns an engine and its schedule. The clock goroutine steps it
// while HTTP handlers read snapshots, so every access goes through mu.
type simulation struct {
	mu     sync.Mutex
	ctx    context.Context
	engine *core.SimulationEngine
	sched  *core.Schedule
	clock  *timectrl.FrameClock
	loop   *observability.RunLoopCollector
	log    logging.Logger
}

func newSimulation(ctx context.Context, e *core.SimulationEngine, sched *core.Schedule, clock *timectrl.FrameClock, loop *observability.RunLoopCollector, log logging.Logger) *simulation {
	if log == nil {
		log = logging.Noop()
	}
	s := &simulation{ctx: ctx, engine: e, sched: sched, clock: clock, loop: loop, log: log}
	sched.OnApplied(func(ev core.ScheduledEvent, err error) {
		loop.ObserveEvent(ev.Action, err)
	})
	loop.SetPendingEvents(sched.Remaining())
	loop.SetSpeed(clock.Multiplier())
	clock.AddListener(s.onFrame)
	return s
}

// onFrame advances the engine by dt and applies any schedule events that
// came due.
func (s *simulation) onFrame(dt float64) {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.engine.StepContext(s.ctx, dt)
	// Failures are already logged and counted per event.
	_ = s.sched.ApplyDue(s.ctx, s.engine)

	s.loop.SetPendingEvents(s.sched.Remaining())
	s.loop.ObserveFrame(time.Since(start), s.engine.SimTime())
}

func (s *simulation) snapshot() core.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Snapshot()
}

func (s *simulation) capture(id model.AgentID) (model.ProteinKind, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kind, err := s.engine.CaptureProtein(id)
	if err != nil {
		return "", err
	}
	logging.FromContext(s.ctx, s.log).Info(s.ctx, "protein captured",
		logging.Uint64("agent_id", uint64(id)),
		logging.String("protein", string(kind)),
		logging.Int("total", s.engine.Ledger().Captured(kind)),
	)
	return kind, nil
}

func (s *simulation) setSpeed(multiplier float64) float64 {
	s.clock.SetMultiplier(multiplier)
	m := s.clock.Multiplier()
	s.loop.SetSpeed(m)
	s.log.Info(s.ctx, "speed changed", logging.Float("multiplier", m))
	return m
}

func (s *simulation) speed() float64 { return s.clock.Multiplier() }
