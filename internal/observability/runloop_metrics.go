package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for applied schedule events.
const (
	OutcomeApplied = "applied"
	OutcomeFailed  = "failed"
)

// RunLoopCollector exposes metrics about the clock driving the simulation and
// the parameter schedule it applies.
type RunLoopCollector struct {
	gatherer prometheus.Gatherer

	FrameDuration prometheus.Histogram
	Frames        prometheus.Counter
	SimTime       prometheus.Gauge
	Speed         prometheus.Gauge
	EventsApplied *prometheus.CounterVec
	EventsPending prometheus.Gauge
}

// NewRunLoopCollector registers run loop metrics against the provided registerer.
func NewRunLoopCollector(reg prometheus.Registerer) (*RunLoopCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	frameHistogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sim_frame_duration_seconds",
		Help:    "Wall-clock time spent handling one clock frame, including schedule events.",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.0167, 0.025, 0.05, 0.1},
	})
	frameHistogram, err := registerHistogram(reg, frameHistogram, "sim_frame_duration_seconds")
	if err != nil {
		return nil, err
	}

	frames := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_frames_total",
		Help: "Clock frames delivered to the engine.",
	})
	frames, err = registerCounter(reg, frames, "sim_frames_total")
	if err != nil {
		return nil, err
	}

	simTime := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_time_seconds",
		Help: "Simulated seconds elapsed.",
	})
	simTime, err = registerGauge(reg, simTime, "sim_time_seconds")
	if err != nil {
		return nil, err
	}

	speed := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_speed_multiplier",
		Help: "Current clock speed multiplier.",
	})
	speed, err = registerGauge(reg, speed, "sim_speed_multiplier")
	if err != nil {
		return nil, err
	}

	events, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_schedule_events_total",
		Help: "Scheduled parameter changes processed, labeled by action and outcome.",
	}, []string{"action", "outcome"}), "sim_schedule_events_total")
	if err != nil {
		return nil, err
	}

	pending := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_schedule_events_pending",
		Help: "Scheduled parameter changes not yet applied.",
	})
	pending, err = registerGauge(reg, pending, "sim_schedule_events_pending")
	if err != nil {
		return nil, err
	}

	return &RunLoopCollector{
		gatherer:      gatherer,
		FrameDuration: frameHistogram,
		Frames:        frames,
		SimTime:       simTime,
		Speed:         speed,
		EventsApplied: events,
		EventsPending: pending,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *RunLoopCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObserveFrame records one handled frame.
func (c *RunLoopCollector) ObserveFrame(d time.Duration, simTime float64) {
	if c == nil {
		return
	}
	if c.FrameDuration != nil {
		c.FrameDuration.Observe(d.Seconds())
	}
	if c.Frames != nil {
		c.Frames.Inc()
	}
	if c.SimTime != nil {
		c.SimTime.Set(simTime)
	}
}

// SetSpeed updates the speed gauge. Negative multipliers are reported as zero.
func (c *RunLoopCollector) SetSpeed(multiplier float64) {
	if c == nil || c.Speed == nil {
		return
	}
	if multiplier < 0 {
		multiplier = 0
	}
	c.Speed.Set(multiplier)
}

// ObserveEvent counts a processed schedule event.
func (c *RunLoopCollector) ObserveEvent(action string, err error) {
	if c == nil || c.EventsApplied == nil {
		return
	}
	outcome := OutcomeApplied
	if err != nil {
		outcome = OutcomeFailed
	}
	c.EventsApplied.WithLabelValues(action, outcome).Inc()
}

// SetPendingEvents updates the pending schedule gauge.
func (c *RunLoopCollector) SetPendingEvents(n int) {
	if c == nil || c.EventsPending == nil {
		return
	}
	c.EventsPending.Set(float64(n))
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}
