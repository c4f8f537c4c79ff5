package observability

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SimulationCollector bundles Prometheus metrics for a running simulation. It
// receives the engine's counters from inside Step and instruments the HTTP
// surface that exposes them.
type SimulationCollector struct {
	gatherer prometheus.Gatherer

	LiveAgents       *prometheus.GaugeVec
	StepDurations    prometheus.Histogram
	Attachments      *prometheus.CounterVec
	Transcriptions   *prometheus.CounterVec
	Translations     *prometheus.CounterVec
	MessengerRnaGone prometheus.Counter
	Fragments        prometheus.Counter
	ProteinsCaptured *prometheus.CounterVec
	ProteinLevels    *prometheus.GaugeVec

	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec
}

// NewSimulationCollector registers simulation metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewSimulationCollector(reg prometheus.Registerer) (*SimulationCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	live, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sim_live_agents",
		Help: "Current number of live agents, labeled by molecule kind.",
	}, []string{"kind"}), "sim_live_agents")
	if err != nil {
		return nil, err
	}

	steps, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sim_step_duration_seconds",
		Help:    "Wall-clock time taken by one simulation step.",
		Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
	}), "sim_step_duration_seconds")
	if err != nil {
		return nil, err
	}

	attachments, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_attachments_total",
		Help: "Agents that reached an attachment site, labeled by molecule kind.",
	}, []string{"kind"}), "sim_attachments_total")
	if err != nil {
		return nil, err
	}

	transcriptions, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_transcriptions_total",
		Help: "Transcriptions started, labeled by gene.",
	}, []string{"gene"}), "sim_transcriptions_total")
	if err != nil {
		return nil, err
	}

	translations, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_translations_total",
		Help: "Translations completed, labeled by protein.",
	}, []string{"protein"}), "sim_translations_total")
	if err != nil {
		return nil, err
	}

	destroyed, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_mrna_destroyed_total",
		Help: "mRNA strands fully destroyed and removed.",
	}), "sim_mrna_destroyed_total")
	if err != nil {
		return nil, err
	}

	fragments, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_mrna_fragments_released_total",
		Help: "mRNA fragments released by destroyers.",
	}), "sim_mrna_fragments_released_total")
	if err != nil {
		return nil, err
	}

	captured, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_proteins_captured_total",
		Help: "Proteins captured by the user, labeled by protein.",
	}, []string{"protein"}), "sim_proteins_captured_total")
	if err != nil {
		return nil, err
	}

	levels, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sim_protein_level",
		Help: "Smoothed live protein count, labeled by protein.",
	}, []string{"protein"}), "sim_protein_level")
	if err != nil {
		return nil, err
	}

	requests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_http_requests_total",
		Help: "Total number of handled HTTP requests, labeled by route and status code.",
	}, []string{"route", "code"}), "sim_http_requests_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sim_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"route"}), "sim_http_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &SimulationCollector{
		gatherer:         gatherer,
		LiveAgents:       live,
		StepDurations:    steps,
		Attachments:      attachments,
		Transcriptions:   transcriptions,
		Translations:     translations,
		MessengerRnaGone: destroyed,
		Fragments:        fragments,
		ProteinsCaptured: captured,
		ProteinLevels:    levels,
		HTTPRequests:     requests,
		HTTPDurations:    durations,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SimulationCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Middleware records request counts and durations, labeled by the chi route
// pattern so path parameters do not explode the label space.
func (c *SimulationCollector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		if c == nil {
			return
		}
		route := "unknown"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		code := ww.Status()
		if code == 0 {
			code = http.StatusOK
		}
		if c.HTTPRequests != nil {
			c.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
		}
		if c.HTTPDurations != nil {
			c.HTTPDurations.WithLabelValues(route).Observe(time.Since(start).Seconds())
		}
	})
}

// SetLiveCounts replaces the live agent gauges. Kinds that disappeared drop
// to zero rather than vanishing from the output.
func (c *SimulationCollector) SetLiveCounts(counts map[string]int) {
	if c == nil || c.LiveAgents == nil {
		return
	}
	c.LiveAgents.Reset()
	for kind, n := range counts {
		c.LiveAgents.WithLabelValues(kind).Set(float64(n))
	}
}

// ObserveStepDuration records how long one step took.
func (c *SimulationCollector) ObserveStepDuration(seconds float64) {
	if c == nil || c.StepDurations == nil {
		return
	}
	c.StepDurations.Observe(seconds)
}

func (c *SimulationCollector) IncAttachment(kind string) {
	if c == nil || c.Attachments == nil {
		return
	}
	c.Attachments.WithLabelValues(kind).Inc()
}

func (c *SimulationCollector) IncTranscription(gene string) {
	if c == nil || c.Transcriptions == nil {
		return
	}
	c.Transcriptions.WithLabelValues(gene).Inc()
}

func (c *SimulationCollector) IncTranslation(protein string) {
	if c == nil || c.Translations == nil {
		return
	}
	c.Translations.WithLabelValues(protein).Inc()
}

func (c *SimulationCollector) IncMessengerRnaDestroyed() {
	if c == nil || c.MessengerRnaGone == nil {
		return
	}
	c.MessengerRnaGone.Inc()
}

func (c *SimulationCollector) IncFragmentReleased() {
	if c == nil || c.Fragments == nil {
		return
	}
	c.Fragments.Inc()
}

func (c *SimulationCollector) IncProteinCaptured(protein string) {
	if c == nil || c.ProteinsCaptured == nil {
		return
	}
	c.ProteinsCaptured.WithLabelValues(protein).Inc()
}

// SetProteinLevel publishes a smoothed protein level.
func (c *SimulationCollector) SetProteinLevel(protein string, level float64) {
	if c == nil || c.ProteinLevels == nil {
		return
	}
	c.ProteinLevels.WithLabelValues(protein).Set(level)
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
