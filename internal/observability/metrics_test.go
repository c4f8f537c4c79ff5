package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestMiddlewareRecordsRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewSimulationCollector(reg)
	if err != nil {
		t.Fatalf("NewSimulationCollector: %v", err)
	}

	r := chi.NewRouter()
	r.Use(collector.Middleware)
	r.Get("/agents/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	for _, path := range []string{"/agents/1", "/agents/2", "/healthz"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := testutil.ToFloat64(collector.HTTPRequests.WithLabelValues("/agents/{id}", "404")); got != 2 {
		t.Fatalf("sim_http_requests_total{/agents/{id},404} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.HTTPRequests.WithLabelValues("/healthz", "200")); got != 1 {
		t.Fatalf("sim_http_requests_total{/healthz,200} = %v, want 1", got)
	}
	if count := histogramSampleCount(t, reg, "sim_http_request_duration_seconds", map[string]string{
		"route": "/agents/{id}",
	}); count != 2 {
		t.Fatalf("sim_http_request_duration_seconds sample_count = %d, want 2", count)
	}
}

func TestSimulationCollectorRecordsEngineCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewSimulationCollector(reg)
	if err != nil {
		t.Fatalf("NewSimulationCollector: %v", err)
	}

	collector.IncAttachment("rna_polymerase")
	collector.IncAttachment("rna_polymerase")
	collector.IncTranscription("lac")
	collector.IncTranslation("A")
	collector.IncMessengerRnaDestroyed()
	collector.IncFragmentReleased()
	collector.IncFragmentReleased()
	collector.IncProteinCaptured("A")
	collector.SetProteinLevel("A", 2.5)
	collector.ObserveStepDuration(0.002)

	checks := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"attachments", collector.Attachments.WithLabelValues("rna_polymerase"), 2},
		{"transcriptions", collector.Transcriptions.WithLabelValues("lac"), 1},
		{"translations", collector.Translations.WithLabelValues("A"), 1},
		{"destroyed", collector.MessengerRnaGone, 1},
		{"fragments", collector.Fragments, 2},
		{"captured", collector.ProteinsCaptured.WithLabelValues("A"), 1},
		{"level", collector.ProteinLevels.WithLabelValues("A"), 2.5},
	}
	for _, c := range checks {
		if got := testutil.ToFloat64(c.c); got != c.want {
			t.Fatalf("%s = %v, want %v", c.name, got, c.want)
		}
	}
	if count := histogramSampleCount(t, reg, "sim_step_duration_seconds", nil); count != 1 {
		t.Fatalf("sim_step_duration_seconds sample_count = %d, want 1", count)
	}
}

func TestSetLiveCountsDropsVanishedKinds(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewSimulationCollector(reg)
	if err != nil {
		t.Fatalf("NewSimulationCollector: %v", err)
	}

	collector.SetLiveCounts(map[string]int{"ribosome": 3, "protein": 7})
	if got := testutil.CollectAndCount(collector.LiveAgents); got != 2 {
		t.Fatalf("live agent series = %d, want 2", got)
	}
	collector.SetLiveCounts(map[string]int{"ribosome": 4})
	if got := testutil.CollectAndCount(collector.LiveAgents); got != 1 {
		t.Fatalf("live agent series = %d, want 1", got)
	}
	if got := testutil.ToFloat64(collector.LiveAgents.WithLabelValues("ribosome")); got != 4 {
		t.Fatalf("ribosome gauge = %v, want 4", got)
	}
}

func TestCollectorsReuseExistingRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewSimulationCollector(reg)
	if err != nil {
		t.Fatalf("NewSimulationCollector: %v", err)
	}
	second, err := NewSimulationCollector(reg)
	if err != nil {
		t.Fatalf("second NewSimulationCollector: %v", err)
	}
	second.IncTranscription("gal")
	if got := testutil.ToFloat64(first.Transcriptions.WithLabelValues("gal")); got != 1 {
		t.Fatalf("collectors do not share series: %v", got)
	}

	if _, err := NewRunLoopCollector(reg); err != nil {
		t.Fatalf("NewRunLoopCollector: %v", err)
	}
	if _, err := NewRunLoopCollector(reg); err != nil {
		t.Fatalf("second NewRunLoopCollector: %v", err)
	}
}

func TestRunLoopCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewRunLoopCollector(reg)
	if err != nil {
		t.Fatalf("NewRunLoopCollector: %v", err)
	}

	collector.ObserveFrame(2*time.Millisecond, 0.5)
	collector.ObserveFrame(3*time.Millisecond, 1.0)
	collector.SetSpeed(-2)
	collector.ObserveEvent("add-biomolecules", nil)
	collector.ObserveEvent("add-biomolecules", errors.New("boom"))
	collector.SetPendingEvents(3)

	if got := testutil.ToFloat64(collector.Frames); got != 2 {
		t.Fatalf("frames = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.SimTime); got != 1.0 {
		t.Fatalf("sim time = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.Speed); got != 0 {
		t.Fatalf("speed = %v, want 0", got)
	}
	if got := testutil.ToFloat64(collector.EventsApplied.WithLabelValues("add-biomolecules", OutcomeFailed)); got != 1 {
		t.Fatalf("failed events = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.EventsPending); got != 3 {
		t.Fatalf("pending = %v, want 3", got)
	}
	if count := histogramSampleCount(t, collector.Gatherer(), "sim_frame_duration_seconds", nil); count != 2 {
		t.Fatalf("frame duration samples = %d, want 2", count)
	}
}

func TestNilCollectorsAreSafe(t *testing.T) {
	var sim *SimulationCollector
	sim.IncAttachment("ribosome")
	sim.SetLiveCounts(map[string]int{"ribosome": 1})
	sim.SetProteinLevel("A", 1)

	var run *RunLoopCollector
	run.ObserveFrame(time.Millisecond, 1)
	run.ObserveEvent("x", nil)
	if run.Gatherer() != nil {
		t.Fatalf("nil collector should have no gatherer")
	}
}

func TestMetricsHandlerExposesSimulationMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewSimulationCollector(reg)
	if err != nil {
		t.Fatalf("NewSimulationCollector: %v", err)
	}
	collector.SetLiveCounts(map[string]int{"rna_polymerase": 6})
	collector.IncTranscription("lac")
	collector.HTTPRequests.WithLabelValues("/metrics", "200").Inc()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, metric := range []string{
		`sim_live_agents{kind="rna_polymerase"} 6`,
		`sim_transcriptions_total{gene="lac"} 1`,
		"sim_http_requests_total",
	} {
		if !strings.Contains(body, metric) {
			t.Fatalf("expected %q in /metrics output:\n%s", metric, body)
		}
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	if len(got) < len(want) {
		return false
	}
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
