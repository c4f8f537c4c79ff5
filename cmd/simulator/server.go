package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/signalsfoundry/gene-expression-sim/core"
	"github.com/signalsfoundry/gene-expression-sim/internal/logging"
	"github.com/signalsfoundry/gene-expression-sim/internal/observability"
	"github.com/signalsfoundry/gene-expression-sim/model"
)

type ledgerResponse struct {
	SimTime      float64                       `json:"sim_time"`
	Captured     map[model.ProteinKind]int     `json:"captured"`
	Levels       map[model.ProteinKind]float64 `json:"levels"`
	AverageLevel float64                       `json:"average_level"`
}

type speedRequest struct {
	Multiplier float64 `json:"multiplier"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func newRouter(sim *simulation, collector *observability.SimulationCollector) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(sim.log))
	r.Use(middleware.Recoverer)
	r.Use(collector.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", collector.Handler())

	r.Get("/snapshot", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, sim.snapshot())
	})
	r.Get("/ledger", func(w http.ResponseWriter, r *http.Request) {
		snap := sim.snapshot()
		writeJSON(w, http.StatusOK, ledgerResponse{
			SimTime:      snap.SimTime,
			Captured:     snap.Captured,
			Levels:       snap.Levels,
			AverageLevel: snap.AverageLevel,
		})
	})

	r.Get("/speed", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, speedRequest{Multiplier: sim.speed()})
	})
	r.Put("/speed", func(w http.ResponseWriter, r *http.Request) {
		var req speedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body: " + err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, speedRequest{Multiplier: sim.setSpeed(req.Multiplier)})
	})

	r.Post("/proteins/{id}/capture", func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid agent id"})
			return
		}
		kind, err := sim.capture(model.AgentID(id))
		if err != nil {
			writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"protein": string(kind)})
	})

	return r
}

// requestLogger logs each request at debug level under the request_id that
// middleware.RequestID assigned or took from X-Request-Id.
func requestLogger(base logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			ctx := r.Context()
			if !base.Enabled(ctx, slog.LevelDebug) {
				return
			}
			base.Debug(ctx, "http request",
				logging.String("request_id", middleware.GetReqID(ctx)),
				logging.String("method", r.Method),
				logging.String("path", r.URL.Path),
				logging.Int("status", ww.Status()),
				logging.Int("bytes", ww.BytesWritten()),
			)
		})
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrBiomoleculeNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrNotAProtein), errors.Is(err, core.ErrProteinHeld):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// serveHTTP starts the observation server in the background. An empty addr
// disables it.
func serveHTTP(addr string, handler http.Handler, log logging.Logger) *http.Server {
	if addr == "" {
		return nil
	}
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "http server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving metrics and snapshots", logging.String("addr", addr))
	return srv
}
