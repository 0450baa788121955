// Package httpapi maps the /gt/* endpoints onto the raster pipeline:
// catalog resolution, weighted overlay, mask stages, and analytics.
package httpapi

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MeKo-Tech/gtoverlay/internal/catalog"
	"github.com/MeKo-Tech/gtoverlay/internal/metrics"
)

// Server holds the dependencies every handler needs: the process-wide
// catalog handle and a logger. Per the concurrency model, the catalog is
// opened once at startup and treated as read-only and thread-safe by
// contract; Server itself carries no other mutable state.
type Server struct {
	Catalog catalog.Catalog
	Logger  *slog.Logger
}

func (s *Server) log() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Router builds the chi mux with CORS/logging/recovery middleware and every
// endpoint named in §6.1, plus the ambient /healthz and /metrics routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger(s.log()))
	r.Use(handlers.RecoveryHandler())
	r.Use(withCORS)
	r.Use(recordRequestDuration)

	r.Get("/gt/colors", s.handleColors)
	r.Post("/gt/breaks", s.handleBreaks)
	r.Post("/gt/wo", s.handleWeightedOverlay)
	r.Post("/gt/tile/{z}/{x}/{y}.png", s.handleTile)
	r.Post("/gt/histogram", s.handleHistogram)
	r.Post("/gt/value", s.handleValue)
	r.Post("/gt/spark/value", s.handleSparkValue)

	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// statusRecorder captures the status code a handler writes, since
// http.ResponseWriter doesn't expose it after the fact.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func recordRequestDuration(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		metrics.RequestDuration.WithLabelValues(r.URL.Path, strconv.Itoa(rec.status)).Observe(time.Since(start).Seconds())
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// slogWriter adapts a slog.Logger into the io.Writer gorilla/handlers'
// LoggingHandler expects, one Apache Common Log Format line per write.
type slogWriter struct{ logger *slog.Logger }

func (w slogWriter) Write(p []byte) (int, error) {
	w.logger.Info(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return handlers.LoggingHandler(slogWriter{logger: logger}, next)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
