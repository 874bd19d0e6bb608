// Package server exposes the sheet ingestion flow over HTTP for the
// browser client: upload, process, inspect, export.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/overviewer/sheetscan/internal/enrich"
	"github.com/overviewer/sheetscan/internal/mapping"
	"github.com/overviewer/sheetscan/internal/reconcile"
)

// Options tunes the HTTP surface.
type Options struct {
	AllowedOrigins []string // default "*"
	MaxUploadBytes int64    // default 16 MiB
}

// Server wires the pipeline stages behind the HTTP API. Sessions live in
// memory for the lifetime of the process.
type Server struct {
	mapper     mapping.Mapper
	reconciler *reconcile.Reconciler
	enricher   *enrich.Orchestrator
	sessions   *sessionRegistry
	opts       Options
}

// New creates a Server.
func New(mapper mapping.Mapper, reconciler *reconcile.Reconciler, enricher *enrich.Orchestrator, opts Options) *Server {
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 16 << 20
	}
	return &Server{
		mapper:     mapper,
		reconciler: reconciler,
		enricher:   enricher,
		sessions:   newSessionRegistry(),
		opts:       opts,
	}
}

// Router builds the chi handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api/sheets", func(r chi.Router) {
		r.Post("/", s.handleUpload)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Post("/process", s.handleProcess)
			r.Get("/export", s.handleExport)
		})
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)))
	})
}
