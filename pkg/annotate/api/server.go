// Package api exposes the upload, gallery, and polling HTTP surface.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/tendant/image-annotate/pkg/annotate"
)

// Server wires the annotate service into an HTTP router.
type Server struct {
	service        annotate.Service
	logger         *slog.Logger
	maxUploadBytes int64
}

// NewServer creates the HTTP server wrapper.
func NewServer(service annotate.Service, logger *slog.Logger, maxUploadBytes int64) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = 16 << 20
	}
	return &Server{service: service, logger: logger, maxUploadBytes: maxUploadBytes}
}

// Routes sets up the HTTP routes.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)
	r.Post("/upload", s.handleUpload)
	r.Get("/gallery", s.handleGallery)
	r.Get("/status/{key}", s.handleStatus)

	return r
}

// ErrorResponse is the uniform error body. Internal failure detail stays in
// the logs, never in the response.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Healthy(r.Context()); err != nil {
		s.logger.Error("health check failed", "request_id", middleware.GetReqID(r.Context()), "error", err)
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
