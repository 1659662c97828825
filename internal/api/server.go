// Package api implements the HTTP handlers of the contact relay.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shaharia-lab/formrelay/internal/service"
)

// maxBodyBytes caps the contact request body.
const maxBodyBytes = 64 << 10

// Server holds all dependencies for the REST API handlers.
type Server struct {
	relaySvc service.RelayService
	logger   *slog.Logger
}

// New creates a new API Server backed by the relay service.
func New(relaySvc service.RelayService, logger *slog.Logger) *Server {
	return &Server{
		relaySvc: relaySvc,
		logger:   logger,
	}
}

// Mount registers all API routes under the given router.
func (s *Server) Mount(r chi.Router) {
	r.Get("/", s.handleRoot)
	r.Get("/version", s.handleVersion)

	// The contact form posts to either path.
	r.Post("/contact", s.handleContact)
	r.Post("/send-contact-email", s.handleContact)
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "formrelay backend is running"})
}

// ─── Shared helpers ───────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorResponse is the body of every failed request.
type errorResponse struct {
	Status string       `json:"status"`
	Detail string       `json:"detail"`
	Fields []fieldError `json:"fields,omitempty"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Status: "error", Detail: detail})
}
