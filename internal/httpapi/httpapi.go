// Package httpapi exposes the Scribbler HTTP surface: the ephemeral session
// credential endpoint, the dictation-to-note endpoint, health probes, and
// the Prometheus metrics scrape endpoint.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/drdevinhopkins/scribbler/internal/health"
	"github.com/drdevinhopkins/scribbler/internal/notes"
	"github.com/drdevinhopkins/scribbler/internal/observe"
	"github.com/drdevinhopkins/scribbler/pkg/realtime"
)

// TokenSource supplies ephemeral realtime session credentials.
// [realtime.TokenClient] is the production implementation.
type TokenSource interface {
	Create(ctx context.Context) (*realtime.SessionToken, error)
}

// Server holds the handler dependencies for the HTTP API.
type Server struct {
	tokens   TokenSource
	gen      notes.Generator
	verifier Verifier
	health   *health.Handler
	metrics  *observe.Metrics
}

// Option is a functional option for NewServer.
type Option func(*Server)

// WithVerifier enables bearer token verification on the note endpoint. When
// never supplied, the endpoint runs unauthenticated (fail-open) and a
// warning is logged at construction.
func WithVerifier(v Verifier) Option {
	return func(s *Server) { s.verifier = v }
}

// WithHealth mounts the given health handler on the returned mux.
func WithHealth(h *health.Handler) Option {
	return func(s *Server) { s.health = h }
}

// WithMetrics wires observability instruments into the HTTP middleware.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// NewServer creates a Server issuing credentials from tokens and generating
// clinical notes with gen.
func NewServer(tokens TokenSource, gen notes.Generator, opts ...Option) *Server {
	s := &Server{
		tokens: tokens,
		gen:    gen,
	}
	for _, o := range opts {
		o(s)
	}
	if s.verifier == nil {
		slog.Warn("no identity provider configured, note endpoint runs unauthenticated")
	}
	return s
}

// Handler assembles the full route table. All routes pass through the
// observability middleware; the note endpoint additionally passes through
// bearer token verification when a verifier is configured.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /token", s.handleToken)
	mux.Handle("POST /process-dictation", s.requireAuth(http.HandlerFunc(s.handleProcessDictation)))
	mux.Handle("GET /metrics", promhttp.Handler())
	if s.health != nil {
		s.health.Register(mux)
	}

	if s.metrics != nil {
		return observe.Middleware(s.metrics)(mux)
	}
	return mux
}

// handleToken proxies session creation to the remote realtime provider and
// returns its credential object untouched, so the negotiating client sees
// the provider's own response shape.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	tok, err := s.tokens.Create(r.Context())
	if err != nil {
		observe.Logger(r.Context()).Error("token generation failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Failed to generate token"})
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(tok.Raw())
}

// dictationRequest is the POST /process-dictation request body.
type dictationRequest struct {
	DictationText string `json:"dictationText"`
}

// noteResponse is the POST /process-dictation success body.
type noteResponse struct {
	ClinicalNote string `json:"clinicalNote"`
}

// errorBody is the uniform error response shape.
type errorBody struct {
	Error string `json:"error"`
}

// handleProcessDictation turns the posted dictation text into a structured
// clinical note.
func (s *Server) handleProcessDictation(w http.ResponseWriter, r *http.Request) {
	var req dictationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid request body"})
		return
	}
	if strings.TrimSpace(req.DictationText) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Dictation text is required"})
		return
	}

	note, err := s.gen.Generate(r.Context(), req.DictationText)
	if err != nil {
		observe.Logger(r.Context()).Error("clinical note processing failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Failed to process dictation into clinical note"})
		return
	}

	writeJSON(w, http.StatusOK, noteResponse{ClinicalNote: note})
}

// writeJSON encodes v as JSON and writes it with the given status code. On
// encoding failure it falls back to a plain-text 500 response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encoding failure"}`, http.StatusInternalServerError)
	}
}
