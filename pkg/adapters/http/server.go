package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aretw0/plotforge/pkg/domain"
	"github.com/aretw0/plotforge/pkg/runner"
	"github.com/aretw0/plotforge/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Server exposes a session.Manager over JSON.
type Server struct {
	Sessions *session.Manager
	Metrics  http.Handler
	Logger   *slog.Logger
}

// Option configures the handler.
type Option func(*Server)

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.Metrics = h }
}

// WithLogger sets the request error logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.Logger = logger }
}

// NewHandler creates the HTTP handler for the story API.
func NewHandler(mgr *session.Manager, opts ...Option) http.Handler {
	server := &Server{
		Sessions: mgr,
		Logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(server)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", server.GetHealth)
	r.Get("/graph", server.GetGraph)
	if server.Metrics != nil {
		r.Handle("/metrics", server.Metrics)
	}

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", server.ListSessions)
		r.Post("/", server.CreateSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", server.GetSession)
			r.Delete("/", server.DeleteSession)
			r.Post("/choices", server.PostChoice)
			r.Get("/nodes/{node}", server.GetNode)
			r.Get("/history", server.GetHistory)
			r.Get("/export", server.GetExport)
		})
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SessionResponse is the body returned by scene-producing endpoints.
type SessionResponse struct {
	SessionID string        `json:"sessionId"`
	Scene     *domain.Scene `json:"scene"`
}

// ChoiceRequest selects a choice by ID or 1-based ordinal.
type ChoiceRequest struct {
	Choice string `json:"choice"`
}

// CreateSessionRequest optionally names the new session.
type CreateSessionRequest struct {
	SessionID string `json:"sessionId,omitempty"`
}

// GraphResponse describes the loaded node graph.
type GraphResponse struct {
	Name        string        `json:"name,omitempty"`
	InitialNode string        `json:"initialNode"`
	TotalNodes  int           `json:"totalNodes"`
	Nodes       []domain.Node `json:"nodes"`
}

// CreateSession handles POST /sessions.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	var body CreateSessionRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}
	id := body.SessionID
	if id == "" {
		id = uuid.NewString()
	}

	scene, err := s.Sessions.Start(r.Context(), id)
	if err != nil {
		s.fail(w, "CreateSession", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, SessionResponse{SessionID: id, Scene: scene})
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Sessions.List(r.Context())
	if err != nil {
		s.fail(w, "ListSessions", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"sessions": ids})
}

// GetSession handles GET /sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	scene, err := s.Sessions.Current(r.Context(), id)
	if err != nil {
		s.fail(w, "GetSession", err)
		return
	}
	s.writeJSON(w, http.StatusOK, SessionResponse{SessionID: id, Scene: scene})
}

// PostChoice handles POST /sessions/{id}/choices.
func (s *Server) PostChoice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var body ChoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	choice, err := runner.SanitizeInput(body.Choice)
	if err != nil {
		http.Error(w, fmt.Sprintf("Input rejected: %v", err), http.StatusBadRequest)
		return
	}

	scene, err := s.Sessions.Choose(r.Context(), id, choice)
	if err != nil {
		s.fail(w, "PostChoice", err)
		return
	}
	s.writeJSON(w, http.StatusOK, SessionResponse{SessionID: id, Scene: scene})
}

// GetNode handles GET /sessions/{id}/nodes/{node}.
func (s *Server) GetNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	scene, err := s.Sessions.Resolve(r.Context(), id, chi.URLParam(r, "node"))
	if err != nil {
		s.fail(w, "GetNode", err)
		return
	}
	s.writeJSON(w, http.StatusOK, SessionResponse{SessionID: id, Scene: scene})
}

// GetHistory handles GET /sessions/{id}/history.
func (s *Server) GetHistory(w http.ResponseWriter, r *http.Request) {
	log, err := s.Sessions.History(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "GetHistory", err)
		return
	}
	if log == nil {
		log = []domain.Snapshot{}
	}
	s.writeJSON(w, http.StatusOK, log)
}

// GetExport handles GET /sessions/{id}/export.
func (s *Server) GetExport(w http.ResponseWriter, r *http.Request) {
	text, err := s.Sessions.Export(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "GetExport", err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(text))
}

// DeleteSession handles DELETE /sessions/{id}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, "DeleteSession", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetGraph handles GET /graph.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	base := s.Sessions.Base()
	s.writeJSON(w, http.StatusOK, GraphResponse{
		Name:        base.Name,
		InitialNode: base.InitialNodeID(),
		TotalNodes:  base.TotalNodeCount(),
		Nodes:       base.Nodes().Nodes(),
	})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.Logger.Error(op+" failed", "err", err)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrNodeNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidChoice):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("response encode failed", "err", err)
	}
}
