// Package api serves the dashboard HTTP endpoints over the usage engine.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/cclens/cclens/internal/aggregate"
	"github.com/cclens/cclens/internal/reader"
	"github.com/cclens/cclens/internal/store"
	"github.com/cclens/cclens/internal/usage"
)

// Server holds the handler dependencies.
type Server struct {
	engine *usage.Engine
	store  *store.Store
	hub    *Hub
	log    *slog.Logger
	loc    *time.Location
	now    func() time.Time
}

// New builds the API server. store may be nil, in which case /api/projects
// answers from the engine alone.
func New(engine *usage.Engine, st *store.Store, loc *time.Location, log *slog.Logger) *Server {
	return &Server{
		engine: engine,
		store:  st,
		hub:    NewHub(log),
		log:    log,
		loc:    loc,
		now:    time.Now,
	}
}

// Hub exposes the websocket hub for broadcasting refresh notifications.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /api/usage/summary", s.handleSummary)
	mux.HandleFunc("GET /api/usage/daily", s.handleDaily)
	mux.HandleFunc("GET /api/usage/monthly", s.handleMonthly)
	mux.HandleFunc("GET /api/usage/models", s.handleModels)
	mux.HandleFunc("GET /api/usage/sessions", s.handleSessions)
	mux.HandleFunc("GET /api/usage/current", s.handleCurrent)
	mux.HandleFunc("GET /api/projects", s.handleProjects)
	mux.HandleFunc("GET /ws", s.hub.handleWS)

	limiter := newIPRateLimiter(rate.Limit(20), 40)
	return securityHeaders(limiter.middleware(mux))
}

// NotifyChanged refreshes the engine, updates the summary cache and tells
// websocket clients to re-fetch. Called by the file watcher.
func (s *Server) NotifyChanged(ctx context.Context) {
	added, err := s.engine.Refresh(ctx)
	if err != nil {
		s.log.Warn("refresh after change failed", "error", err)
		return
	}
	if added == 0 {
		return
	}
	s.updateCache(ctx)
	s.hub.Broadcast([]byte(`{"type":"usage_updated"}`))
}

// updateCache rebuilds the persisted daily/monthly summaries and project
// registry.
func (s *Server) updateCache(ctx context.Context) {
	if s.store == nil {
		return
	}
	daily, err := s.engine.Daily(ctx, aggregate.Filters{})
	if err == nil {
		if err := s.store.ReplaceSummaries("daily", daily); err != nil {
			s.log.Warn("caching daily summaries failed", "error", err)
		}
	}
	monthly, err := s.engine.Monthly(ctx, aggregate.Filters{})
	if err == nil {
		if err := s.store.ReplaceSummaries("monthly", monthly); err != nil {
			s.log.Warn("caching monthly summaries failed", "error", err)
		}
	}
	projects, err := s.engine.Projects(ctx)
	if err == nil {
		now := s.now()
		for _, p := range projects {
			if err := s.store.UpsertProject(p, now); err != nil {
				s.log.Warn("registering project failed", "project", p, "error", err)
			}
		}
	}
}

type errorPayload struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("encoding response failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, reader.ErrSourceUnavailable) {
		s.writeJSON(w, http.StatusServiceUnavailable, errorPayload{Error: err.Error()})
		return
	}
	s.log.Error("request failed", "error", err)
	s.writeJSON(w, http.StatusInternalServerError, errorPayload{Error: "internal error"})
}

// parseFilters reads project/since/until query parameters. since and until
// are YYYY-MM-DD dates in the reporting timezone; until is inclusive of the
// named day.
func (s *Server) parseFilters(r *http.Request) (aggregate.Filters, error) {
	f := aggregate.Filters{Project: r.URL.Query().Get("project")}
	if v := r.URL.Query().Get("since"); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, s.loc)
		if err != nil {
			return f, fmt.Errorf("bad since date %q", v)
		}
		f.Since = t
	}
	if v := r.URL.Query().Get("until"); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, s.loc)
		if err != nil {
			return f, fmt.Errorf("bad until date %q", v)
		}
		f.Until = t.AddDate(0, 0, 1)
	}
	return f, nil
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	f, err := s.parseFilters(r)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorPayload{Error: err.Error()})
		return
	}
	sum, stats, err := s.engine.Summary(r.Context(), f)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"summary": sum,
		"source": map[string]int{
			"files":     stats.Files,
			"lines":     stats.Lines,
			"malformed": stats.Malformed,
			"skipped":   stats.Skipped,
		},
	})
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	f, err := s.parseFilters(r)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorPayload{Error: err.Error()})
		return
	}
	daily, err := s.engine.Daily(r.Context(), f)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"daily": daily})
}

func (s *Server) handleMonthly(w http.ResponseWriter, r *http.Request) {
	f, err := s.parseFilters(r)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorPayload{Error: err.Error()})
		return
	}
	monthly, err := s.engine.Monthly(r.Context(), f)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"monthly": monthly})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	f, err := s.parseFilters(r)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorPayload{Error: err.Error()})
		return
	}
	models, err := s.engine.ModelBreakdown(r.Context(), f)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"models": models})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	f, err := s.parseFilters(r)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorPayload{Error: err.Error()})
		return
	}
	sessions, err := s.engine.Sessions(r.Context(), f)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	f, err := s.parseFilters(r)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorPayload{Error: err.Error()})
		return
	}
	rep, err := s.engine.CurrentWindow(r.Context(), f, s.now())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		projects, err := s.store.ListProjects()
		if err == nil && len(projects) > 0 {
			s.writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
			return
		}
	}
	paths, err := s.engine.Projects(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"projects": paths})
}
