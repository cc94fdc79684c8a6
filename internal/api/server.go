package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"

	"github.com/noxuslabs/noxus/internal/chat"
	"github.com/noxuslabs/noxus/internal/common"
	ctxbuilder "github.com/noxuslabs/noxus/internal/context"
	"github.com/noxuslabs/noxus/internal/insight"
	"github.com/noxuslabs/noxus/internal/llm"
	"github.com/noxuslabs/noxus/internal/model"
	"github.com/noxuslabs/noxus/internal/store"
)

// Config controls how the API server scopes the record window.
type Config struct {
	WindowDays int
}

// DefaultConfig returns the standard configuration used when no overrides
// are provided.
func DefaultConfig() Config {
	return Config{WindowDays: 30}
}

// Merge overlays non-zero fields from the override onto the base config.
func (c Config) Merge(override Config) Config {
	result := c
	if override.WindowDays > 0 {
		result.WindowDays = override.WindowDays
	}
	return result
}

type Server struct {
	router   chi.Router
	store    *store.Store
	provider llm.Provider
	builder  *ctxbuilder.Builder
	session  *chat.Session
	insights *insight.Service

	windowDays int
}

func NewServer(ctx context.Context, st *store.Store, provider llm.Provider, cfg *Config) (*Server, error) {
	logger := common.Logger()
	if st == nil {
		return nil, fmt.Errorf("store required")
	}
	if provider == nil {
		provider = llm.NewProvider()
		logger.Debug("api: created fallback provider", "provider", provider.Name())
	}
	configuration := DefaultConfig()
	if cfg != nil {
		configuration = configuration.Merge(*cfg)
	}

	builder := ctxbuilder.NewBuilder(ctxbuilder.DefaultConfig())
	srv := &Server{
		router:     chi.NewRouter(),
		store:      st,
		provider:   provider,
		builder:    builder,
		windowDays: configuration.WindowDays,
	}
	srv.session = chat.NewSession(provider, builder, srv.windowSnapshot)
	srv.insights = insight.NewService(provider, builder, srv.windowSnapshot)
	srv.routes()
	logger.Info("api: server ready", "provider", provider.Name(), "window_days", srv.windowDays)
	return srv, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// windowSnapshot is the data-access contract handed to the pipeline: the four
// collections already scoped to the trailing window.
func (s *Server) windowSnapshot(ctx context.Context) (model.Snapshot, error) {
	return s.store.Snapshot(ctx, s.windowStart())
}

func (s *Server) windowStart() time.Time {
	return time.Now().UTC().AddDate(0, 0, -s.windowDays)
}

func (s *Server) routes() {
	logger := common.Logger()
	logger.Info("api: configuring routes")
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "dur", time.Since(start), "remote", r.RemoteAddr)
		})
	})

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.router.Post("/v1/chat", s.handleChat)
	s.router.Get("/v1/chat/history", s.handleChatHistory)
	s.router.Get("/v1/insights", s.handleInsights)
	s.router.Post("/v1/insights/refresh", s.handleInsightsRefresh)

	s.router.Post("/v1/clientes", s.handleCreateClient)
	s.router.Get("/v1/clientes", s.handleListClients)
	s.router.Post("/v1/projetos", s.handleCreateProject)
	s.router.Get("/v1/projetos", s.handleListProjects)
	s.router.Post("/v1/agendamentos", s.handleCreateAppointment)
	s.router.Get("/v1/agendamentos", s.handleListAppointments)
	s.router.Post("/v1/transacoes", s.handleCreateTransaction)
	s.router.Get("/v1/transacoes", s.handleListTransactions)

	s.router.Get("/v1/logs", s.handleLogs)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": common.LogEntries()})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	logger := common.Logger()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
	} else {
		logger.Warn("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// statusForPipelineError maps pipeline failures onto HTTP statuses: busy
// re-entrancy conflicts, soft parse failures and upstream call failures.
func statusForPipelineError(err error) int {
	switch {
	case errors.Is(err, chat.ErrBusy), errors.Is(err, insight.ErrRefreshBusy):
		return http.StatusConflict
	case errors.Is(err, chat.ErrEmptyMessage):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}
