package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"sparta-defense/internal/panel"
	"sparta-defense/internal/registry"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

type PanelSource interface {
	Snapshot() panel.Document
	Groups() []registry.Group
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	Logger *zap.Logger
	Panel  PanelSource
	DB     Pinger

	srv *http.Server
}

func NewServer(l *zap.Logger, source PanelSource, db Pinger) *Server {
	return &Server{Logger: l, Panel: source, DB: db}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.AllowAll().Handler)

	r.Get("/health", s.handleHealth)
	r.Get("/api/panel", s.handlePanel)
	r.Get("/api/guilds", s.handleGuilds)

	return r
}

// Start serves in the background until Shutdown.
func (s *Server) Start(addr string) {
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		s.Logger.Info("http api listening", zap.String("addr", addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Logger.Error("http api stopped", zap.Error(err))
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]string{"status": "ok"}
	if s.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.DB.Ping(ctx); err != nil {
			s.Logger.Warn("health check database ping failed", zap.Error(err))
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
			body["database"] = "unreachable"
		}
	}
	writeJSON(w, status, body)
}

func (s *Server) handlePanel(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Panel.Snapshot())
}

func (s *Server) handleGuilds(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Panel.Groups())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
