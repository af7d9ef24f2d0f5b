package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohamedkhairy/trading-bot/internal/config"
	"github.com/mohamedkhairy/trading-bot/pkg/logger"
)

// Server is the HTTP server for the reporting and control API
type Server struct {
	cfg config.APIConfig
	srv *http.Server
}

// NewServer builds the router and wraps it with the middleware chain
func NewServer(cfg config.APIConfig, h *BotHandler) *Server {
	router := mux.NewRouter()

	router.HandleFunc("/health", HealthCheck).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	v1 := router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/state", h.GetState).Methods(http.MethodGet)
	v1.HandleFunc("/rules/stats", h.ListRuleStats).Methods(http.MethodGet)
	// "top" must be registered before the {id} route or it would match as an id
	v1.HandleFunc("/rules/stats/top", h.TopRuleStats).Methods(http.MethodGet)
	v1.HandleFunc("/rules/stats/{id}", h.GetRuleStats).Methods(http.MethodGet)
	v1.HandleFunc("/rulepack/reload", h.ReloadRulePack).Methods(http.MethodPost)
	v1.HandleFunc("/bot/pause", h.PauseBot).Methods(http.MethodPost)
	v1.HandleFunc("/bot/resume", h.ResumeBot).Methods(http.MethodPost)
	v1.HandleFunc("/bot/reset", h.ResetBot).Methods(http.MethodPost)

	handler := ChainMiddleware(
		RecoveryMiddleware(),
		LoggingMiddleware(),
		CORSMiddleware(),
		AuthMiddleware(cfg.JWTSecret),
	)(router)

	return &Server{
		cfg: cfg,
		srv: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}
}

// Start begins serving. It blocks until the server stops.
func (s *Server) Start() error {
	logger.Info("Starting API server", logger.Int("port", s.cfg.Port))
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("API server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("Shutting down API server")
	return s.srv.Shutdown(ctx)
}
