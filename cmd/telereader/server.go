package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"telereader/internal/constants"
	"telereader/internal/metrics"
	"telereader/internal/models"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Server exposes the health and metrics endpoints while realtime
// ingestion runs.
type Server struct {
	router *mux.Router
	logger *logrus.Logger
	server *http.Server
}

func NewServer(cfg models.ServerConfig, logger *logrus.Logger) *Server {
	s := &Server{
		router: mux.NewRouter(),
		logger: logger,
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSec) * time.Second,
		IdleTimeout:  constants.DefaultServerIdleTimeoutSec * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth()).Methods(http.MethodGet)
	s.router.HandleFunc("/metrics", s.handleMetrics()).Methods(http.MethodGet)
}

func (s *Server) Start() error {
	s.logger.Infof("Starting health server on %s", s.server.Addr)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			s.logger.Warnf("Failed to write health response: %v", err)
		}
	}
}

func (s *Server) handleMetrics() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(metrics.GetAllMetrics()); err != nil {
			s.logger.Warnf("Failed to write metrics response: %v", err)
		}
	}
}
