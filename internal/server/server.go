package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Caskiuz/nemy-marketplace/internal/config"
	"github.com/Caskiuz/nemy-marketplace/internal/handler"
	"github.com/Caskiuz/nemy-marketplace/internal/metrics"
	"github.com/go-chi/chi"
	"go.uber.org/zap"
)

type Server struct {
	config  config.Config
	mux     chi.Router
	server  *http.Server
	handler *handler.Handler
	metrics *metrics.Metrics
}

func NewServer(config config.Config, handler *handler.Handler, metrics *metrics.Metrics) *Server {
	mux := chi.NewMux()

	return &Server{
		config:  config,
		mux:     mux,
		handler: handler,
		metrics: metrics,
		server: &http.Server{
			Addr:              config.Address,
			Handler:           mux,
			ReadTimeout:       5 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      5 * time.Second,
			IdleTimeout:       5 * time.Second,
		},
	}
}

func (s *Server) Start() error {
	s.setupRoutes()

	zap.L().Info("starting server", zap.String("address", s.config.Address))

	if err := s.server.ListenAndServe(); err != nil {
		return fmt.Errorf("error starting server: %w", err)
	}

	return nil
}

func (s *Server) Stop() error {
	zap.L().Info("stopping server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("error stopping server: %w", err)
	}

	return nil
}
