// Package server runs the HTTP server of the login service.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Innov8rs-paradise/mufa-login/internal/config"
	"github.com/Innov8rs-paradise/mufa-login/internal/logger"
	"github.com/Innov8rs-paradise/mufa-login/internal/server/handler"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	// defaultShutdownTimeout is the maximum time to wait for server shutdown
	defaultShutdownTimeout = 5 * time.Second
)

// Server owns the listening socket and the http.Server
type Server struct {
	config     *config.ServerConfig
	httpServer *http.Server
	listener   net.Listener
	errChan    chan error
}

// NewServer creates a server for the given handler stack.
func NewServer(cfg *config.Config, h *handler.Handler) *Server {
	return &Server{
		config: &cfg.Server,
		httpServer: &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           h.CreateHTTPHandler(),
			ReadHeaderTimeout: cfg.Server.ReadTimeout,
			ReadTimeout:       cfg.Server.ReadTimeout,
			WriteTimeout:      cfg.Server.WriteTimeout,
		},
		errChan: make(chan error, 1),
	}
}

// Start binds the listen address and serves in the background.
func (s *Server) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.httpServer.Addr, err)
	}
	s.listener = ln

	go func() {
		logger.Info("Starting server", zap.String("address", ln.Addr().String()))
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", zap.Error(err))
			s.errChan <- fmt.Errorf("server error: %w", err)
		}
	}()
	return nil
}

// Addr returns the bound address, available after Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.httpServer.Addr
	}
	return s.listener.Addr().String()
}

// Errors reports a failure of the serving goroutine.
func (s *Server) Errors() <-chan error {
	return s.errChan
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	logger.Info("Shutting down server", zap.Duration("timeout", timeout))

	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	return nil
}

func registerLifecycle(lc fx.Lifecycle, s *Server) {
	lc.Append(fx.Hook{
		OnStart: s.Start,
		OnStop:  s.Stop,
	})
}

// Module provides the HTTP server dependencies
var Module = fx.Module("server",
	fx.Provide(
		handler.NewHandler,
		NewServer,
	),
	fx.Invoke(registerLifecycle),
)
