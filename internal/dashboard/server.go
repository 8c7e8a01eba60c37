// Package dashboard exposes queue and session metrics over HTTP for
// operational monitoring.
package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/aqljon/aqljon/internal/queue"
	"github.com/aqljon/aqljon/internal/session"
)

const shutdownTimeout = 5 * time.Second

// Server serves the admin dashboard endpoints.
type Server struct {
	echo    *echo.Echo
	manager *queue.Manager
	store   *session.Store
	addr    string
	logger  *slog.Logger
}

// NewServer creates a dashboard server bound to addr.
func NewServer(addr string, manager *queue.Manager, store *session.Store) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:    e,
		manager: manager,
		store:   store,
		addr:    addr,
		logger:  slog.Default().With(slog.String("component", "dashboard")),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.health)
	s.echo.GET("/stats", s.stats)
}

// health returns liveness status.
func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// statsResponse is the /stats payload.
type statsResponse struct {
	Queue    queue.Stats    `json:"queue"`
	Sessions map[string]int `json:"sessions"`
}

// stats returns queue and session-store counters.
func (s *Server) stats(c echo.Context) error {
	return c.JSON(http.StatusOK, statsResponse{
		Queue:    s.manager.Stats(),
		Sessions: s.store.Stats(),
	})
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.InfoContext(ctx, "Dashboard stopping")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.echo.Shutdown(shutdownCtx)
}
