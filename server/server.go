// Package server runs the HTTP API and its background jobs.
package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/hrygo/vidsage/internal/profile"
	"github.com/hrygo/vidsage/plugin/ai/session"
	apiv1 "github.com/hrygo/vidsage/server/router/api/v1"
)

// limiterIdleTimeout is how long a per-user rate limiter survives without traffic.
const limiterIdleTimeout = time.Hour

// Closer releases a resource on shutdown.
type Closer interface {
	Close() error
}

type Server struct {
	Profile *profile.Profile

	echoServer *echo.Echo
	api        *apiv1.APIV1Service
	cleanupJob *session.CleanupJob
	closers    []Closer
	listener   net.Listener
	runnerWg   sync.WaitGroup
	runnerStop context.CancelFunc
}

// NewServer wires the API onto a fresh echo instance. cleanupJob may be nil.
func NewServer(p *profile.Profile, api *apiv1.APIV1Service, cleanupJob *session.CleanupJob, closers ...Closer) *Server {
	e := echo.New()
	e.Debug = p.IsDev()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.BodyLimit("1M"))

	api.RegisterRoutes(e)

	return &Server{
		Profile:    p,
		echoServer: e,
		api:        api,
		cleanupJob: cleanupJob,
		closers:    closers,
	}
}

// Handler exposes the HTTP handler (used by tests).
func (s *Server) Handler() http.Handler {
	return s.echoServer
}

// Start binds the listen address and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.Profile.ListenAddr())
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", s.Profile.ListenAddr())
	}
	s.listener = listener
	s.echoServer.Listener = listener

	runnerCtx, cancel := context.WithCancel(ctx)
	s.runnerStop = cancel
	s.startRunners(runnerCtx)

	go func() {
		if err := s.echoServer.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start echo server", "error", err)
		}
	}()

	slog.Info("server started", "addr", listener.Addr().String(), "mode", s.Profile.Mode, "version", s.Profile.Version)
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown stops accepting requests, stops background jobs and releases resources.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}

	if s.runnerStop != nil {
		s.runnerStop()
	}
	if s.cleanupJob != nil {
		s.cleanupJob.Stop()
	}
	s.runnerWg.Wait()

	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			slog.Error("failed to close resource", "error", err)
		}
	}

	slog.Info("server stopped properly")
}

func (s *Server) startRunners(ctx context.Context) {
	if s.cleanupJob != nil {
		s.cleanupJob.Start(ctx)
	}

	if s.api.RateLimiter != nil {
		s.runnerWg.Add(1)
		go func() {
			defer s.runnerWg.Done()
			ticker := time.NewTicker(limiterIdleTimeout / 4)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if n := s.api.RateLimiter.Prune(limiterIdleTimeout); n > 0 {
						slog.Debug("pruned idle rate limiters", "count", n)
					}
				}
			}
		}()
	}
}
