// Package server exposes the ops surface of a viewbox instance: health
// probes, the current broadcast snapshot for headless renderers, and
// Prometheus metrics.
package server

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Noirsys/aflr-viewbox/internal/state"
)

// StateSource is the engine-side contract the server reads snapshots from.
type StateSource interface {
	Snapshot() *state.BroadcastState
}

type Server struct {
	echo   *echo.Echo
	source StateSource
	port   string
}

func New(port string, source StateSource) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	srv := &Server{
		echo:   e,
		source: source,
		port:   port,
	}
	srv.registerRoutes()
	return srv
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	return s.echo.Start(":" + s.port)
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
