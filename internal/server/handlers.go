package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Noirsys/aflr-viewbox/internal/state"
	"github.com/Noirsys/aflr-viewbox/internal/version"
)

func (s *Server) handleLiveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":  "alive",
		"version": version.Get(),
	})
}

// handleReadiness reports ready only while the engine holds an open
// connection. Disconnected is not an error condition (the engine keeps the
// last known-good state and retries), but orchestration should not route
// fresh traffic here until the relay is reachable again.
func (s *Server) handleReadiness(c echo.Context) error {
	snap := s.source.Snapshot()
	if snap.Connection.Status != state.StatusConnected {
		return c.JSON(http.StatusServiceUnavailable, map[string]any{
			"status":     "not_ready",
			"connection": snap.Connection,
		})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleState(c echo.Context) error {
	return c.JSON(http.StatusOK, s.source.Snapshot())
}
