package server

import (
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/joeconsedine/claude-maze/internal/live"
)

// handleViewerWebSocket upgrades a viewer connection and registers it with
// the hub. The read loop exists only to notice disconnects; viewers never
// send application messages.
func (s *Server) handleViewerWebSocket(c echo.Context) error {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Warn("Failed to upgrade viewer connection", "error", err)
		return nil
	}

	// Send the current view before handing the connection to the hub, so a
	// late joiner does not wait for the next navigation. After Register the
	// hub's writer goroutine owns all writes.
	if err := conn.WriteJSON(live.Update{Kind: "view", Payload: s.state.CurrentView()}); err != nil {
		_ = conn.Close()
		return nil
	}

	if err := s.hub.Register(conn); err != nil {
		return nil
	}

	go func() {
		defer s.hub.Unregister(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	return nil
}
