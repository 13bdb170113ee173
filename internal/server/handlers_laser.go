package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "github.com/joeconsedine/claude-maze/internal/errors"
)

type laserPointRequest struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Intensity float64 `json:"intensity"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
}

func (s *Server) handleReportLaserPoint(c echo.Context) error {
	var req laserPointRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if req.Width <= 0 || req.Height <= 0 {
		return apperrors.ValidationError("width and height must be positive")
	}

	s.state.ReportLaserPoint(req.X, req.Y, req.Intensity, req.Width, req.Height)
	s.hub.Broadcast("laser", s.state.CurrentLaserPoints())

	return c.NoContent(http.StatusAccepted)
}

func (s *Server) handleLaserPoints(c echo.Context) error {
	return c.JSON(http.StatusOK, s.state.CurrentLaserPoints())
}

type laserActiveRequest struct {
	Active bool `json:"active"`
}

func (s *Server) handleSetLaserActive(c echo.Context) error {
	var req laserActiveRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	s.state.SetLaserActive(req.Active)
	s.hub.Broadcast("laser", s.state.CurrentLaserPoints())

	return c.JSON(http.StatusOK, map[string]bool{"active": req.Active})
}

func (s *Server) handleClearLaserPoints(c echo.Context) error {
	s.state.ClearLaserPoints()
	s.hub.Broadcast("laser", s.state.CurrentLaserPoints())
	return c.NoContent(http.StatusNoContent)
}
