package server

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/joeconsedine/claude-maze/internal/domain"
	apperrors "github.com/joeconsedine/claude-maze/internal/errors"
	"github.com/joeconsedine/claude-maze/internal/presentation"
)

// publishView pushes a fresh view snapshot to connected viewers and mirrors
// it into Redis. Both are best effort and happen after the state mutation.
func (s *Server) publishView(c echo.Context, view presentation.View) {
	s.hub.Broadcast("view", view)
	if s.mirror != nil {
		if err := s.mirror.PublishView(c.Request().Context(), view); err != nil {
			slog.Warn("Failed to mirror view snapshot", "error", err)
		}
	}
}

func (s *Server) handleCurrentView(c echo.Context) error {
	return c.JSON(http.StatusOK, s.state.CurrentView())
}

func (s *Server) handleListSlides(c echo.Context) error {
	slides, current := s.state.Slides()
	return c.JSON(http.StatusOK, map[string]any{
		"slides":        slides,
		"current_index": current,
	})
}

func (s *Server) handleAdvanceSlide(c echo.Context) error {
	view := s.state.AdvanceSlide()
	s.publishView(c, view)
	return c.JSON(http.StatusOK, view)
}

func (s *Server) handleRetreatSlide(c echo.Context) error {
	view := s.state.RetreatSlide()
	s.publishView(c, view)
	return c.JSON(http.StatusOK, view)
}

func (s *Server) handleGotoSlide(c echo.Context) error {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return apperrors.ValidationError("slide index must be an integer")
	}

	view := s.state.GotoSlide(index)
	s.publishView(c, view)
	return c.JSON(http.StatusOK, view)
}

func (s *Server) handleAdvanceSubSlide(c echo.Context) error {
	view := s.state.AdvanceSubSlide()
	s.publishView(c, view)
	return c.JSON(http.StatusOK, view)
}

func (s *Server) handleRetreatSubSlide(c echo.Context) error {
	view := s.state.RetreatSubSlide()
	s.publishView(c, view)
	return c.JSON(http.StatusOK, view)
}

type appendSlideRequest struct {
	Title     string            `json:"title"`
	ChartType domain.ChartType  `json:"chart_type"`
	Data      any               `json:"data"`
	SubSlides []domain.SubSlide `json:"sub_slides"`
}

var validChartTypes = map[domain.ChartType]bool{
	domain.ChartLine:    true,
	domain.ChartBar:     true,
	domain.ChartPie:     true,
	domain.ChartScatter: true,
	domain.ChartMap:     true,
	domain.ChartCustom:  true,
}

func (s *Server) handleAppendSlide(c echo.Context) error {
	var req appendSlideRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if req.Title == "" {
		return apperrors.ValidationError("slide title is required")
	}
	if !validChartTypes[req.ChartType] {
		return apperrors.ValidationError("unknown chart type").WithContext("chart_type", string(req.ChartType))
	}

	id := s.state.AppendSlide(domain.Slide{
		Title:     req.Title,
		ChartType: req.ChartType,
		Data:      req.Data,
		SubSlides: req.SubSlides,
	})

	user, _ := c.Get(ctxKeyUser).(domain.User)
	slog.Info("Slide appended", "slide_id", id, "title", req.Title, "username", user.Username)

	return c.JSON(http.StatusCreated, map[string]string{"id": id})
}
