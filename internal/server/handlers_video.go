package server

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/joeconsedine/claude-maze/internal/domain"
	apperrors "github.com/joeconsedine/claude-maze/internal/errors"
)

type startVideoRequest struct {
	Type   domain.VideoType `json:"type"`
	URL    string           `json:"url"`
	RoomID string           `json:"room_id"`
}

var validVideoTypes = map[domain.VideoType]bool{
	domain.VideoYouTube: true,
	domain.VideoVimeo:   true,
	domain.VideoTwitch:  true,
	domain.VideoWebcam:  true,
	domain.VideoJitsi:   true,
}

// publishVideo pushes the video descriptor to viewers and mirrors it, both
// best effort.
func (s *Server) publishVideo(c echo.Context, video domain.VideoState) {
	s.hub.Broadcast("video", video)
	if s.mirror != nil {
		if err := s.mirror.PublishVideo(c.Request().Context(), video); err != nil {
			slog.Warn("Failed to mirror video state", "error", err)
		}
	}
}

func (s *Server) handleStartVideo(c echo.Context) error {
	var req startVideoRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if !validVideoTypes[req.Type] {
		return apperrors.ValidationError("unknown video type").WithContext("type", string(req.Type))
	}
	if req.Type == domain.VideoJitsi {
		if req.RoomID == "" {
			return apperrors.ValidationError("room_id is required for jitsi streams")
		}
	} else if req.Type != domain.VideoWebcam && req.URL == "" {
		return apperrors.ValidationError("url is required for this video type")
	}

	video := s.state.SetVideoStream(req.Type, req.URL, req.RoomID)
	s.publishVideo(c, video)

	return c.JSON(http.StatusOK, video)
}

func (s *Server) handleStopVideo(c echo.Context) error {
	video := s.state.StopVideoStream()
	s.publishVideo(c, video)
	return c.JSON(http.StatusOK, video)
}

func (s *Server) handleVideoState(c echo.Context) error {
	return c.JSON(http.StatusOK, s.state.CurrentVideoState())
}
