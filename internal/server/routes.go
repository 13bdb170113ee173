package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	s.echo.GET("/health/live", s.handleHealthLive)
	s.echo.GET("/health/ready", s.handleHealthReady)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	auth := s.echo.Group("/auth")
	auth.POST("/login", s.handleLogin)
	auth.POST("/logout", s.handleLogout)

	api := s.echo.Group("/api")

	// View reads are open to viewers; no session required.
	api.GET("/current-view", s.handleCurrentView)
	api.GET("/slides", s.handleListSlides)
	api.GET("/laser-points", s.handleLaserPoints)
	api.GET("/video/state", s.handleVideoState)

	// Everything that mutates presentation state requires a live session.
	presenter := api.Group("", s.requireSession)
	presenter.POST("/advance-slide", s.handleAdvanceSlide)
	presenter.POST("/retreat-slide", s.handleRetreatSlide)
	presenter.POST("/goto-slide/:index", s.handleGotoSlide)
	presenter.POST("/advance-sub-slide", s.handleAdvanceSubSlide)
	presenter.POST("/retreat-sub-slide", s.handleRetreatSubSlide)
	presenter.POST("/laser-point", s.handleReportLaserPoint)
	presenter.POST("/laser-active", s.handleSetLaserActive)
	presenter.POST("/laser-clear", s.handleClearLaserPoints)
	presenter.POST("/video/start", s.handleStartVideo)
	presenter.POST("/video/stop", s.handleStopVideo)

	// Deck edits are admin-only.
	api.POST("/slides", s.handleAppendSlide, s.requireSession, s.requireAdmin)

	s.echo.GET("/ws/viewer", s.handleViewerWebSocket)
}
