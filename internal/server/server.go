package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	goredis "github.com/redis/go-redis/v9"

	"github.com/joeconsedine/claude-maze/internal/config"
	"github.com/joeconsedine/claude-maze/internal/domain"
	apperrors "github.com/joeconsedine/claude-maze/internal/errors"
	"github.com/joeconsedine/claude-maze/internal/live"
	"github.com/joeconsedine/claude-maze/internal/presentation"
	"github.com/joeconsedine/claude-maze/internal/registry"
)

const (
	sessionName     = "presentation_session"
	sessionKeyToken = "session_token"
)

// snapshotMirror mirrors view snapshots to Redis (nil if Redis not configured).
type snapshotMirror interface {
	PublishView(ctx context.Context, view any) error
	PublishVideo(ctx context.Context, video any) error
}

type Server struct {
	echo         *echo.Echo
	config       *config.Config
	state        *presentation.State
	registry     *registry.Registry
	hub          *live.Hub
	mirror       snapshotMirror
	accounts     domain.AccountStore
	sessionStore *sessions.CookieStore
	loginLimiter *LoginRateLimiter
	upgrader     websocket.Upgrader
	pool         *pgxpool.Pool
	redisClient  *goredis.Client
	startTime    time.Time
}

func NewServer(cfg *config.Config, state *presentation.State, reg *registry.Registry, hub *live.Hub, mirror snapshotMirror, accounts domain.AccountStore, pool *pgxpool.Pool, redisClient *goredis.Client) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(apperrors.Middleware())

	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.SessionTTL / time.Second),
		HttpOnly: true,
		Secure:   cfg.AppEnv == "production",
		SameSite: http.SameSiteLaxMode,
	}

	srv := &Server{
		echo:         e,
		config:       cfg,
		state:        state,
		registry:     reg,
		hub:          hub,
		mirror:       mirror,
		accounts:     accounts,
		sessionStore: sessionStore,
		loginLimiter: NewLoginRateLimiter(cfg.LoginRatePerSecond, cfg.LoginBurst),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		pool:        pool,
		redisClient: redisClient,
		startTime:   time.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
