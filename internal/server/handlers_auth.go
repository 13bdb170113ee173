package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/joeconsedine/claude-maze/internal/domain"
	apperrors "github.com/joeconsedine/claude-maze/internal/errors"
	"github.com/joeconsedine/claude-maze/internal/logging"
)

const (
	ctxKeyUser  = "user"
	ctxKeyToken = "token"

	lastLoginTimeout = 2 * time.Second
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string      `json:"token"`
	Username  string      `json:"username"`
	Role      domain.Role `json:"role"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// sessionToken extracts the session token from the Authorization header or,
// failing that, from the session cookie. API clients use the header; the
// presenter UI relies on the cookie.
func (s *Server) sessionToken(c echo.Context) (string, bool) {
	if h := c.Request().Header.Get("Authorization"); h != "" {
		if token, found := strings.CutPrefix(h, "Bearer "); found && token != "" {
			return token, true
		}
	}

	session, err := s.sessionStore.Get(c.Request(), sessionName)
	if err != nil {
		return "", false
	}
	token, ok := session.Values[sessionKeyToken].(string)
	return token, ok && token != ""
}

// requireSession validates the caller's session on every request. Validation
// is also the lazy expiry path: an expired session is terminated here and the
// caller sees a plain 401.
func (s *Server) requireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := s.sessionToken(c)
		if !ok {
			return apperrors.AuthError("missing session token")
		}

		user, ok := s.registry.Validate(token)
		if !ok {
			return apperrors.AuthError("invalid or expired session")
		}

		c.Set(ctxKeyUser, user)
		c.Set(ctxKeyToken, token)
		return next(c)
	}
}

// requireAdmin must run after requireSession.
func (s *Server) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, ok := c.Get(ctxKeyUser).(domain.User)
		if !ok || !user.IsAdmin() {
			return apperrors.ForbiddenError("admin role required")
		}
		return next(c)
	}
}

func (s *Server) handleLogin(c echo.Context) error {
	ip := c.RealIP()
	if !s.loginLimiter.Allow(ip) {
		return echo.NewHTTPError(http.StatusTooManyRequests, "too many login attempts")
	}

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if req.Username == "" || req.Password == "" {
		return apperrors.ValidationError("username and password are required")
	}

	sess, err := s.registry.Login(req.Username, req.Password, ip, c.Request().UserAgent())
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCredentials):
			return apperrors.AuthError("invalid username or password")
		case errors.Is(err, domain.ErrAccountInactive):
			return apperrors.ForbiddenError("account is deactivated")
		case errors.Is(err, domain.ErrNoSeatsAvailable):
			return apperrors.CapacityError("no seats available for your organization")
		default:
			return apperrors.InternalError("login failed", err)
		}
	}

	s.recordLastLogin(c.Request().Context(), req.Username, sess.CreatedAt)

	cookie, cerr := s.sessionStore.Get(c.Request(), sessionName)
	if cerr == nil {
		cookie.Values[sessionKeyToken] = sess.Token
		if err := cookie.Save(c.Request(), c.Response().Writer); err != nil {
			slog.Warn("Failed to save session cookie", "error", err)
		}
	}

	user, _ := s.registry.UserByName(req.Username)
	slog.Info("User logged in",
		"username", req.Username,
		"token_prefix", logging.TokenPrefix(sess.Token),
		"role", user.Role,
	)

	return c.JSON(http.StatusOK, loginResponse{
		Token:     sess.Token,
		Username:  sess.Username,
		Role:      user.Role,
		ExpiresAt: sess.ExpiresAt,
	})
}

// recordLastLogin mirrors the login timestamp into the durable store, best
// effort. The registry already updated its in-memory copy.
func (s *Server) recordLastLogin(ctx context.Context, username string, at time.Time) {
	if s.accounts == nil {
		return
	}
	user, ok := s.registry.UserByName(username)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, lastLoginTimeout)
	defer cancel()

	if err := s.accounts.UpdateLastLogin(ctx, user.ID, at); err != nil {
		slog.Warn("Failed to persist last login", "username", username, "error", err)
	}
}

func (s *Server) handleLogout(c echo.Context) error {
	if token, ok := s.sessionToken(c); ok {
		s.registry.Logout(token)
		slog.Info("User logged out", "token_prefix", logging.TokenPrefix(token))
	}

	cookie, err := s.sessionStore.Get(c.Request(), sessionName)
	if err == nil {
		cookie.Options.MaxAge = -1
		delete(cookie.Values, sessionKeyToken)
		if err := cookie.Save(c.Request(), c.Response().Writer); err != nil {
			slog.Warn("Failed to clear session cookie", "error", err)
		}
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "logged_out"})
}
