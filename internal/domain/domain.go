package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// --- Presentation model ---

// ChartType identifies how a slide's data payload should be rendered.
type ChartType string

const (
	ChartLine    ChartType = "line"
	ChartBar     ChartType = "bar"
	ChartPie     ChartType = "pie"
	ChartScatter ChartType = "scatter"
	ChartMap     ChartType = "map"
	ChartCustom  ChartType = "custom"
)

// SubSlide is a named view-selection variant of its parent slide.
type SubSlide struct {
	Name string `json:"name"`
	Data any    `json:"data,omitempty"`
}

// Slide is immutable after load. The Data payload is opaque to the core;
// the rendering layer interprets it according to ChartType.
type Slide struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	ChartType ChartType  `json:"chart_type"`
	Data      any        `json:"data"`
	SubSlides []SubSlide `json:"sub_slides,omitempty"`
}

// LaserPoint is a single pointer sample reported by the presenter's client.
// Coordinates are relative to the reporting container's width and height.
type LaserPoint struct {
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Intensity float64   `json:"intensity"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Timestamp time.Time `json:"timestamp"`
}

// VideoType enumerates the supported video stream sources.
type VideoType string

const (
	VideoNone    VideoType = "none"
	VideoYouTube VideoType = "youtube"
	VideoVimeo   VideoType = "vimeo"
	VideoTwitch  VideoType = "twitch"
	VideoWebcam  VideoType = "webcam"
	VideoJitsi   VideoType = "jitsi"
)

// VideoState describes the currently broadcast video stream, if any.
type VideoState struct {
	Type   VideoType `json:"type"`
	URL    string    `json:"url,omitempty"`
	RoomID string    `json:"room_id,omitempty"`
}

// --- Account model ---

// Role is the closed set of user roles. Seat accounting applies to
// standard users only; admins never consume a seat.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleStandard Role = "standard"
)

type Organization struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	SeatLimit    int       `json:"seat_limit"`
	CurrentSeats int       `json:"current_seats"`
	CreatedAt    time.Time `json:"created_at"`
}

type User struct {
	ID             uuid.UUID `json:"id"`
	Username       string    `json:"username"`
	PasswordHash   string    `json:"-"`
	Role           Role      `json:"role"`
	OrganizationID uuid.UUID `json:"organization_id"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	LastLogin      time.Time `json:"last_login"`
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// UserSession is a snapshot of a live session as seen by callers.
// The registry is the sole authority over its lifecycle.
type UserSession struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	IsActive  bool      `json:"is_active"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
}

// --- Ports consumed by the core ---

// CredentialVerifier checks a plaintext password against a stored credential.
// The hashing scheme is external to the core.
type CredentialVerifier interface {
	Verify(passwordHash, plaintext string) bool
}

// TokenSource produces unguessable session tokens with at least 256 bits
// of entropy.
type TokenSource interface {
	Token() (string, error)
}

// AccountStore abstracts the durable store the registry is bootstrapped from.
type AccountStore interface {
	ListOrganizations(ctx context.Context) ([]Organization, error)
	ListUsers(ctx context.Context) ([]User, error)
	UpdateLastLogin(ctx context.Context, userID uuid.UUID, at time.Time) error
}
