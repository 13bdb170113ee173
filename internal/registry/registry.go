// Package registry owns the live session table and, transitively, each
// organization's seat counter. Session mutation and seat accounting always
// happen together under one lock; whether a session still holds a seat is a
// single authoritative boolean per session, so every terminal transition
// (logout, lazy expiry on validate, background sweep) releases the seat
// exactly once no matter which path wins.
package registry

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/joeconsedine/claude-maze/internal/domain"
	"github.com/joeconsedine/claude-maze/internal/metrics"
)

// session is the registry's internal record. holdsSeat is the authoritative
// "this session still consumes a seat" flag; it is read and cleared only
// while holding the registry mutex.
type session struct {
	token     string
	user      *domain.User
	createdAt time.Time
	expiresAt time.Time
	isActive  bool
	ipAddress string
	userAgent string
	holdsSeat bool
}

type endCause string

const (
	endLogout  endCause = "logout"
	endExpired endCause = "expired"
)

// Registry is the sole authority for session creation and destruction.
type Registry struct {
	creds      domain.CredentialVerifier
	tokens     domain.TokenSource
	clock      clockwork.Clock
	sessionTTL time.Duration

	mu       sync.Mutex
	orgs     map[uuid.UUID]*domain.Organization
	users    map[string]*domain.User
	sessions map[string]*session
}

func New(creds domain.CredentialVerifier, tokens domain.TokenSource, sessionTTL time.Duration, clock clockwork.Clock) *Registry {
	if sessionTTL <= 0 {
		panic("registry: session TTL must be positive")
	}
	return &Registry{
		creds:      creds,
		tokens:     tokens,
		clock:      clock,
		sessionTTL: sessionTTL,
		orgs:       make(map[uuid.UUID]*domain.Organization),
		users:      make(map[string]*domain.User),
		sessions:   make(map[string]*session),
	}
}

// AddOrganization registers an organization. The caller decides the starting
// seat count; sessions do not survive a restart, so bootstrap passes zero.
func (r *Registry) AddOrganization(org domain.Organization) error {
	if org.SeatLimit < 0 {
		return fmt.Errorf("organization %q: seat limit must not be negative", org.Name)
	}
	if org.CurrentSeats < 0 || org.CurrentSeats > org.SeatLimit {
		return fmt.Errorf("organization %q: current seats %d outside [0, %d]", org.Name, org.CurrentSeats, org.SeatLimit)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orgs[org.ID]; exists {
		return fmt.Errorf("organization %q already registered", org.Name)
	}
	o := org
	r.orgs[org.ID] = &o
	metrics.SeatsInUse.WithLabelValues(o.Name).Set(float64(o.CurrentSeats))
	return nil
}

// AddUser registers a user. The user's organization must already be known.
func (r *Registry) AddUser(user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[user.Username]; exists {
		return fmt.Errorf("user %q already registered", user.Username)
	}
	if _, exists := r.orgs[user.OrganizationID]; !exists {
		return fmt.Errorf("user %q: unknown organization %s", user.Username, user.OrganizationID)
	}
	u := user
	r.users[user.Username] = &u
	return nil
}

// Login authenticates a user and creates a session. For standard users the
// seat reservation and the session creation are one atomic unit under the
// registry lock: no code path can observe a reserved seat without its session
// or a session without its seat.
func (r *Registry) Login(username, password, ipAddress, userAgent string) (domain.UserSession, error) {
	// Credential verification is deliberately done outside the lock; it is
	// the only expensive step and needs nothing but the stored hash.
	r.mu.Lock()
	user, ok := r.users[username]
	if !ok {
		r.mu.Unlock()
		metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
		return domain.UserSession{}, domain.ErrInvalidCredentials
	}
	passwordHash := user.PasswordHash
	r.mu.Unlock()

	if !r.creds.Verify(passwordHash, password) {
		metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
		return domain.UserSession{}, domain.ErrInvalidCredentials
	}

	token, err := r.tokens.Token()
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		return domain.UserSession{}, fmt.Errorf("failed to generate session token: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Re-check under the lock: the account may have been deactivated while
	// the hash was being verified.
	user, ok = r.users[username]
	if !ok {
		metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
		return domain.UserSession{}, domain.ErrInvalidCredentials
	}
	if !user.IsActive {
		metrics.LoginAttemptsTotal.WithLabelValues("account_inactive").Inc()
		return domain.UserSession{}, domain.ErrAccountInactive
	}

	org := r.orgs[user.OrganizationID]

	holdsSeat := false
	if !user.IsAdmin() {
		if org.CurrentSeats >= org.SeatLimit {
			metrics.LoginAttemptsTotal.WithLabelValues("no_seats").Inc()
			return domain.UserSession{}, domain.ErrNoSeatsAvailable
		}
		org.CurrentSeats++
		holdsSeat = true
		metrics.SeatsInUse.WithLabelValues(org.Name).Set(float64(org.CurrentSeats))
	}

	now := r.clock.Now()
	s := &session{
		token:     token,
		user:      user,
		createdAt: now,
		expiresAt: now.Add(r.sessionTTL),
		isActive:  true,
		ipAddress: ipAddress,
		userAgent: userAgent,
		holdsSeat: holdsSeat,
	}
	r.sessions[token] = s
	user.LastLogin = now

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	metrics.SessionsActive.Set(float64(r.countActive()))

	return r.snapshot(s), nil
}

// Validate returns the owning user for a live session. A session found past
// its expiry is terminated on the spot, seat released included; validation
// doubles as lazy expiry.
func (r *Registry) Validate(token string) (domain.User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[token]
	if !ok || !s.isActive {
		return domain.User{}, false
	}
	if !r.clock.Now().Before(s.expiresAt) {
		r.endLocked(s, endExpired)
		return domain.User{}, false
	}
	return *s.user, true
}

// Logout ends an active session and releases its seat. Unknown or already
// inactive tokens are a no-op, which makes it safe to race the sweep.
func (r *Registry) Logout(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[token]
	if !ok || !s.isActive {
		return
	}
	r.endLocked(s, endLogout)
}

// SweepExpired ends every active session whose expiry has passed and removes
// terminal sessions from the table. Returns the number of sessions reclaimed.
// Work is proportional to the session count, never to request traffic.
func (r *Registry) SweepExpired(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	reclaimed := 0
	for token, s := range r.sessions {
		if s.isActive && s.expiresAt.Before(now) {
			r.endLocked(s, endExpired)
			reclaimed++
		}
		if !s.isActive {
			delete(r.sessions, token)
		}
	}
	if reclaimed > 0 {
		metrics.SessionsSweptTotal.Add(float64(reclaimed))
	}
	return reclaimed
}

// endLocked performs a terminal transition. The holdsSeat check-and-clear is
// the single place a seat is ever released. Callers hold r.mu.
func (r *Registry) endLocked(s *session, cause endCause) {
	if s.holdsSeat {
		org := r.orgs[s.user.OrganizationID]
		if org.CurrentSeats > 0 {
			org.CurrentSeats--
		}
		s.holdsSeat = false
		metrics.SeatsInUse.WithLabelValues(org.Name).Set(float64(org.CurrentSeats))
	}
	s.isActive = false
	metrics.SessionsEndedTotal.WithLabelValues(string(cause)).Inc()
	metrics.SessionsActive.Set(float64(r.countActive()))
}

func (r *Registry) countActive() int {
	n := 0
	for _, s := range r.sessions {
		if s.isActive {
			n++
		}
	}
	return n
}

func (r *Registry) snapshot(s *session) domain.UserSession {
	return domain.UserSession{
		Token:     s.token,
		Username:  s.user.Username,
		CreatedAt: s.createdAt,
		ExpiresAt: s.expiresAt,
		IsActive:  s.isActive,
		IPAddress: s.ipAddress,
		UserAgent: s.userAgent,
	}
}

// SeatsInUse reports an organization's current seat count.
func (r *Registry) SeatsInUse(orgID uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if org, ok := r.orgs[orgID]; ok {
		return org.CurrentSeats
	}
	return 0
}

// ActiveSessions reports the number of sessions that are still active.
func (r *Registry) ActiveSessions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.countActive()
}

// UserByName returns a copy of a registered user.
func (r *Registry) UserByName(username string) (domain.User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u, ok := r.users[username]; ok {
		return *u, true
	}
	return domain.User{}, false
}
