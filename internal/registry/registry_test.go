package registry

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeconsedine/claude-maze/internal/domain"
)

// plaintextVerifier treats the stored hash as the password itself. Real
// hashing is covered in the auth package.
type plaintextVerifier struct{}

func (plaintextVerifier) Verify(passwordHash, plaintext string) bool {
	return passwordHash == plaintext
}

// seqTokens hands out deterministic unique tokens.
type seqTokens struct {
	mu sync.Mutex
	n  int
}

func (s *seqTokens) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("token-%04d", s.n), nil
}

type fixture struct {
	registry *Registry
	clock    *clockwork.FakeClock
	orgID    uuid.UUID
}

func newFixture(t *testing.T, seatLimit int) *fixture {
	t.Helper()

	clock := clockwork.NewFakeClock()
	reg := New(plaintextVerifier{}, &seqTokens{}, 24*time.Hour, clock)

	orgID := uuid.New()
	require.NoError(t, reg.AddOrganization(domain.Organization{
		ID:        orgID,
		Name:      "Acme",
		SeatLimit: seatLimit,
	}))

	return &fixture{registry: reg, clock: clock, orgID: orgID}
}

func (f *fixture) addUser(t *testing.T, username string, role domain.Role) {
	t.Helper()
	require.NoError(t, f.registry.AddUser(domain.User{
		ID:             uuid.New(),
		Username:       username,
		PasswordHash:   "secret",
		Role:           role,
		OrganizationID: f.orgID,
		IsActive:       true,
	}))
}

func TestRegistry_LoginCreatesSessionAndTakesSeat(t *testing.T) {
	f := newFixture(t, 2)
	f.addUser(t, "alice", domain.RoleStandard)

	sess, err := f.registry.Login("alice", "secret", "10.0.0.1", "test-agent")
	require.NoError(t, err)

	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, "alice", sess.Username)
	assert.True(t, sess.IsActive)
	assert.Equal(t, "10.0.0.1", sess.IPAddress)
	assert.Equal(t, sess.CreatedAt.Add(24*time.Hour), sess.ExpiresAt)
	assert.Equal(t, 1, f.registry.SeatsInUse(f.orgID))

	user, ok := f.registry.Validate(sess.Token)
	require.True(t, ok)
	assert.Equal(t, "alice", user.Username)
}

func TestRegistry_LoginWrongPassword(t *testing.T) {
	f := newFixture(t, 2)
	f.addUser(t, "alice", domain.RoleStandard)

	_, err := f.registry.Login("alice", "wrong", "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	assert.Equal(t, 0, f.registry.SeatsInUse(f.orgID))
}

func TestRegistry_LoginUnknownUser(t *testing.T) {
	f := newFixture(t, 2)

	_, err := f.registry.Login("nobody", "secret", "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestRegistry_LoginInactiveAccount(t *testing.T) {
	f := newFixture(t, 2)
	require.NoError(t, f.registry.AddUser(domain.User{
		ID:             uuid.New(),
		Username:       "gone",
		PasswordHash:   "secret",
		Role:           domain.RoleStandard,
		OrganizationID: f.orgID,
		IsActive:       false,
	}))

	_, err := f.registry.Login("gone", "secret", "", "")
	assert.ErrorIs(t, err, domain.ErrAccountInactive)
	assert.Equal(t, 0, f.registry.SeatsInUse(f.orgID))
}

func TestRegistry_SeatLimitBlocksSecondLogin(t *testing.T) {
	f := newFixture(t, 1)
	f.addUser(t, "alice", domain.RoleStandard)
	f.addUser(t, "bob", domain.RoleStandard)

	first, err := f.registry.Login("alice", "secret", "", "")
	require.NoError(t, err)

	_, err = f.registry.Login("bob", "secret", "", "")
	assert.ErrorIs(t, err, domain.ErrNoSeatsAvailable)
	assert.Equal(t, 1, f.registry.SeatsInUse(f.orgID))

	// The failed login must not have disturbed the first session.
	_, ok := f.registry.Validate(first.Token)
	assert.True(t, ok)
}

func TestRegistry_LogoutFreesSeatForNextLogin(t *testing.T) {
	f := newFixture(t, 1)
	f.addUser(t, "alice", domain.RoleStandard)
	f.addUser(t, "bob", domain.RoleStandard)

	sess, err := f.registry.Login("alice", "secret", "", "")
	require.NoError(t, err)

	f.registry.Logout(sess.Token)
	assert.Equal(t, 0, f.registry.SeatsInUse(f.orgID))

	_, err = f.registry.Login("bob", "secret", "", "")
	assert.NoError(t, err)
}

func TestRegistry_SameUserCanHoldMultipleSessions(t *testing.T) {
	f := newFixture(t, 2)
	f.addUser(t, "alice", domain.RoleStandard)

	a, err := f.registry.Login("alice", "secret", "", "")
	require.NoError(t, err)
	b, err := f.registry.Login("alice", "secret", "", "")
	require.NoError(t, err)

	assert.NotEqual(t, a.Token, b.Token)
	assert.Equal(t, 2, f.registry.SeatsInUse(f.orgID))
}

func TestRegistry_AdminNeverConsumesSeat(t *testing.T) {
	f := newFixture(t, 1)
	f.addUser(t, "root", domain.RoleAdmin)
	f.addUser(t, "alice", domain.RoleStandard)

	// Fill the single seat first.
	_, err := f.registry.Login("alice", "secret", "", "")
	require.NoError(t, err)

	sess, err := f.registry.Login("root", "secret", "", "")
	require.NoError(t, err, "admin login must succeed at full capacity")
	assert.Equal(t, 1, f.registry.SeatsInUse(f.orgID))

	f.registry.Logout(sess.Token)
	assert.Equal(t, 1, f.registry.SeatsInUse(f.orgID), "admin logout must not touch the seat counter")
}

func TestRegistry_ZeroSeatOrganization(t *testing.T) {
	f := newFixture(t, 0)
	f.addUser(t, "alice", domain.RoleStandard)
	f.addUser(t, "root", domain.RoleAdmin)

	_, err := f.registry.Login("alice", "secret", "", "")
	assert.ErrorIs(t, err, domain.ErrNoSeatsAvailable)

	_, err = f.registry.Login("root", "secret", "", "")
	assert.NoError(t, err)
}

func TestRegistry_ValidateExpiredSessionReleasesSeat(t *testing.T) {
	f := newFixture(t, 1)
	f.addUser(t, "alice", domain.RoleStandard)

	sess, err := f.registry.Login("alice", "secret", "", "")
	require.NoError(t, err)

	f.clock.Advance(24*time.Hour + time.Second)

	_, ok := f.registry.Validate(sess.Token)
	assert.False(t, ok)
	assert.Equal(t, 0, f.registry.SeatsInUse(f.orgID), "lazy expiry must release the seat")
	assert.Equal(t, 0, f.registry.ActiveSessions())
}

func TestRegistry_ValidateExactlyAtExpiryFails(t *testing.T) {
	f := newFixture(t, 1)
	f.addUser(t, "alice", domain.RoleStandard)

	sess, err := f.registry.Login("alice", "secret", "", "")
	require.NoError(t, err)

	f.clock.Advance(24 * time.Hour)

	_, ok := f.registry.Validate(sess.Token)
	assert.False(t, ok, "a session is expired at its expiry instant, not after it")
}

func TestRegistry_LogoutThenSweepReleasesOnce(t *testing.T) {
	f := newFixture(t, 1)
	f.addUser(t, "alice", domain.RoleStandard)

	sess, err := f.registry.Login("alice", "secret", "", "")
	require.NoError(t, err)

	f.registry.Logout(sess.Token)
	f.registry.Logout(sess.Token)
	f.clock.Advance(25 * time.Hour)
	f.registry.SweepExpired(f.clock.Now())

	assert.Equal(t, 0, f.registry.SeatsInUse(f.orgID), "seat released exactly once across logout and sweep")
}

func TestRegistry_SweepReclaimsOnlyExpired(t *testing.T) {
	f := newFixture(t, 3)
	f.addUser(t, "alice", domain.RoleStandard)
	f.addUser(t, "bob", domain.RoleStandard)

	_, err := f.registry.Login("alice", "secret", "", "")
	require.NoError(t, err)

	f.clock.Advance(12 * time.Hour)
	fresh, err := f.registry.Login("bob", "secret", "", "")
	require.NoError(t, err)

	f.clock.Advance(13 * time.Hour) // alice at 25h, bob at 13h

	reclaimed := f.registry.SweepExpired(f.clock.Now())
	assert.Equal(t, 1, reclaimed)
	assert.Equal(t, 1, f.registry.SeatsInUse(f.orgID))

	_, ok := f.registry.Validate(fresh.Token)
	assert.True(t, ok)
}

func TestRegistry_SweepIsIdempotent(t *testing.T) {
	f := newFixture(t, 2)
	f.addUser(t, "alice", domain.RoleStandard)

	_, err := f.registry.Login("alice", "secret", "", "")
	require.NoError(t, err)

	f.clock.Advance(25 * time.Hour)
	assert.Equal(t, 1, f.registry.SweepExpired(f.clock.Now()))
	assert.Equal(t, 0, f.registry.SweepExpired(f.clock.Now()))
	assert.Equal(t, 0, f.registry.SeatsInUse(f.orgID))
}

func TestRegistry_ConcurrentLogoutAndSweep(t *testing.T) {
	f := newFixture(t, 50)
	for i := 0; i < 50; i++ {
		f.addUser(t, fmt.Sprintf("user%02d", i), domain.RoleStandard)
	}

	tokens := make([]string, 50)
	for i := 0; i < 50; i++ {
		sess, err := f.registry.Login(fmt.Sprintf("user%02d", i), "secret", "", "")
		require.NoError(t, err)
		tokens[i] = sess.Token
	}
	require.Equal(t, 50, f.registry.SeatsInUse(f.orgID))

	f.clock.Advance(25 * time.Hour)

	// Race logouts, validations and sweeps over the same expired sessions.
	var wg sync.WaitGroup
	for _, token := range tokens {
		token := token
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.registry.Logout(token)
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.registry.Validate(token)
		}()
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.registry.SweepExpired(f.clock.Now())
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, f.registry.SeatsInUse(f.orgID), "every seat released exactly once")
	assert.Equal(t, 0, f.registry.ActiveSessions())
}

// Random interleavings of login, logout, validate and sweep across two
// organizations must keep every seat counter equal to the number of live
// seat-holding sessions.
func TestRegistry_SeatInvariantUnderRandomOps(t *testing.T) {
	f := newFixture(t, 5)
	for i := 0; i < 8; i++ {
		f.addUser(t, fmt.Sprintf("user%d", i), domain.RoleStandard)
	}

	otherOrg := uuid.New()
	require.NoError(t, f.registry.AddOrganization(domain.Organization{
		ID:        otherOrg,
		Name:      "Globex",
		SeatLimit: 3,
	}))
	usernames := make([]string, 0, 12)
	for i := 0; i < 8; i++ {
		usernames = append(usernames, fmt.Sprintf("user%d", i))
	}
	for i := 0; i < 4; i++ {
		name := fmt.Sprintf("guest%d", i)
		require.NoError(t, f.registry.AddUser(domain.User{
			ID:             uuid.New(),
			Username:       name,
			PasswordHash:   "secret",
			Role:           domain.RoleStandard,
			OrganizationID: otherOrg,
			IsActive:       true,
		}))
		usernames = append(usernames, name)
	}

	rng := rand.New(rand.NewSource(42))
	var tokens []string

	for step := 0; step < 2000; step++ {
		switch rng.Intn(4) {
		case 0:
			sess, err := f.registry.Login(usernames[rng.Intn(len(usernames))], "secret", "", "")
			if err == nil {
				tokens = append(tokens, sess.Token)
			}
		case 1:
			if len(tokens) > 0 {
				f.registry.Logout(tokens[rng.Intn(len(tokens))])
			}
		case 2:
			if len(tokens) > 0 {
				f.registry.Validate(tokens[rng.Intn(len(tokens))])
			}
		case 3:
			f.clock.Advance(time.Duration(rng.Intn(3600)) * time.Second)
			f.registry.SweepExpired(f.clock.Now())
		}

		acmeSeats := f.registry.SeatsInUse(f.orgID)
		globexSeats := f.registry.SeatsInUse(otherOrg)
		active := f.registry.ActiveSessions()
		require.Equal(t, active, acmeSeats+globexSeats,
			"step %d: seats %d+%d != active sessions %d", step, acmeSeats, globexSeats, active)
		require.LessOrEqual(t, acmeSeats, 5, "step %d: seat limit exceeded", step)
		require.LessOrEqual(t, globexSeats, 3, "step %d: seat limit exceeded", step)
		require.GreaterOrEqual(t, acmeSeats, 0, "step %d: negative seats", step)
		require.GreaterOrEqual(t, globexSeats, 0, "step %d: negative seats", step)
	}
}

func TestRegistry_AddUserRejectsUnknownOrganization(t *testing.T) {
	f := newFixture(t, 1)

	err := f.registry.AddUser(domain.User{
		ID:             uuid.New(),
		Username:       "stray",
		OrganizationID: uuid.New(),
	})
	assert.Error(t, err)
}

func TestRegistry_AddOrganizationRejectsNegativeSeatLimit(t *testing.T) {
	clock := clockwork.NewFakeClock()
	reg := New(plaintextVerifier{}, &seqTokens{}, time.Hour, clock)

	err := reg.AddOrganization(domain.Organization{ID: uuid.New(), Name: "Bad", SeatLimit: -1})
	assert.Error(t, err)
}
