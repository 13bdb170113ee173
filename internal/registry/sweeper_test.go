package registry

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeconsedine/claude-maze/internal/domain"
)

func TestExpirySweeper_ReclaimsOnInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	reg := New(plaintextVerifier{}, &seqTokens{}, time.Hour, clock)

	orgID := uuid.New()
	require.NoError(t, reg.AddOrganization(domain.Organization{ID: orgID, Name: "Acme", SeatLimit: 5}))
	require.NoError(t, reg.AddUser(domain.User{
		ID:             uuid.New(),
		Username:       "alice",
		PasswordHash:   "secret",
		Role:           domain.RoleStandard,
		OrganizationID: orgID,
		IsActive:       true,
	}))

	_, err := reg.Login("alice", "secret", "", "")
	require.NoError(t, err)
	require.Equal(t, 1, reg.SeatsInUse(orgID))

	sweeper := NewExpirySweeper(reg, time.Minute, clock)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sweeper.Run(ctx)

	// Wait until the sweeper's ticker is armed before advancing.
	clock.BlockUntil(1)
	clock.Advance(2 * time.Hour)

	assert.Eventually(t, func() bool {
		return reg.SeatsInUse(orgID) == 0 && reg.ActiveSessions() == 0
	}, 5*time.Second, 10*time.Millisecond)
}

func TestExpirySweeper_StopsOnContextCancel(t *testing.T) {
	clock := clockwork.NewFakeClock()
	reg := New(plaintextVerifier{}, &seqTokens{}, time.Hour, clock)

	sweeper := NewExpirySweeper(reg, time.Minute, clock)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	clock.BlockUntil(1)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("sweeper did not stop after context cancellation")
	}
}

func TestNewExpirySweeper_PanicsOnNonPositiveInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	reg := New(plaintextVerifier{}, &seqTokens{}, time.Hour, clock)

	assert.Panics(t, func() {
		NewExpirySweeper(reg, 0, clock)
	})
}
