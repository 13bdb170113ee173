package domain

import "errors"

// Login failure modes. Capacity and auth conditions are distinct on purpose:
// callers must be able to tell a full organization apart from a bad password.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrNoSeatsAvailable   = errors.New("no available seats in organization")
)
