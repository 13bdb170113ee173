package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joeconsedine/claude-maze/internal/domain"
)

// orgColumns must match the Scan order in scanOrganization.
const orgColumns = `id, name, seat_limit, current_seats, created_at`

// userColumns must match the Scan order in scanUser.
const userColumns = `id, username, password_hash, role, organization_id, is_active, created_at, COALESCE(last_login, 'epoch'::timestamptz)`

// AccountRepo implements domain.AccountStore backed by PostgreSQL.
type AccountRepo struct {
	pool *pgxpool.Pool
}

func NewAccountRepo(pool *pgxpool.Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

func (r *AccountRepo) ListOrganizations(ctx context.Context) ([]domain.Organization, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+orgColumns+` FROM organizations ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	var orgs []domain.Organization
	for rows.Next() {
		var org domain.Organization
		if err := rows.Scan(&org.ID, &org.Name, &org.SeatLimit, &org.CurrentSeats, &org.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		orgs = append(orgs, org)
	}
	return orgs, rows.Err()
}

func (r *AccountRepo) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(
			&user.ID, &user.Username, &user.PasswordHash, &user.Role,
			&user.OrganizationID, &user.IsActive, &user.CreatedAt, &user.LastLogin,
		); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *AccountRepo) UpdateLastLogin(ctx context.Context, userID uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET last_login = $1 WHERE id = $2`, at, userID)
	return err
}

// Seed creates the sample organization with one admin and one standard user
// when the users table is empty. Mirrors the development bootstrap of the
// original deployment.
func (r *AccountRepo) Seed(ctx context.Context, seatLimit int, hash func(string) (string, error)) error {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	var orgID uuid.UUID
	err := r.pool.QueryRow(ctx, `
		INSERT INTO organizations (name, seat_limit, current_seats)
		VALUES ($1, $2, 0)
		ON CONFLICT (name) DO UPDATE SET seat_limit = EXCLUDED.seat_limit
		RETURNING id
	`, "Sample Organization", seatLimit).Scan(&orgID)
	if err != nil {
		return fmt.Errorf("failed to seed organization: %w", err)
	}

	seedUsers := []struct {
		username string
		password string
		role     domain.Role
	}{
		{"admin", "admin123", domain.RoleAdmin},
		{"user", "user123", domain.RoleStandard},
	}

	for _, u := range seedUsers {
		passwordHash, err := hash(u.password)
		if err != nil {
			return fmt.Errorf("failed to hash seed password: %w", err)
		}
		_, err = r.pool.Exec(ctx, `
			INSERT INTO users (username, password_hash, role, organization_id)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (username) DO NOTHING
		`, u.username, passwordHash, u.role, orgID)
		if err != nil {
			return fmt.Errorf("failed to seed user %q: %w", u.username, err)
		}
	}

	slog.Info("Seeded sample organization and users", "organization", "Sample Organization", "seat_limit", seatLimit)
	return nil
}
