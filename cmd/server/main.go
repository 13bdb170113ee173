package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/joeconsedine/claude-maze/internal/auth"
	"github.com/joeconsedine/claude-maze/internal/config"
	"github.com/joeconsedine/claude-maze/internal/domain"
	"github.com/joeconsedine/claude-maze/internal/live"
	"github.com/joeconsedine/claude-maze/internal/logging"
	"github.com/joeconsedine/claude-maze/internal/presentation"
	"github.com/joeconsedine/claude-maze/internal/registry"
	"github.com/joeconsedine/claude-maze/internal/server"
	"github.com/joeconsedine/claude-maze/internal/store/postgres"
	"github.com/joeconsedine/claude-maze/internal/store/redisstore"
	"github.com/joeconsedine/claude-maze/internal/token"
	"github.com/joeconsedine/claude-maze/internal/version"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config, verifier *auth.BcryptVerifier) (*pgxpool.Pool, *postgres.AccountRepo) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	accounts := postgres.NewAccountRepo(pool)
	if err := accounts.Seed(ctx, cfg.SeatLimitDefault, verifier.Hash); err != nil {
		slog.Error("Failed to seed accounts", "error", err)
		os.Exit(1)
	}

	return pool, accounts
}

func setupRedis(ctx context.Context, cfg *config.Config) *goredis.Client {
	client, err := redisstore.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

// loadAccounts fills the registry from the durable store.
func loadAccounts(reg *registry.Registry, accounts domain.AccountStore) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	orgs, err := accounts.ListOrganizations(ctx)
	if err != nil {
		return err
	}
	for _, org := range orgs {
		// Seats held by sessions that died with the previous process are
		// gone; start every org from zero.
		org.CurrentSeats = 0
		if err := reg.AddOrganization(org); err != nil {
			return err
		}
	}

	users, err := accounts.ListUsers(ctx)
	if err != nil {
		return err
	}
	for _, user := range users {
		if err := reg.AddUser(user); err != nil {
			return err
		}
	}

	slog.Info("Accounts loaded", "organizations", len(orgs), "users", len(users))
	return nil
}

// seedMemoryAccounts bootstraps the sample organization and users directly in
// the registry when no database is configured.
func seedMemoryAccounts(reg *registry.Registry, cfg *config.Config, verifier *auth.BcryptVerifier) error {
	org := domain.Organization{
		ID:        uuid.New(),
		Name:      "Sample Organization",
		SeatLimit: cfg.SeatLimitDefault,
		CreatedAt: time.Now(),
	}
	if err := reg.AddOrganization(org); err != nil {
		return err
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
		hash, err := verifier.Hash(u.password)
		if err != nil {
			return err
		}
		err = reg.AddUser(domain.User{
			ID:             uuid.New(),
			Username:       u.username,
			PasswordHash:   hash,
			Role:           u.role,
			OrganizationID: org.ID,
			IsActive:       true,
			CreatedAt:      time.Now(),
		})
		if err != nil {
			return err
		}
	}

	slog.Info("Seeded in-memory accounts", "organization", org.Name, "seat_limit", org.SeatLimit)
	return nil
}

func runGracefulShutdown(srv *server.Server, hub *live.Hub, cancelSweeper context.CancelFunc) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		cancelSweeper()
		hub.Stop()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting",
		"env", cfg.AppEnv,
		"port", cfg.Port,
		"version", version.Get().Version,
	)

	verifier := auth.NewBcryptVerifier(cfg.BcryptCost)

	reg := registry.New(verifier, token.CryptoSource{}, cfg.SessionTTL, clock)

	var (
		pool        *pgxpool.Pool
		accountRepo *postgres.AccountRepo
	)
	if cfg.DatabaseURL != "" {
		pool, accountRepo = setupDB(cfg, verifier)
		defer pool.Close()
		if err := loadAccounts(reg, accountRepo); err != nil {
			slog.Error("Failed to load accounts", "error", err)
			os.Exit(1)
		}
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory account seed")
		if err := seedMemoryAccounts(reg, cfg, verifier); err != nil {
			slog.Error("Failed to seed accounts", "error", err)
			os.Exit(1)
		}
	}

	var redisClient *goredis.Client
	if cfg.RedisURL != "" {
		redisClient = setupRedis(context.Background(), cfg)
		defer func() { _ = redisClient.Close() }()
	} else {
		slog.Warn("REDIS_URL not set, view snapshots will not be mirrored")
	}

	state := presentation.NewState(presentation.SeedSlides(), cfg.LaserPointTTL, clock)

	sweeperCtx, cancelSweeper := context.WithCancel(context.Background())
	defer cancelSweeper()
	sweeper := registry.NewExpirySweeper(reg, cfg.SweepInterval, clock)
	go sweeper.Run(sweeperCtx)

	hub := live.NewHub()

	// Pass nils explicitly to avoid typed-nil interface values.
	var srv *server.Server
	switch {
	case pool != nil && redisClient != nil:
		srv = server.NewServer(cfg, state, reg, hub, redisstore.NewViewMirror(redisClient), accountRepo, pool, redisClient)
	case pool != nil:
		srv = server.NewServer(cfg, state, reg, hub, nil, accountRepo, pool, nil)
	case redisClient != nil:
		srv = server.NewServer(cfg, state, reg, hub, redisstore.NewViewMirror(redisClient), nil, nil, redisClient)
	default:
		srv = server.NewServer(cfg, state, reg, hub, nil, nil, nil, nil)
	}

	done := runGracefulShutdown(srv, hub, cancelSweeper)

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
