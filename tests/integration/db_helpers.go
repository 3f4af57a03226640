package integration

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/biyuboxing/adminauth/internal/config"
	"github.com/biyuboxing/adminauth/internal/store"
)

// TestDB manages the PostgreSQL testcontainer and the store under test.
type TestDB struct {
	Container testcontainers.Container
	Store     *store.Postgres
}

// SetupTestDatabase starts a PostgreSQL container and opens the store against
// it. Opening the store runs the embedded migrations.
func SetupTestDatabase(ctx context.Context) (*TestDB, error) {
	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("biyuboxing"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to resolve container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to resolve container port: %w", err)
	}

	cfg := &config.DatabaseConfig{
		Driver:            config.DriverPostgres,
		Host:              host,
		Port:              port.Int(),
		User:              "postgres",
		Password:          "postgres",
		Name:              "biyuboxing",
		SSLMode:           "disable",
		MaxConns:          5,
		MinConns:          1,
		MaxConnLifetime:   5 * time.Minute,
		MaxConnIdleTime:   1 * time.Minute,
		HealthCheckPeriod: 1 * time.Minute,
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pg, err := store.NewPostgres(cfg, logger)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to open postgres store: %w", err)
	}

	return &TestDB{Container: container, Store: pg}, nil
}

// Teardown closes the store and terminates the container.
func (db *TestDB) Teardown(ctx context.Context) {
	if db.Store != nil {
		db.Store.Close()
	}
	if db.Container != nil {
		db.Container.Terminate(ctx)
	}
}
