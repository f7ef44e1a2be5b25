package infra

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	stressImage    = "postgres:16-alpine"
	stressDatabase = "creatorflow"
	stressUser     = "creatorflow"
	stressPassword = "creatorflow"

	// DSNEnv points the stress run at an existing database instead of a container.
	DSNEnv = "STRESS_TEST_PG_DSN"
)

// PGContainer is the throwaway database behind a stress run. C is nil when
// the run reuses an external database.
type PGContainer struct {
	C   *postgres.PostgresContainer
	DSN string
}

// StartPostgres16 returns a DSN for the escrow stress run. overrideDSN wins,
// then DSNEnv, otherwise a Postgres 16 container is started. Container
// connections carry ApplicationName so chaos can find them.
func StartPostgres16(ctx context.Context, overrideDSN string) (*PGContainer, string, error) {
	for _, dsn := range []string{overrideDSN, os.Getenv(DSNEnv)} {
		if dsn != "" {
			return &PGContainer{DSN: dsn}, dsn, nil
		}
	}

	// The ready line is logged twice: once by the init server, once by the real one.
	ready := wait.ForLog("database system is ready to accept connections").
		WithOccurrence(2).
		WithStartupTimeout(90 * time.Second)

	pgC, err := postgres.Run(ctx,
		stressImage,
		postgres.WithDatabase(stressDatabase),
		postgres.WithUsername(stressUser),
		postgres.WithPassword(stressPassword),
		testcontainers.WithEnv(map[string]string{
			"POSTGRES_INITDB_ARGS": "--no-sync",
			"TZ":                   "UTC",
		}),
		testcontainers.WithWaitStrategy(ready, wait.ForListeningPort("5432/tcp")),
	)
	if err != nil {
		return nil, "", fmt.Errorf("start %s: %w", stressImage, err)
	}

	dsn, err := pgC.ConnectionString(ctx, "sslmode=disable", "application_name="+ApplicationName)
	if err != nil {
		_ = pgC.Terminate(ctx)
		return nil, "", fmt.Errorf("container dsn: %w", err)
	}
	return &PGContainer{C: pgC, DSN: dsn}, dsn, nil
}

// Terminate stops the container. It is a no-op for an external database.
func (p *PGContainer) Terminate(ctx context.Context) error {
	if p == nil || p.C == nil {
		return nil
	}
	return p.C.Terminate(ctx)
}
