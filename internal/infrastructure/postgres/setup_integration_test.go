//go:build integration
// +build integration

package postgres_test

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/baechuer/summons/internal/domain"
	"github.com/baechuer/summons/internal/infrastructure/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const migrationsDir = "../../../migrations"

// testDSN prefers TEST_DB_DSN and falls back to a throwaway container.
func testDSN(t *testing.T) string {
	t.Helper()
	if dsn := os.Getenv("TEST_DB_DSN"); dsn != "" {
		return dsn
	}
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := tcpostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:17"),
		tcpostgres.WithDatabase("invites"),
		tcpostgres.WithUsername("invite"),
		tcpostgres.WithPassword("invite"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func setupRepo(t *testing.T) (*postgres.Repository, *pgxpool.Pool) {
	t.Helper()
	pool, err := pgxpool.New(context.Background(), testDSN(t))
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	WipeDB(t, pool)
	ApplyMigrations(t, pool, migrationsDir)
	return postgres.New(pool), pool
}

func WipeDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := pool.Exec(ctx, `
		DO $$
		DECLARE
			r RECORD;
		BEGIN
			FOR r IN (SELECT tablename FROM pg_tables WHERE schemaname = 'public') LOOP
				EXECUTE 'DROP TABLE IF EXISTS ' || quote_ident(r.tablename) || ' CASCADE';
			END LOOP;
		END $$;
	`)
	if err != nil {
		t.Fatalf("wipe db: %v", err)
	}
}

func ApplyMigrations(t *testing.T, pool *pgxpool.Pool, dir string) {
	t.Helper()
	absDir, _ := filepath.Abs(dir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir %q (abs: %q): %v", dir, absDir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	if len(files) == 0 {
		t.Fatalf("no migration files found in %q", absDir)
	}
	sort.Strings(files)

	for _, f := range files {
		content, err := os.ReadFile(filepath.Join(dir, f))
		if err != nil {
			t.Fatalf("read migration %s: %v", f, err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		_, err = pool.Exec(ctx, string(content))
		cancel()
		if err != nil {
			t.Fatalf("apply migration %s: %v", f, err)
		}
	}
}

func seedEvent(t *testing.T, repo *postgres.Repository, mutate func(*domain.EventInput)) domain.Event {
	t.Helper()
	in := domain.EventInput{
		Title:       "Integration Party",
		Description: "db-backed",
		Date:        "2026-09-01",
		StartTime:   "18:00",
		EndTime:     "22:00",
		Location:    "Hall A",
		GuestLimit:  10,
	}
	if mutate != nil {
		mutate(&in)
	}
	ev, err := domain.NewEvent(in, time.Now())
	require.NoError(t, err)
	ev, err = repo.CreateEvent(context.Background(), "trace-seed", ev)
	require.NoError(t, err)
	return ev
}
