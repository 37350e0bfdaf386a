// Package testutil opens the Postgres journal and Redis instances used by
// integration tests. A test skips when its store is unreachable, unless
// TEST_REQUIRE_INFRA (or TEST_REQUIRE_DB / TEST_REQUIRE_REDIS) is set, in
// which case it fails.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	// Import pgx driver for database/sql compatibility in tests.
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/quocan1101-cloud/acp-hackathon/config"
	"github.com/quocan1101-cloud/acp-hackathon/internal/migrate"
)

const (
	defaultTestDBPort    = 55432
	defaultTestRedisAddr = "localhost:56379"
	pingTimeout          = 2 * time.Second
	redisLockTTL         = 30 * time.Minute
)

// TestDBConfig returns the journal database used by integration tests.
// TEST_DB_* variables override the docker-compose defaults.
func TestDBConfig() config.DBConfig {
	port, err := strconv.Atoi(os.Getenv("TEST_DB_PORT"))
	if err != nil || port <= 0 {
		port = defaultTestDBPort
	}
	cfg := config.DBConfig{
		Host:     envOr("TEST_DB_HOST", "localhost"),
		Port:     port,
		User:     envOr("TEST_DB_USER", "acp"),
		Password: envOr("TEST_DB_PASSWORD", "acp"),
		Name:     envOr("TEST_DB_NAME", "acp_agent"),
		SSLMode:  envOr("TEST_DB_SSL_MODE", "disable"),
	}
	cfg.Sanitize()
	return cfg
}

// SetupJournalDB returns a connection scoped to a fresh, migrated schema of
// the test database. The schema is dropped when the test ends.
func SetupJournalDB(t testing.TB) *sql.DB {
	t.Helper()
	skipShort(t)

	dbCfg := TestDBConfig()
	dsn := dbCfg.DSN()
	admin := openPostgres(t, dsn)
	schema := "t_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := admin.ExecContext(ctx, "CREATE SCHEMA "+schema); err != nil {
		_ = admin.Close()
		t.Fatalf("create schema %s: %v", schema, err)
	}

	u, err := url.Parse(dsn)
	if err != nil {
		t.Fatalf("parse test dsn: %v", err)
	}
	q := u.Query()
	q.Set("search_path", schema)
	u.RawQuery = q.Encode()
	db := openPostgres(t, u.String())

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Close(); err != nil {
			t.Logf("close schema db: %v", err)
		}
		if _, err := admin.ExecContext(ctx, "DROP SCHEMA IF EXISTS "+schema+" CASCADE"); err != nil {
			t.Logf("drop schema %s: %v", schema, err)
		}
		if err := admin.Close(); err != nil {
			t.Logf("close admin db: %v", err)
		}
	})

	if err := migrate.Run(ctx, db); err != nil {
		t.Fatalf("migrate schema %s: %v", schema, err)
	}
	return db
}

func openPostgres(t testing.TB, dsn string) *sql.DB {
	t.Helper()
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		unavailable(t, "TEST_REQUIRE_DB", "postgres", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		unavailable(t, "TEST_REQUIRE_DB", "postgres", err)
	}
	return db
}

// SetupTestRedis returns a client on a flushed logical database of the test
// Redis. TEST_REDIS_ADDR and TEST_REDIS_DB override the defaults; otherwise a
// free database in 1..15 is reserved so parallel packages do not collide.
func SetupTestRedis(t testing.TB) *redis.Client {
	t.Helper()
	skipShort(t)

	addr := envOr("TEST_REDIS_ADDR", defaultTestRedisAddr)
	meta := redis.NewClient(&redis.Options{Addr: addr})
	defer func() { _ = meta.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := meta.Ping(ctx).Err(); err != nil {
		unavailable(t, "TEST_REQUIRE_REDIS", "redis at "+addr, err)
	}

	client := redis.NewClient(&redis.Options{Addr: addr, DB: reserveRedisDB(t, meta, addr)})
	t.Cleanup(func() { _ = client.Close() })
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("flush test redis: %v", err)
	}
	return client
}

// reserveRedisDB claims a database index with a lock key kept in DB 0, so
// flushing the claimed database never drops the reservation.
func reserveRedisDB(t testing.TB, meta *redis.Client, addr string) int {
	t.Helper()
	if v := os.Getenv("TEST_REDIS_DB"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i >= 0 {
			return i
		}
		t.Logf("ignoring invalid TEST_REDIS_DB=%q", v)
	}

	owner := fmt.Sprintf("%d:%d", os.Getpid(), time.Now().UnixNano())
	for i := 1; i <= 15; i++ {
		key := fmt.Sprintf("acp:testutil:db_lock:%d", i)
		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		ok, err := meta.SetNX(ctx, key, owner, redisLockTTL).Result()
		cancel()
		if err != nil || !ok {
			continue
		}
		t.Cleanup(func() {
			c := redis.NewClient(&redis.Options{Addr: addr})
			defer func() { _ = c.Close() }()
			ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
			defer cancel()
			if err := c.Del(ctx, key).Err(); err != nil {
				t.Logf("release redis db lock %s: %v", key, err)
			}
		})
		return i
	}
	t.Logf("no free redis db, sharing DB 1")
	return 1
}

func skipShort(t testing.TB) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in -short mode")
	}
}

func unavailable(t testing.TB, requireKey, what string, err error) {
	t.Helper()
	if envBool(requireKey) || envBool("TEST_REQUIRE_INFRA") {
		t.Fatalf("%s not available: %v", what, err)
	}
	t.Skipf("%s not available: %v", what, err)
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envBool(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}
