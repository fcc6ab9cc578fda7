package app

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreConfigFromEnv(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("AUTO_MIGRATE", "")
	t.Setenv("DATABASE_URL", "")
	_, err := StoreConfigFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL is required")

	t.Setenv("DATABASE_URL", "postgres://localhost/slotbook")
	cfg, err := StoreConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/slotbook", cfg.DatabaseURL)
	assert.False(t, cfg.AutoMigrate)

	t.Setenv("STORE_DRIVER", "SQLite")
	cfg, err = StoreConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.Driver)
	assert.True(t, cfg.AutoMigrate)
}

func TestOpenSQLiteStoreMigrates(t *testing.T) {
	ctx := context.Background()
	s, err := OpenStore(ctx, StoreConfig{Driver: DriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "book.db"), AutoMigrate: true})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Ready(ctx))
	services, err := s.ListServices(ctx)
	require.NoError(t, err)
	assert.Empty(t, services)
	assert.Nil(t, s.Pool)
}

func TestOpenStoreUnknownDriver(t *testing.T) {
	_, err := OpenStore(context.Background(), StoreConfig{Driver: "mysql"})
	assert.Error(t, err)
}

func TestEngineConfigFromEnv(t *testing.T) {
	t.Setenv("BOOKING_TZ_OFFSET", "-05:30")
	t.Setenv("BOOKING_REQUIRE_WINDOW", "true")
	t.Setenv("STORE_TIMEOUT", "2s")
	cfg, err := EngineConfigFromEnv()
	require.NoError(t, err)
	_, offset := time.Date(2026, 1, 1, 0, 0, 0, 0, cfg.Location).Zone()
	assert.Equal(t, -(5*3600 + 30*60), offset)
	assert.True(t, cfg.RequireWindow)
	assert.Equal(t, 2*time.Second, cfg.StoreTimeout)

	t.Setenv("BOOKING_TZ_OFFSET", "Asia/Dhaka")
	_, err = EngineConfigFromEnv()
	assert.Error(t, err)
}

func TestNewNotifierFromEnv(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	t.Setenv("EMAIL_PROVIDER", "carrier-pigeon")
	_, err := NewNotifierFromEnv(logger)
	assert.Error(t, err)

	t.Setenv("EMAIL_PROVIDER", "noop")
	d, err := NewNotifierFromEnv(logger)
	require.NoError(t, err)
	require.NoError(t, d.Send(context.Background(), "a@example.com", "s", "b"))
	require.NoError(t, d.Close(context.Background()))
}
