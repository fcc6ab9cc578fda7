// Package app wires configuration to concrete stores and senders for the
// service binary and bookingctl.
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/md-rashed-zaman/slotbook/libs/config"
	"github.com/md-rashed-zaman/slotbook/libs/db"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type StoreConfig struct {
	Driver      string
	DatabaseURL string
	SQLitePath  string
	AutoMigrate bool
}

func StoreConfigFromEnv() (StoreConfig, error) {
	driver := strings.ToLower(config.String("STORE_DRIVER", DriverPostgres))
	autoMigrate, err := config.Bool("AUTO_MIGRATE", driver == DriverSQLite)
	if err != nil {
		return StoreConfig{}, err
	}
	cfg := StoreConfig{
		Driver:      driver,
		SQLitePath:  config.String("SQLITE_PATH", "slotbook.db"),
		AutoMigrate: autoMigrate,
	}
	if driver == DriverPostgres {
		if cfg.DatabaseURL, err = config.RequiredString("DATABASE_URL"); err != nil {
			return StoreConfig{}, fmt.Errorf("STORE_DRIVER=postgres: %w", err)
		}
	}
	return cfg, nil
}

// Store is an opened backend. Pool is set only for Postgres, which also
// feeds the outbox publisher.
type Store struct {
	booking.Store
	Pool    *db.Pool
	Ready   func(context.Context) error
	Migrate func(context.Context) error
	Close   func()
}

func OpenStore(ctx context.Context, cfg StoreConfig) (*Store, error) {
	switch cfg.Driver {
	case DriverPostgres:
		pool, err := db.Open(ctx, cfg.DatabaseURL, db.PoolConfig{})
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		s := &Store{
			Store:   storage.NewBookingRepository(pool, outbox.NewRepository()),
			Pool:    pool,
			Ready:   db.ReadyCheck(pool),
			Migrate: func(ctx context.Context) error { return storage.Migrate(ctx, pool) },
			Close:   pool.Close,
		}
		return s.migrate(ctx, cfg.AutoMigrate)
	case DriverSQLite:
		st, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		s := &Store{
			Store:   st,
			Ready:   st.Ping,
			Migrate: st.Migrate,
			Close:   func() { _ = st.Close() },
		}
		return s.migrate(ctx, cfg.AutoMigrate)
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q (want postgres or sqlite)", cfg.Driver)
	}
}

func (s *Store) migrate(ctx context.Context, enabled bool) (*Store, error) {
	if !enabled {
		return s, nil
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}
