// Package sqlite is the single-file store for development and tests. SQLite
// has no exclusion constraints, so every guarded write runs in an immediate
// transaction on the only connection and re-checks overlap before writing.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

//go:embed schema.sql
var schemaSQL string

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path. ":memory:" gives a
// private in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = ":memory:"
	}
	dsn := path
	if strings.Contains(dsn, "?") {
		dsn += "&"
	} else {
		dsn += "?"
	}
	dsn += "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"
	if path != ":memory:" {
		dsn += "&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection serializes writers and keeps an in-memory database alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schemaSQL)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

type scanner interface {
	Scan(dest ...any) error
}

const bookingColumns = `id, service_id, starts_at, ends_at, customer_name, customer_email,
	cancel_token, status, staff_override, created_at, updated_at`

func scanBooking(row scanner, extra ...any) (model.Booking, error) {
	var (
		b                          model.Booking
		status                     string
		starts, ends, created, upd int64
	)
	dest := []any{&b.ID, &b.ServiceID, &starts, &ends, &b.CustomerName, &b.CustomerEmail,
		&b.CancelToken, &status, &b.StaffOverride, &created, &upd}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return model.Booking{}, err
	}
	b.Status = model.Status(status)
	b.StartsAt = fromMillis(starts)
	b.EndsAt = fromMillis(ends)
	b.CreatedAt = fromMillis(created)
	b.UpdatedAt = fromMillis(upd)
	return b, nil
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, model.ErrNotFound)
	}
	return err
}

func duplicate(err error, what string) error {
	var serr *msqlite.Error
	if errors.As(err, &serr) {
		switch serr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%s: %w", what, model.ErrDuplicate)
		}
	}
	return err
}

func (s *Store) GetService(ctx context.Context, serviceID string) (model.Service, error) {
	var svc model.Service
	var created int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, duration_minutes, created_at
		FROM services
		WHERE id = ?
	`, serviceID).Scan(&svc.ID, &svc.Name, &svc.DurationMinutes, &created)
	if err != nil {
		return model.Service{}, notFound(err, "service "+serviceID)
	}
	svc.CreatedAt = fromMillis(created)
	return svc, nil
}

func (s *Store) ListServices(ctx context.Context) ([]model.Service, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, duration_minutes, created_at
		FROM services
		ORDER BY name ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	services := []model.Service{}
	for rows.Next() {
		var svc model.Service
		var created int64
		if err := rows.Scan(&svc.ID, &svc.Name, &svc.DurationMinutes, &created); err != nil {
			return nil, err
		}
		svc.CreatedAt = fromMillis(created)
		services = append(services, svc)
	}
	return services, rows.Err()
}

func (s *Store) CreateService(ctx context.Context, svc model.Service) (model.Service, error) {
	svc.CreatedAt = s.now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO services (id, name, duration_minutes, created_at)
		VALUES (?, ?, ?, ?)
	`, svc.ID, svc.Name, svc.DurationMinutes, toMillis(svc.CreatedAt))
	if err != nil {
		return model.Service{}, err
	}
	svc.CreatedAt = fromMillis(toMillis(svc.CreatedAt))
	return svc, nil
}

func (s *Store) ListWindows(ctx context.Context, serviceID string, weekday time.Weekday) ([]model.AvailabilityWindow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, service_id, weekday, start_time, end_time
		FROM availability_windows
		WHERE service_id = ? AND weekday = ?
		ORDER BY seq ASC
	`, serviceID, int(weekday))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var windows []model.AvailabilityWindow
	for rows.Next() {
		var w model.AvailabilityWindow
		var wd int
		if err := rows.Scan(&w.ID, &w.ServiceID, &wd, &w.StartTime, &w.EndTime); err != nil {
			return nil, err
		}
		w.Weekday = time.Weekday(wd)
		windows = append(windows, w)
	}
	return windows, rows.Err()
}

func (s *Store) AddWindow(ctx context.Context, w model.AvailabilityWindow) (model.AvailabilityWindow, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO availability_windows (id, service_id, weekday, start_time, end_time)
		VALUES (?, ?, ?, ?, ?)
	`, w.ID, w.ServiceID, int(w.Weekday), w.StartTime, w.EndTime)
	if err != nil {
		return model.AvailabilityWindow{}, err
	}
	return w, nil
}

func (s *Store) ListBookingsStartingBetween(ctx context.Context, serviceID string, from, to time.Time) ([]model.Booking, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE service_id = ? AND starts_at >= ? AND starts_at <= ?
		ORDER BY starts_at ASC
	`, serviceID, toMillis(from), toMillis(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) GetBookingByToken(ctx context.Context, token string) (model.Booking, error) {
	b, err := scanBooking(s.db.QueryRowContext(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE cancel_token = ?
	`, token))
	if err != nil {
		return model.Booking{}, notFound(err, "booking token")
	}
	return b, nil
}
