package storage

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/md-rashed-zaman/slotbook/libs/db"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/outbox"
)

// BookingRepository is the Postgres store. Non-overlap of busy customer
// bookings is enforced by the bookings_no_overlap exclusion constraint; every
// booking change writes its outbox event in the same transaction.
type BookingRepository struct {
	pool   *db.Pool
	outbox *outbox.Repository
	now    func() time.Time
}

func NewBookingRepository(pool *db.Pool, outboxRepo *outbox.Repository) *BookingRepository {
	if outboxRepo == nil {
		outboxRepo = outbox.NewRepository()
	}
	return &BookingRepository{pool: pool, outbox: outboxRepo, now: time.Now}
}

const bookingColumns = `id::text, service_id::text, starts_at, ends_at, customer_name, customer_email,
	cancel_token, status, staff_override, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanBooking(row scanner) (model.Booking, error) {
	var b model.Booking
	var status string
	if err := row.Scan(&b.ID, &b.ServiceID, &b.StartsAt, &b.EndsAt, &b.CustomerName, &b.CustomerEmail,
		&b.CancelToken, &status, &b.StaffOverride, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return model.Booking{}, err
	}
	b.Status = model.Status(status)
	b.StartsAt = b.StartsAt.UTC()
	b.EndsAt = b.EndsAt.UTC()
	return b, nil
}

func (r *BookingRepository) GetService(ctx context.Context, serviceID string) (model.Service, error) {
	if _, err := uuid.Parse(serviceID); err != nil {
		return model.Service{}, fmt.Errorf("service %q: %w", serviceID, model.ErrNotFound)
	}
	var svc model.Service
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, name, duration_minutes, created_at
		FROM services
		WHERE id = $1
	`, serviceID).Scan(&svc.ID, &svc.Name, &svc.DurationMinutes, &svc.CreatedAt)
	if err != nil {
		return model.Service{}, mapErr(err, "service "+serviceID)
	}
	return svc, nil
}

func (r *BookingRepository) ListServices(ctx context.Context) ([]model.Service, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, name, duration_minutes, created_at
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
		if err := rows.Scan(&svc.ID, &svc.Name, &svc.DurationMinutes, &svc.CreatedAt); err != nil {
			return nil, err
		}
		services = append(services, svc)
	}
	return services, rows.Err()
}

func (r *BookingRepository) CreateService(ctx context.Context, svc model.Service) (model.Service, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO services (id, name, duration_minutes)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, svc.ID, svc.Name, svc.DurationMinutes).Scan(&svc.CreatedAt)
	if err != nil {
		return model.Service{}, err
	}
	return svc, nil
}

const listWindowsSQL = `
	SELECT id::text, service_id::text, weekday, start_time::text, end_time::text
	FROM availability_windows
	WHERE service_id = $1 AND weekday = $2
	ORDER BY seq ASC
`

func (r *BookingRepository) ListWindows(ctx context.Context, serviceID string, weekday time.Weekday) ([]model.AvailabilityWindow, error) {
	if _, err := uuid.Parse(serviceID); err != nil {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, listWindowsSQL, serviceID, int16(weekday))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var windows []model.AvailabilityWindow
	for rows.Next() {
		var w model.AvailabilityWindow
		var wd int16
		if err := rows.Scan(&w.ID, &w.ServiceID, &wd, &w.StartTime, &w.EndTime); err != nil {
			return nil, err
		}
		w.Weekday = time.Weekday(wd)
		windows = append(windows, w)
	}
	return windows, rows.Err()
}

func (r *BookingRepository) AddWindow(ctx context.Context, w model.AvailabilityWindow) (model.AvailabilityWindow, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO availability_windows (id, service_id, weekday, start_time, end_time)
		VALUES ($1, $2, $3, $4::time, $5::time)
	`, w.ID, w.ServiceID, int16(w.Weekday), w.StartTime, w.EndTime)
	if err != nil {
		return model.AvailabilityWindow{}, err
	}
	return w, nil
}

func (r *BookingRepository) ListBookingsStartingBetween(ctx context.Context, serviceID string, from, to time.Time) ([]model.Booking, error) {
	if _, err := uuid.Parse(serviceID); err != nil {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE service_id = $1
			AND starts_at >= $2
			AND starts_at <= $3
		ORDER BY starts_at ASC
	`, serviceID, from, to)
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

// InsertBooking writes a confirmed booking. Overlap with another customer
// booking trips the exclusion constraint; overlap with a staff override row is
// checked explicitly inside the same transaction. That check is a plain read
// under READ COMMITTED, so an override committed concurrently can still end up
// overlapping the new row. Staff-created overlaps are allowed, so this is
// accepted.
func (r *BookingRepository) InsertBooking(ctx context.Context, b model.Booking) (model.Booking, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Booking{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := checkOverrideOverlap(ctx, tx, b.ServiceID, b.ID, b.StartsAt, b.EndsAt); err != nil {
		return model.Booking{}, err
	}
	row := tx.QueryRow(ctx, `
		INSERT INTO bookings
			(id, service_id, starts_at, ends_at, customer_name, customer_email, cancel_token, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+bookingColumns,
		b.ID, b.ServiceID, b.StartsAt, b.EndsAt, b.CustomerName, b.CustomerEmail, b.CancelToken, string(b.Status))
	created, err := scanBooking(row)
	if err != nil {
		return model.Booking{}, mapErr(err, "booking "+b.ID)
	}
	if err := r.writeEvent(ctx, tx, outbox.EventBookingCreated, created); err != nil {
		return model.Booking{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Booking{}, mapErr(err, "booking "+b.ID)
	}
	return created, nil
}

func (r *BookingRepository) GetBookingByToken(ctx context.Context, token string) (model.Booking, error) {
	b, err := scanBooking(r.pool.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE cancel_token = $1
	`, token))
	if err != nil {
		return model.Booking{}, mapErr(err, "booking token")
	}
	return b, nil
}

func (r *BookingRepository) RescheduleByToken(ctx context.Context, token string, startsAt, endsAt time.Time) (model.Booking, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Booking{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	cur, err := lockBooking(ctx, tx, "cancel_token", token)
	if err != nil {
		return model.Booking{}, err
	}
	if err := checkOverrideOverlap(ctx, tx, cur.ServiceID, cur.ID, startsAt, endsAt); err != nil {
		return model.Booking{}, err
	}
	updated, err := scanBooking(tx.QueryRow(ctx, `
		UPDATE bookings
		SET starts_at = $2,
			ends_at = $3,
			status = 'rescheduled',
			staff_override = false,
			updated_at = now()
		WHERE id = $1
		RETURNING `+bookingColumns, cur.ID, startsAt, endsAt))
	if err != nil {
		return model.Booking{}, mapErr(err, "booking "+cur.ID)
	}
	if err := r.writeEvent(ctx, tx, outbox.EventBookingRescheduled, updated); err != nil {
		return model.Booking{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Booking{}, mapErr(err, "booking "+cur.ID)
	}
	return updated, nil
}

// CancelByToken is idempotent: an already cancelled booking is returned as is
// and no event is written.
func (r *BookingRepository) CancelByToken(ctx context.Context, token string) (model.Booking, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Booking{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	cur, err := lockBooking(ctx, tx, "cancel_token", token)
	if err != nil {
		return model.Booking{}, err
	}
	if cur.Status == model.StatusCancelled {
		return cur, tx.Commit(ctx)
	}
	updated, err := scanBooking(tx.QueryRow(ctx, `
		UPDATE bookings
		SET status = 'cancelled',
			staff_override = false,
			updated_at = now()
		WHERE id = $1
		RETURNING `+bookingColumns, cur.ID))
	if err != nil {
		return model.Booking{}, mapErr(err, "booking "+cur.ID)
	}
	if err := r.writeEvent(ctx, tx, outbox.EventBookingCancelled, updated); err != nil {
		return model.Booking{}, err
	}
	return updated, tx.Commit(ctx)
}

// SetStatus applies a staff decision. A busy status is first tried under the
// exclusion constraint; when that collides the row is flagged staff_override
// so it no longer takes part in the constraint.
func (r *BookingRepository) SetStatus(ctx context.Context, bookingID string, status model.Status) (model.Booking, error) {
	if _, err := uuid.Parse(bookingID); err != nil {
		return model.Booking{}, fmt.Errorf("booking %q: %w", bookingID, model.ErrNotFound)
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Booking{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := lockBooking(ctx, tx, "id", bookingID); err != nil {
		return model.Booking{}, err
	}

	var updated model.Booking
	if status.Busy() {
		updated, err = updateStatusGuarded(ctx, tx, bookingID, status)
	} else {
		updated, err = updateStatus(ctx, tx, bookingID, status, false)
	}
	if err != nil {
		return model.Booking{}, mapErr(err, "booking "+bookingID)
	}
	if err := r.writeEvent(ctx, tx, outbox.EventBookingStatusChanged, updated); err != nil {
		return model.Booking{}, err
	}
	return updated, tx.Commit(ctx)
}

func updateStatusGuarded(ctx context.Context, tx pgx.Tx, id string, status model.Status) (model.Booking, error) {
	sp, err := tx.Begin(ctx)
	if err != nil {
		return model.Booking{}, err
	}
	b, err := updateStatus(ctx, sp, id, status, false)
	if err == nil {
		return b, sp.Commit(ctx)
	}
	_ = sp.Rollback(ctx)
	if !db.IsExclusionViolation(err) {
		return model.Booking{}, err
	}
	return updateStatus(ctx, tx, id, status, true)
}

func updateStatus(ctx context.Context, tx pgx.Tx, id string, status model.Status, override bool) (model.Booking, error) {
	return scanBooking(tx.QueryRow(ctx, `
		UPDATE bookings
		SET status = $2,
			staff_override = $3,
			updated_at = now()
		WHERE id = $1
		RETURNING `+bookingColumns, id, string(status), override))
}

func (r *BookingRepository) SearchBookings(ctx context.Context, f model.BookingFilter) ([]model.BookingRow, error) {
	f.Normalize()
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if f.Query != "" {
		p := arg("%" + escapeLike(f.Query) + "%")
		where = append(where, "(b.customer_name ILIKE "+p+" OR b.customer_email ILIKE "+p+")")
	}
	if f.Status != "" {
		where = append(where, "b.status = "+arg(string(f.Status)))
	}
	if !f.DateFrom.IsZero() {
		where = append(where, "b.starts_at >= "+arg(f.DateFrom))
	}
	if !f.DateTo.IsZero() {
		where = append(where, "b.starts_at < "+arg(f.DateTo))
	}
	query := `
		SELECT b.id::text, b.service_id::text, b.starts_at, b.ends_at, b.customer_name, b.customer_email,
			b.cancel_token, b.status, b.staff_override, b.created_at, b.updated_at, s.name
		FROM bookings b
		JOIN services s ON s.id = b.service_id`
	if len(where) > 0 {
		query += "\n\t\tWHERE " + strings.Join(where, " AND ")
	}
	query += "\n\t\tORDER BY b.starts_at DESC, b.id ASC\n\t\tLIMIT " + arg(f.Limit) + " OFFSET " + arg(f.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.BookingRow{}
	for rows.Next() {
		var row model.BookingRow
		var status string
		if err := rows.Scan(&row.ID, &row.ServiceID, &row.StartsAt, &row.EndsAt, &row.CustomerName, &row.CustomerEmail,
			&row.CancelToken, &status, &row.StaffOverride, &row.CreatedAt, &row.UpdatedAt, &row.ServiceName); err != nil {
			return nil, err
		}
		row.Status = model.Status(status)
		row.StartsAt = row.StartsAt.UTC()
		row.EndsAt = row.EndsAt.UTC()
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *BookingRepository) writeEvent(ctx context.Context, tx pgx.Tx, eventType string, b model.Booking) error {
	evt, err := outbox.BookingEvent(uuid.NewString(), eventType, b, r.now())
	if err != nil {
		return err
	}
	return r.outbox.Insert(ctx, tx, evt)
}

func lockBooking(ctx context.Context, tx pgx.Tx, column, value string) (model.Booking, error) {
	b, err := scanBooking(tx.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE `+column+` = $1
		FOR UPDATE
	`, value))
	if err != nil {
		return model.Booking{}, mapErr(err, "booking")
	}
	return b, nil
}

// checkOverrideOverlap rejects an interval that collides with a busy row the
// exclusion constraint does not see.
func checkOverrideOverlap(ctx context.Context, tx pgx.Tx, serviceID, excludeID string, start, end time.Time) error {
	var taken bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE service_id = $1
				AND id <> $2
				AND staff_override
				AND status IN ('confirmed', 'rescheduled')
				AND starts_at < $4
				AND ends_at > $3
		)
	`, serviceID, excludeID, start, end).Scan(&taken)
	if err != nil {
		return err
	}
	if taken {
		return model.ErrConflict
	}
	return nil
}

// mapErr translates driver errors to domain sentinels.
func mapErr(err error, what string) error {
	switch {
	case db.IsNoRows(err):
		return fmt.Errorf("%s: %w", what, model.ErrNotFound)
	case db.IsExclusionViolation(err):
		return fmt.Errorf("%s: %w", what, model.ErrConflict)
	case db.IsUniqueViolation(err):
		return fmt.Errorf("%s: %w", what, model.ErrDuplicate)
	default:
		return err
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
