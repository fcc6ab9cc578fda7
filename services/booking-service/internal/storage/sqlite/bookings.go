package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

// overlapQuery matches busy bookings of a service intersecting [start, end),
// other than the given id. The caller picks whether override rows count.
const overlapQuery = `
	SELECT EXISTS (
		SELECT 1 FROM bookings
		WHERE service_id = ?
			AND id <> ?
			AND status IN ('confirmed', 'rescheduled')
			AND starts_at < ?
			AND ends_at > ?
			%s
	)`

func overlaps(ctx context.Context, tx *sql.Tx, serviceID, excludeID string, start, end time.Time, onlyGuarded bool) (bool, error) {
	extra := ""
	if onlyGuarded {
		extra = "AND staff_override = 0"
	}
	var taken bool
	err := tx.QueryRowContext(ctx, strings.Replace(overlapQuery, "%s", extra, 1),
		serviceID, excludeID, toMillis(end), toMillis(start)).Scan(&taken)
	return taken, err
}

func (s *Store) InsertBooking(ctx context.Context, b model.Booking) (model.Booking, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Booking{}, err
	}
	defer func() { _ = tx.Rollback() }()

	taken, err := overlaps(ctx, tx, b.ServiceID, b.ID, b.StartsAt, b.EndsAt, false)
	if err != nil {
		return model.Booking{}, err
	}
	if taken {
		return model.Booking{}, model.ErrConflict
	}

	now := toMillis(s.now())
	_, err = tx.ExecContext(ctx, `
		INSERT INTO bookings
			(id, service_id, starts_at, ends_at, customer_name, customer_email, cancel_token, status, staff_override, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
	`, b.ID, b.ServiceID, toMillis(b.StartsAt), toMillis(b.EndsAt), b.CustomerName, b.CustomerEmail,
		b.CancelToken, string(b.Status), now, now)
	if err != nil {
		return model.Booking{}, duplicate(err, "booking "+b.ID)
	}
	created, err := getBooking(ctx, tx, "id", b.ID)
	if err != nil {
		return model.Booking{}, err
	}
	return created, tx.Commit()
}

func (s *Store) RescheduleByToken(ctx context.Context, token string, startsAt, endsAt time.Time) (model.Booking, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Booking{}, err
	}
	defer func() { _ = tx.Rollback() }()

	cur, err := getBooking(ctx, tx, "cancel_token", token)
	if err != nil {
		return model.Booking{}, err
	}
	taken, err := overlaps(ctx, tx, cur.ServiceID, cur.ID, startsAt, endsAt, false)
	if err != nil {
		return model.Booking{}, err
	}
	if taken {
		return model.Booking{}, model.ErrConflict
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE bookings
		SET starts_at = ?, ends_at = ?, status = 'rescheduled', staff_override = 0, updated_at = ?
		WHERE id = ?
	`, toMillis(startsAt), toMillis(endsAt), toMillis(s.now()), cur.ID)
	if err != nil {
		return model.Booking{}, err
	}
	updated, err := getBooking(ctx, tx, "id", cur.ID)
	if err != nil {
		return model.Booking{}, err
	}
	return updated, tx.Commit()
}

func (s *Store) CancelByToken(ctx context.Context, token string) (model.Booking, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Booking{}, err
	}
	defer func() { _ = tx.Rollback() }()

	cur, err := getBooking(ctx, tx, "cancel_token", token)
	if err != nil {
		return model.Booking{}, err
	}
	if cur.Status == model.StatusCancelled {
		return cur, tx.Commit()
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE bookings SET status = 'cancelled', staff_override = 0, updated_at = ? WHERE id = ?
	`, toMillis(s.now()), cur.ID)
	if err != nil {
		return model.Booking{}, err
	}
	updated, err := getBooking(ctx, tx, "id", cur.ID)
	if err != nil {
		return model.Booking{}, err
	}
	return updated, tx.Commit()
}

// SetStatus never rejects for overlap. A busy status that collides with a
// guarded booking is recorded as a staff override.
func (s *Store) SetStatus(ctx context.Context, bookingID string, status model.Status) (model.Booking, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Booking{}, err
	}
	defer func() { _ = tx.Rollback() }()

	cur, err := getBooking(ctx, tx, "id", bookingID)
	if err != nil {
		return model.Booking{}, err
	}
	override := false
	if status.Busy() {
		override, err = overlaps(ctx, tx, cur.ServiceID, cur.ID, cur.StartsAt, cur.EndsAt, true)
		if err != nil {
			return model.Booking{}, err
		}
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE bookings SET status = ?, staff_override = ?, updated_at = ? WHERE id = ?
	`, string(status), override, toMillis(s.now()), cur.ID)
	if err != nil {
		return model.Booking{}, err
	}
	updated, err := getBooking(ctx, tx, "id", cur.ID)
	if err != nil {
		return model.Booking{}, err
	}
	return updated, tx.Commit()
}

func (s *Store) SearchBookings(ctx context.Context, f model.BookingFilter) ([]model.BookingRow, error) {
	f.Normalize()
	var (
		where []string
		args  []any
	)
	if f.Query != "" {
		p := "%" + strings.ToLower(escapeLike(f.Query)) + "%"
		where = append(where, `(lower(b.customer_name) LIKE ? ESCAPE '\' OR lower(b.customer_email) LIKE ? ESCAPE '\')`)
		args = append(args, p, p)
	}
	if f.Status != "" {
		where = append(where, "b.status = ?")
		args = append(args, string(f.Status))
	}
	if !f.DateFrom.IsZero() {
		where = append(where, "b.starts_at >= ?")
		args = append(args, toMillis(f.DateFrom))
	}
	if !f.DateTo.IsZero() {
		where = append(where, "b.starts_at < ?")
		args = append(args, toMillis(f.DateTo))
	}
	query := `
		SELECT b.id, b.service_id, b.starts_at, b.ends_at, b.customer_name, b.customer_email,
			b.cancel_token, b.status, b.staff_override, b.created_at, b.updated_at, s.name
		FROM bookings b
		JOIN services s ON s.id = b.service_id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY b.starts_at DESC, b.id ASC LIMIT ? OFFSET ?"
	args = append(args, f.Limit, f.Offset())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.BookingRow{}
	for rows.Next() {
		var name string
		b, err := scanBooking(rows, &name)
		if err != nil {
			return nil, err
		}
		out = append(out, model.BookingRow{Booking: b, ServiceName: name})
	}
	return out, rows.Err()
}

func getBooking(ctx context.Context, tx *sql.Tx, column, value string) (model.Booking, error) {
	b, err := scanBooking(tx.QueryRowContext(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE `+column+` = ?
	`, value))
	if err != nil {
		return model.Booking{}, notFound(err, "booking")
	}
	return b, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
