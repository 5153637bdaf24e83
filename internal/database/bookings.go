package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"barolo/internal/models"
)

const bookingColumns = `id, name, email, phone, date, time, guests, table_number,
                 notes, status, cancel_token, created_at, updated_at, cancelled_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var b models.Booking
	var tableNumber sql.NullInt64
	var notes sql.NullString
	var status string
	var cancelledAt sql.NullTime

	err := row.Scan(
		&b.ID, &b.Name, &b.Email, &b.Phone, &b.Date, &b.Time, &b.Guests,
		&tableNumber, &notes, &status, &b.CancelToken,
		&b.CreatedAt, &b.UpdatedAt, &cancelledAt,
	)
	if err != nil {
		return nil, err
	}

	b.Status = models.Status(status)
	if tableNumber.Valid {
		b.TableNumber = &tableNumber.Int64
	}
	if notes.Valid {
		b.Notes = &notes.String
	}
	if cancelledAt.Valid {
		b.CancelledAt = &cancelledAt.Time
	}
	return &b, nil
}

func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	query := `INSERT INTO bookings (
				name, email, phone, date, time, guests, table_number,
				notes, status, cancel_token, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	now := time.Now().UTC()
	var tableNumber any
	if booking.TableNumber != nil {
		tableNumber = *booking.TableNumber
	}
	var notes any
	if booking.Notes != nil {
		notes = *booking.Notes
	}

	result, err := db.db.ExecContext(ctx, query,
		booking.Name,
		booking.Email,
		booking.Phone,
		booking.Date,
		booking.Time,
		booking.Guests,
		tableNumber,
		notes,
		booking.Status.String(),
		booking.CancelToken,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	booking.ID = id
	booking.CreatedAt = now
	booking.UpdatedAt = now

	return nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	booking, err := scanBooking(db.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

func (db *DB) GetBookingByCancelToken(ctx context.Context, token string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE cancel_token = ?`
	booking, err := scanBooking(db.db.QueryRowContext(ctx, query, token))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking by token: %w", err)
	}
	return booking, nil
}

// ListBookings returns bookings newest-first. A non-positive limit falls
// back to the default and anything larger than MaxListLimit is capped.
func (db *DB) ListBookings(ctx context.Context, limit int) ([]*models.Booking, error) {
	if limit <= 0 {
		limit = models.DefaultListLimit
	}
	if limit > models.MaxListLimit {
		limit = models.MaxListLimit
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings ORDER BY created_at DESC, id DESC LIMIT ?`
	rows, err := db.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookings: %w", err)
	}
	return bookings, nil
}

// UpdateBookingStatus transitions a booking and stamps updated_at, plus
// cancelled_at when the target status is cancelled. The WHERE guard keeps
// cancelled terminal even under concurrent updates.
func (db *DB) UpdateBookingStatus(ctx context.Context, id int64, status models.Status) (*models.Booking, error) {
	now := time.Now().UTC()

	var result sql.Result
	var err error
	if status == models.StatusCancelled {
		query := `UPDATE bookings SET status = ?, cancelled_at = COALESCE(cancelled_at, ?), updated_at = ?
		          WHERE id = ? AND status != ?`
		result, err = db.db.ExecContext(ctx, query, status.String(), now, now, id, models.StatusCancelled.String())
	} else {
		query := `UPDATE bookings SET status = ?, updated_at = ? WHERE id = ? AND status != ?`
		result, err = db.db.ExecContext(ctx, query, status.String(), now, id, models.StatusCancelled.String())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update booking status: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		existing, err := db.GetBooking(ctx, id)
		if err != nil {
			return nil, err
		}
		if existing.Status == models.StatusCancelled {
			return nil, ErrAlreadyCancelled
		}
		// The only non-cancelled row the guard skips is a same-status
		// no-op racing another writer; return the current record.
		return existing, nil
	}

	return db.GetBooking(ctx, id)
}

// UpdateBookingFields applies a sparse, validated field overwrite. An empty
// update still advances updated_at.
func (db *DB) UpdateBookingFields(ctx context.Context, id int64, update models.BookingUpdate) (*models.Booking, error) {
	now := time.Now().UTC()

	sets := []string{"updated_at = ?"}
	args := []any{now}

	appendSet := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if update.Name != nil {
		appendSet("name", *update.Name)
	}
	if update.Email != nil {
		appendSet("email", *update.Email)
	}
	if update.Phone != nil {
		appendSet("phone", *update.Phone)
	}
	if update.Date != nil {
		appendSet("date", *update.Date)
	}
	if update.Time != nil {
		appendSet("time", *update.Time)
	}
	if update.Guests != nil {
		appendSet("guests", *update.Guests)
	}
	if update.NotesSet {
		if update.Notes != nil {
			appendSet("notes", *update.Notes)
		} else {
			appendSet("notes", nil)
		}
	}
	if update.TableSet {
		if update.TableNumber != nil {
			appendSet("table_number", *update.TableNumber)
		} else {
			appendSet("table_number", nil)
		}
	}
	if update.Status != nil {
		appendSet("status", update.Status.String())
		if *update.Status == models.StatusCancelled {
			sets = append(sets, "cancelled_at = COALESCE(cancelled_at, ?)")
			args = append(args, now)
		}
	}

	query := `UPDATE bookings SET ` + strings.Join(sets, ", ") + ` WHERE id = ? AND status != ?`
	args = append(args, id, models.StatusCancelled.String())

	result, err := db.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update booking: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		existing, err := db.GetBooking(ctx, id)
		if err != nil {
			return nil, err
		}
		if existing.Status == models.StatusCancelled {
			return nil, ErrAlreadyCancelled
		}
		return existing, nil
	}

	return db.GetBooking(ctx, id)
}

// CancelBookingByToken transitions the booking holding the token into
// cancelled. The conditional UPDATE re-checks the status in the same
// statement, so two concurrent cancellations produce exactly one
// transition; the loser observes alreadyCancelled=true and must not send
// another notification.
func (db *DB) CancelBookingByToken(ctx context.Context, token string) (*models.Booking, bool, error) {
	now := time.Now().UTC()

	query := `UPDATE bookings SET status = ?, cancelled_at = COALESCE(cancelled_at, ?), updated_at = ?
	          WHERE cancel_token = ? AND status != ?`
	result, err := db.db.ExecContext(ctx, query,
		models.StatusCancelled.String(), now, now, token, models.StatusCancelled.String())
	if err != nil {
		return nil, false, fmt.Errorf("failed to cancel booking: %w", err)
	}

	rows, _ := result.RowsAffected()

	booking, err := db.GetBookingByCancelToken(ctx, token)
	if err != nil {
		return nil, false, err
	}

	return booking, rows == 0, nil
}
