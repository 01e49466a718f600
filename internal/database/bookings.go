package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"campnest/internal/models"

	sqlite3 "github.com/mattn/go-sqlite3"
)

const bookingColumns = `id, user_id, campground_id, campsite_id, date(start_date), date(end_date),
                 total_days, total_price_cents, guest_count, payment_session_id, paid, status,
                 version, created_at, updated_at`

// CountOverlappingBookings counts confirmed or completed bookings of a
// campsite whose half-open [start, end) range overlaps the given one.
// Cancelled bookings do not hold their range.
func (db *DB) CountOverlappingBookings(ctx context.Context, campsiteID int64, start, end time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM bookings
              WHERE campsite_id = ? AND status IN (?, ?)
              AND date(start_date) < date(?) AND date(end_date) > date(?)`
	var count int
	err := db.QueryRowContext(ctx, query, campsiteID,
		models.StatusConfirmed, models.StatusCompleted,
		end.Format(models.DateFormat), start.Format(models.DateFormat)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count overlapping bookings: %w", err)
	}
	return count, nil
}

// CreateConfirmedBooking persists a paid booking for a checkout session.
// The idempotency lookup, the overlap check and the insert run in one
// transaction, so concurrent confirms of the same session or of
// overlapping ranges cannot both create a row. Returns false when a
// booking for the session already existed; the existing row is copied
// into the argument so every caller sees the same booking.
func (db *DB) CreateConfirmedBooking(ctx context.Context, booking *models.Booking) (bool, error) {
	if booking.PaymentSessionID == nil || *booking.PaymentSessionID == "" {
		return false, errors.New("payment session id is required")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// 1. Idempotency: the booking already persisted for this session wins.
	existing, err := scanBooking(tx.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE payment_session_id = ?`,
		*booking.PaymentSessionID))
	if err == nil {
		*booking = *existing
		return false, tx.Commit()
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("failed to check session in tx: %w", err)
	}

	// 2. Overlap check inside the transaction. Only campsite bookings
	// hold a date range.
	if booking.CampsiteID != nil {
		var overlapping int
		queryCount := `SELECT COUNT(*) FROM bookings
                       WHERE campsite_id = ? AND status IN (?, ?)
                       AND date(start_date) < date(?) AND date(end_date) > date(?)`
		err = tx.QueryRowContext(ctx, queryCount, *booking.CampsiteID,
			models.StatusConfirmed, models.StatusCompleted,
			booking.EndDate.Format(models.DateFormat),
			booking.StartDate.Format(models.DateFormat)).Scan(&overlapping)
		if err != nil {
			return false, fmt.Errorf("failed to check overlap in tx: %w", err)
		}
		if overlapping > 0 {
			return false, ErrDateConflict
		}
	}

	// 3. Insert the booking; the reserved range becomes visible with it.
	queryInsert := `INSERT INTO bookings (
                user_id, campground_id, campsite_id, start_date, end_date,
                total_days, total_price_cents, guest_count, payment_session_id,
                paid, status, created_at, updated_at, version
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := tx.ExecContext(ctx, queryInsert,
		booking.UserID,
		booking.CampgroundID,
		booking.CampsiteID,
		booking.StartDate.Format(models.DateFormat),
		booking.EndDate.Format(models.DateFormat),
		booking.TotalDays,
		booking.TotalPriceCents,
		booking.GuestCount,
		*booking.PaymentSessionID,
		booking.Paid,
		booking.Status,
		now,
		now,
		1,
	)
	if err != nil {
		if isUniqueConstraint(err) {
			// Lost a cross-process race on the session id; surface the winner.
			_ = tx.Rollback()
			winner, gerr := db.GetBookingByPaymentSession(ctx, *booking.PaymentSessionID)
			if gerr != nil {
				return false, fmt.Errorf("failed to load booking after unique conflict: %w", gerr)
			}
			*booking = *winner
			return false, nil
		}
		return false, fmt.Errorf("failed to insert booking in tx: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return false, fmt.Errorf("failed to get last insert id in tx: %w", err)
	}
	booking.ID = id
	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Version = 1

	return true, tx.Commit()
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	booking, err := scanBooking(db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

func (db *DB) GetBookingByPaymentSession(ctx context.Context, sessionID string) (*models.Booking, error) {
	booking, err := scanBooking(db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE payment_session_id = ?`, sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking by session: %w", err)
	}
	return booking, nil
}

func (db *DB) UpdateBookingStatusWithVersion(ctx context.Context, id, fromVersion int64, status string) error {
	query := `UPDATE bookings SET status = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`
	result, err := db.ExecContext(ctx, query, status, time.Now(), id, fromVersion)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}
	return nil
}

func (db *DB) ListUserBookings(ctx context.Context, userID int64) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE user_id = ? ORDER BY date(start_date) DESC`
	return db.queryBookings(ctx, query, userID)
}

func (db *DB) ListCampgroundBookings(ctx context.Context, campgroundID int64, start, end time.Time) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE campground_id = ? AND date(start_date) < date(?) AND date(end_date) > date(?)
              ORDER BY date(start_date) ASC`
	return db.queryBookings(ctx, query, campgroundID,
		end.Format(models.DateFormat), start.Format(models.DateFormat))
}

func (db *DB) ListBookingsInRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE date(start_date) < date(?) AND date(end_date) > date(?)
              ORDER BY date(start_date) ASC`
	return db.queryBookings(ctx, query,
		end.Format(models.DateFormat), start.Format(models.DateFormat))
}

func (db *DB) queryBookings(ctx context.Context, query string, args ...any) ([]*models.Booking, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
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
	return bookings, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var (
		b          models.Booking
		campsiteID sql.NullInt64
		sessionID  sql.NullString
		startStr   string
		endStr     string
	)
	err := row.Scan(
		&b.ID, &b.UserID, &b.CampgroundID, &campsiteID, &startStr, &endStr,
		&b.TotalDays, &b.TotalPriceCents, &b.GuestCount, &sessionID, &b.Paid,
		&b.Status, &b.Version, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if campsiteID.Valid {
		b.CampsiteID = &campsiteID.Int64
	}
	if sessionID.Valid {
		b.PaymentSessionID = &sessionID.String
	}

	b.StartDate, err = time.Parse(models.DateFormat, startStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse start date %s: %w", startStr, err)
	}
	b.EndDate, err = time.Parse(models.DateFormat, endStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse end date %s: %w", endStr, err)
	}

	return &b, nil
}

func isUniqueConstraint(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
