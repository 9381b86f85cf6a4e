package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"villaalcielo/internal/models"
)

const reservationColumns = `id, cabin_id, guest_name, guest_email, check_in, check_out,
	guests, total_price, includes_asado, status, frozen_until, confirmation_code,
	payment_instructions, calendar_event_id, created_at, updated_at`

func scanReservation(row interface{ Scan(...any) error }) (*models.Reservation, error) {
	r := &models.Reservation{}
	var checkIn, checkOut string
	err := row.Scan(
		&r.ID, &r.CabinID, &r.GuestName, &r.GuestEmail, &checkIn, &checkOut,
		&r.Guests, &r.TotalPrice, &r.IncludesAsado, &r.Status, &r.FrozenUntil,
		&r.ConfirmationCode, &r.PaymentInstructions, &r.CalendarEventID,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if r.CheckIn, err = time.Parse(models.DateLayout, checkIn); err != nil {
		return nil, fmt.Errorf("failed to parse check_in %s: %w", checkIn, err)
	}
	if r.CheckOut, err = time.Parse(models.DateLayout, checkOut); err != nil {
		return nil, fmt.Errorf("failed to parse check_out %s: %w", checkOut, err)
	}
	return r, nil
}

func (db *DB) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
	r, err := scanReservation(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return r, nil
}

// GetReservationByCode looks a reservation up by its confirmation code,
// case-insensitively.
func (db *DB) GetReservationByCode(ctx context.Context, code string) (*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE confirmation_code = ? COLLATE NOCASE`
	r, err := scanReservation(db.QueryRowContext(ctx, query, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation by code: %w", err)
	}
	return r, nil
}

// CodeExists reports whether a confirmation code is already taken.
func (db *DB) CodeExists(ctx context.Context, code string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations WHERE confirmation_code = ? COLLATE NOCASE`, code,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check code: %w", err)
	}
	return count > 0, nil
}

// ListActiveReservations returns pending and confirmed reservations of the
// cabin whose ranges overlap rng. Two ranges overlap iff
// existing.check_in < rng.check_out AND existing.check_out > rng.check_in;
// the strict inequalities make same-day turnover possible.
func (db *DB) ListActiveReservations(ctx context.Context, cabinID int64, rng models.DateRange) ([]*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations
              WHERE cabin_id = ? AND status IN (?, ?) AND check_in < ? AND check_out > ?
              ORDER BY check_in`

	rows, err := db.QueryContext(ctx, query,
		cabinID, models.StatusPending, models.StatusConfirmed,
		rng.CheckOut.Format(models.DateLayout), rng.CheckIn.Format(models.DateLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list active reservations: %w", err)
	}
	defer rows.Close()

	return collectReservations(rows)
}

// CreateReservationWithLock inserts the reservation after re-checking the
// overlap inside the same transaction. This is the write-path atomicity the
// lifecycle relies on: with two racing overlapping creations, the second
// transaction sees the first row and returns ErrNotAvailable.
func (db *DB) CreateReservationWithLock(ctx context.Context, r *models.Reservation) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var blocking int
	queryCount := `SELECT COUNT(*) FROM reservations
                   WHERE cabin_id = ? AND status IN (?, ?) AND check_in < ? AND check_out > ?`
	err = tx.QueryRowContext(ctx, queryCount,
		r.CabinID, models.StatusPending, models.StatusConfirmed,
		r.CheckOut.Format(models.DateLayout), r.CheckIn.Format(models.DateLayout),
	).Scan(&blocking)
	if err != nil {
		return fmt.Errorf("failed to check availability in tx: %w", err)
	}
	if blocking > 0 {
		return ErrNotAvailable
	}

	queryInsert := `INSERT INTO reservations (
				cabin_id, guest_name, guest_email, check_in, check_out, guests,
				total_price, includes_asado, status, frozen_until, confirmation_code,
				payment_instructions, calendar_event_id, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := tx.ExecContext(ctx, queryInsert,
		r.CabinID,
		r.GuestName,
		r.GuestEmail,
		r.CheckIn.Format(models.DateLayout),
		r.CheckOut.Format(models.DateLayout),
		r.Guests,
		r.TotalPrice,
		r.IncludesAsado,
		r.Status,
		r.FrozenUntil.UTC(),
		r.ConfirmationCode,
		r.PaymentInstructions,
		r.CalendarEventID,
		now,
		now,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: reservations.confirmation_code") {
			return ErrDuplicateCode
		}
		return fmt.Errorf("failed to insert reservation in tx: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id in tx: %w", err)
	}
	r.ID = id
	r.CreatedAt = now
	r.UpdatedAt = now

	return tx.Commit()
}

// UpdateReservationStatus moves the reservation to toStatus only when its
// current status is one of fromStatuses. The returned bool is false when the
// guard did not match, which callers use both for illegal-transition errors
// and for the sweeper's silent no-op on the confirm/expire race.
func (db *DB) UpdateReservationStatus(ctx context.Context, id int64, fromStatuses []string, toStatus string) (bool, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(fromStatuses)), ",")
	query := `UPDATE reservations SET status = ?, updated_at = ? WHERE id = ? AND status IN (` + placeholders + `)`

	args := make([]any, 0, len(fromStatuses)+3)
	args = append(args, toStatus, time.Now(), id)
	for _, s := range fromStatuses {
		args = append(args, s)
	}

	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update reservation status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return rows > 0, nil
}

func (db *DB) UpdateReservationCalendarEvent(ctx context.Context, id int64, eventID string) error {
	query := `UPDATE reservations SET calendar_event_id = ?, updated_at = ? WHERE id = ?`
	_, err := db.ExecContext(ctx, query, eventID, time.Now(), id)
	return err
}

// ListPendingExpired returns pending reservations whose freeze window has
// elapsed as of now.
func (db *DB) ListPendingExpired(ctx context.Context, now time.Time) ([]*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations
              WHERE status = ? AND frozen_until <= ? ORDER BY frozen_until`

	rows, err := db.QueryContext(ctx, query, models.StatusPending, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to list expired reservations: %w", err)
	}
	defer rows.Close()

	return collectReservations(rows)
}

// GetReservationsByDateRange returns every reservation touching the period,
// any status, ordered by check-in. Used by exports.
func (db *DB) GetReservationsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations
              WHERE check_in <= ? AND check_out >= ? ORDER BY check_in, created_at`

	rows, err := db.QueryContext(ctx, query,
		end.Format(models.DateLayout), start.Format(models.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to get reservations by date range: %w", err)
	}
	defer rows.Close()

	return collectReservations(rows)
}

// DeleteReservation removes the row outright. Administrative use only;
// lifecycle transitions never delete.
func (db *DB) DeleteReservation(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete reservation: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func collectReservations(rows *sql.Rows) ([]*models.Reservation, error) {
	var reservations []*models.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		reservations = append(reservations, r)
	}
	return reservations, rows.Err()
}
