package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"villaalcielo/internal/models"
)

func (db *DB) CreateCabin(ctx context.Context, cabin *models.Cabin) error {
	query := `INSERT INTO cabins (name, weekday_price, weekend_price, max_guests, is_active, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	if cabin.MaxGuests <= 0 {
		cabin.MaxGuests = models.DefaultMaxGuests
	}
	result, err := db.ExecContext(ctx, query,
		cabin.Name,
		cabin.WeekdayPrice,
		cabin.WeekendPrice,
		cabin.MaxGuests,
		cabin.IsActive,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create cabin: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	cabin.ID = id
	cabin.CreatedAt = now
	cabin.UpdatedAt = now
	return nil
}

// UpsertCabin inserts the cabin or refreshes its prices and flags by name.
// Cabins are declared in config; this keeps the table in sync on startup.
func (db *DB) UpsertCabin(ctx context.Context, cabin *models.Cabin) error {
	query := `INSERT INTO cabins (name, weekday_price, weekend_price, max_guests, is_active, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)
              ON CONFLICT(name) DO UPDATE SET
                  weekday_price = excluded.weekday_price,
                  weekend_price = excluded.weekend_price,
                  max_guests = excluded.max_guests,
                  is_active = excluded.is_active,
                  updated_at = excluded.updated_at`
	now := time.Now()
	if cabin.MaxGuests <= 0 {
		cabin.MaxGuests = models.DefaultMaxGuests
	}
	if _, err := db.ExecContext(ctx, query,
		cabin.Name, cabin.WeekdayPrice, cabin.WeekendPrice, cabin.MaxGuests, cabin.IsActive, now, now,
	); err != nil {
		return fmt.Errorf("failed to upsert cabin: %w", err)
	}

	row := db.QueryRowContext(ctx, `SELECT id, created_at FROM cabins WHERE name = ?`, cabin.Name)
	if err := row.Scan(&cabin.ID, &cabin.CreatedAt); err != nil {
		return fmt.Errorf("failed to read back cabin: %w", err)
	}
	cabin.UpdatedAt = now
	return nil
}

func (db *DB) GetCabin(ctx context.Context, id int64) (*models.Cabin, error) {
	query := `SELECT id, name, weekday_price, weekend_price, max_guests, is_active, created_at, updated_at
              FROM cabins WHERE id = ?`

	var cabin models.Cabin
	err := db.QueryRowContext(ctx, query, id).Scan(
		&cabin.ID, &cabin.Name, &cabin.WeekdayPrice, &cabin.WeekendPrice,
		&cabin.MaxGuests, &cabin.IsActive, &cabin.CreatedAt, &cabin.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cabin: %w", err)
	}
	return &cabin, nil
}

func (db *DB) GetCabinByName(ctx context.Context, name string) (*models.Cabin, error) {
	query := `SELECT id, name, weekday_price, weekend_price, max_guests, is_active, created_at, updated_at
              FROM cabins WHERE name = ?`

	var cabin models.Cabin
	err := db.QueryRowContext(ctx, query, name).Scan(
		&cabin.ID, &cabin.Name, &cabin.WeekdayPrice, &cabin.WeekendPrice,
		&cabin.MaxGuests, &cabin.IsActive, &cabin.CreatedAt, &cabin.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cabin by name: %w", err)
	}
	return &cabin, nil
}

func (db *DB) GetActiveCabins(ctx context.Context) ([]*models.Cabin, error) {
	query := `SELECT id, name, weekday_price, weekend_price, max_guests, is_active, created_at, updated_at
              FROM cabins WHERE is_active = 1 ORDER BY id`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get active cabins: %w", err)
	}
	defer rows.Close()

	var cabins []*models.Cabin
	for rows.Next() {
		c := &models.Cabin{}
		if err := rows.Scan(
			&c.ID, &c.Name, &c.WeekdayPrice, &c.WeekendPrice,
			&c.MaxGuests, &c.IsActive, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan cabin: %w", err)
		}
		cabins = append(cabins, c)
	}
	return cabins, rows.Err()
}

func (db *DB) DeactivateCabin(ctx context.Context, id int64) error {
	query := `UPDATE cabins SET is_active = 0, updated_at = ? WHERE id = ?`
	_, err := db.ExecContext(ctx, query, time.Now(), id)
	return err
}
