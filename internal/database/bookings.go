package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"tablebook/internal/domain"
	"tablebook/internal/models"
)

const bookingColumns = `id, restaurant_id, restaurant_name, user_id, user_name, user_email, user_phone,
	date, time, party_size, status, confirmation_code, table_id, table_number,
	special_requests, idempotency_key, created_at, updated_at, version`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var b models.Booking
	var idempotencyKey sql.NullString
	err := row.Scan(
		&b.ID, &b.RestaurantID, &b.RestaurantName, &b.UserID, &b.UserName, &b.UserEmail, &b.UserPhone,
		&b.Date, &b.Time, &b.PartySize, &b.Status, &b.ConfirmationCode, &b.TableID, &b.TableNumber,
		&b.SpecialRequests, &idempotencyKey, &b.CreatedAt, &b.UpdatedAt, &b.Version,
	)
	if err != nil {
		return nil, err
	}
	b.IdempotencyKey = idempotencyKey.String
	return &b, nil
}

func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	query := `INSERT INTO bookings (` + bookingColumns + `)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var idempotencyKey interface{}
	if booking.IdempotencyKey != "" {
		idempotencyKey = booking.IdempotencyKey
	}
	if booking.Version == 0 {
		booking.Version = 1
	}

	_, err := db.ExecContext(ctx, query,
		booking.ID,
		booking.RestaurantID,
		booking.RestaurantName,
		booking.UserID,
		booking.UserName,
		booking.UserEmail,
		booking.UserPhone,
		booking.Date,
		booking.Time,
		booking.PartySize,
		booking.Status,
		booking.ConfirmationCode,
		booking.TableID,
		booking.TableNumber,
		booking.SpecialRequests,
		idempotencyKey,
		booking.CreatedAt.UTC(),
		booking.UpdatedAt.UTC(),
		booking.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", classify(err))
	}
	return nil
}

func (db *DB) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	b, err := scanBooking(db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get booking %s: %w", id, classify(err))
	}
	return b, nil
}

func (db *DB) GetBookingByIdempotencyKey(ctx context.Context, key string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE idempotency_key = ?`
	b, err := scanBooking(db.QueryRowContext(ctx, query, key))
	if err != nil {
		return nil, fmt.Errorf("failed to get booking by idempotency key: %w", classify(err))
	}
	return b, nil
}

// ListActiveBookings returns the bookings of a restaurant day that occupy capacity.
func (db *DB) ListActiveBookings(ctx context.Context, restaurantID, date string) ([]*models.Booking, error) {
	return db.ListBookings(ctx, models.BookingFilter{
		RestaurantID: restaurantID,
		Date:         date,
		StatusIn:     models.ActiveStatuses,
	})
}

// ListBookings returns bookings matching filter, newest created first.
func (db *DB) ListBookings(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.RestaurantID != "" {
		where = append(where, "restaurant_id = ?")
		args = append(args, filter.RestaurantID)
	}
	if filter.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Date != "" {
		where = append(where, "date = ?")
		args = append(args, filter.Date)
	}
	if filter.DateFrom != "" {
		where = append(where, "date >= ?")
		args = append(args, filter.DateFrom)
	}
	if filter.DateTo != "" {
		where = append(where, "date <= ?")
		args = append(args, filter.DateTo)
	}
	if len(filter.StatusIn) > 0 {
		placeholders := make([]string, len(filter.StatusIn))
		for i, s := range filter.StatusIn {
			placeholders[i] = "?"
			args = append(args, s)
		}
		where = append(where, "status IN ("+strings.Join(placeholders, ", ")+")")
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", classify(err))
	}
	defer rows.Close()

	bookings := []*models.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookings: %w", classify(err))
	}
	return bookings, nil
}

func (db *DB) UpdateBookingStatusWithVersion(ctx context.Context, id string, version int64, status models.BookingStatus, updatedAt time.Time) error {
	query := `UPDATE bookings SET status = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`
	result, err := db.ExecContext(ctx, query, status, updatedAt.UTC(), id, version)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", classify(err))
	}
	return db.checkVersionedWrite(ctx, result, id)
}

func (db *DB) AssignTableWithVersion(ctx context.Context, id string, version int64, tableID, tableName string, updatedAt time.Time) error {
	query := `UPDATE bookings SET table_id = ?, table_number = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`
	result, err := db.ExecContext(ctx, query, tableID, tableName, updatedAt.UTC(), id, version)
	if err != nil {
		return fmt.Errorf("failed to assign table: %w", classify(err))
	}
	return db.checkVersionedWrite(ctx, result, id)
}

// checkVersionedWrite tells a stale version apart from a missing row.
func (db *DB) checkVersionedWrite(ctx context.Context, result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows > 0 {
		return nil
	}
	var exists int
	err = db.QueryRowContext(ctx, `SELECT 1 FROM bookings WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("booking %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check booking %s: %w", id, classify(err))
	}
	return fmt.Errorf("booking %s: %w", id, domain.ErrConcurrentModification)
}
