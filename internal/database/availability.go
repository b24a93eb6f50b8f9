package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tablebook/internal/models"
)

func (db *DB) GetAvailability(ctx context.Context, restaurantID string) (*models.RestaurantAvailability, error) {
	query := `SELECT restaurant_id, management_mode, schedule, special_dates, tables,
	                 default_capacity_per_slot, advance_booking_days, table_turning_time, updated_at
              FROM restaurant_availability WHERE restaurant_id = ?`

	var (
		a                               models.RestaurantAvailability
		schedule, specialDates, tables string
	)
	err := db.QueryRowContext(ctx, query, restaurantID).Scan(
		&a.RestaurantID, &a.ManagementMode, &schedule, &specialDates, &tables,
		&a.DefaultCapacityPerSlot, &a.AdvanceBookingDays, &a.TableTurningTime, &a.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get availability for %s: %w", restaurantID, classify(err))
	}

	if err := json.Unmarshal([]byte(schedule), &a.Schedule); err != nil {
		return nil, fmt.Errorf("failed to decode schedule: %w", err)
	}
	if err := json.Unmarshal([]byte(specialDates), &a.SpecialDates); err != nil {
		return nil, fmt.Errorf("failed to decode special dates: %w", err)
	}
	if err := json.Unmarshal([]byte(tables), &a.Tables); err != nil {
		return nil, fmt.Errorf("failed to decode tables: %w", err)
	}
	return &a, nil
}

// SaveAvailability replaces the restaurant's configuration.
func (db *DB) SaveAvailability(ctx context.Context, a *models.RestaurantAvailability) error {
	schedule, err := json.Marshal(orEmptyDays(a.Schedule))
	if err != nil {
		return fmt.Errorf("failed to encode schedule: %w", err)
	}
	specialDates, err := json.Marshal(orEmptyDays(a.SpecialDates))
	if err != nil {
		return fmt.Errorf("failed to encode special dates: %w", err)
	}
	tables := a.Tables
	if tables == nil {
		tables = []models.Table{}
	}
	tablesJSON, err := json.Marshal(tables)
	if err != nil {
		return fmt.Errorf("failed to encode tables: %w", err)
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = time.Now()
	}

	query := `INSERT INTO restaurant_availability (
                restaurant_id, management_mode, schedule, special_dates, tables,
                default_capacity_per_slot, advance_booking_days, table_turning_time, updated_at
              ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
              ON CONFLICT(restaurant_id) DO UPDATE SET
                management_mode = excluded.management_mode,
                schedule = excluded.schedule,
                special_dates = excluded.special_dates,
                tables = excluded.tables,
                default_capacity_per_slot = excluded.default_capacity_per_slot,
                advance_booking_days = excluded.advance_booking_days,
                table_turning_time = excluded.table_turning_time,
                updated_at = excluded.updated_at`

	_, err = db.ExecContext(ctx, query,
		a.RestaurantID,
		a.ManagementMode,
		string(schedule),
		string(specialDates),
		string(tablesJSON),
		a.DefaultCapacityPerSlot,
		a.AdvanceBookingDays,
		a.TableTurningTime,
		a.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save availability: %w", classify(err))
	}
	return nil
}

func orEmptyDays(m map[string]models.DaySchedule) map[string]models.DaySchedule {
	if m == nil {
		return map[string]models.DaySchedule{}
	}
	return m
}
