package schedule

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Repository defines the interface for schedule persistence operations.
type Repository interface {
	// GetByID retrieves a schedule by its scheduler node ID.
	// Returns ErrScheduleNotFound if it does not exist.
	GetByID(ctx context.Context, id string) (*Schedule, error)

	// GetByDevice retrieves the schedule bound to a device.
	// Returns ErrScheduleNotFound if the device has none.
	GetByDevice(ctx context.Context, deviceID string) (*Schedule, error)

	// Upsert writes a schedule record, inserting or replacing by ID.
	Upsert(ctx context.Context, s *Schedule) error

	// UpdateTimes rewrites the window of an existing schedule.
	// Returns ErrScheduleNotFound if it does not exist.
	UpdateTimes(ctx context.Context, id string, w Window) error

	// Delete removes a schedule by ID.
	Delete(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const scheduleColumns = `id, device_id, start_time, end_time, date, created_at, updated_at`

// GetByID retrieves a schedule by its scheduler node ID.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE id = ?`
	return r.getOne(ctx, query, id)
}

// GetByDevice retrieves the schedule bound to a device.
func (r *SQLiteRepository) GetByDevice(ctx context.Context, deviceID string) (*Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE device_id = ?`
	return r.getOne(ctx, query, deviceID)
}

func (r *SQLiteRepository) getOne(ctx context.Context, query string, arg any) (*Schedule, error) {
	var s Schedule
	var createdAt, updatedAt string

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&s.ID,
		&s.DeviceID,
		&s.StartTime,
		&s.EndTime,
		&s.Date,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrScheduleNotFound
		}
		return nil, fmt.Errorf("querying schedule: %w", err)
	}

	s.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	s.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &s, nil
}

// Upsert writes a schedule record, inserting or replacing by ID.
func (r *SQLiteRepository) Upsert(ctx context.Context, s *Schedule) error {
	if err := s.Window().Validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	query := `
		INSERT INTO schedules (` + scheduleColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			device_id = excluded.device_id,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			date = excluded.date,
			updated_at = excluded.updated_at`

	_, err := r.db.ExecContext(ctx, query,
		s.ID,
		s.DeviceID,
		s.StartTime,
		s.EndTime,
		s.Date,
		s.CreatedAt.Format(time.RFC3339),
		s.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting schedule: %w", err)
	}
	return nil
}

// UpdateTimes rewrites the window of an existing schedule.
func (r *SQLiteRepository) UpdateTimes(ctx context.Context, id string, w Window) error {
	if err := w.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, `
		UPDATE schedules
		SET start_time = ?, end_time = ?, date = ?, updated_at = ?
		WHERE id = ?`,
		w.StartTime,
		w.EndTime,
		w.Date,
		now.Format(time.RFC3339),
		id,
	)
	if err != nil {
		return fmt.Errorf("updating schedule times: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

// Delete removes a schedule by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM schedules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting schedule: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrScheduleNotFound
	}
	return nil
}
