package sensor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for sensor persistence operations.
type Repository interface {
	// GetByID retrieves a sensor by ID.
	// Returns ErrSensorNotFound if it does not exist.
	GetByID(ctx context.Context, id string) (*Sensor, error)

	// ListByArea retrieves all sensors in a specific area.
	ListByArea(ctx context.Context, areaID string) ([]Sensor, error)

	// ListByContainer retrieves all sensors in a container.
	ListByContainer(ctx context.Context, containerID string) ([]Sensor, error)

	// Create inserts a new sensor.
	Create(ctx context.Context, s *Sensor) error

	// Delete removes a sensor by ID.
	Delete(ctx context.Context, id string) error

	// GetThreshold retrieves the alert threshold for a sensor.
	// Returns ErrThresholdNotFound if none is configured.
	GetThreshold(ctx context.Context, sensorID string) (*Threshold, error)

	// SetThreshold writes the alert threshold for a sensor,
	// replacing any existing one.
	SetThreshold(ctx context.Context, t *Threshold) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const sensorColumns = `id, container_id, area_id, name, type, unit, created_at, updated_at`

// GetByID retrieves a sensor by ID.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Sensor, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sensorColumns+` FROM sensors WHERE id = ?`, id)

	s, err := scanSensor(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSensorNotFound
		}
		return nil, fmt.Errorf("querying sensor by id: %w", err)
	}
	return s, nil
}

// ListByArea retrieves all sensors in a specific area.
func (r *SQLiteRepository) ListByArea(ctx context.Context, areaID string) ([]Sensor, error) {
	return r.querySensors(ctx,
		`SELECT `+sensorColumns+` FROM sensors WHERE area_id = ? ORDER BY name`, areaID)
}

// ListByContainer retrieves all sensors in a container.
func (r *SQLiteRepository) ListByContainer(ctx context.Context, containerID string) ([]Sensor, error) {
	return r.querySensors(ctx,
		`SELECT `+sensorColumns+` FROM sensors WHERE container_id = ? ORDER BY name`, containerID)
}

// Create inserts a new sensor.
func (r *SQLiteRepository) Create(ctx context.Context, s *Sensor) error {
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	var areaID sql.NullString
	if s.AreaID != nil && *s.AreaID != "" {
		areaID = sql.NullString{String: *s.AreaID, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sensors (`+sensorColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID,
		s.ContainerID,
		areaID,
		s.Name,
		string(s.Type),
		s.Unit,
		s.CreatedAt.Format(time.RFC3339),
		s.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrSensorExists
		}
		return fmt.Errorf("inserting sensor: %w", err)
	}
	return nil
}

// Delete removes a sensor by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM sensors WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting sensor: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrSensorNotFound
	}
	return nil
}

// GetThreshold retrieves the alert threshold for a sensor.
func (r *SQLiteRepository) GetThreshold(ctx context.Context, sensorID string) (*Threshold, error) {
	var t Threshold
	var createdAt, updatedAt string

	err := r.db.QueryRowContext(ctx, `
		SELECT id, sensor_id, min_value, max_value, created_at, updated_at
		FROM thresholds WHERE sensor_id = ?`, sensorID).Scan(
		&t.ID,
		&t.SensorID,
		&t.Min,
		&t.Max,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrThresholdNotFound
		}
		return nil, fmt.Errorf("querying threshold: %w", err)
	}

	t.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	t.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &t, nil
}

// SetThreshold writes the alert threshold for a sensor.
func (r *SQLiteRepository) SetThreshold(ctx context.Context, t *Threshold) error {
	if t.Min >= t.Max {
		return ErrInvalidThreshold
	}

	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO thresholds (id, sensor_id, min_value, max_value, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(sensor_id) DO UPDATE SET
			min_value = excluded.min_value,
			max_value = excluded.max_value,
			updated_at = excluded.updated_at`,
		t.ID,
		t.SensorID,
		t.Min,
		t.Max,
		t.CreatedAt.Format(time.RFC3339),
		t.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting threshold: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) querySensors(ctx context.Context, query string, args ...any) ([]Sensor, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sensors: %w", err)
	}
	defer rows.Close()

	var sensors []Sensor
	for rows.Next() {
		s, err := scanSensor(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning sensor: %w", err)
		}
		sensors = append(sensors, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sensors: %w", err)
	}
	return sensors, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSensor(scanner rowScanner) (*Sensor, error) {
	var s Sensor
	var areaID sql.NullString
	var sensorType string
	var createdAt, updatedAt string

	err := scanner.Scan(
		&s.ID,
		&s.ContainerID,
		&areaID,
		&s.Name,
		&sensorType,
		&s.Unit,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.Type = Type(sensorType)
	if areaID.Valid {
		s.AreaID = &areaID.String
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

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
