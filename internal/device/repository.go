package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for device persistence operations.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// GetByID retrieves a device by its unique identifier.
	// Returns ErrDeviceNotFound if the device does not exist.
	GetByID(ctx context.Context, id string) (*Device, error)

	// List retrieves all devices.
	List(ctx context.Context) ([]Device, error)

	// ListByArea retrieves all devices in a specific area.
	ListByArea(ctx context.Context, areaID string) ([]Device, error)

	// ListByContainer retrieves all devices in a specific container.
	ListByContainer(ctx context.Context, containerID string) ([]Device, error)

	// Create inserts a new device.
	// Returns ErrDeviceExists if a device with the same ID already exists.
	Create(ctx context.Context, device *Device) error

	// Update modifies an existing device.
	// Returns ErrDeviceNotFound if the device does not exist.
	Update(ctx context.Context, device *Device) error

	// Delete removes a device by ID.
	// Returns ErrDeviceNotFound if the device does not exist.
	Delete(ctx context.Context, id string) error

	// UpdateStatus mirrors a live status change into the structured store,
	// stamping last_activated_at or last_deactivated_at accordingly.
	UpdateStatus(ctx context.Context, id string, status Status, at time.Time) error

	// UpdateControlMethod changes how the device is driven.
	UpdateControlMethod(ctx context.Context, id string, method ControlMethod) error

	// SetScheduler binds a scheduler node ID to the device.
	SetScheduler(ctx context.Context, id string, schedulerID string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const deviceColumns = `id, container_id, area_id, name, type, control_method,
		status, scheduler_id, last_activated_at, last_deactivated_at,
		created_at, updated_at`

// GetByID retrieves a device by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM output_devices WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	d, err := scanDeviceRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device by id: %w", err)
	}
	return d, nil
}

// List retrieves all devices.
func (r *SQLiteRepository) List(ctx context.Context) ([]Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM output_devices ORDER BY name`
	return r.queryDevices(ctx, query)
}

// ListByArea retrieves all devices in a specific area.
func (r *SQLiteRepository) ListByArea(ctx context.Context, areaID string) ([]Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM output_devices WHERE area_id = ? ORDER BY name`
	return r.queryDevices(ctx, query, areaID)
}

// ListByContainer retrieves all devices in a specific container.
func (r *SQLiteRepository) ListByContainer(ctx context.Context, containerID string) ([]Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM output_devices WHERE container_id = ? ORDER BY name`
	return r.queryDevices(ctx, query, containerID)
}

// Create inserts a new device.
func (r *SQLiteRepository) Create(ctx context.Context, d *Device) error {
	if err := d.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now

	query := `
		INSERT INTO output_devices (` + deviceColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		d.ID,
		d.ContainerID,
		nullableString(d.AreaID),
		d.Name,
		string(d.Type),
		string(d.ControlMethod),
		string(d.Status),
		nullableString(d.SchedulerID),
		nullableTime(d.LastActivatedAt),
		nullableTime(d.LastDeactivatedAt),
		d.CreatedAt.Format(time.RFC3339),
		d.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDeviceExists
		}
		return fmt.Errorf("inserting device: %w", err)
	}

	return nil
}

// Update modifies an existing device.
func (r *SQLiteRepository) Update(ctx context.Context, d *Device) error {
	if err := d.Validate(); err != nil {
		return err
	}

	d.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE output_devices SET
			container_id = ?, area_id = ?, name = ?, type = ?,
			control_method = ?, status = ?, scheduler_id = ?,
			last_activated_at = ?, last_deactivated_at = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		d.ContainerID,
		nullableString(d.AreaID),
		d.Name,
		string(d.Type),
		string(d.ControlMethod),
		string(d.Status),
		nullableString(d.SchedulerID),
		nullableTime(d.LastActivatedAt),
		nullableTime(d.LastDeactivatedAt),
		d.UpdatedAt.Format(time.RFC3339),
		d.ID,
	)
	if err != nil {
		return fmt.Errorf("updating device: %w", err)
	}

	return requireRowAffected(result)
}

// Delete removes a device by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM output_devices WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}
	return requireRowAffected(result)
}

// UpdateStatus mirrors a live status change into the structured store.
// Activation stamps last_activated_at; deactivation stamps last_deactivated_at.
func (r *SQLiteRepository) UpdateStatus(ctx context.Context, id string, status Status, at time.Time) error {
	if !status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	column := "last_deactivated_at"
	if status == StatusActive {
		column = "last_activated_at"
	}

	query := fmt.Sprintf(`
		UPDATE output_devices
		SET status = ?, %s = ?, updated_at = ?
		WHERE id = ?`, column)

	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, query,
		string(status),
		at.UTC().Format(time.RFC3339),
		now.Format(time.RFC3339),
		id,
	)
	if err != nil {
		return fmt.Errorf("updating device status: %w", err)
	}
	return requireRowAffected(result)
}

// UpdateControlMethod changes how the device is driven.
func (r *SQLiteRepository) UpdateControlMethod(ctx context.Context, id string, method ControlMethod) error {
	if !method.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidControlMethod, method)
	}

	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, `
		UPDATE output_devices
		SET control_method = ?, updated_at = ?
		WHERE id = ?`,
		string(method),
		now.Format(time.RFC3339),
		id,
	)
	if err != nil {
		return fmt.Errorf("updating control method: %w", err)
	}
	return requireRowAffected(result)
}

// SetScheduler binds a scheduler node ID to the device.
func (r *SQLiteRepository) SetScheduler(ctx context.Context, id string, schedulerID string) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, `
		UPDATE output_devices
		SET scheduler_id = ?, updated_at = ?
		WHERE id = ?`,
		schedulerID,
		now.Format(time.RFC3339),
		id,
	)
	if err != nil {
		return fmt.Errorf("setting scheduler: %w", err)
	}
	return requireRowAffected(result)
}

// queryDevices executes a query and returns a slice of devices.
func (r *SQLiteRepository) queryDevices(ctx context.Context, query string, args ...any) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		d, err := scanDeviceRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		devices = append(devices, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}

	return devices, nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDeviceRow scans a row or rows result into a Device.
func scanDeviceRow(scanner rowScanner) (*Device, error) {
	var d Device
	var areaID, schedulerID sql.NullString
	var lastActivatedAt, lastDeactivatedAt sql.NullString
	var deviceType, controlMethod, status string
	var createdAt, updatedAt string

	err := scanner.Scan(
		&d.ID,
		&d.ContainerID,
		&areaID,
		&d.Name,
		&deviceType,
		&controlMethod,
		&status,
		&schedulerID,
		&lastActivatedAt,
		&lastDeactivatedAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.Type = Type(deviceType)
	d.ControlMethod = ControlMethod(controlMethod)
	d.Status = Status(status)

	if areaID.Valid {
		d.AreaID = &areaID.String
	}
	if schedulerID.Valid {
		d.SchedulerID = &schedulerID.String
	}
	if lastActivatedAt.Valid {
		if t, err := time.Parse(time.RFC3339, lastActivatedAt.String); err == nil {
			d.LastActivatedAt = &t
		}
	}
	if lastDeactivatedAt.Valid {
		if t, err := time.Parse(time.RFC3339, lastDeactivatedAt.String); err == nil {
			d.LastDeactivatedAt = &t
		}
	}

	var parseErr error
	d.CreatedAt, parseErr = time.Parse(time.RFC3339, createdAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}
	d.UpdatedAt, parseErr = time.Parse(time.RFC3339, updatedAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", parseErr)
	}

	return &d, nil
}

// requireRowAffected converts a zero-row update into ErrDeviceNotFound.
func requireRowAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// nullableString converts a *string to sql.NullString.
func nullableString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// nullableTime converts a *time.Time to sql.NullString in RFC3339.
func nullableTime(t *time.Time) sql.NullString {
	if t == nil || t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

// isUniqueConstraintError checks if an error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
