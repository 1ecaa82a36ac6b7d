// Package area manages growing areas within a cabinet.
//
// An area groups the devices and sensors serving one physical zone
// (a rack, a tray, a reservoir). The live view is scoped to an area.
package area

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Domain-specific errors for area operations.
var (
	// ErrAreaNotFound is returned when an area does not exist.
	ErrAreaNotFound = errors.New("area: not found")

	// ErrAreaExists is returned when creating an area with a duplicate ID.
	ErrAreaExists = errors.New("area: already exists")
)

// Area is a growing zone within a cabinet.
type Area struct {
	ID          string    `json:"id"`
	ContainerID string    `json:"containerId"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Repository defines the interface for area persistence operations.
type Repository interface {
	// GetByID retrieves an area by ID.
	// Returns ErrAreaNotFound if it does not exist.
	GetByID(ctx context.Context, id string) (*Area, error)

	// ListByContainer retrieves all areas in a container.
	ListByContainer(ctx context.Context, containerID string) ([]Area, error)

	// Create inserts a new area.
	Create(ctx context.Context, a *Area) error

	// Delete removes an area by ID.
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

// GetByID retrieves an area by ID.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Area, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, container_id, name, description, created_at, updated_at
		FROM areas WHERE id = ?`, id)

	a, err := scanArea(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAreaNotFound
		}
		return nil, fmt.Errorf("querying area by id: %w", err)
	}
	return a, nil
}

// ListByContainer retrieves all areas in a container.
func (r *SQLiteRepository) ListByContainer(ctx context.Context, containerID string) ([]Area, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, container_id, name, description, created_at, updated_at
		FROM areas WHERE container_id = ? ORDER BY name`, containerID)
	if err != nil {
		return nil, fmt.Errorf("querying areas: %w", err)
	}
	defer rows.Close()

	var areas []Area
	for rows.Next() {
		a, err := scanArea(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning area: %w", err)
		}
		areas = append(areas, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating areas: %w", err)
	}
	return areas, nil
}

// Create inserts a new area.
func (r *SQLiteRepository) Create(ctx context.Context, a *Area) error {
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO areas (id, container_id, name, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID,
		a.ContainerID,
		a.Name,
		a.Description,
		a.CreatedAt.Format(time.RFC3339),
		a.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrAreaExists
		}
		return fmt.Errorf("inserting area: %w", err)
	}
	return nil
}

// Delete removes an area by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM areas WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting area: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrAreaNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArea(scanner rowScanner) (*Area, error) {
	var a Area
	var createdAt, updatedAt string

	if err := scanner.Scan(&a.ID, &a.ContainerID, &a.Name, &a.Description, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	a.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	a.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &a, nil
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
