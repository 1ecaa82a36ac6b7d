package schedule

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the schedules table.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE schedules (
			id TEXT PRIMARY KEY,
			device_id TEXT NOT NULL,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			date TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
		CREATE UNIQUE INDEX idx_schedules_device ON schedules(device_id);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func testSchedule() *Schedule {
	return &Schedule{
		ID:        "schedule_pump_01",
		DeviceID:  "pump_01",
		StartTime: "07:00",
		EndTime:   "07:15",
		Date:      "2024-06-01",
	}
}

func TestSQLiteRepository_UpsertAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteRepository(setupTestDB(t))

	if err := repo.Upsert(ctx, testSchedule()); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := repo.GetByID(ctx, "schedule_pump_01")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.StartTime != "07:00" || got.EndTime != "07:15" {
		t.Errorf("window = %s-%s, want 07:00-07:15", got.StartTime, got.EndTime)
	}

	byDevice, err := repo.GetByDevice(ctx, "pump_01")
	if err != nil {
		t.Fatalf("GetByDevice() error = %v", err)
	}
	if byDevice.ID != "schedule_pump_01" {
		t.Errorf("GetByDevice() ID = %q, want schedule_pump_01", byDevice.ID)
	}
}

func TestSQLiteRepository_Upsert_ReplacesWindow(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteRepository(setupTestDB(t))

	if err := repo.Upsert(ctx, testSchedule()); err != nil {
		t.Fatalf("first Upsert() error = %v", err)
	}

	updated := testSchedule()
	updated.StartTime = "08:00"
	updated.EndTime = "08:30"
	if err := repo.Upsert(ctx, updated); err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}

	got, _ := repo.GetByID(ctx, "schedule_pump_01")
	if got.StartTime != "08:00" || got.EndTime != "08:30" {
		t.Errorf("window = %s-%s, want 08:00-08:30", got.StartTime, got.EndTime)
	}
}

func TestSQLiteRepository_Upsert_InvalidWindow(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	s := testSchedule()
	s.EndTime = "06:00" // before start

	err := repo.Upsert(context.Background(), s)
	if !errors.Is(err, ErrInvalidWindow) {
		t.Errorf("Upsert() error = %v, want ErrInvalidWindow", err)
	}
}

func TestSQLiteRepository_UpdateTimes(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteRepository(setupTestDB(t))

	if err := repo.Upsert(ctx, testSchedule()); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	w := Window{StartTime: "09:00", EndTime: "09:45", Date: "2026-03-01"}
	if err := repo.UpdateTimes(ctx, "schedule_pump_01", w); err != nil {
		t.Fatalf("UpdateTimes() error = %v", err)
	}

	got, _ := repo.GetByID(ctx, "schedule_pump_01")
	if got.StartTime != "09:00" || got.EndTime != "09:45" {
		t.Errorf("window = %s-%s, want 09:00-09:45", got.StartTime, got.EndTime)
	}
	if got.Date != "2026-03-01" {
		t.Errorf("date = %q, want 2026-03-01", got.Date)
	}
}

func TestSQLiteRepository_UpdateTimes_NotFound(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	err := repo.UpdateTimes(context.Background(), "missing", Window{StartTime: "07:00", EndTime: "08:00", Date: "2024-06-01"})
	if !errors.Is(err, ErrScheduleNotFound) {
		t.Errorf("UpdateTimes() error = %v, want ErrScheduleNotFound", err)
	}
}

func TestSQLiteRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteRepository(setupTestDB(t))

	if err := repo.Upsert(ctx, testSchedule()); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := repo.Delete(ctx, "schedule_pump_01"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	_, err := repo.GetByID(ctx, "schedule_pump_01")
	if !errors.Is(err, ErrScheduleNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrScheduleNotFound", err)
	}
}
