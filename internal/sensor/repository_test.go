package sensor

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE sensors (
			id TEXT PRIMARY KEY,
			container_id TEXT NOT NULL,
			area_id TEXT,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			unit TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
		CREATE TABLE thresholds (
			id TEXT PRIMARY KEY,
			sensor_id TEXT NOT NULL,
			min_value REAL NOT NULL,
			max_value REAL NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
		CREATE UNIQUE INDEX idx_thresholds_sensor ON thresholds(sensor_id);
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

func testSensor(id string) *Sensor {
	return &Sensor{
		ID:          id,
		ContainerID: "container_04",
		Name:        "EC Probe",
		Type:        TypeEC,
		Unit:        "mS/cm",
	}
}

func TestSQLiteRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteRepository(setupTestDB(t))

	if err := repo.Create(ctx, testSensor("sensor_ec_01")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByID(ctx, "sensor_ec_01")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Type != TypeEC || got.Unit != "mS/cm" {
		t.Errorf("got type=%q unit=%q, want ec mS/cm", got.Type, got.Unit)
	}
}

func TestSQLiteRepository_GetByID_NotFound(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	_, err := repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, ErrSensorNotFound) {
		t.Errorf("GetByID() error = %v, want ErrSensorNotFound", err)
	}
}

func TestSQLiteRepository_ListByArea(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteRepository(setupTestDB(t))

	area := "area_a"
	s1 := testSensor("sensor_ec_01")
	s1.AreaID = &area
	s2 := testSensor("sensor_ph_01")
	s2.Type = TypePH
	s2.Name = "pH Probe"

	if err := repo.Create(ctx, s1); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.Create(ctx, s2); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	sensors, err := repo.ListByArea(ctx, area)
	if err != nil {
		t.Fatalf("ListByArea() error = %v", err)
	}
	if len(sensors) != 1 || sensors[0].ID != "sensor_ec_01" {
		t.Errorf("ListByArea() = %v, want [sensor_ec_01]", sensors)
	}
}

func TestSQLiteRepository_Thresholds(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteRepository(setupTestDB(t))

	if err := repo.Create(ctx, testSensor("sensor_ec_01")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	_, err := repo.GetThreshold(ctx, "sensor_ec_01")
	if !errors.Is(err, ErrThresholdNotFound) {
		t.Errorf("GetThreshold() error = %v, want ErrThresholdNotFound", err)
	}

	th := &Threshold{ID: "th_01", SensorID: "sensor_ec_01", Min: 1.2, Max: 2.4}
	if err := repo.SetThreshold(ctx, th); err != nil {
		t.Fatalf("SetThreshold() error = %v", err)
	}

	got, err := repo.GetThreshold(ctx, "sensor_ec_01")
	if err != nil {
		t.Fatalf("GetThreshold() error = %v", err)
	}
	if got.Min != 1.2 || got.Max != 2.4 {
		t.Errorf("threshold = [%v, %v], want [1.2, 2.4]", got.Min, got.Max)
	}

	// Replacing the band keeps one row per sensor
	th2 := &Threshold{ID: "th_02", SensorID: "sensor_ec_01", Min: 1.0, Max: 2.0}
	if err := repo.SetThreshold(ctx, th2); err != nil {
		t.Fatalf("second SetThreshold() error = %v", err)
	}
	got, _ = repo.GetThreshold(ctx, "sensor_ec_01")
	if got.Min != 1.0 || got.Max != 2.0 {
		t.Errorf("threshold = [%v, %v], want [1.0, 2.0]", got.Min, got.Max)
	}
}

func TestSQLiteRepository_SetThreshold_Invalid(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	err := repo.SetThreshold(context.Background(), &Threshold{ID: "th_01", SensorID: "s", Min: 2.0, Max: 1.0})
	if !errors.Is(err, ErrInvalidThreshold) {
		t.Errorf("SetThreshold() error = %v, want ErrInvalidThreshold", err)
	}
}

func TestThreshold_Check(t *testing.T) {
	th := &Threshold{Min: 1.0, Max: 2.0}

	if got := th.Check(0.5); got != AlertLow {
		t.Errorf("Check(0.5) = %q, want low", got)
	}
	if got := th.Check(1.5); got != AlertNone {
		t.Errorf("Check(1.5) = %q, want ok", got)
	}
	if got := th.Check(2.5); got != AlertHigh {
		t.Errorf("Check(2.5) = %q, want high", got)
	}
}
