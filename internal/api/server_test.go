package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/farmcab/farmcab-core/internal/area"
	"github.com/farmcab/farmcab-core/internal/control"
	"github.com/farmcab/farmcab-core/internal/device"
	"github.com/farmcab/farmcab-core/internal/infrastructure/config"
	"github.com/farmcab/farmcab-core/internal/infrastructure/logging"
	"github.com/farmcab/farmcab-core/internal/liveview"
	"github.com/farmcab/farmcab-core/internal/schedule"
)

type fakeControl struct {
	toggleStatus device.Status
	toggleErr    error
	overrideErr  error
	methodErr    error
}

func (f *fakeControl) Toggle(_ context.Context, _ string) (device.Status, error) {
	return f.toggleStatus, f.toggleErr
}

func (f *fakeControl) SetManualOverride(_ context.Context, _ string, _ bool) error {
	return f.overrideErr
}

func (f *fakeControl) SetControlMethod(_ context.Context, _ string, method device.ControlMethod) error {
	if !method.IsValid() {
		return fmt.Errorf("%w: %q", device.ErrInvalidControlMethod, method)
	}
	return f.methodErr
}

type fakeSync struct {
	result schedule.Result
	err    error
}

func (f *fakeSync) Sync(_ context.Context, _ string, _ schedule.Window) (schedule.Result, error) {
	return f.result, f.err
}

type fakeLive struct {
	areaID string
	err    error
}

func (f *fakeLive) SetArea(_ context.Context, areaID string) error {
	if f.err != nil {
		return f.err
	}
	f.areaID = areaID
	return nil
}

func (f *fakeLive) Snapshot() liveview.Snapshot {
	return liveview.Snapshot{AreaID: f.areaID}
}

func (f *fakeLive) Watch() (<-chan liveview.Update, func()) {
	ch := make(chan liveview.Update)
	return ch, func() { close(ch) }
}

func setupRegistry(t *testing.T) *device.Registry {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
		CREATE TABLE output_devices (
			id TEXT PRIMARY KEY,
			container_id TEXT NOT NULL,
			area_id TEXT,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			control_method TEXT NOT NULL DEFAULT 'Manual',
			status TEXT NOT NULL DEFAULT 'inactive',
			scheduler_id TEXT,
			last_activated_at TEXT,
			last_deactivated_at TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to create test schema: %v", err)
	}

	registry := device.NewRegistry(device.NewSQLiteRepository(db))

	pump := &device.Device{
		ID:            "pump_01",
		ContainerID:   "container_04",
		Name:          "Irrigation Pump",
		Type:          device.TypePump,
		ControlMethod: device.ControlAuto,
		Status:        device.StatusInactive,
	}
	if err := registry.CreateDevice(context.Background(), pump); err != nil {
		t.Fatalf("failed to seed device: %v", err)
	}
	return registry
}

type testDeps struct {
	control *fakeControl
	sync    *fakeSync
	live    *fakeLive
}

func setupServer(t *testing.T, deps testDeps) http.Handler {
	t.Helper()

	if deps.control == nil {
		deps.control = &fakeControl{toggleStatus: device.StatusActive}
	}
	if deps.sync == nil {
		deps.sync = &fakeSync{result: schedule.Result{Structured: true, Realtime: true}}
	}
	if deps.live == nil {
		deps.live = &fakeLive{}
	}

	srv, err := New(Deps{
		Config:   config.APIConfig{Host: "127.0.0.1", Port: 8080},
		Logger:   logging.Default(),
		Registry: setupRegistry(t),
		Control:  deps.control,
		Sync:     deps.sync,
		Live:     deps.live,
		Health: map[string]HealthChecker{
			"database": func(context.Context) error { return nil },
		},
		Version: "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return srv.buildRouter()
}

func doRequest(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response: %v\n%s", err, rec.Body.String())
	}
	return body
}

func TestHandleToggle(t *testing.T) {
	router := setupServer(t, testDeps{control: &fakeControl{toggleStatus: device.StatusActive}})

	rec := doRequest(t, router, http.MethodPost, "/api/devices/pump_01/toggle", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["status"] != "active" {
		t.Errorf("status = %v, want active", body["status"])
	}
	if body["previous"] != "inactive" {
		t.Errorf("previous = %v, want inactive", body["previous"])
	}
}

func TestHandleToggle_Busy(t *testing.T) {
	router := setupServer(t, testDeps{control: &fakeControl{toggleErr: control.ErrDeviceBusy}})

	rec := doRequest(t, router, http.MethodPost, "/api/devices/pump_01/toggle", "")
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestHandleToggle_NotFound(t *testing.T) {
	router := setupServer(t, testDeps{control: &fakeControl{toggleErr: device.ErrDeviceNotFound}})

	rec := doRequest(t, router, http.MethodPost, "/api/devices/missing/toggle", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandleOverride(t *testing.T) {
	router := setupServer(t, testDeps{})

	rec := doRequest(t, router, http.MethodPost, "/api/devices/pump_01/override", `{"on": true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["method"] != "Manual" {
		t.Errorf("method = %v, want Manual", body["method"])
	}
	if body["on"] != true {
		t.Errorf("on = %v, want true", body["on"])
	}
}

func TestHandleOverride_InvalidBody(t *testing.T) {
	router := setupServer(t, testDeps{})

	rec := doRequest(t, router, http.MethodPost, "/api/devices/pump_01/override", `{"on": `)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleSetControlMethod_Invalid(t *testing.T) {
	router := setupServer(t, testDeps{})

	rec := doRequest(t, router, http.MethodPut, "/api/devices/pump_01/control-method", `{"method": "Banana"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}

func TestHandleSetControlMethod(t *testing.T) {
	router := setupServer(t, testDeps{})

	rec := doRequest(t, router, http.MethodPut, "/api/devices/pump_01/control-method", `{"method": "Auto"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if body := decodeBody(t, rec); body["method"] != "Auto" {
		t.Errorf("method = %v, want Auto", body["method"])
	}
}

func TestHandleSyncSchedule(t *testing.T) {
	router := setupServer(t, testDeps{sync: &fakeSync{result: schedule.Result{Structured: true, Realtime: true}}})

	rec := doRequest(t, router, http.MethodPut, "/api/schedules/pump_01", `{"startTime": "06:00", "endTime": "06:15", "date": "2026-09-01"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["applied"] != true {
		t.Errorf("applied = %v, want true", body["applied"])
	}
	if body["date"] != "2026-09-01" {
		t.Errorf("date = %v, want 2026-09-01", body["date"])
	}
}

func TestHandleSyncSchedule_InvalidWindow(t *testing.T) {
	router := setupServer(t, testDeps{sync: &fakeSync{err: schedule.ErrInvalidWindow}})

	rec := doRequest(t, router, http.MethodPut, "/api/schedules/pump_01", `{"startTime": "07:00", "endTime": "06:00", "date": "2026-09-01"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}

func TestHandleSyncSchedule_PartialReportsSides(t *testing.T) {
	router := setupServer(t, testDeps{sync: &fakeSync{
		result: schedule.Result{Structured: true},
		err:    schedule.ErrSchedulerNodeMissing,
	}})

	rec := doRequest(t, router, http.MethodPut, "/api/schedules/pump_01", `{"startTime": "06:00", "endTime": "06:15", "date": "2026-09-01"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["applied"] != false {
		t.Errorf("applied = %v, want false", body["applied"])
	}
	if body["structured"] != true {
		t.Errorf("structured = %v, want true", body["structured"])
	}
	if body["realtime"] != false {
		t.Errorf("realtime = %v, want false", body["realtime"])
	}
}

func TestHandleSyncSchedule_BothStoresFailed(t *testing.T) {
	router := setupServer(t, testDeps{sync: &fakeSync{err: schedule.ErrSchedulerNodeMissing}})

	rec := doRequest(t, router, http.MethodPut, "/api/schedules/pump_01", `{"startTime": "06:00", "endTime": "06:15", "date": "2026-09-01"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestHandleLiveSnapshot(t *testing.T) {
	live := &fakeLive{}
	router := setupServer(t, testDeps{live: live})

	rec := doRequest(t, router, http.MethodGet, "/api/areas/area_a/live", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if body := decodeBody(t, rec); body["areaId"] != "area_a" {
		t.Errorf("areaId = %v, want area_a", body["areaId"])
	}
}

func TestHandleListDevices(t *testing.T) {
	router := setupServer(t, testDeps{})

	rec := doRequest(t, router, http.MethodGet, "/api/devices/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if body := decodeBody(t, rec); body["count"] != float64(1) {
		t.Errorf("count = %v, want 1", body["count"])
	}
}

func TestHandleGetDevice_NotFound(t *testing.T) {
	router := setupServer(t, testDeps{})

	rec := doRequest(t, router, http.MethodGet, "/api/devices/missing/", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	router := setupServer(t, testDeps{})

	rec := doRequest(t, router, http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := decodeBody(t, rec); body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
}

func TestHandleHealth_Degraded(t *testing.T) {
	registry := setupRegistry(t)
	srv, err := New(Deps{
		Config:   config.APIConfig{Host: "127.0.0.1", Port: 8080},
		Logger:   logging.Default(),
		Registry: registry,
		Control:  &fakeControl{},
		Health: map[string]HealthChecker{
			"mqtt": func(context.Context) error { return errors.New("not connected") },
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	rec := doRequest(t, srv.buildRouter(), http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if body := decodeBody(t, rec); body["status"] != "degraded" {
		t.Errorf("status = %v, want degraded", body["status"])
	}
}

func TestNew_MissingDeps(t *testing.T) {
	_, err := New(Deps{})
	if err == nil {
		t.Error("New() with no deps should fail")
	}
}

func TestHandleListAreas(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
		CREATE TABLE areas (
			id TEXT PRIMARY KEY,
			container_id TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to create test schema: %v", err)
	}

	areas := area.NewSQLiteRepository(db)
	if err := areas.Create(context.Background(), &area.Area{ID: "area_a", ContainerID: "container_04", Name: "Rack A"}); err != nil {
		t.Fatalf("failed to seed area: %v", err)
	}

	srv, err := New(Deps{
		Config:      config.APIConfig{Host: "127.0.0.1", Port: 8080},
		Logger:      logging.Default(),
		Registry:    setupRegistry(t),
		Areas:       areas,
		Control:     &fakeControl{},
		ContainerID: "container_04",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	rec := doRequest(t, srv.buildRouter(), http.MethodGet, "/api/areas/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if body := decodeBody(t, rec); body["count"] != float64(1) {
		t.Errorf("count = %v, want 1", body["count"])
	}
}

func TestRequestIDHeader(t *testing.T) {
	router := setupServer(t, testDeps{})

	rec := doRequest(t, router, http.MethodGet, "/api/health", "")
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("response should carry an X-Request-ID header")
	}
}
