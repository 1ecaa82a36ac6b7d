package liveview

import (
	"context"
	"testing"
	"time"

	"github.com/farmcab/farmcab-core/internal/device"
	"github.com/farmcab/farmcab-core/internal/rtdb"
	"github.com/farmcab/farmcab-core/internal/schedule"
	"github.com/farmcab/farmcab-core/internal/sensor"
)

type fakeSensorDir struct {
	byArea     map[string][]sensor.Sensor
	thresholds map[string]*sensor.Threshold
}

func (f *fakeSensorDir) ListByArea(_ context.Context, areaID string) ([]sensor.Sensor, error) {
	return f.byArea[areaID], nil
}

func (f *fakeSensorDir) GetThreshold(_ context.Context, sensorID string) (*sensor.Threshold, error) {
	t, ok := f.thresholds[sensorID]
	if !ok {
		return nil, sensor.ErrThresholdNotFound
	}
	return t, nil
}

type fakeDeviceDir struct {
	byArea map[string][]device.Device
}

func (f *fakeDeviceDir) GetDevicesByArea(_ context.Context, areaID string) ([]device.Device, error) {
	return f.byArea[areaID], nil
}

type fakeScheduleDir struct {
	byDevice map[string]*schedule.Schedule
}

func (f *fakeScheduleDir) GetByDevice(_ context.Context, deviceID string) (*schedule.Schedule, error) {
	s, ok := f.byDevice[deviceID]
	if !ok {
		return nil, schedule.ErrScheduleNotFound
	}
	return s, nil
}

func setupProjection(t *testing.T) (*Projection, *rtdb.MemoryStore) {
	t.Helper()

	sensors := &fakeSensorDir{
		byArea: map[string][]sensor.Sensor{
			"area_a": {
				{ID: "sensor_ec_01", ContainerID: "container_04", Name: "EC", Type: sensor.TypeEC, Unit: "mS/cm"},
				{ID: "sensor_soil_01", ContainerID: "container_04", Name: "Soil", Type: sensor.TypeSoilNutrient},
			},
			"area_b": {
				{ID: "sensor_temp_02", ContainerID: "container_04", Name: "Temp", Type: sensor.TypeTemperature, Unit: "C"},
			},
		},
		thresholds: map[string]*sensor.Threshold{
			"sensor_ec_01": {ID: "th_1", SensorID: "sensor_ec_01", Min: 1.0, Max: 2.5},
		},
	}
	devices := &fakeDeviceDir{
		byArea: map[string][]device.Device{
			"area_a": {
				{ID: "pump_01", ContainerID: "container_04", Name: "Irrigation", Type: device.TypePump, ControlMethod: device.ControlAuto, Status: device.StatusInactive},
				{ID: "light_01", ContainerID: "container_04", Name: "Grow Light", Type: device.TypeLight, ControlMethod: device.ControlManual},
			},
		},
	}
	schedules := &fakeScheduleDir{
		byDevice: map[string]*schedule.Schedule{
			"pump_01": {ID: "schedule_pump_01", DeviceID: "pump_01", StartTime: "06:00", EndTime: "06:15"},
		},
	}

	store := rtdb.NewMemoryStore()
	proj := NewProjection(sensors, devices, schedules, store)
	t.Cleanup(proj.Close)
	return proj, store
}

func TestProjection_SetArea_Snapshot(t *testing.T) {
	ctx := context.Background()
	proj, store := setupProjection(t)

	// Retained values exist before the area is selected
	store.Patch(ctx, "containers/container_04/sensor_ec_01", rtdb.Value{"value": 3.1, "status": "active"})
	store.Patch(ctx, "containers/container_04/sensor_soil_01", rtdb.Value{"value": "N14,K15,P9"})
	store.Patch(ctx, "containers/container_04/controllers/pump_01", rtdb.Value{"status": "inactive"})

	if err := proj.SetArea(ctx, "area_a"); err != nil {
		t.Fatalf("SetArea() error = %v", err)
	}

	snap := proj.Snapshot()
	if snap.AreaID != "area_a" {
		t.Errorf("AreaID = %q, want area_a", snap.AreaID)
	}
	if len(snap.Sensors) != 2 {
		t.Fatalf("got %d sensors, want 2", len(snap.Sensors))
	}
	if len(snap.Pumps) != 1 {
		t.Fatalf("got %d pumps, want 1 (non-pump devices excluded)", len(snap.Pumps))
	}

	views := make(map[string]SensorView)
	for _, v := range snap.Sensors {
		views[v.ID] = v
	}

	ec := views["sensor_ec_01"]
	if ec.Value != 3.1 {
		t.Errorf("EC value = %v, want 3.1 (live payload wins)", ec.Value)
	}
	if ec.Alert != sensor.AlertHigh {
		t.Errorf("EC alert = %q, want high (3.1 > max 2.5)", ec.Alert)
	}
	if ec.Status != "active" {
		t.Errorf("EC status = %q, want active", ec.Status)
	}

	soil := views["sensor_soil_01"]
	if soil.Nutrients == nil {
		t.Fatal("soil sensor should have parsed nutrients")
	}
	if *soil.Nutrients != (Nutrients{Nito: 14, Kali: 15, Phospho: 9}) {
		t.Errorf("nutrients = %+v", *soil.Nutrients)
	}
}

func TestProjection_PumpDisplayStatus(t *testing.T) {
	tests := []struct {
		name string
		view PumpView
		want string
	}{
		{"manual on", PumpView{Method: device.ControlManual, On: true}, "ON"},
		{"manual off", PumpView{Method: device.ControlManual, On: false}, "OFF"},
		{"auto with schedule", PumpView{Method: device.ControlAuto, Window: &schedule.Window{StartTime: "06:00", EndTime: "06:15"}}, "Scheduled 06:00-06:15"},
		{"auto without schedule", PumpView{Method: device.ControlAuto}, "No Schedule"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.view.displayStatus(); got != tt.want {
				t.Errorf("displayStatus() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProjection_LiveUpdateFansOut(t *testing.T) {
	ctx := context.Background()
	proj, store := setupProjection(t)

	if err := proj.SetArea(ctx, "area_a"); err != nil {
		t.Fatalf("SetArea() error = %v", err)
	}

	ch, cancel := proj.Watch()
	defer cancel()

	store.Patch(ctx, "containers/container_04/sensor_ec_01", rtdb.Value{"value": 1.8})

	select {
	case update := <-ch:
		if update.Sensor == nil {
			t.Fatal("expected a sensor update")
		}
		if update.Sensor.Value != 1.8 {
			t.Errorf("Value = %v, want 1.8", update.Sensor.Value)
		}
		if update.Sensor.Alert != sensor.AlertNone {
			t.Errorf("Alert = %q, want ok (1.8 inside [1.0, 2.5])", update.Sensor.Alert)
		}
	case <-time.After(time.Second):
		t.Fatal("no update received")
	}
}

func TestProjection_PumpUpdateRecomputesDisplay(t *testing.T) {
	ctx := context.Background()
	proj, store := setupProjection(t)

	if err := proj.SetArea(ctx, "area_a"); err != nil {
		t.Fatalf("SetArea() error = %v", err)
	}

	snap := proj.Snapshot()
	if snap.Pumps[0].Display != "Scheduled 06:00-06:15" {
		t.Errorf("Display = %q, want Scheduled 06:00-06:15", snap.Pumps[0].Display)
	}

	ch, cancel := proj.Watch()
	defer cancel()

	store.Patch(ctx, "containers/container_04/controllers/pump_01", rtdb.Value{"status": "active"})

	select {
	case update := <-ch:
		if update.Pump == nil {
			t.Fatal("expected a pump update")
		}
		if !update.Pump.On {
			t.Error("pump should be on after live update")
		}
	case <-time.After(time.Second):
		t.Fatal("no update received")
	}
}

func TestProjection_SetArea_TearsDownPriorSubscriptions(t *testing.T) {
	ctx := context.Background()
	proj, store := setupProjection(t)

	if err := proj.SetArea(ctx, "area_a"); err != nil {
		t.Fatalf("SetArea(area_a) error = %v", err)
	}
	if got := store.SubscriberCount(); got != 3 {
		t.Fatalf("SubscriberCount() = %d after area_a, want 3", got)
	}

	if err := proj.SetArea(ctx, "area_b"); err != nil {
		t.Fatalf("SetArea(area_b) error = %v", err)
	}
	if got := store.SubscriberCount(); got != 1 {
		t.Errorf("SubscriberCount() = %d after area_b, want 1", got)
	}

	snap := proj.Snapshot()
	if snap.AreaID != "area_b" {
		t.Errorf("AreaID = %q, want area_b", snap.AreaID)
	}
	if len(snap.Sensors) != 1 || len(snap.Pumps) != 0 {
		t.Errorf("snapshot = %d sensors / %d pumps, want 1 / 0", len(snap.Sensors), len(snap.Pumps))
	}
}

func TestProjection_StaleAreaPushDiscarded(t *testing.T) {
	ctx := context.Background()
	proj, store := setupProjection(t)

	if err := proj.SetArea(ctx, "area_a"); err != nil {
		t.Fatalf("SetArea(area_a) error = %v", err)
	}
	if err := proj.SetArea(ctx, "area_b"); err != nil {
		t.Fatalf("SetArea(area_b) error = %v", err)
	}

	ch, cancel := proj.Watch()
	defer cancel()

	// A push on the old area's sensor must not surface
	store.Patch(ctx, "containers/container_04/sensor_ec_01", rtdb.Value{"value": 9.9})

	select {
	case update := <-ch:
		t.Fatalf("received update for superseded area: %+v", update)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestProjection_Close_ReleasesEverything(t *testing.T) {
	ctx := context.Background()
	proj, store := setupProjection(t)

	if err := proj.SetArea(ctx, "area_a"); err != nil {
		t.Fatalf("SetArea() error = %v", err)
	}
	ch, _ := proj.Watch()

	proj.Close()

	if got := store.SubscriberCount(); got != 0 {
		t.Errorf("SubscriberCount() = %d after Close, want 0", got)
	}
	if _, open := <-ch; open {
		t.Error("watcher channel should be closed")
	}
}

func TestProjection_WatchCancelIdempotent(t *testing.T) {
	proj, _ := setupProjection(t)

	_, cancel := proj.Watch()
	cancel()
	cancel()
}
