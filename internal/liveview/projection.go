package liveview

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/farmcab/farmcab-core/internal/device"
	"github.com/farmcab/farmcab-core/internal/rtdb"
	"github.com/farmcab/farmcab-core/internal/schedule"
	"github.com/farmcab/farmcab-core/internal/sensor"
)

// Logger defines the logging interface used by the Projection.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// SensorDirectory is the slice of the sensor repository the projection needs.
type SensorDirectory interface {
	ListByArea(ctx context.Context, areaID string) ([]sensor.Sensor, error)
	GetThreshold(ctx context.Context, sensorID string) (*sensor.Threshold, error)
}

// DeviceDirectory is the slice of the device registry the projection needs.
// *device.Registry satisfies this interface.
type DeviceDirectory interface {
	GetDevicesByArea(ctx context.Context, areaID string) ([]device.Device, error)
}

// ScheduleDirectory is the slice of the schedule repository the projection needs.
type ScheduleDirectory interface {
	GetByDevice(ctx context.Context, deviceID string) (*schedule.Schedule, error)
}

// Projection maintains a live, render-ready view of one selected area.
//
// SetArea loads the area's sensors and pump devices from the structured
// store, then opens one realtime subscription per item. Live payloads are
// merged onto the metadata and fanned out to watchers. Switching areas
// tears down every prior subscription before opening new ones, and pushes
// that arrive for a superseded area are discarded.
type Projection struct {
	sensors   SensorDirectory
	devices   DeviceDirectory
	schedules ScheduleDirectory
	store     rtdb.Store
	logger    Logger

	mu          sync.Mutex
	areaID      string
	epoch       int
	unsubs      []rtdb.UnsubscribeFunc
	sensorViews map[string]*SensorView
	pumpViews   map[string]*PumpView
	watchers    map[int]chan Update
	nextWatcher int
}

// NewProjection creates a live view projection.
func NewProjection(sensors SensorDirectory, devices DeviceDirectory, schedules ScheduleDirectory, store rtdb.Store) *Projection {
	return &Projection{
		sensors:   sensors,
		devices:   devices,
		schedules: schedules,
		store:     store,
		logger:    noopLogger{},
		watchers:  make(map[int]chan Update),
	}
}

// SetLogger sets the logger for the projection.
func (p *Projection) SetLogger(logger Logger) {
	p.logger = logger
}

// SetArea switches the projection to a new area.
//
// All subscriptions for the previous area are torn down first. If SetArea
// is called again before this call finishes wiring, the older call yields:
// its subscriptions are released and its views discarded.
func (p *Projection) SetArea(ctx context.Context, areaID string) error {
	p.mu.Lock()
	p.teardownLocked()
	p.epoch++
	epoch := p.epoch
	p.areaID = areaID
	p.sensorViews = make(map[string]*SensorView)
	p.pumpViews = make(map[string]*PumpView)
	p.mu.Unlock()

	sensors, err := p.sensors.ListByArea(ctx, areaID)
	if err != nil {
		return fmt.Errorf("listing sensors: %w", err)
	}
	devices, err := p.devices.GetDevicesByArea(ctx, areaID)
	if err != nil {
		return fmt.Errorf("listing devices: %w", err)
	}

	sensorViews := make(map[string]*SensorView, len(sensors))
	for i := range sensors {
		sensorViews[sensors[i].ID] = p.buildSensorView(ctx, &sensors[i])
	}

	pumpViews := make(map[string]*PumpView)
	for i := range devices {
		if devices[i].Type != device.TypePump {
			continue
		}
		pumpViews[devices[i].ID] = p.buildPumpView(ctx, &devices[i])
	}

	p.mu.Lock()
	if p.epoch != epoch {
		p.mu.Unlock()
		return nil
	}
	p.sensorViews = sensorViews
	p.pumpViews = pumpViews
	p.mu.Unlock()

	// Subscriptions are opened without the lock held: the store replays
	// current values synchronously into the handler, which takes the lock.
	var unsubs []rtdb.UnsubscribeFunc
	for i := range sensors {
		path := rtdb.NodePath(sensors[i].ContainerID, sensors[i].ID)
		unsub, err := p.store.Subscribe(path, p.sensorHandler(epoch, sensors[i].ID))
		if err != nil {
			p.logger.Warn("sensor subscription failed", "sensor_id", sensors[i].ID, "error", err)
			continue
		}
		unsubs = append(unsubs, unsub)
	}
	for i := range devices {
		if devices[i].Type != device.TypePump {
			continue
		}
		path := rtdb.ControllerPath(devices[i].ContainerID, devices[i].ID)
		unsub, err := p.store.Subscribe(path, p.pumpHandler(epoch, devices[i].ID))
		if err != nil {
			p.logger.Warn("pump subscription failed", "device_id", devices[i].ID, "error", err)
			continue
		}
		unsubs = append(unsubs, unsub)
	}

	p.mu.Lock()
	if p.epoch != epoch {
		p.mu.Unlock()
		for _, unsub := range unsubs {
			unsub()
		}
		return nil
	}
	p.unsubs = unsubs
	p.mu.Unlock()

	p.logger.Info("area selected", "area_id", areaID, "sensors", len(sensorViews), "pumps", len(pumpViews))
	return nil
}

// Snapshot returns a copy of the current view of the selected area.
func (p *Projection) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	snap := Snapshot{AreaID: p.areaID}
	for _, v := range p.sensorViews {
		snap.Sensors = append(snap.Sensors, *v)
	}
	for _, v := range p.pumpViews {
		snap.Pumps = append(snap.Pumps, *v)
	}
	return snap
}

// Watch registers a listener for live updates. The returned cancel func
// removes the listener and closes the channel. Slow listeners miss updates
// rather than blocking delivery.
func (p *Projection) Watch() (<-chan Update, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextWatcher
	p.nextWatcher++
	ch := make(chan Update, 16)
	p.watchers[id] = ch

	cancel := func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if c, ok := p.watchers[id]; ok {
			delete(p.watchers, id)
			close(c)
		}
	}
	return ch, cancel
}

// Close tears down all subscriptions and watcher channels.
func (p *Projection) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.teardownLocked()
	p.epoch++
	p.areaID = ""
	p.sensorViews = nil
	p.pumpViews = nil
	for id, ch := range p.watchers {
		delete(p.watchers, id)
		close(ch)
	}
}

// teardownLocked releases all realtime subscriptions. Caller holds p.mu.
func (p *Projection) teardownLocked() {
	for _, unsub := range p.unsubs {
		unsub()
	}
	p.unsubs = nil
}

func (p *Projection) buildSensorView(ctx context.Context, s *sensor.Sensor) *SensorView {
	view := &SensorView{
		ID:    s.ID,
		Name:  s.Name,
		Type:  s.Type,
		Unit:  s.Unit,
		Alert: sensor.AlertNone,
	}

	threshold, err := p.sensors.GetThreshold(ctx, s.ID)
	switch {
	case err == nil:
		view.Threshold = threshold
	case errors.Is(err, sensor.ErrThresholdNotFound):
		// No alerting band configured, readings render unflagged
	default:
		p.logger.Warn("threshold lookup failed", "sensor_id", s.ID, "error", err)
	}
	return view
}

func (p *Projection) buildPumpView(ctx context.Context, d *device.Device) *PumpView {
	view := &PumpView{
		ID:     d.ID,
		Name:   d.Name,
		Method: d.ControlMethod,
		On:     d.Status == device.StatusActive,
	}

	sched, err := p.schedules.GetByDevice(ctx, d.ID)
	switch {
	case err == nil:
		w := sched.Window()
		view.Window = &w
	case errors.Is(err, schedule.ErrScheduleNotFound):
		// Auto devices without a schedule render "No Schedule"
	default:
		p.logger.Warn("schedule lookup failed", "device_id", d.ID, "error", err)
	}

	view.Display = view.displayStatus()
	return view
}

// sensorHandler builds the realtime handler for one sensor. The captured
// epoch guards against pushes for a no-longer-selected area.
func (p *Projection) sensorHandler(epoch int, sensorID string) rtdb.Handler {
	return func(_ string, value rtdb.Value) {
		p.mu.Lock()
		defer p.mu.Unlock()

		if p.epoch != epoch {
			return
		}
		view, ok := p.sensorViews[sensorID]
		if !ok {
			return
		}
		view.applyLive(value)
		snapshot := *view
		p.notifyLocked(Update{AreaID: p.areaID, Sensor: &snapshot})
	}
}

// pumpHandler builds the realtime handler for one pump device.
func (p *Projection) pumpHandler(epoch int, deviceID string) rtdb.Handler {
	return func(_ string, value rtdb.Value) {
		p.mu.Lock()
		defer p.mu.Unlock()

		if p.epoch != epoch {
			return
		}
		view, ok := p.pumpViews[deviceID]
		if !ok {
			return
		}
		view.applyLive(value)
		snapshot := *view
		p.notifyLocked(Update{AreaID: p.areaID, Pump: &snapshot})
	}
}

// notifyLocked fans an update out to watchers. Caller holds p.mu; sends are
// non-blocking so a stalled watcher cannot back up delivery.
func (p *Projection) notifyLocked(update Update) {
	for _, ch := range p.watchers {
		select {
		case ch <- update:
		default:
		}
	}
}
