package telemetry

import (
	"context"
	"fmt"
	"sync"

	"github.com/farmcab/farmcab-core/internal/rtdb"
	"github.com/farmcab/farmcab-core/internal/sensor"
)

// Logger defines the logging interface used by the Recorder.
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

// SensorDirectory is the slice of the sensor repository the recorder needs.
type SensorDirectory interface {
	ListByContainer(ctx context.Context, containerID string) ([]sensor.Sensor, error)
}

// Sink receives sensor readings. *influxdb.Client satisfies this interface.
type Sink interface {
	WriteSensorReading(containerID, sensorID, sensorType string, value float64)
}

// Recorder streams live sensor readings into the telemetry sink.
//
// One realtime subscription per sensor of the container; numeric values are
// forwarded as points, non-numeric payloads (composite soil strings) are
// skipped. The sink's writes are non-blocking so a slow or down InfluxDB
// never backs up the realtime path.
type Recorder struct {
	sensors SensorDirectory
	store   rtdb.Store
	sink    Sink
	logger  Logger

	mu     sync.Mutex
	unsubs []rtdb.UnsubscribeFunc
}

// NewRecorder creates a telemetry recorder.
func NewRecorder(sensors SensorDirectory, store rtdb.Store, sink Sink) *Recorder {
	return &Recorder{
		sensors: sensors,
		store:   store,
		sink:    sink,
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the recorder.
func (r *Recorder) SetLogger(logger Logger) {
	r.logger = logger
}

// Start subscribes to every sensor of the container.
//
// The retained value of each node is recorded immediately, then every
// subsequent push. Start is not idempotent; call Close before restarting.
func (r *Recorder) Start(ctx context.Context, containerID string) error {
	sensors, err := r.sensors.ListByContainer(ctx, containerID)
	if err != nil {
		return fmt.Errorf("listing sensors: %w", err)
	}

	var unsubs []rtdb.UnsubscribeFunc
	for i := range sensors {
		s := sensors[i]
		path := rtdb.NodePath(s.ContainerID, s.ID)
		unsub, err := r.store.Subscribe(path, r.handler(s))
		if err != nil {
			r.logger.Warn("telemetry subscription failed", "sensor_id", s.ID, "error", err)
			continue
		}
		unsubs = append(unsubs, unsub)
	}

	r.mu.Lock()
	r.unsubs = append(r.unsubs, unsubs...)
	r.mu.Unlock()

	r.logger.Info("telemetry recording started", "container_id", containerID, "sensors", len(unsubs))
	return nil
}

// Close releases all subscriptions.
func (r *Recorder) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, unsub := range r.unsubs {
		unsub()
	}
	r.unsubs = nil
}

// handler builds the realtime handler for one sensor.
func (r *Recorder) handler(s sensor.Sensor) rtdb.Handler {
	return func(_ string, value rtdb.Value) {
		v, ok := value["value"].(float64)
		if !ok {
			// Composite readings (soil nutrient strings) have no single
			// numeric value to chart
			return
		}
		r.sink.WriteSensorReading(s.ContainerID, s.ID, string(s.Type), v)
	}
}
