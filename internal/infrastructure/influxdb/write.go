package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteSensorReading records a single sensor reading.
//
// The write is non-blocking; points are batched and flushed on the
// configured interval. Tags stay low-cardinality (container, sensor, type);
// the reading itself goes in the value field.
func (c *Client) WriteSensorReading(containerID, sensorID, sensorType string, value float64) {
	c.WriteSensorReadingAt(containerID, sensorID, sensorType, value, time.Now())
}

// WriteSensorReadingAt records a sensor reading with an explicit timestamp.
// Used when the reading carries its own capture time.
func (c *Client) WriteSensorReadingAt(containerID, sensorID, sensorType string, value float64, at time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"sensor_readings",
		map[string]string{
			"container_id": containerID,
			"sensor_id":    sensorID,
			"sensor_type":  sensorType,
		},
		map[string]interface{}{
			"value": value,
		},
		at,
	)

	c.writeAPI.WritePoint(point)
}

// WriteDeviceEvent records an output device state transition.
//
// One point per toggle or override, tagged by container and device, with
// the new state as a boolean field. Lets the UI chart pump duty cycles
// alongside sensor history.
func (c *Client) WriteDeviceEvent(containerID, deviceID string, on bool) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"device_events",
		map[string]string{
			"container_id": containerID,
			"device_id":    deviceID,
		},
		map[string]interface{}{
			"on": on,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point for measurements that don't fit the
// helpers above.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}
