package sensor

import "time"

// Type categorises environmental sensors.
type Type string

// Sensor types.
const (
	TypeTemperature  Type = "temperature"
	TypeHumidity     Type = "humidity"
	TypeEC           Type = "ec"
	TypePH           Type = "ph"
	TypeWaterLevel   Type = "water_level"
	TypeSoilNutrient Type = "soil_nutrient"
)

// Sensor is an environmental sensor in a cabinet.
//
// The structured row carries metadata only; readings live in the realtime
// store at containers/{containerId}/{sensorId} and, when telemetry is
// enabled, in InfluxDB.
type Sensor struct {
	ID          string    `json:"id"`
	ContainerID string    `json:"containerId"`
	AreaID      *string   `json:"areaId,omitempty"`
	Name        string    `json:"name"`
	Type        Type      `json:"type"`
	Unit        string    `json:"unit,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Threshold is the alerting band for a sensor.
// A reading outside [Min, Max] is flagged in the live view.
type Threshold struct {
	ID        string    `json:"id"`
	SensorID  string    `json:"sensorId"`
	Min       float64   `json:"min"`
	Max       float64   `json:"max"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Check classifies a reading against the threshold.
func (t *Threshold) Check(value float64) Alert {
	switch {
	case value < t.Min:
		return AlertLow
	case value > t.Max:
		return AlertHigh
	default:
		return AlertNone
	}
}

// Alert is the result of checking a reading against a threshold.
type Alert string

// Alert levels.
const (
	AlertNone Alert = "ok"
	AlertLow  Alert = "low"
	AlertHigh Alert = "high"
)
