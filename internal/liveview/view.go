package liveview

import (
	"fmt"

	"github.com/farmcab/farmcab-core/internal/device"
	"github.com/farmcab/farmcab-core/internal/rtdb"
	"github.com/farmcab/farmcab-core/internal/schedule"
	"github.com/farmcab/farmcab-core/internal/sensor"
)

// SensorView is the render-ready projection of one sensor: structured
// metadata merged with the latest live payload. Live fields win over
// whatever the metadata row says.
type SensorView struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Type      sensor.Type       `json:"type"`
	Unit      string            `json:"unit,omitempty"`
	Value     float64           `json:"value"`
	Raw       string            `json:"raw,omitempty"`
	Status    string            `json:"status,omitempty"`
	Alert     sensor.Alert      `json:"alert"`
	Threshold *sensor.Threshold `json:"threshold,omitempty"`
	Nutrients *Nutrients        `json:"nutrients,omitempty"`
}

// applyLive merges a realtime payload into the view.
func (v *SensorView) applyLive(value rtdb.Value) {
	if s, ok := value["status"].(string); ok {
		v.Status = s
	}

	switch raw := value["value"].(type) {
	case float64:
		v.Value = raw
		v.Raw = ""
	case string:
		v.Raw = raw
		if v.Type == sensor.TypeSoilNutrient {
			n := ParseSoilNutrients(raw)
			v.Nutrients = &n
		}
	}

	if v.Threshold != nil && v.Raw == "" {
		v.Alert = v.Threshold.Check(v.Value)
	} else {
		v.Alert = sensor.AlertNone
	}
}

// PumpView is the render-ready projection of one pump device.
type PumpView struct {
	ID      string               `json:"id"`
	Name    string               `json:"name"`
	Method  device.ControlMethod `json:"method"`
	On      bool                 `json:"on"`
	Window  *schedule.Window     `json:"window,omitempty"`
	Display string               `json:"display"`
}

// applyLive merges a controller payload into the view.
func (v *PumpView) applyLive(value rtdb.Value) {
	if status, ok := value["status"].(string); ok && device.Status(status).IsValid() {
		v.On = device.Status(status) == device.StatusActive
	}
	v.Display = v.displayStatus()
}

// displayStatus derives the human-readable row status.
//
// Manual devices show their live state; Auto devices show their schedule
// window, or that none is set.
func (v *PumpView) displayStatus() string {
	if v.Method == device.ControlManual {
		if v.On {
			return "ON"
		}
		return "OFF"
	}
	if v.Window != nil {
		return fmt.Sprintf("Scheduled %s-%s", v.Window.StartTime, v.Window.EndTime)
	}
	return "No Schedule"
}

// Snapshot is the full state of the selected area at one instant.
type Snapshot struct {
	AreaID  string       `json:"areaId"`
	Sensors []SensorView `json:"sensors"`
	Pumps   []PumpView   `json:"pumps"`
}

// Update is one changed row, fanned out to watchers as live data arrives.
// Exactly one of Sensor or Pump is set.
type Update struct {
	AreaID string      `json:"areaId"`
	Sensor *SensorView `json:"sensor,omitempty"`
	Pump   *PumpView   `json:"pump,omitempty"`
}
