package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/farmcab/farmcab-core/internal/schedule"
)

// syncScheduleRequest is the body for PUT /api/schedules/{deviceId}.
type syncScheduleRequest struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Date      string `json:"date"`
}

// handleSyncSchedule pushes a schedule window to both stores for the device.
//
// A fully applied window flips the device to Auto. A half-applied one still
// answers 200 with applied=false and per-store flags, so the operator can
// see which side committed and retry the other. Only a sync that reached
// neither store maps to an error status.
func (s *Server) handleSyncSchedule(w http.ResponseWriter, r *http.Request) {
	if s.sync == nil {
		writeError(w, http.StatusNotImplemented, ErrCodeInternal, "schedule sync not configured")
		return
	}

	deviceID := chi.URLParam(r, "deviceId")

	var req syncScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	window := schedule.Window{StartTime: req.StartTime, EndTime: req.EndTime, Date: req.Date}

	res, err := s.sync.Sync(r.Context(), deviceID, window)
	if err != nil && !res.Structured && !res.Realtime {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"deviceId":   deviceID,
		"startTime":  req.StartTime,
		"endTime":    req.EndTime,
		"date":       req.Date,
		"applied":    res.Applied(),
		"structured": res.Structured,
		"realtime":   res.Realtime,
	})
}
