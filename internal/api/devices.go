package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/farmcab/farmcab-core/internal/device"
)

// handleListDevices returns all devices, optionally filtered by area.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if areaID := r.URL.Query().Get("area_id"); areaID != "" {
		devices, err := s.registry.GetDevicesByArea(ctx, areaID)
		if err != nil {
			writeInternalError(w, "failed to list devices")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
		return
	}

	devices, err := s.registry.ListDevices(ctx)
	if err != nil {
		writeInternalError(w, "failed to list devices")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleGetDevice returns a single device by ID.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	dev, err := s.registry.GetDevice(r.Context(), id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to get device")
		return
	}

	writeJSON(w, http.StatusOK, dev)
}

// handleToggle inverts a device's live status.
//
// The response carries both the new and previous status so the UI can
// revert an optimistic update if the next refresh disagrees.
func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	status, err := s.control.Toggle(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"deviceId": id,
		"status":   status,
		"previous": status.Invert(),
	})
}

// overrideRequest is the body for POST /api/devices/{id}/override.
type overrideRequest struct {
	On bool `json:"on"`
}

// handleOverride forces a device to the requested state, switching it to
// Manual control first.
func (s *Server) handleOverride(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.control.SetManualOverride(r.Context(), id, req.On); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"deviceId": id,
		"on":       req.On,
		"method":   device.ControlManual,
	})
}

// controlMethodRequest is the body for PUT /api/devices/{id}/control-method.
type controlMethodRequest struct {
	Method device.ControlMethod `json:"method"`
}

// handleSetControlMethod changes how a device is driven.
func (s *Server) handleSetControlMethod(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req controlMethodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.control.SetControlMethod(r.Context(), id, req.Method); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"deviceId": id,
		"method":   req.Method,
	})
}
