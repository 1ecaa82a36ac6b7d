package api

import "net/http"

// handleListAreas returns the cabinet's growing areas.
func (s *Server) handleListAreas(w http.ResponseWriter, r *http.Request) {
	if s.areas == nil {
		writeError(w, http.StatusNotImplemented, ErrCodeInternal, "area repository not configured")
		return
	}

	areas, err := s.areas.ListByContainer(r.Context(), s.containerID)
	if err != nil {
		writeInternalError(w, "failed to list areas")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"areas": areas, "count": len(areas)})
}
