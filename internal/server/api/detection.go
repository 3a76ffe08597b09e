package api

import (
	"encoding/json"
	"net/http"
)

// Switch turns hand detection on and off.
type Switch interface {
	SetEnabled(bool)
	IsEnabled() bool
}

// DetectionHandler exposes the detection switch at /api/detection.
type DetectionHandler struct {
	sw Switch
}

// NewDetectionHandler creates a DetectionHandler for sw.
func NewDetectionHandler(sw Switch) *DetectionHandler {
	return &DetectionHandler{sw: sw}
}

type detectionRequest struct {
	Enabled *bool `json:"enabled"`
}

type detectionResponse struct {
	Enabled bool `json:"enabled"`
}

func (h *DetectionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, detectionResponse{Enabled: h.sw.IsEnabled()})
	case http.MethodPut:
		var req detectionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}
		if req.Enabled == nil {
			writeError(w, http.StatusBadRequest, "enabled is required")
			return
		}
		h.sw.SetEnabled(*req.Enabled)
		writeJSON(w, http.StatusOK, detectionResponse{Enabled: h.sw.IsEnabled()})
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
