package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"campaignlens/internal/dashboard"
	"campaignlens/internal/projection"
	"campaignlens/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeServiceError maps service errors onto status codes. Unrecognized
// errors get the fallback status.
func writeServiceError(w http.ResponseWriter, err error, fallback int) {
	status := fallback
	switch {
	case errors.Is(err, dashboard.ErrUnknownFilter),
		errors.Is(err, dashboard.ErrInvalidWindow),
		errors.Is(err, projection.ErrUnknownMethod):
		status = http.StatusBadRequest
	case errors.Is(err, dashboard.ErrSpecNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrSuperseded):
		status = http.StatusConflict
	case errors.Is(err, service.ErrAnalyzerDisabled):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	writeError(w, status, err.Error())
}
