package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/demoforge/demoforge/internal/demo"
	"github.com/demoforge/demoforge/internal/deprovision"
	"github.com/demoforge/demoforge/internal/provision"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// writeError maps service errors onto the three-status contract: 400 for
// validation, 404 for unknown demo ids, 500 for everything else.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, provision.ErrValidation) || errors.Is(err, deprovision.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, demo.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "demo not found"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "internal error",
			Details: err.Error(),
		})
	}
}
