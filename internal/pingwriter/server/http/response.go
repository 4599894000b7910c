package http

import (
	"encoding/json"
	"net/http"

	"github.com/autopeer-io/drivertrack/internal/pingwriter/core/model"
	"github.com/autopeer-io/drivertrack/pkg/log"
)

const (
	msgInvalidBody  = "Invalid request body"
	msgInvalidQuery = "Invalid query"
	msgInternal     = "Internal server error"
)

type errorResponse struct {
	Error   string             `json:"error"`
	Details []model.FieldError `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug("Failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string, details ...model.FieldError) {
	writeJSON(w, status, errorResponse{Error: msg, Details: details})
}

func writeInternal(w http.ResponseWriter) {
	writeError(w, http.StatusInternalServerError, msgInternal)
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "Not found")
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
}
