package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/benvon/taskboard/internal/database"
	logpkg "github.com/benvon/taskboard/internal/logger"
	"github.com/benvon/taskboard/internal/validation"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// maxErrorMessageLength keeps error envelopes short
const maxErrorMessageLength = 200

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   true,
		"data":      data,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// sanitizeErrorMessage truncates messages so internal detail cannot leak through long errors
func sanitizeErrorMessage(message string) string {
	if len(message) > maxErrorMessageLength {
		return message[:maxErrorMessageLength] + "..."
	}
	return message
}

// respondJSONError sends an error JSON response with sanitized error messages
func respondJSONError(w http.ResponseWriter, status int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   false,
		"error":     errorType,
		"message":   sanitizeErrorMessage(message),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// respondStoreError maps repository sentinels onto HTTP statuses
func respondStoreError(w http.ResponseWriter, logger *zap.Logger, err error, subject string) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		respondJSONError(w, http.StatusNotFound, "Not Found", subject+" not found")
	case errors.Is(err, database.ErrDuplicate):
		respondJSONError(w, http.StatusConflict, "Conflict", subject+" already exists")
	case errors.Is(err, database.ErrUnavailable):
		logger.Error("storage_unavailable", zap.String("subject", subject), zap.Error(err))
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "Storage is unavailable")
	default:
		logger.Error("storage_error", zap.String("subject", subject), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to process "+subject)
	}
}

// decodeJSON decodes and validates the request body into dst. It writes the error response itself.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return false
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return false
	}

	if err := validation.Validate.Struct(dst); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Validation failed: %s", validationErrors[0].Error()))
			return false
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed")
		return false
	}
	return true
}

// pathID parses the {id} route variable
func pathID(w http.ResponseWriter, r *http.Request, subject string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid "+subject+" ID")
		return uuid.Nil, false
	}
	return id, true
}

// DashboardInvalidator drops an owner's cached dashboard after a write
type DashboardInvalidator interface {
	Invalidate(ctx context.Context, ownerID uuid.UUID) error
}

// RefreshScheduler queues a background rebuild of an owner's dashboard
type RefreshScheduler interface {
	Schedule(ctx context.Context, ownerID uuid.UUID) error
}

// writeHooks run after every successful mutation. Failures are logged, never surfaced:
// the write already happened and a stale cache expires on its own.
type writeHooks struct {
	invalidator DashboardInvalidator
	scheduler   RefreshScheduler
	logger      *zap.Logger
}

func (h writeHooks) afterWrite(ctx context.Context, ownerID uuid.UUID) {
	if h.invalidator != nil {
		if err := h.invalidator.Invalidate(ctx, ownerID); err != nil {
			h.logger.Warn("dashboard_invalidate_failed",
				logpkg.UserID(ownerID),
				zap.Error(err),
			)
		}
	}
	if h.scheduler != nil {
		if err := h.scheduler.Schedule(ctx, ownerID); err != nil {
			h.logger.Warn("dashboard_refresh_schedule_failed",
				logpkg.UserID(ownerID),
				zap.Error(err),
			)
		}
	}
}
