package services

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/EO-DataHub/eodhp-directory-services/internal/directory"
	"github.com/EO-DataHub/eodhp-directory-services/models"
	"github.com/rs/zerolog"
)

func WriteResponse(w http.ResponseWriter, statusCode int, response interface{}, location ...string) {

	w.Header().Set("Content-Type", "application/json")

	// We don't want to cache API responses so the client receives most curent data
	w.Header().Set("Cache-Control", "max-age=0")

	// Conditionally set the Location header if provided
	if len(location) > 0 && location[0] != "" {
		w.Header().Set("Location", location[0])
	}

	w.WriteHeader(statusCode)

	if response != nil {
		if err := json.NewEncoder(w).Encode(response); err != nil {
			http.Error(w, "Failed to encode response", http.StatusInternalServerError)
			return
		}
	}
}

// HandleErrResponse writes err as the standard error body.
func HandleErrResponse(w http.ResponseWriter, statusCode int, err error) {
	WriteResponse(w, statusCode, models.ErrorResponse{Error: err.Error()})
}

// statusFor maps a store error onto the HTTP status returned to the client.
func statusFor(err error) int {
	switch {
	case errors.Is(err, directory.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, directory.ErrAlreadyExists):
		return http.StatusForbidden
	case errors.Is(err, directory.ErrUnknownGroup),
		errors.Is(err, directory.ErrUnknownUser),
		errors.Is(err, directory.ErrIdentityMismatch):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// handleStoreError logs a failed store call and writes the mapped response.
// Backend failures are not echoed to the client.
func handleStoreError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	logger := zerolog.Ctx(r.Context())
	status := statusFor(err)

	if status == http.StatusInternalServerError {
		logger.Error().Err(err).Str("operation", operation).Msg("Directory store failure")
		HandleErrResponse(w, status, errors.New("internal server error"))
		return
	}

	logger.Warn().Err(err).Str("operation", operation).Int("status", status).Msg("Directory request rejected")
	HandleErrResponse(w, status, err)
}
