package handlers

import (
	"errors"
	"net/http"

	"github.com/EO-DataHub/eodhp-directory-services/api/services"
)

// NotFound answers unmatched paths with the standard JSON error body.
func NotFound() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		services.HandleErrResponse(w, http.StatusNotFound, errors.New("not found"))
	}
}

// MethodNotAllowed answers a known path called with an unsupported method.
func MethodNotAllowed() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		services.HandleErrResponse(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
	}
}
