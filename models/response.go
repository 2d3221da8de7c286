package models

// ErrorResponse is the body of every error returned by the API.
type ErrorResponse struct {
	Error string `json:"error"`
}
