package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/WheelyWonka/toaste/internal/models"
)

// request bodies larger than this are rejected
const maxBodyBytes = 64 << 10

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data interface{}, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

// WriteError writes an error response in JSON format
func WriteError(w http.ResponseWriter, status int, message string, logger *slog.Logger) {
	WriteJSON(w, status, map[string]string{"error": message}, logger)
}

// ValidationErrorResponse lists every invalid field of a request
type ValidationErrorResponse struct {
	Error  string              `json:"error"`
	Fields []models.FieldError `json:"fields"`
}

// WriteValidationError writes a 400 with field-level detail
func WriteValidationError(w http.ResponseWriter, verr *models.ValidationError, logger *slog.Logger) {
	WriteJSON(w, http.StatusBadRequest, ValidationErrorResponse{
		Error:  "Validation failed",
		Fields: verr.Fields,
	}, logger)
}

// decodeJSON reads a bounded JSON body into dst. The returned error is safe
// to show to the client.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		}
		return errors.New("invalid request body")
	}
	return nil
}
