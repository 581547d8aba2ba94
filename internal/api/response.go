package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/pregled/internal/auth"
	"github.com/erazemk/pregled/internal/imaging"
	"github.com/erazemk/pregled/internal/qc"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("error encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// qcStatus maps an inspection error to an HTTP status.
func qcStatus(err error) int {
	var subErr *qc.SubmissionError
	switch {
	case qc.IsValidation(err),
		errors.Is(err, imaging.ErrUnsupported):
		return http.StatusBadRequest
	case errors.Is(err, imaging.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, qc.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, qc.ErrSessionClosed),
		errors.Is(err, qc.ErrSubmitting):
		return http.StatusConflict
	case errors.Is(err, auth.ErrNoIdentity):
		return http.StatusUnauthorized
	case errors.As(err, &subErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// qcError writes an inspection error. Internal failures are logged and
// reported with the generic message.
func qcError(w http.ResponseWriter, err error, message string) {
	status := qcStatus(err)
	if status == http.StatusInternalServerError {
		slog.Error(message, "error", err)
		jsonError(w, status, message)
		return
	}
	if status == http.StatusBadGateway {
		slog.Warn(message, "error", err)
	}
	jsonError(w, status, err.Error())
}
