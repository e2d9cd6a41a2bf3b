package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/clinicops/clinic-core/pkg/logger"
	"github.com/clinicops/clinic-core/pkg/types"
)

// maxBodyBytes bounds JSON request bodies
const maxBodyBytes = 1 << 20

// Responder renders JSON payloads and ClinicErrors
type Responder struct {
	logger *logger.Logger
}

// NewResponder creates a responder that logs encode and server failures
func NewResponder(log *logger.Logger) *Responder {
	return &Responder{logger: log}
}

// JSON writes a JSON response
func (rs *Responder) JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		rs.logger.WithError(err).Error("Failed to encode JSON response")
	}
}

// Error maps err onto an HTTP status and writes it. Errors outside the
// ClinicError taxonomy are reported as a generic internal error.
func (rs *Responder) Error(w http.ResponseWriter, r *http.Request, err error) {
	ce, ok := types.AsClinicError(err)
	if !ok {
		ce = types.NewInternalError(types.ErrCodeInternalError, "An internal error occurred", err)
	}

	status := StatusFor(ce)
	if status >= http.StatusInternalServerError {
		rs.logger.WithContext(r.Context()).WithError(err).
			WithField("path", r.URL.Path).
			Error("Request failed")
	}

	rs.JSON(w, status, map[string]interface{}{"error": ce})
}

// StatusFor returns the HTTP status for a ClinicError
func StatusFor(ce *types.ClinicError) int {
	switch ce.Type {
	case types.ErrorTypeAuthentication:
		return http.StatusUnauthorized
	case types.ErrorTypeAuthorization:
		return http.StatusForbidden
	case types.ErrorTypeValidation:
		return http.StatusBadRequest
	case types.ErrorTypeNotFound:
		return http.StatusNotFound
	case types.ErrorTypeConflict:
		return http.StatusConflict
	case types.ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Decode reads a JSON body into v, rejecting unknown fields
func Decode(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return types.NewValidationError(types.ErrCodeInvalidInput, "request body is required", nil)
		}
		return types.NewValidationError(types.ErrCodeInvalidInput, "invalid request body",
			map[string]interface{}{"error": err.Error()})
	}
	return nil
}
