package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/clinicops/clinic-core/pkg/logger"
	"github.com/clinicops/clinic-core/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  *types.ClinicError
		want int
	}{
		{"unauthenticated", types.NewUnauthenticatedError("no session"), http.StatusUnauthorized},
		{"forbidden", types.NewForbiddenError(types.ReasonRoleMismatch, nil), http.StatusForbidden},
		{"validation", types.NewValidationError(types.ErrCodeInvalidInput, "bad", nil), http.StatusBadRequest},
		{"not found", types.NewNotFoundError("appointment", "a-1"), http.StatusNotFound},
		{"slot conflict", types.NewSlotConflictError(&types.Conflict{Kind: types.ConflictDoctorBusy}, nil), http.StatusConflict},
		{"stale write", types.NewStaleWriteError("appointment", "a-1"), http.StatusConflict},
		{"rate limited", types.NewRateLimitError(time.Second), http.StatusTooManyRequests},
		{"internal", types.NewInternalError(types.ErrCodeInternalError, "boom", nil), http.StatusInternalServerError},
		{"unknown type", &types.ClinicError{Type: "mystery"}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestDecode(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"valid body", `{"name":"ok"}`, ""},
		{"empty body", ``, "request body is required"},
		{"unknown field", `{"name":"ok","role":"admin"}`, "invalid request body"},
		{"malformed json", `{"name":`, "invalid request body"},
		{"body over limit", `{"name":"` + strings.Repeat("a", maxBodyBytes) + `"}`, "invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/", strings.NewReader(tt.body))
			var p payload
			err := Decode(req, &p)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "ok", p.Name)
				return
			}

			ce, ok := types.AsClinicError(err)
			require.True(t, ok, "expected ClinicError, got %v", err)
			assert.Equal(t, types.ErrorTypeValidation, ce.Type)
			assert.Equal(t, types.ErrCodeInvalidInput, ce.Code)
			assert.Contains(t, ce.Message, tt.wantErr)
		})
	}
}

func TestResponderError(t *testing.T) {
	rs := NewResponder(logger.Discard())

	t.Run("clinic error keeps its code", func(t *testing.T) {
		w := httptest.NewRecorder()
		rs.Error(w, httptest.NewRequest("GET", "/", nil), types.NewNotFoundError("appointment", "a-1"))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		var resp struct {
			Error types.ClinicError `json:"error"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, types.ErrCodeNotFound, resp.Error.Code)
	})

	t.Run("plain error becomes internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		rs.Error(w, httptest.NewRequest("GET", "/", nil), errors.New("driver exploded"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "driver exploded")
	})
}
