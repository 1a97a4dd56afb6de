package response

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/membership-service/internal/lib/apperr"
)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "validation",
			err:        apperr.Validation("price", "price must be non-negative"),
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"status":"Error","error":"price must be non-negative","path":"price"}`,
		},
		{
			name:       "conflict",
			err:        apperr.Conflict("email", "email is already registered"),
			wantStatus: http.StatusConflict,
			wantBody:   `{"status":"Error","error":"email is already registered","path":"email"}`,
		},
		{
			name:       "not found",
			err:        apperr.NotFound("plan", "plan not found"),
			wantStatus: http.StatusNotFound,
			wantBody:   `{"status":"Error","error":"plan not found","path":"plan"}`,
		},
		{
			name:       "auth",
			err:        apperr.Auth("invalid email or password"),
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"status":"Error","error":"invalid email or password","path":"auth"}`,
		},
		{
			name:       "forbidden",
			err:        apperr.Forbidden("status", "only administrators can change account status"),
			wantStatus: http.StatusForbidden,
			wantBody:   `{"status":"Error","error":"only administrators can change account status","path":"status"}`,
		},
		{
			name:       "signature mismatch",
			err:        apperr.SignatureMismatch("invalid payment signature"),
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"status":"Error","error":"invalid payment signature","path":"signature"}`,
		},
		{
			name:       "dependency",
			err:        apperr.Dependency("payment gateway unavailable", errors.New("dial tcp: timeout")),
			wantStatus: http.StatusBadGateway,
			wantBody:   `{"status":"Error","error":"payment gateway unavailable","path":"dependency"}`,
		},
		{
			name:       "internal hides details",
			err:        apperr.Internal(errors.New("pq: relation users does not exist")),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"status":"Error","error":"internal server error"}`,
		},
		{
			name:       "plain error",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"status":"Error","error":"internal server error"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			w := httptest.NewRecorder()

			WriteError(w, req, newNoopLogger(), tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}
