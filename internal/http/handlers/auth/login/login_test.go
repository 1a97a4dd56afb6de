package login

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/membership-service/internal/lib/apperr"
	"github.com/magabrotheeeer/membership-service/internal/models"
	"github.com/magabrotheeeer/membership-service/internal/services/auth"
)

type AuthServiceMock struct {
	mock.Mock
}

func (m *AuthServiceMock) Login(ctx context.Context, email, password string) (*auth.LoginResult, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.LoginResult), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestLoginHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setupMocks     func(*AuthServiceMock)
		wantStatusCode int
		wantBody       string
	}{
		{
			name: "success",
			body: `{"email":"root@example.com","password":"password123"}`,
			setupMocks: func(m *AuthServiceMock) {
				m.On("Login", mock.Anything, "root@example.com", "password123").Return(&auth.LoginResult{
					Token: "admin-jwt",
					Admin: &models.Admin{ID: 1, Username: "root", Email: "root@example.com"},
				}, nil).Once()
			},
			wantStatusCode: http.StatusOK,
			wantBody: `{"status":"OK","data":{"token":"admin-jwt","admin":{"id":1,"username":"root",` +
				`"email":"root@example.com","created_at":"0001-01-01T00:00:00Z"}}}`,
		},
		{
			name: "invalid credentials",
			body: `{"email":"root@example.com","password":"bad"}`,
			setupMocks: func(m *AuthServiceMock) {
				m.On("Login", mock.Anything, "root@example.com", "bad").
					Return(nil, apperr.Auth("invalid email or password")).Once()
			},
			wantStatusCode: http.StatusUnauthorized,
			wantBody:       `{"status":"Error","error":"invalid email or password","path":"auth"}`,
		},
		{
			name: "internal error",
			body: `{"email":"root@example.com","password":"password123"}`,
			setupMocks: func(m *AuthServiceMock) {
				m.On("Login", mock.Anything, "root@example.com", "password123").
					Return(nil, apperr.Internal(errors.New("db down"))).Once()
			},
			wantStatusCode: http.StatusInternalServerError,
			wantBody:       `{"status":"Error","error":"internal server error"}`,
		},
		{
			name:           "invalid json",
			body:           `not a json`,
			setupMocks:     func(*AuthServiceMock) {},
			wantStatusCode: http.StatusBadRequest,
			wantBody:       `{"status":"Error","error":"invalid request body"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(AuthServiceMock)
			tt.setupMocks(svc)

			req := httptest.NewRequest(http.MethodPost, "/api/admin/login", bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()
			New(newNoopLogger(), svc).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatusCode, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
			svc.AssertExpectations(t)
		})
	}
}
