package userregister

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/membership-service/internal/lib/apperr"
	"github.com/magabrotheeeer/membership-service/internal/models"
	"github.com/magabrotheeeer/membership-service/internal/services/users"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Register(ctx context.Context, in users.RegisterInput) (*models.User, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockService) AdminCreate(ctx context.Context, in users.RegisterInput) (*models.User, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

const validBody = `{"first_name":"Asha","email":"asha@example.com","password":"password123",` +
	`"status":"blocked","phone_numbers":[{"country_code":"+91","phone_number":"9876543210"}]}`

func TestHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		admin          bool
		body           string
		setupMocks     func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "self registration ignores status",
			body: validBody,
			setupMocks: func(s *MockService) {
				s.On("Register", mock.Anything, mock.MatchedBy(func(in users.RegisterInput) bool {
					return in.Status == "" && in.Email == "asha@example.com" && len(in.PhoneNumbers) == 1
				})).Return(&models.User{ID: 7, FirstName: "Asha", Email: "asha@example.com", Status: "active"}, nil).Once()
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:  "admin create passes status",
			admin: true,
			body:  validBody,
			setupMocks: func(s *MockService) {
				s.On("AdminCreate", mock.Anything, mock.MatchedBy(func(in users.RegisterInput) bool {
					return in.Status == models.UserStatusBlocked
				})).Return(&models.User{ID: 8, Status: "blocked"}, nil).Once()
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "invalid JSON",
			body:           `{`,
			setupMocks:     func(*MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"invalid request body"}`,
		},
		{
			name:           "missing phone numbers",
			body:           `{"first_name":"Asha","email":"asha@example.com","password":"password123"}`,
			setupMocks:     func(*MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"field PhoneNumbers is a required field"}`,
		},
		{
			name: "email conflict",
			body: validBody,
			setupMocks: func(s *MockService) {
				s.On("Register", mock.Anything, mock.Anything).
					Return(nil, apperr.Conflict("email", "email is already registered")).Once()
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `{"status":"Error","error":"email is already registered","path":"email"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMocks(svc)
			handler := NewSelf(newNoopLogger(), svc)
			if tt.admin {
				handler = NewAdmin(newNoopLogger(), svc)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/user/register", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "req-id"))
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedBody != "" {
				assert.JSONEq(t, tt.expectedBody, w.Body.String())
			}
			svc.AssertExpectations(t)
		})
	}
}
