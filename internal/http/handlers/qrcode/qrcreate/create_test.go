package qrcreate

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/membership-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/membership-service/internal/lib/apperr"
	"github.com/magabrotheeeer/membership-service/internal/models"
	"github.com/magabrotheeeer/membership-service/internal/services/qrcode"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Issue(ctx context.Context, userID int64) (*models.QRCode, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QRCode), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		setupMocks     func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "issued",
			setupMocks: func(s *MockService) {
				s.On("Issue", mock.Anything, int64(5)).
					Return(&models.QRCode{ID: 9, UserID: 5, QRCodeData: "data:image/png;base64,AA", IsActive: true}, nil).Once()
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "no active plan",
			setupMocks: func(s *MockService) {
				s.On("Issue", mock.Anything, int64(5)).
					Return(nil, apperr.Forbidden("qr_code", qrcode.ReasonNoActivePlan)).Once()
			},
			expectedStatus: http.StatusForbidden,
			expectedBody:   `{"status":"Error","error":"` + qrcode.ReasonNoActivePlan + `","path":"qr_code"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMocks(svc)

			req := httptest.NewRequest(http.MethodPost, "/api/qr-code/create", nil)
			req = req.WithContext(context.WithValue(req.Context(), middlewarectx.UserID, int64(5)))
			w := httptest.NewRecorder()
			New(newNoopLogger(), svc).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedBody != "" {
				assert.JSONEq(t, tt.expectedBody, w.Body.String())
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestHandler_NoUser(t *testing.T) {
	svc := new(MockService)
	w := httptest.NewRecorder()
	New(newNoopLogger(), svc).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/qr-code/create", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	svc.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything)
}
