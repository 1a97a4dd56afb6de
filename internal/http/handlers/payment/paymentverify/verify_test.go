package paymentverify

import (
	"bytes"
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
)

type MockService struct {
	mock.Mock
}

func (m *MockService) ConfirmPayment(ctx context.Context, userID int64, c models.PaymentConfirmation) (*models.Payment, error) {
	args := m.Called(ctx, userID, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *MockService) AdminConfirmPayment(ctx context.Context, c models.PaymentConfirmation) (*models.Payment, error) {
	args := m.Called(ctx, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const body = `{"razorpay_order_id":"order_1","razorpay_payment_id":"pay_1","razorpay_signature":"abc"}`

var confirmation = models.PaymentConfirmation{
	GatewayOrderID: "order_1", GatewayPaymentID: "pay_1", GatewaySignature: "abc",
}

func TestHandler_User(t *testing.T) {
	tests := []struct {
		name           string
		setupMocks     func(*MockService)
		expectedStatus int
	}{
		{
			name: "paid",
			setupMocks: func(s *MockService) {
				s.On("ConfirmPayment", mock.Anything, int64(7), confirmation).
					Return(&models.Payment{GatewayOrderID: "order_1", Status: models.PaymentStatusPaid}, nil).Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "signature mismatch",
			setupMocks: func(s *MockService) {
				s.On("ConfirmPayment", mock.Anything, int64(7), confirmation).
					Return(nil, apperr.SignatureMismatch("invalid payment signature")).Once()
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "foreign order",
			setupMocks: func(s *MockService) {
				s.On("ConfirmPayment", mock.Anything, int64(7), confirmation).
					Return(nil, apperr.Forbidden("order_id", "order belongs to another user")).Once()
			},
			expectedStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMocks(svc)

			req := httptest.NewRequest(http.MethodPost, "/api/payment/verify-payment", bytes.NewBufferString(body))
			req = req.WithContext(context.WithValue(req.Context(), middlewarectx.UserID, int64(7)))
			w := httptest.NewRecorder()
			NewUser(newNoopLogger(), svc).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestHandler_Admin(t *testing.T) {
	svc := new(MockService)
	svc.On("AdminConfirmPayment", mock.Anything, confirmation).
		Return(&models.Payment{GatewayOrderID: "order_1", Status: models.PaymentStatusPaid}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/api/admin/payments/verify", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	NewAdmin(newNoopLogger(), svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"paid"`)
	svc.AssertNotCalled(t, "ConfirmPayment", mock.Anything, mock.Anything, mock.Anything)
	svc.AssertExpectations(t)
}
