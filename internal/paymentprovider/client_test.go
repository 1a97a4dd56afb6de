package paymentprovider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_CreateOrder(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantID  string
		wantErr string
	}{
		{
			name: "created",
			handler: func(w http.ResponseWriter, r *http.Request) {
				user, pass, ok := r.BasicAuth()
				assert.True(t, ok)
				assert.Equal(t, "rzp_key", user)
				assert.Equal(t, "rzp_secret", pass)
				assert.Equal(t, "/v1/orders", r.URL.Path)

				var req CreateOrderRequest
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, int64(49900), req.Amount)
				assert.Equal(t, "INR", req.Currency)

				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(Order{ID: "order_123", Amount: req.Amount, Currency: req.Currency, Status: "created"})
			},
			wantID: "order_123",
		},
		{
			name: "gateway error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"amount too small"}}`))
			},
			wantErr: "amount too small",
		},
		{
			name: "empty id",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"status":"created"}`))
			},
			wantErr: "empty order id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := NewClient("rzp_key", "rzp_secret", srv.URL, time.Second)
			order, err := c.CreateOrder(context.Background(), CreateOrderRequest{Amount: 49900, Currency: "INR", Receipt: "r1"})

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, order.ID)
		})
	}
}

func TestWebhookEvent_Accessors(t *testing.T) {
	raw := `{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_1","method":"card"}}}}`
	var ev WebhookEvent
	require.NoError(t, json.Unmarshal([]byte(raw), &ev))

	assert.Equal(t, "order_1", ev.OrderID())
	assert.Equal(t, "pay_1", ev.PaymentID())
	assert.Equal(t, "card", ev.PaymentMethod())
	assert.Empty(t, ev.RefundID())

	raw = `{"event":"order.paid","payload":{"order":{"entity":{"id":"order_2"}}}}`
	ev = WebhookEvent{}
	require.NoError(t, json.Unmarshal([]byte(raw), &ev))
	assert.Equal(t, "order_2", ev.OrderID())
	assert.Empty(t, ev.PaymentID())
}
