package rabbitmq

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/membership-service/internal/models"
)

func TestPublisher_RoutesToNotificationQueues(t *testing.T) {
	uri := setupBroker(t)
	_, ch := openChannel(t, uri)

	_, err := ch.QueuePurge(QueuePaymentReceipt, false)
	require.NoError(t, err)

	pub := NewPublisher(ch)
	receipt := models.PaymentReceipt{
		UserID:   7,
		Email:    "jane@example.com",
		PlanName: "Gold",
		Amount:   499,
		Currency: "INR",
		OrderID:  "order_1",
	}
	require.NoError(t, pub.Publish(RoutingPaymentPaid, receipt))

	deliveries, err := ch.Consume(QueuePaymentReceipt, "test-consumer", true, false, false, false, nil)
	require.NoError(t, err)

	select {
	case d := <-deliveries:
		var got models.PaymentReceipt
		require.NoError(t, json.Unmarshal(d.Body, &got))
		assert.Equal(t, receipt.OrderID, got.OrderID)
		assert.Equal(t, receipt.Email, got.Email)
		assert.Equal(t, "application/json", d.ContentType)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishMessage_MarshalError(t *testing.T) {
	uri := setupBroker(t)
	_, ch := openChannel(t, uri)

	badMsg := struct {
		Ch chan int `json:"ch"`
	}{Ch: make(chan int)}

	err := PublishMessage(ch, Exchange, RoutingPaymentPaid, badMsg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rabbitmq.PublishMessage")
}
