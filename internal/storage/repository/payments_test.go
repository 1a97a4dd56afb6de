package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/membership-service/internal/models"
)

// fixedWindow повторяет правило продления: от последней даты окончания, если она в будущем.
func fixedWindow(now time.Time) WindowFunc {
	return func(latestEnd *time.Time, days int) models.Window {
		start := now
		if latestEnd != nil && latestEnd.After(now) {
			start = *latestEnd
		}
		return models.Window{Start: start, End: start.AddDate(0, 0, days)}
	}
}

func TestStorage_MarkPaymentPaid_StacksAndIsIdempotent(t *testing.T) {
	storage := setupTestStorage(t)
	factory := newTestDataFactory(t, storage)
	ctx := context.Background()

	u := factory.user("stack@example.com", "6000000001")
	plan := factory.plan("Stack", 100, 30)
	factory.payment(u.ID, plan.ID, "order_a")
	factory.payment(u.ID, plan.ID, "order_b")

	t0 := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)

	first, applied, err := storage.MarkPaymentPaid(ctx, models.PaymentConfirmation{
		GatewayOrderID: "order_a", GatewayPaymentID: "pay_a", GatewaySignature: "sig_a",
	}, fixedWindow(t0))
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, models.PaymentStatusPaid, first.Status)
	assert.True(t, t0.Equal(*first.PlanStartDate))
	assert.True(t, t0.AddDate(0, 0, 30).Equal(*first.PlanEndDate))

	// повтор того же заказа не продлевает окно второй раз
	again, applied, err := storage.MarkPaymentPaid(ctx, models.PaymentConfirmation{
		GatewayOrderID: "order_a", GatewayPaymentID: "pay_a", GatewaySignature: "sig_a",
	}, fixedWindow(t0.AddDate(0, 0, 5)))
	require.NoError(t, err)
	assert.False(t, applied)
	assert.True(t, first.PlanEndDate.Equal(*again.PlanEndDate))

	second, applied, err := storage.MarkPaymentPaid(ctx, models.PaymentConfirmation{
		GatewayOrderID: "order_b", GatewayPaymentID: "pay_b",
	}, fixedWindow(t0.AddDate(0, 0, 10)))
	require.NoError(t, err)
	assert.True(t, applied)
	assert.True(t, t0.AddDate(0, 0, 30).Equal(*second.PlanStartDate), "second window must stack on the first")
	assert.True(t, t0.AddDate(0, 0, 60).Equal(*second.PlanEndDate))

	user, err := storage.GetUser(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, user.CurrentPlanEnd)
	assert.True(t, second.PlanEndDate.Equal(*user.CurrentPlanEnd))
	require.NotNil(t, user.MembershipPlanID)
	assert.Equal(t, plan.ID, *user.MembershipPlanID)

	logs, err := storage.ListPaymentLogs(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, models.PaymentStatusCreated, logs[0].Status)
	assert.Equal(t, models.PaymentStatusPaid, logs[1].Status)
}

func TestStorage_MarkPaymentPaid_ConcurrentConfirmations(t *testing.T) {
	storage := setupTestStorage(t)
	factory := newTestDataFactory(t, storage)
	ctx := context.Background()

	u := factory.user("race@example.com", "6000000002")
	plan := factory.plan("Race", 100, 30)
	factory.payment(u.ID, plan.ID, "order_race")

	now := time.Now().UTC().Truncate(time.Second)
	const workers = 5

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := storage.MarkPaymentPaid(ctx, models.PaymentConfirmation{
				GatewayOrderID: "order_race", GatewayPaymentID: "pay_race",
			}, fixedWindow(now))
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, applied)

	p, err := storage.GetPaymentByOrderID(ctx, "order_race")
	require.NoError(t, err)
	assert.True(t, now.AddDate(0, 0, 30).Equal(*p.PlanEndDate))
}

func TestStorage_MarkPaymentPaid_UnknownOrder(t *testing.T) {
	storage := setupTestStorage(t)

	_, _, err := storage.MarkPaymentPaid(context.Background(),
		models.PaymentConfirmation{GatewayOrderID: "missing"}, fixedWindow(time.Now()))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStorage_MarkPaymentFailedAndRefunded(t *testing.T) {
	storage := setupTestStorage(t)
	factory := newTestDataFactory(t, storage)
	ctx := context.Background()

	u := factory.user("refund@example.com", "6000000003")
	plan := factory.plan("Refund", 100, 30)
	factory.payment(u.ID, plan.ID, "order_paid")
	factory.payment(u.ID, plan.ID, "order_fail")

	now := time.Now().UTC().Truncate(time.Second)
	_, _, err := storage.MarkPaymentPaid(ctx, models.PaymentConfirmation{GatewayOrderID: "order_paid"}, fixedWindow(now))
	require.NoError(t, err)

	failed, applied, err := storage.MarkPaymentFailed(ctx, "order_fail")
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, models.PaymentStatusFailed, failed.Status)

	// оплаченный платёж не становится failed
	paid, applied, err := storage.MarkPaymentFailed(ctx, "order_paid")
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, models.PaymentStatusPaid, paid.Status)

	refunded, applied, err := storage.MarkPaymentRefunded(ctx, "order_paid", "rfnd_1")
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, models.PaymentStatusRefunded, refunded.Status)

	user, err := storage.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, user.CurrentPlanEnd)
	assert.Nil(t, user.MembershipPlanID)

	_, applied, err = storage.MarkPaymentRefunded(ctx, "order_paid", "rfnd_1")
	require.NoError(t, err)
	assert.False(t, applied)

	_, _, err = storage.MarkPaymentPaid(ctx, models.PaymentConfirmation{GatewayOrderID: "order_paid"}, fixedWindow(now))
	assert.ErrorIs(t, err, ErrNotPayable)

	require.NoError(t, storage.AppendWebhookLog(ctx, "order_paid", "refund.processed"))
	logs, err := storage.ListPaymentLogs(ctx, refunded.ID)
	require.NoError(t, err)
	assert.Equal(t, "webhook: refund.processed", logs[len(logs)-1].Status)
	assert.Equal(t, "refunded: rfnd_1", logs[len(logs)-2].Status)
}

func TestStorage_ActivePaymentAndLocation(t *testing.T) {
	storage := setupTestStorage(t)
	factory := newTestDataFactory(t, storage)
	ctx := context.Background()

	u := factory.user("active@example.com", "6000000004")
	plan := factory.plan("Active", 100, 30)
	created := factory.payment(u.ID, plan.ID, "order_active")

	_, err := storage.GetActivePayment(ctx, u.ID, time.Now())
	assert.ErrorIs(t, err, ErrNotFound)

	now := time.Now().UTC()
	_, _, err = storage.MarkPaymentPaid(ctx, models.PaymentConfirmation{GatewayOrderID: "order_active"}, fixedWindow(now))
	require.NoError(t, err)

	active, err := storage.GetActivePayment(ctx, u.ID, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, created.ID, active.ID)
	assert.Equal(t, "Active", active.PlanName)

	_, err = storage.GetActivePayment(ctx, u.ID, now.AddDate(0, 0, 31))
	assert.ErrorIs(t, err, ErrNotFound)

	loc := models.Location{City: "Pune", Country: "India"}
	require.NoError(t, storage.UpdatePaymentLocation(ctx, created.ID, loc))

	list, err := storage.ListPaymentsByUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Metadata.Location)
	assert.Equal(t, "Pune", list[0].Metadata.Location.City)
}
