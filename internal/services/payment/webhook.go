package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/membership-service/internal/lib/apperr"
	"github.com/magabrotheeeer/membership-service/internal/lib/signature"
	"github.com/magabrotheeeer/membership-service/internal/lib/sl"
	"github.com/magabrotheeeer/membership-service/internal/metrics"
	"github.com/magabrotheeeer/membership-service/internal/models"
	"github.com/magabrotheeeer/membership-service/internal/paymentprovider"
	"github.com/magabrotheeeer/membership-service/internal/storage/repository"
)

// События вебхука шлюза.
const (
	EventPaymentCaptured = "payment.captured"
	EventOrderPaid       = "order.paid"
	EventPaymentFailed   = "payment.failed"
	EventRefundProcessed = "refund.processed"
	EventRefundCreated   = "refund.created"
	EventPaymentRefunded = "payment.refunded"
)

// Исходы обработки события.
const (
	OutcomeApplied   = "applied"
	OutcomeDuplicate = "duplicate"
	OutcomeIgnored   = "ignored"
)

// WebhookResult - итог обработки события вебхука.
type WebhookResult struct {
	Event   string `json:"event"`
	OrderID string `json:"order_id,omitempty"`
	Status  string `json:"status,omitempty"`
	Outcome string `json:"outcome"`
}

// HandleWebhookEvent проверяет подпись тела запроса и применяет событие к платежу.
//
// Подпись считается по rawBody в точности как он пришёл. События для неизвестных
// заказов и неподдерживаемые события подтверждаются без изменений. Повтор события
// для оплаченного заказа не сдвигает окно членства.
func (s *Service) HandleWebhookEvent(ctx context.Context, rawBody []byte, sig string) (*WebhookResult, error) {
	const op = "payment.HandleWebhookEvent"
	log := s.log.With(sl.Op(op))

	if !signature.Verify(s.secrets.WebhookSecret, rawBody, sig) {
		metrics.SignatureFailures.WithLabelValues(metrics.SourceWebhook).Inc()
		log.Warn("webhook signature mismatch")
		return nil, apperr.SignatureMismatch("invalid webhook signature")
	}

	var ev paymentprovider.WebhookEvent
	if err := json.Unmarshal(rawBody, &ev); err != nil {
		return nil, apperr.Validation("body", "malformed webhook payload")
	}
	if ev.Event == "" {
		return nil, apperr.Validation("event", "event is required")
	}
	metrics.WebhookEvents.WithLabelValues(ev.Event).Inc()

	res := &WebhookResult{Event: ev.Event, OrderID: ev.OrderID(), Outcome: OutcomeIgnored}
	log = log.With(slog.String("event", ev.Event), slog.String("order_id", res.OrderID))
	if res.OrderID == "" {
		log.Warn("webhook event without order id")
		return res, nil
	}

	if err := s.repo.AppendWebhookLog(ctx, res.OrderID, ev.Event); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Warn("webhook for unknown order")
			return res, nil
		}
		log.Error("failed to append webhook log", sl.Err(err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	var (
		p       *models.Payment
		applied bool
		err     error
	)
	switch ev.Event {
	case EventPaymentCaptured, EventOrderPaid:
		p, applied, err = s.repo.MarkPaymentPaid(ctx, models.PaymentConfirmation{
			GatewayOrderID:   res.OrderID,
			GatewayPaymentID: ev.PaymentID(),
			PaymentMethod:    ev.PaymentMethod(),
		}, s.window)
		if errors.Is(err, repository.ErrNotPayable) || errors.Is(err, repository.ErrAlreadyPaid) {
			log.Info("payment not transitioned to paid", sl.Err(err))
			res.Outcome = OutcomeDuplicate
			return res, nil
		}
		if err == nil && applied {
			metrics.PaymentsConfirmed.WithLabelValues(metrics.SourceWebhook).Inc()
			s.publishReceipt(ctx, log, p)
		}
	case EventPaymentFailed:
		p, applied, err = s.repo.MarkPaymentFailed(ctx, res.OrderID)
	case EventRefundProcessed, EventRefundCreated, EventPaymentRefunded:
		p, applied, err = s.repo.MarkPaymentRefunded(ctx, res.OrderID, ev.RefundID())
	default:
		log.Info("unsupported webhook event")
		return res, nil
	}
	if err != nil {
		log.Error("failed to apply webhook event", sl.Err(err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	res.Status = p.Status
	res.Outcome = OutcomeDuplicate
	if applied {
		res.Outcome = OutcomeApplied
	}
	log.Info("webhook processed", slog.String("outcome", res.Outcome), slog.String("status", p.Status))
	return res, nil
}
