// Package metrics регистрирует прикладные метрики Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "membership"

var (
	// OrdersCreated - созданные заказы шлюза.
	OrdersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_created_total",
		Help:      "Number of gateway orders created.",
	})

	// PaymentsConfirmed - платежи, переведённые в paid, по источнику (verify, admin_verify, webhook).
	PaymentsConfirmed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payments_confirmed_total",
		Help:      "Number of payments transitioned to paid.",
	}, []string{"source"})

	// WebhookEvents - проверенные события вебхука по типу.
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_events_total",
		Help:      "Number of verified gateway webhook events.",
	}, []string{"event"})

	// SignatureFailures - отклонённые подписи по источнику (verify, webhook).
	SignatureFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signature_failures_total",
		Help:      "Number of rejected gateway signatures.",
	}, []string{"source"})

	// QRCodesIssued - выпущенные QR-пропуска.
	QRCodesIssued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "qr_codes_issued_total",
		Help:      "Number of QR access credentials issued.",
	})

	// QREvaluations - результаты проверки доступа по QR.
	QREvaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "qr_evaluations_total",
		Help:      "QR access gate evaluations by outcome.",
	}, []string{"outcome"})
)

// Источники подтверждения платежа.
const (
	SourceVerify      = "verify"
	SourceAdminVerify = "admin_verify"
	SourceWebhook     = "webhook"
)
