// Package payment содержит платёжный реестр: создание заказов в шлюзе,
// подтверждение оплаты по подписи и обработку вебхуков.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/membership-service/internal/lib/apperr"
	"github.com/magabrotheeeer/membership-service/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/membership-service/internal/lib/signature"
	"github.com/magabrotheeeer/membership-service/internal/lib/sl"
	"github.com/magabrotheeeer/membership-service/internal/lib/useragent"
	"github.com/magabrotheeeer/membership-service/internal/metrics"
	"github.com/magabrotheeeer/membership-service/internal/models"
	"github.com/magabrotheeeer/membership-service/internal/paymentprovider"
	"github.com/magabrotheeeer/membership-service/internal/storage/repository"
)

// GatewayName записывается в payment_gateway.
const GatewayName = "razorpay"

const (
	receiptPrefix   = "order_rcptid_"
	locationTimeout = 5 * time.Second
)

// Repository определяет методы хранилища, нужные платёжному реестру.
type Repository interface {
	GetPlan(ctx context.Context, id int64) (*models.Plan, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	CreatePayment(ctx context.Context, np models.NewPayment) (*models.Payment, error)
	GetPaymentByOrderID(ctx context.Context, orderID string) (*models.Payment, error)
	ListPaymentsByUser(ctx context.Context, userID int64) ([]*models.Payment, error)
	MarkPaymentPaid(ctx context.Context, c models.PaymentConfirmation, window repository.WindowFunc) (*models.Payment, bool, error)
	MarkPaymentFailed(ctx context.Context, orderID string) (*models.Payment, bool, error)
	MarkPaymentRefunded(ctx context.Context, orderID, note string) (*models.Payment, bool, error)
	AppendWebhookLog(ctx context.Context, orderID, event string) error
	UpdatePaymentLocation(ctx context.Context, paymentID int64, loc models.Location) error
}

// Gateway создаёт заказы в платёжном шлюзе.
type Gateway interface {
	CreateOrder(ctx context.Context, req paymentprovider.CreateOrderRequest) (*paymentprovider.Order, error)
	KeyID() string
}

// Geolocator определяет местоположение IP-адреса.
type Geolocator interface {
	Lookup(ctx context.Context, ip string) (*models.Location, error)
}

// Publisher публикует уведомления.
type Publisher interface {
	Publish(routingKey string, message any) error
}

// Secrets - ключи проверки подписей.
type Secrets struct {
	KeySecret     string
	WebhookSecret string
}

// Service реализует платёжный реестр.
type Service struct {
	repo      Repository
	gateway   Gateway
	geo       Geolocator
	publisher Publisher
	window    repository.WindowFunc
	secrets   Secrets
	currency  string
	log       *slog.Logger

	// async запускает фоновые задачи; в тестах подменяется синхронным вызовом.
	async func(func())
	wg    sync.WaitGroup
}

// New создаёт платёжный сервис. geo и publisher могут быть nil.
func New(
	repo Repository,
	gateway Gateway,
	geo Geolocator,
	publisher Publisher,
	window repository.WindowFunc,
	secrets Secrets,
	currency string,
	log *slog.Logger,
) *Service {
	s := &Service{
		repo:      repo,
		gateway:   gateway,
		geo:       geo,
		publisher: publisher,
		window:    window,
		secrets:   secrets,
		currency:  currency,
		log:       log,
	}
	s.async = s.track
	return s
}

func (s *Service) track(f func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		f()
	}()
}

// Wait блокируется до завершения всех фоновых задач сервиса.
// Вызывается при остановке перед закрытием хранилища.
func (s *Service) Wait() {
	s.wg.Wait()
}

// OrderRequest - данные для создания заказа.
type OrderRequest struct {
	UserID    int64
	PlanID    int64
	UserAgent string
	IPAddress string
	CreatedBy string
}

// Checkout - данные для клиентского checkout шлюза.
type Checkout struct {
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"key_id"`
	PlanID   int64  `json:"plan_id"`
	PlanName string `json:"plan_name"`
}

// CreateOrder создаёт заказ в шлюзе и сохраняет платёж в статусе created.
// Геолокация выполняется после сохранения в фоне и не влияет на результат.
func (s *Service) CreateOrder(ctx context.Context, req OrderRequest) (*Checkout, error) {
	const op = "payment.CreateOrder"
	log := s.log.With(sl.Op(op), slog.Int64("user_id", req.UserID), slog.Int64("plan_id", req.PlanID))

	if req.PlanID <= 0 {
		return nil, apperr.Validation("plan_id", "plan_id is required")
	}
	plan, err := s.repo.GetPlan(ctx, req.PlanID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("plan_id", "plan not found")
		}
		log.Error("failed to get plan", sl.Err(err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	if !plan.IsActive {
		return nil, apperr.Validation("plan_id", "plan is not active")
	}

	amount := toMinorUnits(plan.Price)
	order, err := s.gateway.CreateOrder(ctx, paymentprovider.CreateOrderRequest{
		Amount:   amount,
		Currency: s.currency,
		Receipt:  newReceipt(),
		Notes: map[string]string{
			"user_id": fmt.Sprint(req.UserID),
			"plan_id": fmt.Sprint(plan.ID),
		},
	})
	if err != nil {
		log.Error("gateway order creation failed", sl.Err(err))
		return nil, apperr.Dependency("payment gateway is unavailable", fmt.Errorf("%s: %w", op, err))
	}

	client := useragent.Classify(req.UserAgent)
	createdBy := req.CreatedBy
	if createdBy == "" {
		createdBy = "user"
	}
	p, err := s.repo.CreatePayment(ctx, models.NewPayment{
		UserID:         req.UserID,
		PlanID:         plan.ID,
		Amount:         plan.Price,
		Currency:       s.currency,
		PaymentGateway: GatewayName,
		GatewayOrderID: order.ID,
		Metadata: models.PaymentMetadata{
			UserAgent:    req.UserAgent,
			IPAddress:    req.IPAddress,
			DeviceType:   client.DeviceType,
			Browser:      client.Browser,
			CreatedBy:    createdBy,
			CreatedAt:    time.Now().UTC(),
			DurationDays: plan.DurationInDays,
		},
	})
	if err != nil {
		log.Error("failed to persist payment", slog.String("order_id", order.ID), sl.Err(err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	metrics.OrdersCreated.Inc()
	log.Info("order created", slog.String("order_id", order.ID))

	if s.geo != nil && req.IPAddress != "" {
		paymentID, ip := p.ID, req.IPAddress
		s.async(func() { s.enrichLocation(paymentID, ip) })
	}

	return &Checkout{
		OrderID:  order.ID,
		Amount:   amount,
		Currency: s.currency,
		KeyID:    s.gateway.KeyID(),
		PlanID:   plan.ID,
		PlanName: plan.Name,
	}, nil
}

func (s *Service) enrichLocation(paymentID int64, ip string) {
	const op = "payment.enrichLocation"
	log := s.log.With(sl.Op(op), slog.Int64("payment_id", paymentID))

	ctx, cancel := context.WithTimeout(context.Background(), locationTimeout)
	defer cancel()

	loc, err := s.geo.Lookup(ctx, ip)
	if err != nil {
		log.Warn("geolocation lookup failed", sl.Err(err))
		return
	}
	if err := s.repo.UpdatePaymentLocation(ctx, paymentID, *loc); err != nil {
		log.Warn("failed to store payment location", sl.Err(err))
	}
}

// ConfirmPayment подтверждает оплату заказа пользователя userID по подписи шлюза.
func (s *Service) ConfirmPayment(ctx context.Context, userID int64, c models.PaymentConfirmation) (*models.Payment, error) {
	const op = "payment.ConfirmPayment"

	if err := validateConfirmation(c); err != nil {
		return nil, err
	}
	p, err := s.getPayment(ctx, op, c.GatewayOrderID)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, apperr.Forbidden("order_id", "order does not belong to the current user")
	}
	if err := s.verify(c, metrics.SourceVerify); err != nil {
		return nil, err
	}
	return s.confirm(ctx, op, c, metrics.SourceVerify)
}

// AdminConfirmPayment подтверждает оплату любого заказа. Подпись проверяется так же.
func (s *Service) AdminConfirmPayment(ctx context.Context, c models.PaymentConfirmation) (*models.Payment, error) {
	const op = "payment.AdminConfirmPayment"

	if err := validateConfirmation(c); err != nil {
		return nil, err
	}
	if _, err := s.getPayment(ctx, op, c.GatewayOrderID); err != nil {
		return nil, err
	}
	if err := s.verify(c, metrics.SourceAdminVerify); err != nil {
		return nil, err
	}
	return s.confirm(ctx, op, c, metrics.SourceAdminVerify)
}

// ListMyPayments возвращает платежи пользователя, новые первыми.
func (s *Service) ListMyPayments(ctx context.Context, userID int64) ([]*models.Payment, error) {
	const op = "payment.ListMyPayments"
	list, err := s.repo.ListPaymentsByUser(ctx, userID)
	if err != nil {
		s.log.Error("failed to list payments", sl.Op(op), sl.Err(err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	return list, nil
}

func (s *Service) verify(c models.PaymentConfirmation, source string) error {
	msg := signature.PaymentMessage(c.GatewayOrderID, c.GatewayPaymentID)
	if !signature.Verify(s.secrets.KeySecret, msg, c.GatewaySignature) {
		metrics.SignatureFailures.WithLabelValues(source).Inc()
		s.log.Warn("payment signature mismatch", slog.String("order_id", c.GatewayOrderID))
		return apperr.SignatureMismatch("invalid payment signature")
	}
	return nil
}

// confirm переводит платёж в paid. Повторное подтверждение возвращает уже
// сохранённое окно и ничего не пересчитывает.
func (s *Service) confirm(ctx context.Context, op string, c models.PaymentConfirmation, source string) (*models.Payment, error) {
	log := s.log.With(sl.Op(op), slog.String("order_id", c.GatewayOrderID))

	p, applied, err := s.repo.MarkPaymentPaid(ctx, c, s.window)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrAlreadyPaid):
		return s.getPayment(ctx, op, c.GatewayOrderID)
	case errors.Is(err, repository.ErrNotFound):
		return nil, apperr.NotFound("order_id", "order not found")
	case errors.Is(err, repository.ErrNotPayable):
		return nil, apperr.Conflict("order_id", "payment was refunded and cannot be confirmed")
	default:
		log.Error("failed to mark payment paid", sl.Err(err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	if !applied {
		log.Info("payment already confirmed")
		return p, nil
	}

	metrics.PaymentsConfirmed.WithLabelValues(source).Inc()
	log.Info("payment confirmed", slog.Int64("user_id", p.UserID), slog.String("source", source))
	s.publishReceipt(ctx, log, p)
	return p, nil
}

func (s *Service) publishReceipt(ctx context.Context, log *slog.Logger, p *models.Payment) {
	if s.publisher == nil || p.PlanStartDate == nil || p.PlanEndDate == nil {
		return
	}
	user, err := s.repo.GetUser(ctx, p.UserID)
	if err != nil {
		log.Warn("failed to load user for receipt", sl.Err(err))
		return
	}
	msg := models.PaymentReceipt{
		UserID:    user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		PlanName:  p.PlanName,
		Amount:    p.Amount,
		Currency:  p.Currency,
		OrderID:   p.GatewayOrderID,
		PlanStart: *p.PlanStartDate,
		PlanEnd:   *p.PlanEndDate,
	}
	if err := s.publisher.Publish(rabbitmq.RoutingPaymentPaid, msg); err != nil {
		log.Warn("failed to publish payment receipt", sl.Err(err))
	}
}

func (s *Service) getPayment(ctx context.Context, op, orderID string) (*models.Payment, error) {
	p, err := s.repo.GetPaymentByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("order_id", "order not found")
		}
		s.log.Error("failed to get payment", sl.Op(op), sl.Err(err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	return p, nil
}

func validateConfirmation(c models.PaymentConfirmation) error {
	switch {
	case strings.TrimSpace(c.GatewayOrderID) == "":
		return apperr.Validation("razorpay_order_id", "order id is required")
	case strings.TrimSpace(c.GatewayPaymentID) == "":
		return apperr.Validation("razorpay_payment_id", "payment id is required")
	case strings.TrimSpace(c.GatewaySignature) == "":
		return apperr.Validation("razorpay_signature", "signature is required")
	}
	return nil
}

// toMinorUnits переводит сумму в минимальные единицы валюты (пайсы).
func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// newReceipt возвращает уникальный номер квитанции не длиннее 40 символов.
func newReceipt() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return receiptPrefix + id[:24]
}
