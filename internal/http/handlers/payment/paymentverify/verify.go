// Package paymentverify подтверждает оплату по подписи шлюза.
package paymentverify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/membership-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/membership-service/internal/http/response"
	"github.com/magabrotheeeer/membership-service/internal/lib/sl"
	"github.com/magabrotheeeer/membership-service/internal/models"
)

// Request - данные, полученные клиентом от checkout шлюза.
type Request struct {
	OrderID       string `json:"razorpay_order_id"`
	PaymentID     string `json:"razorpay_payment_id"`
	Signature     string `json:"razorpay_signature"`
	PaymentMethod string `json:"payment_method"`
}

// Service подтверждает платёж.
type Service interface {
	ConfirmPayment(ctx context.Context, userID int64, c models.PaymentConfirmation) (*models.Payment, error)
	AdminConfirmPayment(ctx context.Context, c models.PaymentConfirmation) (*models.Payment, error)
}

// Handler обрабатывает подтверждение оплаты.
// Участник может подтвердить только свой заказ, администратор любой.
type Handler struct {
	log     *slog.Logger
	service Service
	admin   bool
}

// NewUser создаёт обработчик POST /api/payment/verify-payment.
func NewUser(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// NewAdmin создаёт обработчик POST /api/admin/payments/verify.
func NewAdmin(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service, admin: true}
}

// ServeHTTP godoc
// @Summary Подтверждение оплаты
// @Description Проверяет HMAC-подпись order_id|payment_id и переводит платёж в paid. Повтор идемпотентен.
// @Tags Payments
// @Accept  json
// @Produce  json
// @Param request body Request true "Ответ checkout"
// @Success 200 {object} response.Response "Платёж с окном членства"
// @Failure 400 {object} response.ErrorResponse "Неверная подпись или данные"
// @Failure 403 {object} response.ErrorResponse "Заказ принадлежит другому пользователю"
// @Failure 404 {object} response.ErrorResponse "Заказ не найден"
// @Failure 409 {object} response.ErrorResponse "Платёж нельзя подтвердить"
// @Router /payment/verify-payment [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.verify"
	log := h.log.With(
		slog.String("op", op),
		slog.Bool("admin", h.admin),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		response.WriteBadRequest(w, r, "invalid request body")
		return
	}
	c := models.PaymentConfirmation{
		GatewayOrderID:   req.OrderID,
		GatewayPaymentID: req.PaymentID,
		GatewaySignature: req.Signature,
		PaymentMethod:    req.PaymentMethod,
	}

	var (
		p   *models.Payment
		err error
	)
	if h.admin {
		p, err = h.service.AdminConfirmPayment(r.Context(), c)
	} else {
		userID, ok := middlewarectx.UserIDFromContext(r.Context())
		if !ok {
			log.Error("user id not found in context")
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.Error("unauthorized"))
			return
		}
		p, err = h.service.ConfirmPayment(r.Context(), userID, c)
	}
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	log.Info("payment confirmed", slog.String("order_id", p.GatewayOrderID), slog.String("status", p.Status))
	render.JSON(w, r, response.OKWithData(p))
}
