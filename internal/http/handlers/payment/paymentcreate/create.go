// Package paymentcreate создаёт заказ в платёжном шлюзе для выбранного тарифа.
package paymentcreate

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/membership-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/membership-service/internal/http/response"
	"github.com/magabrotheeeer/membership-service/internal/lib/sl"
	"github.com/magabrotheeeer/membership-service/internal/services/payment"
)

// CreateOrderRequest представляет запрос на создание заказа.
type CreateOrderRequest struct {
	PlanID int64 `json:"plan_id" validate:"required,gt=0"`
}

// Service определяет интерфейс для работы с платежами.
type Service interface {
	CreateOrder(ctx context.Context, req payment.OrderRequest) (*payment.Checkout, error)
}

// Handler обрабатывает запросы на создание заказа.
type Handler struct {
	log            *slog.Logger        // Логгер для записи информации и ошибок
	paymentService Service             // Сервис платежей
	validate       *validator.Validate // Валидатор структуры входящих данных
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, ps Service) *Handler {
	return &Handler{
		log:            log,
		paymentService: ps,
		validate:       validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Создать заказ
// @Description Создает заказ в платежном шлюзе и платеж в статусе created. Ответ содержит данные для checkout.
// @Tags Payments
// @Accept  json
// @Produce  json
// @Param request body CreateOrderRequest true "Тариф"
// @Success 200 {object} response.Response "Данные для checkout"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос или неактивный тариф"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Тариф не найден"
// @Failure 502 {object} response.ErrorResponse "Платежный шлюз недоступен"
// @Router /payment/create-order [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.create"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		response.WriteBadRequest(w, r, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Warn("validation failed", sl.Err(err))
		response.WriteValidation(w, r, err)
		return
	}

	userID, ok := middlewarectx.UserIDFromContext(r.Context())
	if !ok {
		log.Error("user id not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	checkout, err := h.paymentService.CreateOrder(r.Context(), payment.OrderRequest{
		UserID:    userID,
		PlanID:    req.PlanID,
		UserAgent: r.UserAgent(),
		IPAddress: remoteIP(r),
		CreatedBy: "user",
	})
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	log.Info("order created", slog.String("order_id", checkout.OrderID))
	render.JSON(w, r, response.OKWithData(checkout))
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
