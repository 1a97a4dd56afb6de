// Package paymentwebhook принимает события платёжного шлюза.
package paymentwebhook

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/membership-service/internal/http/response"
	"github.com/magabrotheeeer/membership-service/internal/lib/sl"
	"github.com/magabrotheeeer/membership-service/internal/services/payment"
)

// SignatureHeader - заголовок с hex HMAC-SHA256 тела запроса.
const SignatureHeader = "X-Razorpay-Signature"

const maxBodyBytes = 1 << 20

// Service обрабатывает события вебхука.
type Service interface {
	HandleWebhookEvent(ctx context.Context, rawBody []byte, sig string) (*payment.WebhookResult, error)
}

// Handler обрабатывает входящие вебхуки.
type Handler struct {
	log            *slog.Logger
	paymentService Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, ps Service) *Handler {
	return &Handler{
		log:            log,
		paymentService: ps,
	}
}

// ServeHTTP godoc
// @Summary Вебхук платежного шлюза
// @Description Проверяет подпись X-Razorpay-Signature по сырому телу и применяет событие. Неизвестные заказы подтверждаются 200.
// @Tags Payments
// @Accept  json
// @Produce  json
// @Param X-Razorpay-Signature header string true "HMAC-SHA256 тела (hex)"
// @Success 200 {object} response.Response "Итог обработки"
// @Failure 400 {object} response.ErrorResponse "Неверная подпись или тело"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /admin/webhook [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.webhook"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	// подпись считается по телу байт в байт, поэтому JSON здесь не разбирается
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		log.Error("failed to read body", sl.Err(err))
		response.WriteBadRequest(w, r, "invalid request body")
		return
	}

	result, err := h.paymentService.HandleWebhookEvent(r.Context(), body, r.Header.Get(SignatureHeader))
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	log.Info("webhook processed",
		slog.String("event", result.Event),
		slog.String("order_id", result.OrderID),
		slog.String("outcome", result.Outcome),
	)
	render.JSON(w, r, response.OKWithData(result))
}
