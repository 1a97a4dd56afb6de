// Package qrcreate выпускает QR-карточку текущему пользователю.
package qrcreate

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/membership-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/membership-service/internal/http/response"
	"github.com/magabrotheeeer/membership-service/internal/models"
)

// Service выпускает карточки.
type Service interface {
	Issue(ctx context.Context, userID int64) (*models.QRCode, error)
}

// Handler обрабатывает POST /api/qr-code/create.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Выпуск QR-карточки
// @Description Выпускает новую vCard QR-карточку, если у пользователя есть действующее членство и карточки не заблокированы
// @Tags QR
// @Produce  json
// @Success 201 {object} response.Response "Выпущенная карточка"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Нет действующего членства или карточка заблокирована"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Router /qr-code/create [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.qrcode.create"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, ok := middlewarectx.UserIDFromContext(r.Context())
	if !ok {
		log.Error("user id not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	qr, err := h.service.Issue(r.Context(), userID)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	log.Info("qr code issued", slog.Int64("qr_code_id", qr.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(qr))
}
