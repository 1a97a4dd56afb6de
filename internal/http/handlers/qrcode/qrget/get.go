// Package qrget отдаёт текущему пользователю решение о доступе и активную карточку.
package qrget

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/membership-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/membership-service/internal/http/response"
	"github.com/magabrotheeeer/membership-service/internal/services/qrcode"
)

// Service вычисляет доступ пользователя.
type Service interface {
	GetForUser(ctx context.Context, userID int64) (*qrcode.Decision, error)
}

// Handler обрабатывает GET /api/qr-code/get.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary QR-доступ пользователя
// @Description Возвращает allowed, причину отказа и активную карточку. При истёкшем членстве карточки деактивируются.
// @Tags QR
// @Produce  json
// @Success 200 {object} response.Response "Решение о доступе"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Router /qr-code/get [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.qrcode.get"
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

	d, err := h.service.GetForUser(r.Context(), userID)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	log.Debug("qr access evaluated", slog.Bool("allowed", d.Allowed), slog.String("reason", d.Reason))
	render.JSON(w, r, response.OKWithData(d))
}
