// Package qradmin отдаёт администратору состояние QR-доступа пользователя.
package qradmin

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/membership-service/internal/http/response"
	"github.com/magabrotheeeer/membership-service/internal/services/qrcode"
)

// Service вычисляет доступ пользователя для администратора.
type Service interface {
	GetForAdmin(ctx context.Context, userID int64) (*qrcode.AdminView, error)
}

// Handler обрабатывает GET /api/admin/qr-codes/user/{user_id}.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary QR-доступ пользователя (админ)
// @Description Возвращает решение о доступе и последнюю сохранённую карточку, даже неактивную
// @Tags Admin
// @Produce  json
// @Param user_id path int true "ID пользователя"
// @Success 200 {object} response.Response "Решение и карточка"
// @Failure 400 {object} response.ErrorResponse "Некорректный ID"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Router /admin/qr-codes/user/{user_id} [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.qrcode.admin"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, err := strconv.ParseInt(chi.URLParam(r, "user_id"), 10, 64)
	if err != nil || userID <= 0 {
		response.WriteBadRequest(w, r, "invalid user id")
		return
	}

	view, err := h.service.GetForAdmin(r.Context(), userID)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	render.JSON(w, r, response.OKWithData(view))
}
