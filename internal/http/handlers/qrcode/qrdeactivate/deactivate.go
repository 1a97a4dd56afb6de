// Package qrdeactivate включает и снимает административную блокировку QR-карточек.
package qrdeactivate

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/membership-service/internal/http/response"
	"github.com/magabrotheeeer/membership-service/internal/lib/sl"
	"github.com/magabrotheeeer/membership-service/internal/models"
)

// Request - новое значение флага блокировки.
type Request struct {
	QRDisabledByAdmin *bool `json:"qr_disabled_by_admin"`
}

// Service меняет флаг блокировки.
type Service interface {
	AdminSetDisabled(ctx context.Context, userID int64, disabled bool) ([]*models.QRCode, error)
}

// Handler обрабатывает PUT /api/admin/qr-codes/deactivate/{id}.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Блокировка QR-карточек
// @Description Выставляет qr_disabled_by_admin на всех карточках пользователя. Пустой список тоже успех.
// @Tags Admin
// @Accept  json
// @Produce  json
// @Param id path int true "ID пользователя"
// @Param request body Request true "Флаг блокировки"
// @Success 200 {object} response.Response "Обновлённые карточки"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Router /admin/qr-codes/deactivate/{id} [put]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.qrcode.deactivate"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || userID <= 0 {
		response.WriteBadRequest(w, r, "invalid user id")
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		response.WriteBadRequest(w, r, "invalid request body")
		return
	}
	if req.QRDisabledByAdmin == nil {
		response.WriteBadRequest(w, r, "field qr_disabled_by_admin is a required field")
		return
	}

	codes, err := h.service.AdminSetDisabled(r.Context(), userID, *req.QRDisabledByAdmin)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	if codes == nil {
		codes = []*models.QRCode{}
	}

	render.JSON(w, r, response.OKWithData(codes))
}
