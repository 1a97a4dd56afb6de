// Package massdelete удаляет пользователей списком.
package massdelete

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/membership-service/internal/http/response"
	"github.com/magabrotheeeer/membership-service/internal/lib/sl"
)

// Request - ID удаляемых пользователей.
type Request struct {
	IDs []int64 `json:"ids"`
}

// Service удаляет пользователей.
type Service interface {
	MassDelete(ctx context.Context, ids []int64) (int64, error)
}

// Handler обрабатывает POST /api/admin/user/mass-delete.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Массовое удаление пользователей
// @Tags Admin
// @Accept  json
// @Produce  json
// @Param request body Request true "ID пользователей"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Пустой или некорректный список"
// @Router /admin/user/mass-delete [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.user.massdelete"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		response.WriteBadRequest(w, r, "invalid request body")
		return
	}

	n, err := h.service.MassDelete(r.Context(), req.IDs)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	render.JSON(w, r, response.OKWithData(map[string]int64{"deleted": n}))
}
