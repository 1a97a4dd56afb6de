// Package planlist отдаёт каталог тарифов: активные для участников, все для администратора.
package planlist

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/membership-service/internal/http/response"
	"github.com/magabrotheeeer/membership-service/internal/models"
)

// Service возвращает тарифы.
type Service interface {
	List(ctx context.Context, activeOnly bool) ([]*models.Plan, error)
}

// Handler обрабатывает запросы списка тарифов.
type Handler struct {
	log        *slog.Logger
	service    Service
	activeOnly bool
}

// New создает обработчик. activeOnly оставляет только активные тарифы.
func New(log *slog.Logger, service Service, activeOnly bool) *Handler {
	return &Handler{log: log, service: service, activeOnly: activeOnly}
}

// ServeHTTP godoc
// @Summary Список тарифов
// @Description Участникам отдаются только активные тарифы, администратору все.
// @Tags Plans
// @Produce  json
// @Success 200 {object} response.Response
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /user/membershipPlans [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.plan.list"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	plans, err := h.service.List(r.Context(), h.activeOnly)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	if plans == nil {
		plans = []*models.Plan{}
	}
	render.JSON(w, r, response.OKWithData(plans))
}
