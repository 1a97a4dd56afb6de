// Package planupdate частично обновляет тариф.
package planupdate

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

// Request - изменения тарифа. Отсутствующие поля не меняются.
type Request struct {
	Name           *string   `json:"name"`
	Description    *string   `json:"description"`
	Price          *float64  `json:"price"`
	DurationInDays *int      `json:"duration_in_days"`
	Features       *[]string `json:"features"`
	IsActive       *bool     `json:"is_active"`
}

// Service обновляет тариф.
type Service interface {
	Update(ctx context.Context, id int64, patch models.PlanPatch) (*models.Plan, error)
}

// Handler обрабатывает PUT /api/admin/plans/{id}.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Обновление тарифа
// @Tags Plans
// @Accept  json
// @Produce  json
// @Param id path int true "ID тарифа"
// @Param request body Request true "Изменения"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Некорректные данные"
// @Failure 404 {object} response.ErrorResponse "Тариф не найден"
// @Failure 409 {object} response.ErrorResponse "Тариф уже существует"
// @Router /admin/plans/{id} [put]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.plan.update"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		response.WriteBadRequest(w, r, "invalid plan id")
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		response.WriteBadRequest(w, r, "invalid request body")
		return
	}

	plan, err := h.service.Update(r.Context(), id, models.PlanPatch(req))
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}
	log.Info("plan updated", slog.Int64("plan_id", id))
	render.JSON(w, r, response.OKWithData(plan))
}
