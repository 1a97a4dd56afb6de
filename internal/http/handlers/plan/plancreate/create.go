// Package plancreate создаёт тариф.
package plancreate

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/membership-service/internal/http/response"
	"github.com/magabrotheeeer/membership-service/internal/lib/sl"
	"github.com/magabrotheeeer/membership-service/internal/models"
)

// Request - данные нового тарифа.
type Request struct {
	Name           string   `json:"name" validate:"required"`
	Description    string   `json:"description"`
	Price          float64  `json:"price"`
	DurationInDays int      `json:"duration_in_days"`
	Features       []string `json:"features"`
	IsActive       *bool    `json:"is_active"`
}

// Service создаёт тариф.
type Service interface {
	Create(ctx context.Context, plan models.Plan) (*models.Plan, error)
}

// Handler обрабатывает POST /api/admin/plans/create.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service, validate: validator.New()}
}

// ServeHTTP godoc
// @Summary Создание тарифа
// @Description Тариф с тем же названием, описанием и ценой уже существует: 409.
// @Tags Plans
// @Accept  json
// @Produce  json
// @Param request body Request true "Тариф"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Некорректные данные"
// @Failure 409 {object} response.ErrorResponse "Тариф уже существует"
// @Router /admin/plans/create [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.plan.create"
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
	if err := h.validate.Struct(req); err != nil {
		log.Warn("validation failed", sl.Err(err))
		response.WriteValidation(w, r, err)
		return
	}

	plan := models.Plan{
		Name:           req.Name,
		Description:    req.Description,
		Price:          req.Price,
		DurationInDays: req.DurationInDays,
		Features:       req.Features,
		IsActive:       req.IsActive == nil || *req.IsActive,
	}
	created, err := h.service.Create(r.Context(), plan)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	log.Info("plan created", slog.Int64("plan_id", created.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(created))
}
