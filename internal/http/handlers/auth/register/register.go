// Package register реализует HTTP-обработчик регистрации администратора.
//
// Регистрация доступна только при admin.registration_enabled; иначе сервис вернёт 403.
package register

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

// Request - структура входных данных для регистрации администратора.
type Request struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// Service описывает регистрацию администратора.
type Service interface {
	Register(ctx context.Context, username, email, password string) (*models.Admin, error)
}

// Handler обрабатывает HTTP-запросы регистрации администратора.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Регистрация администратора
// @Tags Admin
// @Accept  json
// @Produce  json
// @Param request body Request true "Данные администратора"
// @Success 201 {object} response.Response "Администратор создан"
// @Failure 400 {object} response.ErrorResponse "Некорректные данные"
// @Failure 403 {object} response.ErrorResponse "Регистрация отключена"
// @Failure 409 {object} response.ErrorResponse "Email уже занят"
// @Router /admin/register [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.register"
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

	admin, err := h.service.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	log.Info("admin registered", slog.Int64("admin_id", admin.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(admin))
}
