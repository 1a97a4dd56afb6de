// Package userregister обрабатывает регистрацию участника и создание пользователя администратором.
package userregister

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
	"github.com/magabrotheeeer/membership-service/internal/services/users"
)

// Phone - телефон в запросе регистрации.
type Phone struct {
	CountryCode string `json:"country_code"`
	PhoneNumber string `json:"phone_number" validate:"required"`
}

// Request - данные регистрации.
type Request struct {
	FirstName    string  `json:"first_name" validate:"required"`
	MiddleName   *string `json:"middle_name"`
	LastName     *string `json:"last_name"`
	Email        string  `json:"email" validate:"required,email"`
	Password     string  `json:"password" validate:"required,min=8"`
	DOB          *string `json:"dob"`
	Address      *string `json:"address"`
	Status       string  `json:"status,omitempty"`
	PhoneNumbers []Phone `json:"phone_numbers" validate:"required,min=1,dive"`
}

// Service описывает операции создания пользователя.
type Service interface {
	Register(ctx context.Context, in users.RegisterInput) (*models.User, error)
	AdminCreate(ctx context.Context, in users.RegisterInput) (*models.User, error)
}

type createFunc func(ctx context.Context, in users.RegisterInput) (*models.User, error)

// Handler обрабатывает запросы на создание пользователя.
type Handler struct {
	log      *slog.Logger
	op       string
	create   createFunc
	admin    bool
	validate *validator.Validate
}

// NewSelf создаёт обработчик самостоятельной регистрации. Поле status игнорируется.
func NewSelf(log *slog.Logger, svc Service) *Handler {
	return &Handler{
		log:      log,
		op:       "handlers.user.register",
		create:   svc.Register,
		validate: validator.New(),
	}
}

// NewAdmin создаёт обработчик создания пользователя администратором.
func NewAdmin(log *slog.Logger, svc Service) *Handler {
	return &Handler{
		log:      log,
		op:       "handlers.admin.user.create",
		create:   svc.AdminCreate,
		admin:    true,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Регистрация участника
// @Description Создаёт пользователя с телефонами. Администратор может задать status.
// @Tags Users
// @Accept  json
// @Produce  json
// @Param request body Request true "Данные пользователя"
// @Success 201 {object} response.Response "Пользователь создан"
// @Failure 400 {object} response.ErrorResponse "Некорректные данные"
// @Failure 409 {object} response.ErrorResponse "Email или телефон уже заняты"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /user/register [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(
		slog.String("op", h.op),
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

	in := users.RegisterInput{
		FirstName:  req.FirstName,
		MiddleName: req.MiddleName,
		LastName:   req.LastName,
		Email:      req.Email,
		Password:   req.Password,
		DOB:        req.DOB,
		Address:    req.Address,
	}
	if h.admin {
		in.Status = req.Status
	}
	for _, p := range req.PhoneNumbers {
		in.PhoneNumbers = append(in.PhoneNumbers, users.PhoneInput{CountryCode: p.CountryCode, PhoneNumber: p.PhoneNumber})
	}

	user, err := h.create(r.Context(), in)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	log.Info("user created", slog.Int64("user_id", user.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(user))
}
