// Package userupdate обрабатывает частичное обновление профиля участником и администратором.
package userupdate

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/membership-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/membership-service/internal/http/response"
	"github.com/magabrotheeeer/membership-service/internal/lib/sl"
	"github.com/magabrotheeeer/membership-service/internal/models"
	"github.com/magabrotheeeer/membership-service/internal/services/users"
)

// Service описывает операции обновления пользователя.
type Service interface {
	UpdateSelf(ctx context.Context, userID int64, in users.UpdateInput) (*models.User, error)
	AdminUpdate(ctx context.Context, userID int64, in users.UpdateInput) (*models.User, error)
}

type updateFunc func(ctx context.Context, userID int64, in users.UpdateInput) (*models.User, error)

// Handler обрабатывает запросы на обновление профиля.
// Для участника ID берётся из токена, для администратора из пути {id}.
type Handler struct {
	log    *slog.Logger
	op     string
	update updateFunc
	admin  bool
}

// NewSelf создаёт обработчик PUT /api/user/update.
func NewSelf(log *slog.Logger, svc Service) *Handler {
	return &Handler{log: log, op: "handlers.user.update", update: svc.UpdateSelf}
}

// NewAdmin создаёт обработчик PUT /api/admin/user/update/{id}.
func NewAdmin(log *slog.Logger, svc Service) *Handler {
	return &Handler{log: log, op: "handlers.admin.user.update", update: svc.AdminUpdate, admin: true}
}

// ServeHTTP godoc
// @Summary Обновление профиля
// @Description Частичное обновление. Телефоны: op add/update/remove или вывод по id и номеру.
// @Tags Users
// @Accept  json
// @Produce  json
// @Param request body users.UpdateInput true "Изменения"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Некорректные данные"
// @Failure 403 {object} response.ErrorResponse "Поле доступно только администратору"
// @Failure 404 {object} response.ErrorResponse "Пользователь или телефон не найден"
// @Failure 409 {object} response.ErrorResponse "Email или телефон уже заняты"
// @Router /user/update [put]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(
		slog.String("op", h.op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, ok := h.targetID(r)
	if !ok {
		if h.admin {
			response.WriteBadRequest(w, r, "invalid user id")
			return
		}
		log.Error("user id not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	var in users.UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		response.WriteBadRequest(w, r, "invalid request body")
		return
	}

	user, err := h.update(r.Context(), userID, in)
	if err != nil {
		response.WriteError(w, r, log, err)
		return
	}

	log.Info("user updated", slog.Int64("user_id", userID))
	render.JSON(w, r, response.OKWithData(user))
}

func (h *Handler) targetID(r *http.Request) (int64, bool) {
	if !h.admin {
		return middlewarectx.UserIDFromContext(r.Context())
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}
