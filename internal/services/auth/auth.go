// Package auth содержит регистрацию и вход администраторов.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/magabrotheeeer/membership-service/internal/lib/apperr"
	"github.com/magabrotheeeer/membership-service/internal/lib/jwt"
	"github.com/magabrotheeeer/membership-service/internal/lib/password"
	"github.com/magabrotheeeer/membership-service/internal/lib/sl"
	"github.com/magabrotheeeer/membership-service/internal/models"
	"github.com/magabrotheeeer/membership-service/internal/storage/repository"
)

// AdminRepository описывает контракт хранилища администраторов.
type AdminRepository interface {
	// CreateAdmin сохраняет администратора; занятый email возвращает repository.ErrAlreadyExists.
	CreateAdmin(ctx context.Context, username, email, passwordHash string) (*models.Admin, error)

	// GetAdminByEmail возвращает администратора или repository.ErrNotFound.
	GetAdminByEmail(ctx context.Context, email string) (*models.Admin, error)
}

// AuthService отвечает за учётные записи администраторов и выпуск их токенов.
type AuthService struct {
	admins              AdminRepository
	jwtMaker            jwt.Maker
	registrationEnabled bool
	log                 *slog.Logger
}

// NewAuthService создает новый экземпляр AuthService.
// registrationEnabled разрешает POST /api/admin/register.
func NewAuthService(admins AdminRepository, jwtMaker jwt.Maker, registrationEnabled bool, log *slog.Logger) *AuthService {
	return &AuthService{
		admins:              admins,
		jwtMaker:            jwtMaker,
		registrationEnabled: registrationEnabled,
		log:                 log,
	}
}

// LoginResult - токен и данные администратора.
type LoginResult struct {
	Token string        `json:"token"`
	Admin *models.Admin `json:"admin"`
}

// Register создаёт администратора с хэшированием пароля.
func (s *AuthService) Register(ctx context.Context, username, email, rawPassword string) (*models.Admin, error) {
	const op = "auth.Register"
	log := s.log.With(sl.Op(op))

	if !s.registrationEnabled {
		return nil, apperr.Forbidden("admin", "admin registration is disabled")
	}

	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperr.Validation("username", "username is required")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, apperr.Validation("email", "email is invalid")
	}
	if len(rawPassword) < password.MinLength {
		return nil, apperr.Validation("password", fmt.Sprintf("password must be at least %d characters", password.MinLength))
	}

	hashed, err := password.Hash(rawPassword)
	if err != nil {
		if errors.Is(err, password.ErrTooLong) {
			return nil, apperr.Validation("password", "password is too long")
		}
		log.Error("failed to hash password", sl.Err(err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	admin, err := s.admins.CreateAdmin(ctx, username, email, hashed)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, apperr.Conflict("email", "email is already registered")
		}
		log.Error("failed to create admin", sl.Err(err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	log.Info("admin registered", slog.Int64("admin_id", admin.ID))
	return admin, nil
}

// Login проверяет пароль администратора и выпускает токен с ролью admin.
func (s *AuthService) Login(ctx context.Context, email, rawPassword string) (*LoginResult, error) {
	const op = "auth.Login"
	log := s.log.With(sl.Op(op))

	admin, err := s.admins.GetAdminByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.Auth("invalid email or password")
		}
		log.Error("failed to get admin", sl.Err(err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	if !password.Verify(rawPassword, admin.PasswordHash) {
		return nil, apperr.Auth("invalid email or password")
	}

	token, err := s.jwtMaker.GenerateToken(admin.ID, admin.Email, jwt.RoleAdmin)
	if err != nil {
		log.Error("failed to generate token", sl.Err(err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	return &LoginResult{Token: token, Admin: admin}, nil
}
