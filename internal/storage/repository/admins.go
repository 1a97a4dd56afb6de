package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/magabrotheeeer/membership-service/internal/models"
)

// ConstraintAdminEmail - уникальный индекс email администратора.
const ConstraintAdminEmail = "ux_admin_users_email"

// CreateAdmin сохраняет администратора и возвращает его.
func (s *Storage) CreateAdmin(ctx context.Context, username, email, passwordHash string) (*models.Admin, error) {
	const op = "storage.CreateAdmin"

	a := models.Admin{Username: username, Email: strings.ToLower(email), PasswordHash: passwordHash}
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO admin_users (username, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		a.Username, a.Email, a.PasswordHash,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return &a, nil
}

// GetAdminByEmail ищет администратора по email без учёта регистра.
func (s *Storage) GetAdminByEmail(ctx context.Context, email string) (*models.Admin, error) {
	const op = "storage.GetAdminByEmail"

	var a models.Admin
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, username, email, password_hash, created_at
		FROM admin_users
		WHERE lower(email) = lower($1)`, email,
	).Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return &a, nil
}
