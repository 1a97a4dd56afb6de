package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/magabrotheeeer/membership-service/internal/models"
)

// ConstraintPlanIdentity - уникальный индекс по нормализованным (name, description, price).
const ConstraintPlanIdentity = "ux_membership_plans_identity"

const planColumns = `id, name, description, price::float8, duration_in_days, features, is_active, created_at, updated_at`

func scanPlan(row rowScanner) (*models.Plan, error) {
	var (
		p        models.Plan
		features []byte
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.DurationInDays,
		&features, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(features, &p.Features); err != nil {
		return nil, fmt.Errorf("decode features: %w", err)
	}
	if p.Features == nil {
		p.Features = []string{}
	}
	return &p, nil
}

func encodeFeatures(features []string) ([]byte, error) {
	if features == nil {
		features = []string{}
	}
	return json.Marshal(features)
}

// CreatePlan сохраняет тариф. Дубликат по нормализованным полям даёт ErrAlreadyExists.
func (s *Storage) CreatePlan(ctx context.Context, plan models.Plan) (*models.Plan, error) {
	const op = "storage.CreatePlan"

	features, err := encodeFeatures(plan.Features)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	created, err := scanPlan(s.DB.QueryRowContext(ctx, `
		INSERT INTO membership_plans (name, description, price, duration_in_days, features, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+planColumns,
		strings.TrimSpace(plan.Name), plan.Description, plan.Price, plan.DurationInDays, features, plan.IsActive,
	))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return created, nil
}

// GetPlan возвращает тариф по ID.
func (s *Storage) GetPlan(ctx context.Context, id int64) (*models.Plan, error) {
	const op = "storage.GetPlan"
	p, err := scanPlan(s.DB.QueryRowContext(ctx, `SELECT `+planColumns+` FROM membership_plans WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return p, nil
}

// PlanExists сообщает, есть ли другой тариф с теми же нормализованными name, description и price.
func (s *Storage) PlanExists(ctx context.Context, name, description string, price float64, exceptID int64) (bool, error) {
	const op = "storage.PlanExists"
	var exists bool
	err := s.DB.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM membership_plans
			WHERE lower(btrim(name)) = lower(btrim($1))
			  AND lower(btrim(description)) = lower(btrim($2))
			  AND price = $3
			  AND id <> $4
		)`, name, description, price, exceptID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// UpdatePlan сохраняет все поля тарифа.
func (s *Storage) UpdatePlan(ctx context.Context, plan models.Plan) (*models.Plan, error) {
	const op = "storage.UpdatePlan"

	features, err := encodeFeatures(plan.Features)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	updated, err := scanPlan(s.DB.QueryRowContext(ctx, `
		UPDATE membership_plans
		SET name = $1, description = $2, price = $3, duration_in_days = $4,
		    features = $5, is_active = $6, updated_at = NOW()
		WHERE id = $7
		RETURNING `+planColumns,
		strings.TrimSpace(plan.Name), plan.Description, plan.Price, plan.DurationInDays, features, plan.IsActive, plan.ID,
	))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return updated, nil
}

// DeletePlan удаляет тариф. Тариф, на который ссылаются платежи, удалить нельзя (ErrReferenced).
func (s *Storage) DeletePlan(ctx context.Context, id int64) error {
	const op = "storage.DeletePlan"
	res, err := s.DB.ExecContext(ctx, `DELETE FROM membership_plans WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

// ListPlans возвращает тарифы, новые первыми; activeOnly оставляет только активные.
func (s *Storage) ListPlans(ctx context.Context, activeOnly bool) ([]*models.Plan, error) {
	const op = "storage.ListPlans"
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+planColumns+`
		FROM membership_plans
		WHERE NOT $1 OR is_active
		ORDER BY id DESC`, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	plans := []*models.Plan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return plans, nil
}
