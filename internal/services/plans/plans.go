// Package plans содержит бизнес-логику каталога тарифов членства.
package plans

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/membership-service/internal/cache"
	"github.com/magabrotheeeer/membership-service/internal/lib/apperr"
	"github.com/magabrotheeeer/membership-service/internal/lib/sl"
	"github.com/magabrotheeeer/membership-service/internal/models"
	"github.com/magabrotheeeer/membership-service/internal/storage/repository"
)

// Repository определяет методы хранилища тарифов.
type Repository interface {
	CreatePlan(ctx context.Context, plan models.Plan) (*models.Plan, error)
	GetPlan(ctx context.Context, id int64) (*models.Plan, error)
	PlanExists(ctx context.Context, name, description string, price float64, exceptID int64) (bool, error)
	UpdatePlan(ctx context.Context, plan models.Plan) (*models.Plan, error)
	DeletePlan(ctx context.Context, id int64) error
	ListPlans(ctx context.Context, activeOnly bool) ([]*models.Plan, error)
}

// Cache описывает методы для кэширования списков тарифов.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

// Service управляет каталогом тарифов.
type Service struct {
	repo  Repository
	cache Cache
	ttl   time.Duration
	log   *slog.Logger
}

// New создаёт сервис тарифов. cache может быть nil.
func New(repo Repository, c Cache, ttl time.Duration, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		cache: c,
		ttl:   ttl,
		log:   log,
	}
}

var errDuplicate = apperr.Conflict("plan", "a plan with the same name, description and price already exists")

// Create проверяет и сохраняет новый тариф.
func (s *Service) Create(ctx context.Context, plan models.Plan) (*models.Plan, error) {
	const op = "plans.Create"
	log := s.log.With(sl.Op(op))

	plan.Name = strings.TrimSpace(plan.Name)
	if err := validate(plan); err != nil {
		return nil, err
	}
	if plan.Features == nil {
		plan.Features = []string{}
	}

	exists, err := s.repo.PlanExists(ctx, plan.Name, plan.Description, plan.Price, 0)
	if err != nil {
		log.Error("failed to check plan duplicate", sl.Err(err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	if exists {
		return nil, errDuplicate
	}

	created, err := s.repo.CreatePlan(ctx, plan)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, errDuplicate
		}
		log.Error("failed to create plan", sl.Err(err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	s.invalidate(ctx, log)
	log.Info("plan created", slog.Int64("plan_id", created.ID))
	return created, nil
}

// Update применяет частичное обновление. Непереданные поля сохраняют прежние значения.
func (s *Service) Update(ctx context.Context, id int64, patch models.PlanPatch) (*models.Plan, error) {
	const op = "plans.Update"
	log := s.log.With(sl.Op(op), slog.Int64("plan_id", id))

	current, err := s.repo.GetPlan(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("plan", "plan not found")
		}
		log.Error("failed to get plan", sl.Err(err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	plan := patch.Apply(*current)
	plan.Name = strings.TrimSpace(plan.Name)
	if err := validate(plan); err != nil {
		return nil, err
	}

	exists, err := s.repo.PlanExists(ctx, plan.Name, plan.Description, plan.Price, id)
	if err != nil {
		log.Error("failed to check plan duplicate", sl.Err(err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	if exists {
		return nil, errDuplicate
	}

	updated, err := s.repo.UpdatePlan(ctx, plan)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyExists):
			return nil, errDuplicate
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperr.NotFound("plan", "plan not found")
		}
		log.Error("failed to update plan", sl.Err(err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	s.invalidate(ctx, log)
	return updated, nil
}

// Delete удаляет тариф.
func (s *Service) Delete(ctx context.Context, id int64) error {
	const op = "plans.Delete"
	log := s.log.With(sl.Op(op), slog.Int64("plan_id", id))

	if err := s.repo.DeletePlan(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return apperr.NotFound("plan", "plan not found")
		case errors.Is(err, repository.ErrReferenced):
			return apperr.Conflict("plan", "plan is referenced by payments")
		}
		log.Error("failed to delete plan", sl.Err(err))
		return apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	s.invalidate(ctx, log)
	log.Info("plan deleted")
	return nil
}

// List возвращает тарифы, сначала пытаясь прочитать список из кеша.
func (s *Service) List(ctx context.Context, activeOnly bool) ([]*models.Plan, error) {
	const op = "plans.List"
	log := s.log.With(sl.Op(op))

	key := cache.KeyPlansAll
	if activeOnly {
		key = cache.KeyPlansActive
	}

	if s.cache != nil {
		var cached []*models.Plan
		found, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			log.Warn("failed to read plans from cache", sl.Err(err))
		} else if found {
			return cached, nil
		}
	}

	list, err := s.repo.ListPlans(ctx, activeOnly)
	if err != nil {
		log.Error("failed to list plans", sl.Err(err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, list, s.ttl); err != nil {
			log.Warn("failed to cache plans", sl.Err(err))
		}
	}
	return list, nil
}

// Get возвращает тариф по ID.
func (s *Service) Get(ctx context.Context, id int64) (*models.Plan, error) {
	const op = "plans.Get"
	plan, err := s.repo.GetPlan(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("plan", "plan not found")
		}
		s.log.Error("failed to get plan", sl.Op(op), sl.Err(err))
		return nil, apperr.Internal(fmt.Errorf("%s: %w", op, err))
	}
	return plan, nil
}

func (s *Service) invalidate(ctx context.Context, log *slog.Logger) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, cache.KeyPlansActive, cache.KeyPlansAll); err != nil {
		log.Warn("failed to invalidate plans cache", sl.Err(err))
	}
}

func validate(p models.Plan) error {
	if p.Name == "" {
		return apperr.Validation("name", "name is required")
	}
	if p.DurationInDays <= 0 {
		return apperr.Validation("duration_in_days", "duration must be a positive number of days")
	}
	if p.Price < 0 {
		return apperr.Validation("price", "price must be non-negative")
	}
	return nil
}
