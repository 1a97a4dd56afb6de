// Package scheduler содержит фоновые задачи: напоминания об окончании членства
// и снятие активности с QR-карточек, у которых истекло оплаченное окно.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/membership-service/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/membership-service/internal/lib/sl"
	"github.com/magabrotheeeer/membership-service/internal/models"
)

// Repository - методы хранилища, нужные планировщику.
type Repository interface {
	FindUsersExpiringBetween(ctx context.Context, from, to time.Time) ([]*models.User, error)
	DeactivateLapsedQRCodes(ctx context.Context, at time.Time) (int64, error)
}

// Publisher публикует сообщение в брокер.
type Publisher interface {
	Publish(routingKey string, message any) error
}

// SchedulerService периодически ищет истекающие членства.
type SchedulerService struct {
	repo           Repository
	publisher      Publisher
	interval       time.Duration
	reminderWindow time.Duration
	now            func() time.Time
	log            *slog.Logger
}

// NewSchedulerService создает новый экземпляр SchedulerService.
//
// Напоминание уходит один раз: за каждый тик берутся пользователи, чьё окно
// заканчивается в полуинтервале длиной interval на расстоянии reminderWindow от текущего момента.
func NewSchedulerService(repo Repository, publisher Publisher, interval, reminderWindow time.Duration, log *slog.Logger) *SchedulerService {
	return &SchedulerService{
		repo:           repo,
		publisher:      publisher,
		interval:       interval,
		reminderWindow: reminderWindow,
		now:            time.Now,
		log:            log,
	}
}

// Run выполняет задачи сразу и затем на каждом тике, пока не отменён ctx.
func (s *SchedulerService) Run(ctx context.Context) {
	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce выполняет один проход: напоминания и деактивацию карточек.
func (s *SchedulerService) RunOnce(ctx context.Context) {
	now := s.now().UTC()
	s.sendReminders(ctx, now)
	s.deactivateLapsed(ctx, now)
}

func (s *SchedulerService) sendReminders(ctx context.Context, now time.Time) {
	log := s.log.With(sl.Op("scheduler.sendReminders"))

	to := now.Add(s.reminderWindow)
	from := to.Add(-s.interval)
	users, err := s.repo.FindUsersExpiringBetween(ctx, from, to)
	if err != nil {
		log.Error("failed to find expiring memberships", sl.Err(err))
		return
	}
	if len(users) == 0 {
		log.Debug("no expiring memberships found")
		return
	}

	log.Info("found expiring memberships", slog.Int("count", len(users)))
	for _, u := range users {
		if u.CurrentPlanEnd == nil {
			continue
		}
		msg := models.MembershipExpiring{
			UserID:    u.ID,
			Email:     u.Email,
			FirstName: u.FirstName,
			PlanEnd:   *u.CurrentPlanEnd,
		}
		if err := s.publisher.Publish(rabbitmq.RoutingMembershipExpiring, msg); err != nil {
			log.Error("failed to publish reminder", slog.Int64("user_id", u.ID), sl.Err(err))
		}
	}
}

func (s *SchedulerService) deactivateLapsed(ctx context.Context, now time.Time) {
	log := s.log.With(sl.Op("scheduler.deactivateLapsed"))

	n, err := s.repo.DeactivateLapsedQRCodes(ctx, now)
	if err != nil {
		log.Error("failed to deactivate lapsed qr codes", sl.Err(err))
		return
	}
	if n > 0 {
		log.Info("deactivated lapsed qr codes", slog.Int64("count", n))
	}
}
