package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/membership-service/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/membership-service/internal/models"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) FindUsersExpiringBetween(ctx context.Context, from, to time.Time) ([]*models.User, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockRepository) DeactivateLapsedQRCodes(ctx context.Context, at time.Time) (int64, error) {
	args := m.Called(ctx, at)
	return args.Get(0).(int64), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(routingKey string, message any) error {
	return m.Called(routingKey, message).Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestSchedulerService_RunOnce(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	from := now.Add(71 * time.Hour)
	to := now.Add(72 * time.Hour)
	end := now.Add(71*time.Hour + 30*time.Minute)

	tests := []struct {
		name  string
		setup func(repo *MockRepository, pub *MockPublisher)
	}{
		{
			name: "publishes reminders",
			setup: func(repo *MockRepository, pub *MockPublisher) {
				repo.On("FindUsersExpiringBetween", mock.Anything, from, to).Return([]*models.User{
					{ID: 1, Email: "a@example.com", FirstName: "Asha", CurrentPlanEnd: &end},
					{ID: 2, Email: "b@example.com"},
				}, nil).Once()
				pub.On("Publish", rabbitmq.RoutingMembershipExpiring, models.MembershipExpiring{
					UserID: 1, Email: "a@example.com", FirstName: "Asha", PlanEnd: end,
				}).Return(nil).Once()
				repo.On("DeactivateLapsedQRCodes", mock.Anything, now).Return(int64(0), nil).Once()
			},
		},
		{
			name: "publish failure does not stop the run",
			setup: func(repo *MockRepository, pub *MockPublisher) {
				repo.On("FindUsersExpiringBetween", mock.Anything, from, to).Return([]*models.User{
					{ID: 1, Email: "a@example.com", CurrentPlanEnd: &end},
				}, nil).Once()
				pub.On("Publish", rabbitmq.RoutingMembershipExpiring, mock.Anything).Return(errors.New("channel closed")).Once()
				repo.On("DeactivateLapsedQRCodes", mock.Anything, now).Return(int64(2), nil).Once()
			},
		},
		{
			name: "repository error",
			setup: func(repo *MockRepository, _ *MockPublisher) {
				repo.On("FindUsersExpiringBetween", mock.Anything, from, to).Return(nil, errors.New("db down")).Once()
				repo.On("DeactivateLapsedQRCodes", mock.Anything, now).Return(int64(0), errors.New("db down")).Once()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			pub := new(MockPublisher)
			tt.setup(repo, pub)

			s := NewSchedulerService(repo, pub, time.Hour, 72*time.Hour, newNoopLogger())
			s.now = func() time.Time { return now }
			s.RunOnce(context.Background())

			repo.AssertExpectations(t)
			pub.AssertExpectations(t)
		})
	}
}

func TestSchedulerService_Run_StopsOnCancel(t *testing.T) {
	repo := new(MockRepository)
	repo.On("FindUsersExpiringBetween", mock.Anything, mock.Anything, mock.Anything).Return([]*models.User{}, nil)
	repo.On("DeactivateLapsedQRCodes", mock.Anything, mock.Anything).Return(int64(0), nil)

	s := NewSchedulerService(repo, new(MockPublisher), time.Hour, 72*time.Hour, newNoopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
