// Package scheduler собирает фоновый планировщик напоминаний об окончании членства.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/membership-service/internal/config"
	"github.com/magabrotheeeer/membership-service/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/membership-service/internal/lib/sl"
	schedulerservice "github.com/magabrotheeeer/membership-service/internal/services/scheduler"
	"github.com/magabrotheeeer/membership-service/internal/storage/repository"
)

// App представляет приложение планировщика.
type App struct {
	schedulerService *schedulerservice.SchedulerService
	conn             *amqp.Connection
	publisher        *rabbitmq.Publisher
	db               *repository.Storage
	logger           *slog.Logger
}

// New создает новый экземпляр приложения планировщика.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.Retries, cfg.RabbitMQ.RetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		closeResources(nil, conn, logger)
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}
	publisher := rabbitmq.NewPublisher(ch)

	db, err := repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		closeResources(publisher, conn, logger)
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}

	schedulerService := schedulerservice.NewSchedulerService(
		db,
		publisher,
		cfg.Scheduler.Interval,
		cfg.Scheduler.ReminderWindow,
		logger,
	)

	return &App{
		schedulerService: schedulerService,
		conn:             conn,
		publisher:        publisher,
		db:               db,
		logger:           logger,
	}, nil
}

func closeResources(publisher *rabbitmq.Publisher, conn *amqp.Connection, logger *slog.Logger) {
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close connection", sl.Err(err))
		}
	}
}

// Run запускает планировщик и блокируется до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	a.schedulerService.Run(ctx)

	a.logger.Info("shutting down scheduler service")
	closeResources(a.publisher, a.conn, a.logger)
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database", sl.Err(err))
	}
	return nil
}
