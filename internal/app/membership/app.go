// Package membership собирает HTTP-приложение сервиса членства: хранилище,
// кеш, брокер, внешние клиенты, сервисы и маршруты.
package membership

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"
	"google.golang.org/grpc"

	"github.com/magabrotheeeer/membership-service/internal/cache"
	"github.com/magabrotheeeer/membership-service/internal/config"
	"github.com/magabrotheeeer/membership-service/internal/geolocation"
	"github.com/magabrotheeeer/membership-service/internal/lib/jwt"
	"github.com/magabrotheeeer/membership-service/internal/lib/qrrender"
	"github.com/magabrotheeeer/membership-service/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/membership-service/internal/lib/sl"
	"github.com/magabrotheeeer/membership-service/internal/migrations"
	"github.com/magabrotheeeer/membership-service/internal/paymentprovider"
	"github.com/magabrotheeeer/membership-service/internal/services/auth"
	membershipservice "github.com/magabrotheeeer/membership-service/internal/services/membership"
	"github.com/magabrotheeeer/membership-service/internal/services/payment"
	"github.com/magabrotheeeer/membership-service/internal/services/plans"
	"github.com/magabrotheeeer/membership-service/internal/services/qrcode"
	"github.com/magabrotheeeer/membership-service/internal/services/users"
	"github.com/magabrotheeeer/membership-service/internal/storage/repository"
)

// App - HTTP-сервер сервиса членства и gRPC health рядом с ним.
type App struct {
	server       *http.Server
	grpcServer   *grpc.Server
	grpcListener net.Listener
	health       *healthChecker
	logger       *slog.Logger
	db           *repository.Storage
	cache        *cache.Cache
	amqpConn     *amqp.Connection
	publisher    *rabbitmq.Publisher
	payments     *payment.Service
	shutdown     time.Duration
}

// New подключает зависимости и собирает приложение.
// Redis и RabbitMQ необязательны: без них сервис работает без кеша и без уведомлений.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.membership.New"

	db, err := repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	app := &App{
		logger:   logger,
		db:       db,
		shutdown: cfg.ShutdownTimeout,
	}

	var (
		planCache plans.Cache
		geoCache  geolocation.Cache
		publisher payment.Publisher
	)
	redisCache, err := cache.InitServer(ctx, cfg.Redis)
	if err != nil {
		logger.Warn("redis is unavailable, caching disabled", sl.Err(err))
	} else {
		app.cache = redisCache
		planCache = redisCache
		geoCache = redisCache
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.Retries, cfg.RabbitMQ.RetryDelay)
	if err != nil {
		logger.Warn("rabbitmq is unavailable, notifications disabled", sl.Err(err))
	} else {
		ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
		if err != nil {
			_ = conn.Close()
			logger.Warn("failed to setup rabbitmq channel, notifications disabled", sl.Err(err))
		} else {
			app.amqpConn = conn
			app.publisher = rabbitmq.NewPublisher(ch)
			publisher = app.publisher
		}
	}

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	gateway := paymentprovider.NewClient(
		cfg.PaymentGateway.KeyID,
		cfg.PaymentGateway.KeySecret,
		cfg.PaymentGateway.APIURL,
		cfg.PaymentGateway.Timeout,
	)
	geo := geolocation.NewClient(cfg.Geolocation.URL, cfg.Geolocation.Timeout, geoCache, cfg.Redis.GeoTTL, logger)
	calc := membershipservice.NewCalculator(time.Now)

	svc := Services{
		Users: users.New(db, jwtMaker, logger),
		Auth:  auth.NewAuthService(db, jwtMaker, cfg.Admin.RegistrationEnabled, logger),
		Plans: plans.New(db, planCache, cfg.Redis.PlansTTL, logger),
		Payments: payment.New(
			db,
			gateway,
			geo,
			publisher,
			calc.WindowAt,
			payment.Secrets{
				KeySecret:     cfg.PaymentGateway.KeySecret,
				WebhookSecret: cfg.PaymentGateway.WebhookSecret,
			},
			cfg.PaymentGateway.Currency,
			logger,
		),
		QRCodes: qrcode.New(db, qrrender.New(cfg.QRCode.Size), qrcode.CardOptions{
			Note:         cfg.QRCode.Note,
			Organization: cfg.QRCode.Organization,
			Title:        cfg.QRCode.Title,
			Website:      cfg.QRCode.Website,
		}, logger),
		JWT:     jwtMaker,
		DB:      db,
		Limiter: cfg.RateLimit,
	}

	app.payments = svc.Payments

	router := chi.NewRouter()
	RegisterRoutes(router, logger, svc)

	app.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	lis, err := net.Listen("tcp", cfg.GRPCHealthAddress)
	if err != nil {
		app.closeResources()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	app.grpcListener = lis
	app.health = newHealthChecker(db, logger)
	app.grpcServer = newHealthServer(app.health)

	return app, nil
}

// Run запускает HTTP и gRPC серверы и блокируется до отмены ctx или ошибки сервера.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()
	go func() {
		a.logger.Info("gRPC health listening on", slog.String("address", a.grpcListener.Addr().String()))
		errCh <- a.grpcServer.Serve(a.grpcListener)
	}()
	go a.health.watch(ctx, 10*time.Second)

	var runErr error
	select {
	case runErr = <-errCh:
	case <-ctx.Done():
	}

	timeout := a.shutdown
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	timeoutCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	a.logger.Info("shutting down HTTP server gracefully")
	a.health.shutdown()
	if err := a.server.Shutdown(timeoutCtx); err != nil && runErr == nil {
		runErr = err
	}
	a.grpcServer.GracefulStop()
	a.closeResources()
	return runErr
}

// closeResources дожидается фоновых задач платёжного сервиса и только потом
// закрывает соединения, которыми они пользуются.
func (a *App) closeResources() {
	if a.payments != nil {
		a.payments.Wait()
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Error("failed to close rabbitmq channel", sl.Err(err))
		}
	}
	if a.amqpConn != nil {
		if err := a.amqpConn.Close(); err != nil {
			a.logger.Error("failed to close rabbitmq connection", sl.Err(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("failed to close redis", sl.Err(err))
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database", sl.Err(err))
	}
}
