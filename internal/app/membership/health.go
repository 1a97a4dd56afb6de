package membership

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/magabrotheeeer/membership-service/internal/http/handlers/health"
	"github.com/magabrotheeeer/membership-service/internal/lib/sl"
)

// serviceName - имя сервиса в gRPC health; пустое имя отвечает за сервер целиком.
const serviceName = "membership.v1.MembershipService"

// healthChecker отражает доступность базы в статусе gRPC health.
type healthChecker struct {
	server *grpchealth.Server
	db     health.Pinger
	log    *slog.Logger
}

func newHealthChecker(db health.Pinger, log *slog.Logger) *healthChecker {
	hs := grpchealth.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
	return &healthChecker{server: hs, db: db, log: log}
}

func newHealthServer(hc *healthChecker) *grpc.Server {
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hc.server)
	return srv
}

// check пингует базу и выставляет статус сервиса.
func (h *healthChecker) check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := h.db.Ping(ctx); err != nil {
		h.log.Warn("database ping failed", sl.Err(err))
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.server.SetServingStatus(serviceName, status)
	return status
}

func (h *healthChecker) watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.check(ctx)
		}
	}
}

func (h *healthChecker) shutdown() {
	h.server.Shutdown()
}
