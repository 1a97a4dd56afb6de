package membership

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	// Сгенерированная swag спецификация API.
	_ "github.com/magabrotheeeer/membership-service/docs"
	"github.com/magabrotheeeer/membership-service/internal/config"
	"github.com/magabrotheeeer/membership-service/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/membership-service/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/membership-service/internal/http/handlers/health"
	"github.com/magabrotheeeer/membership-service/internal/http/handlers/payment/paymentcreate"
	"github.com/magabrotheeeer/membership-service/internal/http/handlers/payment/paymentlist"
	"github.com/magabrotheeeer/membership-service/internal/http/handlers/payment/paymentverify"
	"github.com/magabrotheeeer/membership-service/internal/http/handlers/payment/paymentwebhook"
	"github.com/magabrotheeeer/membership-service/internal/http/handlers/plan/plancreate"
	"github.com/magabrotheeeer/membership-service/internal/http/handlers/plan/plandelete"
	"github.com/magabrotheeeer/membership-service/internal/http/handlers/plan/planlist"
	"github.com/magabrotheeeer/membership-service/internal/http/handlers/plan/planupdate"
	"github.com/magabrotheeeer/membership-service/internal/http/handlers/qrcode/qradmin"
	"github.com/magabrotheeeer/membership-service/internal/http/handlers/qrcode/qrcreate"
	"github.com/magabrotheeeer/membership-service/internal/http/handlers/qrcode/qrdeactivate"
	"github.com/magabrotheeeer/membership-service/internal/http/handlers/qrcode/qrget"
	"github.com/magabrotheeeer/membership-service/internal/http/handlers/user/massdelete"
	"github.com/magabrotheeeer/membership-service/internal/http/handlers/user/profile"
	"github.com/magabrotheeeer/membership-service/internal/http/handlers/user/userdelete"
	"github.com/magabrotheeeer/membership-service/internal/http/handlers/user/userlist"
	"github.com/magabrotheeeer/membership-service/internal/http/handlers/user/userlogin"
	"github.com/magabrotheeeer/membership-service/internal/http/handlers/user/userregister"
	"github.com/magabrotheeeer/membership-service/internal/http/handlers/user/userupdate"
	"github.com/magabrotheeeer/membership-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/membership-service/internal/lib/jwt"
	"github.com/magabrotheeeer/membership-service/internal/services/auth"
	"github.com/magabrotheeeer/membership-service/internal/services/payment"
	"github.com/magabrotheeeer/membership-service/internal/services/plans"
	"github.com/magabrotheeeer/membership-service/internal/services/qrcode"
	"github.com/magabrotheeeer/membership-service/internal/services/users"
)

// Services - зависимости маршрутов.
type Services struct {
	Users    *users.Service
	Auth     *auth.AuthService
	Plans    *plans.Service
	Payments *payment.Service
	QRCodes  *qrcode.Service
	JWT      jwt.Maker
	DB       health.Pinger
	Limiter  config.RateLimit
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, s Services) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
	)

	limiter := middlewarectx.NewRateLimiter(s.Limiter.RPS, s.Limiter.Burst)

	r.Route("/api", func(r chi.Router) {
		r.Route("/user", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(limiter.Middleware(logger))
				r.Post("/register", userregister.NewSelf(logger, s.Users).ServeHTTP)
				r.Post("/login", userlogin.New(logger, s.Users).ServeHTTP)
			})

			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.JWTMiddleware(s.JWT, logger))
				r.Use(middlewarectx.RequireRole(jwt.RoleUser, logger))
				r.Get("/myprofile", profile.New(logger, s.Users).ServeHTTP)
				r.Put("/update", userupdate.NewSelf(logger, s.Users).ServeHTTP)
				r.Get("/membershipPlans", planlist.New(logger, s.Plans, true).ServeHTTP)
			})
		})

		// Платежи и QR участника
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(s.JWT, logger))
			r.Use(middlewarectx.RequireRole(jwt.RoleUser, logger))
			r.Post("/payment/create-order", paymentcreate.New(logger, s.Payments).ServeHTTP)
			r.Post("/payment/verify-payment", paymentverify.NewUser(logger, s.Payments).ServeHTTP)
			r.Get("/payment/my-payments", paymentlist.New(logger, s.Payments).ServeHTTP)
			r.Post("/qr-code/create", qrcreate.New(logger, s.QRCodes).ServeHTTP)
			r.Get("/qr-code/get", qrget.New(logger, s.QRCodes).ServeHTTP)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(limiter.Middleware(logger))
				r.Post("/register", register.New(logger, s.Auth).ServeHTTP)
				r.Post("/login", login.New(logger, s.Auth).ServeHTTP)
			})

			// Вебхук шлюза без аутентификации, защищён подписью
			r.Post("/webhook", paymentwebhook.New(logger, s.Payments).ServeHTTP)

			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.JWTMiddleware(s.JWT, logger))
				r.Use(middlewarectx.RequireRole(jwt.RoleAdmin, logger))

				r.Post("/user/create", userregister.NewAdmin(logger, s.Users).ServeHTTP)
				r.Get("/user", userlist.New(logger, s.Users).ServeHTTP)
				r.Put("/user/update/{id}", userupdate.NewAdmin(logger, s.Users).ServeHTTP)
				r.Delete("/user/delete/{id}", userdelete.New(logger, s.Users).ServeHTTP)
				r.Post("/user/mass-delete", massdelete.New(logger, s.Users).ServeHTTP)

				r.Get("/plans", planlist.New(logger, s.Plans, false).ServeHTTP)
				r.Post("/plans/create", plancreate.New(logger, s.Plans).ServeHTTP)
				r.Put("/plans/{id}", planupdate.New(logger, s.Plans).ServeHTTP)
				r.Delete("/plans/{id}", plandelete.New(logger, s.Plans).ServeHTTP)

				r.Post("/payments/verify", paymentverify.NewAdmin(logger, s.Payments).ServeHTTP)

				r.Get("/qr-codes/user/{user_id}", qradmin.New(logger, s.QRCodes).ServeHTTP)
				r.Put("/qr-codes/deactivate/{id}", qrdeactivate.New(logger, s.QRCodes).ServeHTTP)
			})
		})
	})

	r.Get("/health", health.New(logger, s.DB).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
