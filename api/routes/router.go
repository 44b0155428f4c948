package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/accordmusic/accord-backend/api/controllers"
	"github.com/accordmusic/accord-backend/api/middleware"
	internalauth "github.com/accordmusic/accord-backend/internal/auth"
	checkoutsvc "github.com/accordmusic/accord-backend/internal/checkout"
	"github.com/accordmusic/accord-backend/internal/orders"
	"github.com/accordmusic/accord-backend/pkg/config"
	"github.com/accordmusic/accord-backend/pkg/enums"
	"github.com/accordmusic/accord-backend/pkg/logger"
	"github.com/accordmusic/accord-backend/pkg/metrics"
)

// Deps carries everything the router needs wired up.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	Metrics  *metrics.HTTPMetrics
	Sessions middleware.SessionResolver

	DB    controllers.Pinger
	Redis controllers.Pinger

	Auth     internalauth.Service
	Checkout checkoutsvc.Service
	Orders   orders.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.Metrics),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.DB, deps.Redis, logg))
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/login", controllers.Login(deps.Auth, cfg.Session, logg))
		r.Post("/logout", controllers.Logout(deps.Auth, cfg.Session, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.Session, deps.Sessions, logg))

		r.Route("/orders", func(r chi.Router) {
			client := middleware.RequireRole(logg, enums.RoleClient)
			manager := middleware.RequireRole(logg, enums.RoleManager, enums.RoleAdmin)
			courier := middleware.RequireRole(logg, enums.RoleCourier, enums.RoleAdmin)

			r.With(client).Post("/", controllers.CreateOrder(deps.Checkout, logg))
			r.With(client).Get("/my", controllers.MyOrders(deps.Orders, logg))
			r.With(client).Get("/my/{orderID}", controllers.OrderDetail(deps.Orders, logg))

			r.With(manager).Get("/manager/queue", controllers.ManagerQueue(deps.Orders, logg))
			r.With(manager).Get("/manager/mine", controllers.ManagerAssigned(deps.Orders, logg))
			r.With(courier).Get("/courier/queue", controllers.CourierQueue(deps.Orders, logg))
			r.With(courier).Get("/courier/mine", controllers.CourierAssigned(deps.Orders, logg))

			r.Route("/{orderID}", func(r chi.Router) {
				r.Get("/", controllers.OrderDetail(deps.Orders, logg))
				r.Get("/history", controllers.OrderHistory(deps.Orders, logg))
				r.Patch("/status", controllers.ChangeOrderStatus(deps.Orders, logg))

				r.With(manager).Post("/manager/take", controllers.ManagerTake(deps.Orders, logg))
				r.With(manager).Post("/manager/mark-ready", controllers.ManagerMarkReady(deps.Orders, logg))
				r.With(manager).Post("/manager/cancel", controllers.ManagerCancel(deps.Orders, logg))
				r.With(courier).Post("/courier/take", controllers.CourierTake(deps.Orders, logg))
				r.With(courier).Post("/courier/finish", controllers.CourierFinish(deps.Orders, logg))
			})
		})

		r.With(middleware.RequireRole(logg, enums.RoleAdmin)).
			Get("/admin/orders", controllers.AdminOrders(deps.Orders, logg))
	})

	return r
}
