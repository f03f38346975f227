package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/orderdesk/orderdesk-backend/api/controllers"
	"github.com/orderdesk/orderdesk-backend/api/middleware"
	cartsvc "github.com/orderdesk/orderdesk-backend/internal/cart"
	checkoutsvc "github.com/orderdesk/orderdesk-backend/internal/checkout"
	clientsvc "github.com/orderdesk/orderdesk-backend/internal/clients"
	ordersvc "github.com/orderdesk/orderdesk-backend/internal/orders"
	productsvc "github.com/orderdesk/orderdesk-backend/internal/products"
	"github.com/orderdesk/orderdesk-backend/internal/tenants"
	"github.com/orderdesk/orderdesk-backend/pkg/config"
	"github.com/orderdesk/orderdesk-backend/pkg/enums"
	"github.com/orderdesk/orderdesk-backend/pkg/logger"
	pkgredis "github.com/orderdesk/orderdesk-backend/pkg/redis"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       controllers.Pinger
	Redis    *pkgredis.Client
	Registry *prometheus.Registry

	Tenants  tenants.Service
	Clients  clientsvc.Service
	Products productsvc.Service
	Carts    cartsvc.Service
	Checkout checkoutsvc.Service
	Orders   ordersvc.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, redisProbe(deps.Redis)))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Organization(deps.Tenants, logg))
		if deps.Redis != nil {
			policy := middleware.NewRateLimitPolicy(cfg.RateLimit.Window, cfg.RateLimit.Requests)
			r.Use(middleware.RateLimit(policy, deps.Redis, logg))
		}
		var idemStore pkgredis.IdempotencyStore
		if deps.Redis != nil {
			idemStore = deps.Redis
		}
		r.Use(middleware.Idempotency(idemStore, logg))

		manageOnly := middleware.RequireRoles(logg, enums.MemberRoleAdmin, enums.MemberRoleManager)

		r.Route("/clients", func(r chi.Router) {
			r.Get("/", controllers.ClientList(deps.Clients, logg))
			r.Get("/{clientId}", controllers.ClientDetail(deps.Clients, logg))
			r.With(manageOnly).Post("/", controllers.ClientCreate(deps.Clients, logg))
			r.With(manageOnly).Put("/{clientId}", controllers.ClientUpdate(deps.Clients, logg))
			r.With(manageOnly).Delete("/{clientId}", controllers.ClientDelete(deps.Clients, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(deps.Products, logg))
			r.Get("/{productId}", controllers.ProductDetail(deps.Products, logg))
			r.With(manageOnly).Post("/", controllers.ProductCreate(deps.Products, logg))
			r.With(manageOnly).Patch("/{productId}", controllers.ProductUpdate(deps.Products, logg))
		})

		r.Route("/carts", func(r chi.Router) {
			r.Post("/", controllers.CartCreate(deps.Carts, logg))
			r.Get("/{cartId}", controllers.CartFetch(deps.Carts, logg))
			r.Post("/{cartId}/lines", controllers.CartAddLine(deps.Carts, logg))
			r.Put("/{cartId}/lines/{lineId}", controllers.CartUpdateLine(deps.Carts, logg))
			r.Delete("/{cartId}/lines/{lineId}", controllers.CartRemoveLine(deps.Carts, logg))
			r.Post("/{cartId}/abandon", controllers.CartAbandon(deps.Carts, logg))
			r.Get("/{cartId}/validate", controllers.CheckoutValidate(deps.Checkout, logg))
			r.Post("/{cartId}/checkout", controllers.CheckoutExecute(deps.Checkout, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(deps.Orders, logg))
			r.Get("/{orderId}", controllers.OrderDetail(deps.Orders, logg))
			r.With(manageOnly).Post("/{orderId}/status", controllers.OrderUpdateStatus(deps.Orders, logg))
		})
	})

	return r
}

func redisProbe(client *pkgredis.Client) controllers.Pinger {
	if client == nil {
		return nil
	}
	return client
}
