package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/address"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/categories"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/dashboard"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/paymentmethods"
	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/reviews"
	"github.com/angelmondragon/storefront-backend/internal/stock"
	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

// Services bundles everything the router dispatches to. Nil services answer
// 500 from their handlers.
type Services struct {
	Auth           auth.Service
	Users          users.Service
	Addresses      address.Service
	Products       products.Service
	Categories     categories.Service
	Stock          stock.Service
	Reviews        reviews.Service
	Cart           cart.Service
	PaymentMethods paymentmethods.Service
	Payments       payments.Service
	Orders         orders.Service
	Checkout       checkout.Service
	Dashboard      dashboard.Service
}

// Infra carries the shared clients used by middleware and health checks.
type Infra struct {
	Sessions session.AccessSessionChecker
	Redis    *pkgredis.Client
	Gatherer prometheus.Gatherer
	Ready    map[string]controllers.Pinger
}

func NewRouter(cfg *config.Config, logg *logger.Logger, infra Infra, svc Services) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)

	// typed nil pointers would defeat the middleware nil checks
	var idempotencyStore pkgredis.IdempotencyStore
	var limiter middleware.RateLimitStore
	if infra.Redis != nil {
		idempotencyStore = infra.Redis
		limiter = infra.Redis
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy("login", cfg.AuthRateLimit.LoginWindow, map[string]int{
		middleware.LimitByIP:    cfg.AuthRateLimit.LoginIPLimit,
		middleware.LimitByEmail: cfg.AuthRateLimit.LoginEmailLimit,
	})
	signupPolicy := middleware.NewAuthRateLimitPolicy("signup", cfg.AuthRateLimit.SignupWindow, map[string]int{
		middleware.LimitByIP:  cfg.AuthRateLimit.SignupIPLimit,
		middleware.LimitByCPF: cfg.AuthRateLimit.SignupCPFLimit,
	})

	requireAuth := middleware.Auth(cfg.JWT, infra.Sessions, logg)
	optionalAuth := middleware.OptionalAuth(cfg.JWT, infra.Sessions, logg)
	adminOnly := middleware.RequireAdmin(logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, infra.Ready))
	})
	if infra.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(infra.Gatherer, promhttp.HandlerOpts{}))
	}

	// Gateways call these without credentials.
	r.Post("/webhook/mp", controllers.MercadoPagoWebhook(svc.Payments, logg))
	r.Post("/webhook/square", controllers.SquareWebhook(svc.Payments, logg))

	r.With(middleware.AuthRateLimit(loginPolicy, limiter, logg)).Post("/login", controllers.AuthLogin(svc.Auth, logg))
	r.With(middleware.AuthRateLimit(signupPolicy, limiter, logg), middleware.Idempotency(idempotencyStore, logg)).
		Post("/usuarios", controllers.UserCreate(svc.Users, logg))

	// Public catalog reads. A token, when sent, still identifies the caller.
	r.Group(func(r chi.Router) {
		r.Use(optionalAuth)
		r.Get("/produto", controllers.ProductList(svc.Products, logg))
		r.Get("/produtoImagem/{produtoId}", controllers.ProductImageList(svc.Products, logg))
		r.Get("/categoria", controllers.CategoryList(svc.Categories, logg))
		r.Get("/estoque", controllers.StockList(svc.Stock, logg))
		r.Get("/avaliacao", controllers.ReviewList(svc.Reviews, logg))
		r.Get("/avaliacao/media", controllers.ReviewAverage(svc.Reviews, logg))
		r.Get("/formaPagamento", controllers.PaymentMethodList(svc.PaymentMethods, logg))
		r.Get("/metodos-mp", controllers.GatewayMethods(svc.Payments, logg))
	})

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Get("/retrieve", controllers.AuthRetrieve(svc.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(svc.Auth, logg))

		r.Get("/usuarios", controllers.UserList(svc.Users, logg))
		r.Get("/usuarios/{id}", controllers.UserGet(svc.Users, logg))
		r.Patch("/usuarios/{id}", controllers.UserUpdate(svc.Users, logg))
		r.Delete("/usuarios/{id}", controllers.UserDelete(svc.Users, logg))

		r.Route("/endereco", func(r chi.Router) {
			r.Post("/", controllers.AddressCreate(svc.Addresses, logg))
			r.Get("/", controllers.AddressList(svc.Addresses, logg))
			r.Patch("/{id}", controllers.AddressUpdate(svc.Addresses, logg))
			r.Delete("/{id}", controllers.AddressDelete(svc.Addresses, logg))
		})
		r.Route("/endereco-principal", func(r chi.Router) {
			r.Post("/", controllers.PrimaryAddressCreate(svc.Addresses, logg))
			r.Get("/{usuarioId}", controllers.PrimaryAddressGet(svc.Addresses, logg))
			r.Patch("/{id}", controllers.PrimaryAddressUpdate(svc.Addresses, logg))
			r.Delete("/{id}", controllers.PrimaryAddressDelete(svc.Addresses, logg))
		})

		r.Post("/produto", controllers.ProductCreate(svc.Products, logg))
		r.Patch("/produto/{id}", controllers.ProductUpdate(svc.Products, logg))
		r.Delete("/produto/{id}", controllers.ProductDelete(svc.Products, logg))
		r.Post("/produtoImagem", controllers.ProductImageAdd(svc.Products, logg))

		r.Post("/estoque", controllers.StockCreate(svc.Stock, logg))
		r.Patch("/estoque/{id}", controllers.StockUpdate(svc.Stock, logg))
		r.Delete("/estoque/{id}", controllers.StockDelete(svc.Stock, logg))

		r.Post("/avaliacao", controllers.ReviewCreate(svc.Reviews, logg))

		r.Route("/itemCarrinho", func(r chi.Router) {
			r.Post("/", controllers.CartAdd(svc.Cart, logg))
			r.Get("/", controllers.CartList(svc.Cart, logg))
			r.Patch("/{id}", controllers.CartUpdate(svc.Cart, logg))
			r.Delete("/{id}", controllers.CartRemove(svc.Cart, logg))
		})

		r.Post("/pagamento", controllers.PaymentCreate(svc.Payments, logg))

		r.Route("/ordem", func(r chi.Router) {
			r.Get("/", controllers.OrderList(svc.Orders, logg))
			r.Get("/{id}", controllers.OrderGet(svc.Orders, logg))
		})

		r.Post("/checkout", controllers.CheckoutCreate(svc.Checkout, logg))
		r.Get("/checkout/{id}", controllers.CheckoutGet(svc.Checkout, logg))
		r.Delete("/checkout/{id}", controllers.CheckoutDelete(svc.Checkout, logg))

		r.Get("/api/dashboard/{usuarioId}", controllers.DashboardSummary(svc.Dashboard, logg))

		r.Group(func(r chi.Router) {
			r.Use(adminOnly)
			r.Post("/categoria", controllers.CategoryCreate(svc.Categories, logg))
			r.Patch("/categoria/{id}", controllers.CategoryUpdate(svc.Categories, logg))
			r.Delete("/categoria/{id}", controllers.CategoryDelete(svc.Categories, logg))

			r.Post("/formaPagamento", controllers.PaymentMethodCreate(svc.PaymentMethods, logg))
			r.Patch("/formaPagamento/{id}", controllers.PaymentMethodUpdate(svc.PaymentMethods, logg))
			r.Delete("/formaPagamento/{id}", controllers.PaymentMethodDelete(svc.PaymentMethods, logg))
		})
	})

	return r
}
