package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/avelazquez/zocalo-backend/api/controllers"
	"github.com/avelazquez/zocalo-backend/api/middleware"
	checkoutsvc "github.com/avelazquez/zocalo-backend/internal/checkout"
	"github.com/avelazquez/zocalo-backend/internal/inventory"
	"github.com/avelazquez/zocalo-backend/internal/ledger"
	ordersvc "github.com/avelazquez/zocalo-backend/internal/orders"
	productsvc "github.com/avelazquez/zocalo-backend/internal/products"
	"github.com/avelazquez/zocalo-backend/internal/promotions"
	"github.com/avelazquez/zocalo-backend/internal/sellers"
	"github.com/avelazquez/zocalo-backend/pkg/config"
	"github.com/avelazquez/zocalo-backend/pkg/db"
	"github.com/avelazquez/zocalo-backend/pkg/logger"
	pkgredis "github.com/avelazquez/zocalo-backend/pkg/redis"
)

// NewRouter wires every HTTP surface of the marketplace API.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *pkgredis.Client,
	promRegistry *prometheus.Registry,
	sellersService sellers.Service,
	productsService productsvc.Service,
	inventoryService inventory.Service,
	promotionsService promotions.Service,
	checkoutService checkoutsvc.Service,
	ordersService ordersvc.Service,
	ledgerService ledger.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	if promRegistry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))
		r.Use(middleware.RateLimit(cfg.RateLimit, redisClient, logg))

		r.Post("/checkout", controllers.Checkout(checkoutService, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListOrders(ordersService, logg))
			r.Get("/{orderId}", controllers.OrderDetail(ordersService, logg))
			r.Delete("/{orderId}", controllers.DeleteOrder(ordersService, logg))
			r.Get("/{orderId}/history", controllers.OrderHistory(ordersService, logg))
			r.Get("/{orderId}/commission", controllers.OrderCommission(ordersService, logg))
			r.Post("/{orderId}/cancel", controllers.CancelOrder(ordersService, logg))
			r.Post("/{orderId}/return", controllers.ReturnOrder(ordersService, logg))
			r.Post("/{orderId}/transition", controllers.TransitionOrder(ordersService, logg))
		})

		r.Route("/sellers", func(r chi.Router) {
			r.Post("/", controllers.RegisterSeller(sellersService, logg))
			r.Route("/me", func(r chi.Router) {
				r.Use(middleware.RequireRole("seller", logg))
				r.Get("/", controllers.SellerMe(sellersService, logg))
				r.Get("/payout", controllers.SellerPayout(ledgerService, logg))

				r.Route("/products", func(r chi.Router) {
					r.Post("/", controllers.CreateProduct(productsService, logg))
					r.Get("/", controllers.ListSellerProducts(productsService, logg))
					r.Get("/{productId}", controllers.ProductDetail(productsService, logg))
					r.Patch("/{productId}", controllers.UpdateProduct(productsService, logg))
					r.Post("/{productId}/restock", controllers.RestockProduct(productsService, logg))
					r.Put("/{productId}/stock", controllers.SetProductStock(productsService, logg))
					r.Get("/{productId}/movements", controllers.ListStockMovements(productsService, inventoryService, logg))
				})

				r.Route("/promotions", func(r chi.Router) {
					r.Post("/", controllers.CreatePromotion(promotionsService, logg))
					r.Get("/{promotionId}", controllers.PromotionDetail(promotionsService, logg))
					r.Patch("/{promotionId}", controllers.UpdatePromotion(promotionsService, logg))
				})
				r.Post("/coupons", controllers.CreateCoupon(promotionsService, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole("admin", logg))
		r.Use(middleware.Idempotency(redisClient, logg))
		r.Use(middleware.RateLimit(cfg.RateLimit, redisClient, logg))

		r.Post("/sellers/{sellerId}/approval", controllers.SetSellerApproval(sellersService, logg))
		r.Route("/orders", func(r chi.Router) {
			r.Post("/{orderId}/transition", controllers.TransitionOrder(ordersService, logg))
			r.Post("/{orderId}/mark-paid", controllers.MarkOrderPaid(ordersService, logg))
		})
	})

	return r
}
