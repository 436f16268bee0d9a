package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pennyekart/pennyekart-backend/api/controllers"
	"github.com/pennyekart/pennyekart-backend/api/middleware"
	"github.com/pennyekart/pennyekart-backend/internal/cart"
	"github.com/pennyekart/pennyekart-backend/internal/catalog"
	checkoutsvc "github.com/pennyekart/pennyekart-backend/internal/checkout"
	"github.com/pennyekart/pennyekart-backend/internal/fulfillment"
	"github.com/pennyekart/pennyekart-backend/internal/godowns"
	"github.com/pennyekart/pennyekart-backend/internal/inventory"
	"github.com/pennyekart/pennyekart-backend/internal/orders"
	"github.com/pennyekart/pennyekart-backend/internal/staff"
	"github.com/pennyekart/pennyekart-backend/internal/wallet"
	"github.com/pennyekart/pennyekart-backend/pkg/config"
	"github.com/pennyekart/pennyekart-backend/pkg/enums"
	"github.com/pennyekart/pennyekart-backend/pkg/logger"
	"github.com/pennyekart/pennyekart-backend/pkg/metrics"
	pkgredis "github.com/pennyekart/pennyekart-backend/pkg/redis"
)

// Services carries every domain service the API exposes. A nil service makes
// its routes answer 500 instead of panicking.
type Services struct {
	Catalog     catalog.Service
	Cart        cart.Service
	Checkout    checkoutsvc.Service
	Orders      orders.Service
	Fulfillment fulfillment.Service
	Wallet      wallet.Service
	Staff       staff.Service
	StockReport inventory.ReportService
	Purchases   inventory.PurchaseService
	Godowns     godowns.Service
}

// Deps is the infrastructure the router needs besides the services.
type Deps struct {
	Idempotency pkgredis.IdempotencyStore
	Ready       map[string]controllers.Pinger
	Metrics     prometheus.Gatherer
	HTTPMetrics *metrics.HTTPMetrics
	CORSOrigins []string
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Deps, svc Services) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.CORS(deps.CORSOrigins...),
		middleware.Logging(logg, deps.HTTPMetrics),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Ready))
	})
	if deps.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(deps.Idempotency, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.UserRoleCustomer))

			r.Route("/catalog", func(r chi.Router) {
				r.Get("/area-products", controllers.AreaProducts(svc.Catalog, logg))
				r.Get("/sections", controllers.CatalogSections(svc.Catalog, logg))
			})
			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartFetch(svc.Cart, logg))
				r.Delete("/", controllers.CartClear(svc.Cart, logg))
				r.Post("/items", controllers.CartAddItem(svc.Cart, logg))
				r.Patch("/items/{productId}", controllers.CartUpdateItem(svc.Cart, logg))
				r.Delete("/items/{productId}", controllers.CartRemoveItem(svc.Cart, logg))
			})
			r.Post("/checkout", controllers.Checkout(svc.Checkout, logg))
			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.OrdersList(svc.Orders, logg))
				r.Get("/{orderId}", controllers.OrderDetail(svc.Orders, logg))
			})
		})

		r.Route("/delivery", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.UserRoleDeliveryStaff))
			r.Get("/orders", controllers.DeliveryOrders(svc.Fulfillment, logg))
			r.Post("/orders/{orderId}/advance", controllers.DeliveryAdvance(svc.Fulfillment, logg))
			r.Get("/wallet", controllers.DeliveryWallet(svc.Wallet, logg))
			r.Get("/assignments", controllers.DeliveryAssignments(svc.Staff, logg))
		})

		r.Route("/seller", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.UserRoleSeller))
			r.Post("/orders/{orderId}/confirm", controllers.SellerConfirmOrder(svc.Fulfillment, logg))
			r.Post("/orders/{orderId}/decline", controllers.SellerDeclineOrder(svc.Fulfillment, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))
			r.Get("/stock", controllers.AdminStockReport(svc.StockReport, logg))

			r.Route("/purchases", func(r chi.Router) {
				r.Get("/", controllers.AdminListPurchases(svc.Purchases, logg))
				r.Post("/", controllers.AdminRecordPurchase(svc.Purchases, logg))
				r.Patch("/{batchId}", controllers.AdminUpdateBatch(svc.Purchases, logg))
				r.Delete("/{batchId}", controllers.AdminDeleteBatch(svc.Purchases, logg))
			})

			r.Route("/godowns", func(r chi.Router) {
				r.Get("/", controllers.AdminListGodowns(svc.Godowns, logg))
				r.Post("/", controllers.AdminCreateGodown(svc.Godowns, logg))
				r.Delete("/{godownId}", controllers.AdminDeleteGodown(svc.Godowns, logg))
				r.Put("/{godownId}/wards", controllers.AdminAssignMicroWards(svc.Godowns, logg))
				r.Post("/{godownId}/local-bodies", controllers.AdminAssignLocalBodies(svc.Godowns, logg))
				r.Delete("/{godownId}/local-bodies/{localBodyId}", controllers.AdminRemoveLocalBody(svc.Godowns, logg))
			})

			r.Route("/delivery-staff", func(r chi.Router) {
				r.Get("/", controllers.AdminListStaff(svc.Staff, logg))
				r.Put("/{staffId}/wards", controllers.AdminReplaceStaffWards(svc.Staff, logg))
				r.Patch("/{staffId}/approval", controllers.AdminSetStaffApproval(svc.Staff, logg))
			})

			r.Post("/orders/{orderId}/assign", controllers.AdminAssignOrder(svc.Fulfillment, logg))
		})
	})

	return r
}
