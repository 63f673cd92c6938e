package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dealerworks/dms-backend/api/controllers"
	corecontrollers "github.com/dealerworks/dms-backend/api/controllers/cores"
	customercontrollers "github.com/dealerworks/dms-backend/api/controllers/customers"
	integrationcontrollers "github.com/dealerworks/dms-backend/api/controllers/integration"
	inventorycontrollers "github.com/dealerworks/dms-backend/api/controllers/inventory"
	loyaltycontrollers "github.com/dealerworks/dms-backend/api/controllers/loyalty"
	partcontrollers "github.com/dealerworks/dms-backend/api/controllers/parts"
	purchasingcontrollers "github.com/dealerworks/dms-backend/api/controllers/purchasing"
	settingscontrollers "github.com/dealerworks/dms-backend/api/controllers/settings"
	"github.com/dealerworks/dms-backend/api/middleware"
	"github.com/dealerworks/dms-backend/internal/coretracking"
	"github.com/dealerworks/dms-backend/internal/customers"
	"github.com/dealerworks/dms-backend/internal/integration"
	"github.com/dealerworks/dms-backend/internal/inventory"
	"github.com/dealerworks/dms-backend/internal/loyalty"
	"github.com/dealerworks/dms-backend/internal/parts"
	"github.com/dealerworks/dms-backend/internal/purchasing"
	"github.com/dealerworks/dms-backend/internal/settings"
	"github.com/dealerworks/dms-backend/pkg/auth/session"
	"github.com/dealerworks/dms-backend/pkg/config"
	"github.com/dealerworks/dms-backend/pkg/enums"
	"github.com/dealerworks/dms-backend/pkg/logger"
	"github.com/dealerworks/dms-backend/pkg/redis"
)

// Deps carries everything NewRouter mounts. Redis, Sessions, PubSub and
// Metrics are optional.
type Deps struct {
	Config *config.Config
	Logger *logger.Logger

	DB       controllers.Pinger
	Redis    *redis.Client
	PubSub   controllers.Pinger
	Sessions session.AccessSessionChecker
	Metrics  http.Handler

	Parts       parts.Service
	Inventory   inventory.Service
	Cores       coretracking.Service
	Customers   customers.Service
	Loyalty     loyalty.Service
	Settings    settings.Service
	Integration integration.Service
	Purchasing  purchasing.Service
}

var (
	stockRoles    = []enums.StaffRole{enums.StaffRoleManager, enums.StaffRolePartsClerk}
	counterRoles  = []enums.StaffRole{enums.StaffRoleManager, enums.StaffRolePartsClerk, enums.StaffRoleServiceAdvisor}
	customerRoles = []enums.StaffRole{enums.StaffRoleManager, enums.StaffRoleServiceAdvisor, enums.StaffRoleSales}
	saleRoles     = []enums.StaffRole{enums.StaffRoleManager, enums.StaffRolePartsClerk, enums.StaffRoleServiceAdvisor, enums.StaffRoleSales}
	managerRoles  = []enums.StaffRole{enums.StaffRoleManager}
)

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Tracing(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readinessChecks(deps)...))
	})

	metricsHandler := deps.Metrics
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Handle("/metrics", metricsHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
		if deps.Redis != nil {
			writePolicy := middleware.NewRateLimitPolicy(
				"write",
				cfg.RateLimit.WriteWindow,
				cfg.RateLimit.WriteIPLimit,
				cfg.RateLimit.WriteUserLimit,
			)
			r.Use(writesOnly(middleware.RateLimit(writePolicy, deps.Redis, logg)))
			r.Use(middleware.Idempotency(deps.Redis, logg))
		}

		r.Route("/parts", func(r chi.Router) {
			r.Get("/", partcontrollers.List(deps.Parts, logg))
			r.With(middleware.RequireRoles(logg, stockRoles...)).Post("/", partcontrollers.Create(deps.Parts, logg))
			r.Get("/number/{partNumber}", partcontrollers.GetByNumber(deps.Parts, logg))
			r.Route("/{partId}", func(r chi.Router) {
				r.Get("/", partcontrollers.Get(deps.Parts, logg))
				r.Get("/supersession", partcontrollers.Supersession(deps.Parts, logg))
				r.With(middleware.RequireRoles(logg, stockRoles...)).Put("/", partcontrollers.Update(deps.Parts, logg))
				r.With(middleware.RequireRoles(logg, managerRoles...)).Delete("/", partcontrollers.Delete(deps.Parts, logg))
			})
		})

		r.Route("/locations", func(r chi.Router) {
			r.Get("/", partcontrollers.ListLocations(deps.Parts, logg))
			r.With(middleware.RequireRoles(logg, managerRoles...)).Post("/", partcontrollers.CreateLocation(deps.Parts, logg))
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/", inventorycontrollers.ListRecords(deps.Inventory, logg))
			r.Get("/low-stock", inventorycontrollers.LowStock(deps.Inventory, logg))
			r.Get("/{recordId}", inventorycontrollers.GetRecord(deps.Inventory, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRoles(logg, stockRoles...))
				r.Post("/", inventorycontrollers.CreateRecord(deps.Inventory, logg))
				r.Put("/{recordId}", inventorycontrollers.UpdateRecord(deps.Inventory, logg))
				r.Post("/receipts", inventorycontrollers.Receipt(deps.Inventory, logg))
			})
			r.With(middleware.RequireRoles(logg, saleRoles...)).Post("/sales", inventorycontrollers.Sale(deps.Inventory, logg))
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", inventorycontrollers.ListTransactions(deps.Inventory, logg))
			r.Get("/{transactionId}", inventorycontrollers.GetTransaction(deps.Inventory, logg))
			r.Get("/parts/{partId}/history", inventorycontrollers.PartHistory(deps.Inventory, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRoles(logg, counterRoles...))
				r.Post("/issue", inventorycontrollers.Issue(deps.Inventory, logg))
				r.Post("/return", inventorycontrollers.Return(deps.Inventory, logg))
			})
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRoles(logg, stockRoles...))
				r.Post("/adjust", inventorycontrollers.Adjust(deps.Inventory, logg))
				r.Post("/transfer", inventorycontrollers.Transfer(deps.Inventory, logg))
			})
		})

		r.Route("/suppliers", func(r chi.Router) {
			r.Get("/", purchasingcontrollers.ListSuppliers(deps.Purchasing, logg))
			r.Get("/{supplierId}", purchasingcontrollers.GetSupplier(deps.Purchasing, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRoles(logg, stockRoles...))
				r.Post("/", purchasingcontrollers.CreateSupplier(deps.Purchasing, logg))
				r.Put("/{supplierId}", purchasingcontrollers.UpdateSupplier(deps.Purchasing, logg))
			})
			r.With(middleware.RequireRoles(logg, managerRoles...)).Delete("/{supplierId}", purchasingcontrollers.DeactivateSupplier(deps.Purchasing, logg))
		})

		r.Route("/purchase-orders", func(r chi.Router) {
			r.Get("/", purchasingcontrollers.ListOrders(deps.Purchasing, logg))
			r.Get("/reorder-recommendations", purchasingcontrollers.ReorderRecommendations(deps.Purchasing, logg))
			r.Get("/{orderId}", purchasingcontrollers.GetOrder(deps.Purchasing, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRoles(logg, stockRoles...))
				r.Post("/", purchasingcontrollers.CreateOrder(deps.Purchasing, logg))
				r.Put("/{orderId}", purchasingcontrollers.UpdateOrder(deps.Purchasing, logg))
				r.Delete("/{orderId}", purchasingcontrollers.DeleteOrder(deps.Purchasing, logg))
				r.Post("/{orderId}/submit", purchasingcontrollers.SubmitOrder(deps.Purchasing, logg))
				r.Post("/{orderId}/receive", purchasingcontrollers.ReceiveOrder(deps.Purchasing, logg))
				r.Post("/{orderId}/cancel", purchasingcontrollers.CancelOrder(deps.Purchasing, logg))
			})
		})

		r.Route("/cores", func(r chi.Router) {
			r.Get("/", corecontrollers.List(deps.Cores, logg))
			r.Get("/outstanding", corecontrollers.Outstanding(deps.Cores, logg))
			r.Get("/{coreId}", corecontrollers.Get(deps.Cores, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRoles(logg, counterRoles...))
				r.Post("/", corecontrollers.Create(deps.Cores, logg))
				r.Post("/{coreId}/return", corecontrollers.Return(deps.Cores, logg))
			})
			r.With(middleware.RequireRoles(logg, managerRoles...)).Post("/{coreId}/credit", corecontrollers.Credit(deps.Cores, logg))
		})

		r.Route("/customers", func(r chi.Router) {
			r.Get("/", customercontrollers.List(deps.Customers, logg))
			r.Get("/{customerId}", customercontrollers.Get(deps.Customers, logg))
			r.With(middleware.RequireRoles(logg, customerRoles...)).Post("/", customercontrollers.Create(deps.Customers, logg))
		})

		r.Route("/loyalty", func(r chi.Router) {
			r.Get("/tiers", loyaltycontrollers.Tiers(deps.Loyalty, logg))
			r.Post("/calculate", loyaltycontrollers.Calculate(deps.Loyalty, logg))
			r.Route("/customers/{customerId}", func(r chi.Router) {
				r.Get("/", loyaltycontrollers.Status(deps.Loyalty, logg))
				r.Get("/history", loyaltycontrollers.History(deps.Loyalty, logg))
				r.Get("/rewards", loyaltycontrollers.AvailableRewards(deps.Loyalty, logg))
				r.Get("/redemptions", loyaltycontrollers.Redemptions(deps.Loyalty, logg))
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRoles(logg, customerRoles...))
					r.Post("/points", loyaltycontrollers.AddPoints(deps.Loyalty, logg))
					r.Post("/redemptions", loyaltycontrollers.Redeem(deps.Loyalty, logg))
				})
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRoles(logg, managerRoles...))
					r.Post("/adjustments", loyaltycontrollers.AdjustPoints(deps.Loyalty, logg))
					r.Put("/tier", loyaltycontrollers.UpdateTier(deps.Loyalty, logg))
				})
			})
		})

		r.Route("/rewards", func(r chi.Router) {
			r.Get("/", loyaltycontrollers.ListRewards(deps.Loyalty, logg))
			r.Get("/{rewardId}", loyaltycontrollers.GetReward(deps.Loyalty, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRoles(logg, managerRoles...))
				r.Post("/", loyaltycontrollers.CreateReward(deps.Loyalty, logg))
				r.Put("/{rewardId}", loyaltycontrollers.UpdateReward(deps.Loyalty, logg))
			})
		})

		r.Route("/redemptions/{redemptionId}", func(r chi.Router) {
			r.With(middleware.RequireRoles(logg, managerRoles...)).Post("/approve", loyaltycontrollers.ApproveRedemption(deps.Loyalty, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRoles(logg, customerRoles...))
				r.Post("/use", loyaltycontrollers.UseRedemption(deps.Loyalty, logg))
				r.Post("/cancel", loyaltycontrollers.CancelRedemption(deps.Loyalty, logg))
			})
		})

		r.Route("/dashboard/settings", func(r chi.Router) {
			r.Get("/", settingscontrollers.Get(deps.Settings, logg))
			r.With(middleware.RequireRoles(logg, managerRoles...)).Put("/", settingscontrollers.Update(deps.Settings, logg))
		})

		r.Route("/integration", func(r chi.Router) {
			r.Get("/customers/{customerId}", integrationcontrollers.Customer(deps.Integration, logg))
			r.Get("/parts/{partId}/pricing", integrationcontrollers.PartPricing(deps.Integration, logg))
		})
	})

	return r
}

func readinessChecks(deps Deps) []controllers.ReadinessCheck {
	checks := []controllers.ReadinessCheck{{Name: "db", Pinger: deps.DB}}
	if deps.Redis != nil {
		checks = append(checks, controllers.ReadinessCheck{Name: "redis", Pinger: deps.Redis})
	}
	if deps.PubSub != nil {
		checks = append(checks, controllers.ReadinessCheck{Name: "pubsub", Pinger: deps.PubSub})
	}
	return checks
}

// writesOnly skips mw for safe methods.
func writesOnly(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		limited := mw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
			default:
				limited.ServeHTTP(w, r)
			}
		})
	}
}
