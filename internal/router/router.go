package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mealdash/api/internal/config"
	"github.com/mealdash/api/internal/database"
	"github.com/mealdash/api/internal/enum"
	"github.com/mealdash/api/internal/handler"
	mw "github.com/mealdash/api/internal/middleware"
	"github.com/mealdash/api/internal/service"
)

// New creates a Chi router with all application routes wired up.
// The publisher may be nil when no broker is configured.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, publisher service.EventPublisher) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(mw.RequestLogger)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// Orders
		newOrderStore := func(db database.DBTX) service.OrderStore {
			return database.New(db)
		}
		orderService := service.NewOrderService(pool, newOrderStore, cfg.TaxRate, publisher)
		orderHandler := handler.NewOrderHandler(orderService, queries)
		r.Route("/orders", orderHandler.RegisterRoutes)

		// Deliveries (courier only)
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.RoleCourier, enum.RoleAdmin))

			newDeliveryStore := func(db database.DBTX) service.DeliveryStore {
				return database.New(db)
			}
			deliveryService := service.NewDeliveryService(pool, newDeliveryStore, publisher)
			deliveryHandler := handler.NewDeliveryHandler(deliveryService)
			r.Route("/deliveries", deliveryHandler.RegisterRoutes)
		})
	})

	return r
}
