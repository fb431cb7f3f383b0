package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Prodigy-Genes/Full-Stack-Tests-Farm-Direct/internal/app/handlers"
	"github.com/Prodigy-Genes/Full-Stack-Tests-Farm-Direct/internal/domain/models"
	"github.com/Prodigy-Genes/Full-Stack-Tests-Farm-Direct/internal/jwt-new/jwtmiddleware"
	"github.com/Prodigy-Genes/Full-Stack-Tests-Farm-Direct/internal/lib/logger/handlers/urllog"
	"github.com/Prodigy-Genes/Full-Stack-Tests-Farm-Direct/internal/lib/metrics"
	"github.com/Prodigy-Genes/Full-Stack-Tests-Farm-Direct/internal/service"
)

type Services struct {
	Auth     service.AuthServiceInterface
	Products service.ProductService
	Orders   service.OrderService
}

type RouterConfig struct {
	JWTSecret      string
	AllowedOrigins []string
}

// NewRouter mounts the API under /api plus /health and /metrics.
func NewRouter(log *slog.Logger, cfg RouterConfig, svc Services) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(urllog.CustomLoggerMiddleware(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)
	router.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)
	router.Use(metrics.Middleware)

	authenticate := jwtmiddleware.NewJWTMiddleware(cfg.JWTSecret)
	farmerOnly := jwtmiddleware.RequireRole(models.RoleFarmer)
	customerOnly := jwtmiddleware.RequireRole(models.RoleCustomer)

	router.Get("/health", handlers.HealthHandler(log))
	router.Handle("/metrics", metrics.Handler())

	router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", handlers.RegisterHandler(log, svc.Auth))
			r.Post("/login", handlers.LoginHandler(log, svc.Auth))
			r.With(authenticate).Get("/profile", handlers.ProfileHandler(log, svc.Auth))
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", handlers.ListProductsHandler(log, svc.Products))
			r.With(authenticate, farmerOnly).Get("/farmer/my-products", handlers.MyProductsHandler(log, svc.Products))
			r.Get("/{id}", handlers.GetProductHandler(log, svc.Products))

			r.Group(func(r chi.Router) {
				r.Use(authenticate, farmerOnly)
				r.Post("/", handlers.CreateProductHandler(log, svc.Products))
				r.Put("/{id}", handlers.UpdateProductHandler(log, svc.Products))
				r.Delete("/{id}", handlers.DeleteProductHandler(log, svc.Products))
			})
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(authenticate)
			r.With(customerOnly).Post("/", handlers.PlaceOrderHandler(log, svc.Orders))
			r.With(customerOnly).Get("/customer/my-orders", handlers.CustomerOrdersHandler(log, svc.Orders))
			r.With(farmerOnly).Get("/farmer/my-orders", handlers.FarmerOrdersHandler(log, svc.Orders))
			r.Get("/{id}", handlers.GetOrderHandler(log, svc.Orders))
			r.With(farmerOnly).Put("/{id}/status", handlers.UpdateOrderStatusHandler(log, svc.Orders))
		})
	})

	return router
}
