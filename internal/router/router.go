package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/barpos/api/internal/config"
	"github.com/barpos/api/internal/database"
	"github.com/barpos/api/internal/enum"
	"github.com/barpos/api/internal/handler"
	mw "github.com/barpos/api/internal/middleware"
	"github.com/barpos/api/internal/notify"
	"github.com/barpos/api/internal/service"
	"github.com/barpos/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Authentication and role middleware guard everything below /auth.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub, notifier notify.Notifier) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/notifications", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	tabService := service.NewTabService(pool, func(db database.DBTX) service.TabStore {
		return database.New(db)
	})
	orderService := service.NewOrderService(pool, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	})
	tillService := service.NewTillService(pool, func(db database.DBTX) service.TillStore {
		return database.New(db)
	})
	workflowService := service.NewWorkflowService(pool, func(db database.DBTX) service.WorkflowStore {
		return database.New(db)
	}, notifier)

	tabHandler := handler.NewTabHandler(tabService)
	orderHandler := handler.NewOrderHandler(orderService)
	tillHandler := handler.NewTillHandler(tillService)
	requestHandler := handler.NewRequestHandler(workflowService)
	catalogHandler := handler.NewCatalogHandler(queries)
	userHandler := handler.NewUserHandler(queries)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// Floor operations, any staff role
		r.Route("/tabs", tabHandler.RegisterRoutes)
		r.Route("/orders", func(r chi.Router) {
			orderHandler.RegisterRoutes(r)
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.RoleManager))
				orderHandler.RegisterManagerRoutes(r)
			})
		})
		r.Route("/requests", func(r chi.Router) {
			requestHandler.RegisterRoutes(r)
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.RoleManager))
				requestHandler.RegisterManagerRoutes(r)
			})
		})

		// Till lifecycle is a manager concern
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.RoleManager, enum.RoleDirector))
			r.Route("/tills", tillHandler.RegisterRoutes)
		})

		// Back office, director only
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.RoleDirector))
			catalogHandler.RegisterRoutes(r)
			r.Route("/users", userHandler.RegisterRoutes)
		})
	})

	return r
}
