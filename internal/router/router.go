package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/qrbites/api/internal/ai"
	"github.com/qrbites/api/internal/config"
	"github.com/qrbites/api/internal/database"
	"github.com/qrbites/api/internal/enum"
	"github.com/qrbites/api/internal/handler"
	mw "github.com/qrbites/api/internal/middleware"
	"github.com/qrbites/api/internal/service"
	"github.com/qrbites/api/internal/ws"
)

// New creates a Chi router with all application routes wired up. Customer
// routes are public (the order UUID is the customer's credential); staff
// routes sit behind JWT authentication.
func New(
	cfg *config.Config,
	queries *database.Queries,
	pool *pgxpool.Pool,
	hub *ws.Hub,
	sessions *service.Sessions,
	sweeper *service.Sweeper,
	menuParser ai.MenuParser,
) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(cfg)
	authHandler.RegisterRoutes(r)

	// WebSocket routes. The staff feed validates a JWT query param; the
	// per-order feed relies on the unguessable order UUID.
	r.Get("/ws/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeStaffWS(hub, cfg.JWTSecret, w, r)
	})
	r.Get("/ws/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeOrderWS(hub, w, r)
	})

	newOrderStore := func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}
	orderService := service.NewOrderService(pool, queries, newOrderStore)
	orderHandler := handler.NewOrderHandler(orderService, queries, hub)

	menuHandler := handler.NewMenuHandler(queries)
	tableHandler := handler.NewTableHandler(queries)
	sessionHandler := handler.NewSessionHandler(sessions)

	// Customer-facing routes (no auth; see package docs on order-UUID scoping)
	orderHandler.RegisterPublicRoutes(r)
	menuHandler.RegisterPublicRoutes(r)
	tableHandler.RegisterPublicRoutes(r)
	sessionHandler.RegisterPublicRoutes(r)

	// Staff routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))
		r.Use(mw.RequireRole(enum.UserRoleStaff))

		orderHandler.RegisterStaffRoutes(r)
		menuHandler.RegisterStaffRoutes(r)
		tableHandler.RegisterStaffRoutes(r)

		importHandler := handler.NewMenuImportHandler(menuParser, pool,
			func(db database.DBTX) handler.MenuImportStore {
				return database.New(db)
			})
		importHandler.RegisterStaffRoutes(r)

		settingsHandler := handler.NewSettingsHandler(queries)
		settingsHandler.RegisterStaffRoutes(r)

		reportsHandler := handler.NewReportsHandler(queries)
		reportsHandler.RegisterStaffRoutes(r)

		archiveHandler := handler.NewArchiveHandler(sweeper, queries, hub)
		archiveHandler.RegisterStaffRoutes(r)
	})

	return r
}
