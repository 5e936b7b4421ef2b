package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ticketer/internal/cache"
	"ticketer/internal/config"
	"ticketer/internal/database"
	"ticketer/internal/external"
	"ticketer/internal/handlers"
	"ticketer/internal/logger"
	"ticketer/internal/messaging"
	"ticketer/internal/middleware"
	"ticketer/internal/monitoring"
	"ticketer/internal/repository"
	"ticketer/internal/search"
	"ticketer/internal/service"
)

// Server is the settlement engine's HTTP API.
type Server struct {
	router   *gin.Engine
	config   *config.Config
	db       *database.DB
	nats     *messaging.NATSClient
	cache    *cache.SettlementCache
	services *service.Services
	repos    *repository.Repositories
}

func NewServer(cfg *config.Config) *Server {
	gin.SetMode(cfg.GinMode)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", slog.String("error", err.Error()))
	}

	if err := db.RunMigrations(); err != nil {
		logger.Fatal("Failed to run migrations", slog.String("error", err.Error()))
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		logger.Fatal("Failed to connect to NATS", slog.String("error", err.Error()))
	}

	// The cache and search index are conveniences; the engine runs without
	// them.
	settlementCache, err := cache.NewSettlementCache(cfg.Redis)
	if err != nil {
		slog.Warn("Settlement cache unavailable", "error", err.Error())
		settlementCache = nil
	}

	listings, err := search.NewListingsClient(cfg.Elasticsearch)
	if err != nil {
		slog.Warn("Listings search unavailable", "error", err.Error())
		listings = nil
	}

	gateway := external.NewGatewayClient(cfg.Gateway)
	monitor := monitoring.NewMonitor()

	repos := repository.NewRepositories(db)
	services := service.NewServices(cfg, repos, gateway, natsClient, settlementCache, listings, monitor)

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())

	server := &Server{
		router:   router,
		config:   cfg,
		db:       db,
		nats:     natsClient,
		cache:    settlementCache,
		services: services,
		repos:    repos,
	}

	server.setupRoutes()

	return server
}

func (s *Server) setupRoutes() {
	h := handlers.NewHandlers(s.services)

	api := s.router.Group("/api")
	{
		// The gateway webhook carries no user identity.
		payments := api.Group("/payments")
		{
			payments.POST("/notification", h.HandleNotification)
		}

		authed := api.Group("")
		authed.Use(middleware.Identity(s.repos.Users))
		{
			authed.GET("/payments/transactions", h.ListTransactions)
			authed.GET("/payments/transactions/:reference", h.GetTransaction)

			tickets := authed.Group("/tickets")
			{
				tickets.GET("", h.MyTickets)
				tickets.POST("/buy/new", h.BuyNew)
				tickets.POST("/buy/resale", h.BuyResale)
				tickets.GET("/resale", h.SearchListings)
				tickets.POST("/resale", h.ListResale)
				tickets.DELETE("/resale", h.RemoveResale)
				tickets.POST("/verify", h.VerifyTicket)
			}

			wallet := authed.Group("/wallet")
			{
				wallet.POST("/fund", h.Fund)
				wallet.POST("/withdraw", h.Withdraw)
				wallet.GET("/balance", h.Balance)
				wallet.POST("/pin", h.SetPin)
				wallet.GET("/pin", h.HasPin)
			}
		}
	}

	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (s *Server) healthCheck(c *gin.Context) {
	health := s.db.Health(c.Request.Context())
	status := http.StatusOK
	if health.Status != "ok" {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":   health.Status,
		"service":  "ticketer-api",
		"database": health,
	})
}

// Run starts the HTTP server.
func (s *Server) Run() error {
	addr := fmt.Sprintf(":%s", s.config.Port)
	return s.router.Run(addr)
}

// GetRouter exposes the router for tests.
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// Cleanup closes connections.
func (s *Server) Cleanup() error {
	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			slog.Error("Error closing NATS connection", "error", err.Error())
		}
	}

	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			slog.Error("Error closing cache connection", "error", err.Error())
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			slog.Error("Error closing database connection", "error", err.Error())
			return err
		}
	}

	return nil
}
