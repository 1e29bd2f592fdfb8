package main

import (
	"context"
	"log"
	"time"

	"github.com/cryptodash/coin-backend/config"
	"github.com/cryptodash/coin-backend/database"
	"github.com/cryptodash/coin-backend/handlers"
	"github.com/cryptodash/coin-backend/jobs"
	"github.com/cryptodash/coin-backend/middleware"
	"github.com/cryptodash/coin-backend/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load config
	cfg := config.LoadConfig()

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}

	// Connect to database
	if err := database.ConnectWithConfig(cfg.DatabaseURL, &cfg.Tuning.Database); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Run migrations
	if err := database.Migrate("database/schema.sql"); err != nil {
		log.Printf("Migration warning: %v", err)
	}

	if err := database.ValidateAndLogSchema(); err != nil {
		log.Printf("Schema validation warning: %v", err)
	}

	// Initialize services
	marketService := services.NewMarketServiceWithConfig(cfg.CMCAPIKey, cfg.SecondaryAPIKey(), cfg.Tuning.Market)
	chartService := services.NewChartServiceWithConfig(cfg.Tuning.Chart)
	indexService := services.NewCoinIndexService(marketService, cfg.GetCacheTTL())
	favoriteService := services.NewFavoriteService(database.DB, marketService)
	userService := services.NewUserService(database.DB)
	tokenIssuer := middleware.NewTokenIssuer(cfg.JWTSecret)

	// Warm the coin index on startup so the first search is fast
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if count, err := indexService.Refresh(ctx); err != nil {
			log.Printf("Coin index warmup failed: %v", err)
		} else {
			log.Printf("Coin index warmed up with %d coins", count)
		}
	}()

	// Background refresh keeps the index inside its TTL
	refreshJob := jobs.NewCoinIndexRefreshJob(indexService, cfg.GetCacheTTL())
	refreshJob.Start()

	// Periodic upstream metrics summary
	go func() {
		for range time.Tick(1 * time.Hour) {
			if m := marketService.Metrics(); m != nil {
				m.LogSummary()
			}
		}
	}()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService, tokenIssuer)
	coinHandler := handlers.NewCoinHandler(marketService, chartService, indexService)
	favoriteHandler := handlers.NewFavoriteHandler(favoriteService)

	// Setup Fiber
	app := fiber.New()

	// Middleware
	app.Use(logger.New())
	app.Use(cors.New())

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		status := "ok"
		if err := database.HealthCheck(); err != nil {
			status = "degraded"
		}
		return c.JSON(fiber.Map{
			"status":    status,
			"timestamp": time.Now().Unix(),
		})
	})

	// Public routes
	app.Get("/coin-api", coinHandler.GetTopCoins)
	app.Get("/search", coinHandler.Search)
	app.Get("/currency/:name", coinHandler.GetCoinChart)
	app.Post("/signup", authHandler.Signup)
	app.Post("/login", authHandler.Login)

	// Authenticated routes
	auth := tokenIssuer.RequireAuth()
	app.Get("/favorites", auth, favoriteHandler.ListFavorites)
	app.Get("/favorite", auth, favoriteHandler.GetFavoriteDetails)
	app.Post("/favorite/:name", auth, favoriteHandler.AddFavorite)
	app.Delete("/favorite/:name", auth, favoriteHandler.RemoveFavorite)

	// Start server
	log.Printf("Server starting on port %s", cfg.ServerPort)
	if err := app.Listen(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
