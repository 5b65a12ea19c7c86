package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"linknexy/config"
	"linknexy/linkedin"
	"linknexy/middleware"
	"linknexy/routes"
	"linknexy/utils"
	"linknexy/worker"

	"github.com/gofiber/fiber/v2"
)

func main() {
	// Load configuration
	if err := config.LoadConfig(); err != nil {
		utils.Log.Fatalf("Failed to load configuration: %v", err)
	}

	utils.InitLogger(config.AppConfig.Environment)
	if err := utils.InitSentry(config.AppConfig.SentryDSN, config.AppConfig.Environment); err != nil {
		utils.Log.WithError(err).Warn("sentry initialization failed, continuing without it")
	}

	// Initialize database and redis connections
	if err := config.ConnectDB(); err != nil {
		utils.Log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := config.ConnectRedis(); err != nil {
		utils.Log.Fatalf("Failed to connect to redis: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Wire the pipeline: provider client, distributed lock, orchestrator,
	// daily scheduler.
	client := linkedin.NewProviderClient(
		config.AppConfig.LinkedIn.BaseURL,
		config.AppConfig.LinkedIn.APIKey,
		utils.ComponentLogger("linkedin"),
	)
	locker := utils.NewRedisLocker(config.Redis)
	orchestrator := worker.NewOrchestrator(config.DB, client, locker, utils.ComponentLogger("orchestrator"))
	scheduler := worker.NewScheduler(config.DB, orchestrator, utils.ComponentLogger("scheduler"))

	if err := scheduler.Start(ctx, config.AppConfig.Scheduler.CampaignCron, config.AppConfig.Scheduler.SyncCron); err != nil {
		utils.Log.Fatalf("Failed to start scheduler: %v", err)
	}

	// Create Fiber app
	app := fiber.New()
	app.Use(middleware.CORS())

	// Setup routes
	routes.SetupRoutes(app, config.DB, ctx, scheduler, orchestrator)

	// Graceful shutdown: stop accepting requests, then drain in-flight
	// pipeline runs before exiting.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-shutdown
		utils.Log.Info("shutdown signal received")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			utils.Log.WithError(err).Error("server shutdown failed")
		}
	}()

	// Start server
	utils.Log.Infof("🚀 Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		utils.Log.Fatalf("Failed to start server: %v", err)
	}

	cancel()
	scheduler.Stop()
	utils.Log.Info("server stopped")
}
