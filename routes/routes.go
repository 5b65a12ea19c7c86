package routes

import (
	"context"

	controller "linknexy/controllers"
	"linknexy/middleware"
	"linknexy/utils"
	"linknexy/worker"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"gorm.io/gorm"
)

func SetupRoutes(app *fiber.App, db *gorm.DB, appCtx context.Context, scheduler *worker.Scheduler, orchestrator *worker.Orchestrator) {
	// Initialize controllers with their respective loggers
	campaignController := controller.NewCampaignController(db, utils.ComponentLogger("campaign"))
	pendingActionController := controller.NewPendingActionController(db, utils.ComponentLogger("pending_action"))
	pipelineController := controller.NewPipelineController(appCtx, scheduler, orchestrator, utils.ComponentLogger("pipeline"))

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// API group with versioning and request logging
	api := app.Group("/api/v1", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Campaign routes
	campaign := api.Group("/campaigns")
	campaign.Post("/", campaignController.CreateCampaign)
	campaign.Get("/", campaignController.GetCampaigns)
	campaign.Get("/:id", campaignController.GetCampaign)
	campaign.Put("/:id/status", campaignController.UpdateCampaignStatus)

	// Pending action review queue
	pending := api.Group("/pending-actions")
	pending.Get("/", pendingActionController.GetPendingActions)

	// Pipeline trigger routes. Guarded by the operational API key and rate
	// limited since every trigger fans out real outreach.
	pipeline := api.Group("/pipeline", middleware.RequireAPIKey(), middleware.DispatchRateLimiter())
	pipeline.Post("/dispatch", pipelineController.Dispatch)
	pipeline.Post("/sync", pipelineController.DispatchSync)
	pipeline.Post("/campaigns/:id/run", pipelineController.RunCampaign)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})
}
