package controller

import (
	"context"

	"linknexy/utils"
	"linknexy/worker"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// PipelineController exposes the on-demand entry points of the scheduler:
// the same dispatches the daily cron entries fire, triggered by an operator.
type PipelineController struct {
	Scheduler    *worker.Scheduler
	Orchestrator *worker.Orchestrator
	Logger       *logrus.Entry

	// appCtx outlives the HTTP request so dispatched runs are not cancelled
	// when the trigger response returns.
	appCtx context.Context
}

func NewPipelineController(appCtx context.Context, scheduler *worker.Scheduler, orchestrator *worker.Orchestrator, logger *logrus.Entry) *PipelineController {
	return &PipelineController{
		Scheduler:    scheduler,
		Orchestrator: orchestrator,
		Logger:       logger,
		appCtx:       appCtx,
	}
}

// Dispatch fans out pipeline runs for all active campaigns, exactly like
// the daily trigger.
func (pc *PipelineController) Dispatch(c *fiber.Ctx) error {
	go pc.Scheduler.DispatchCampaigns(pc.appCtx)
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message": "Campaign dispatch started",
	})
}

// DispatchSync fans out sync-only runs for all users with active outreach.
func (pc *PipelineController) DispatchSync(c *fiber.Ctx) error {
	go pc.Scheduler.DispatchSyncs(pc.appCtx)
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message": "Sync dispatch started",
	})
}

// RunCampaign triggers one pipeline run for a single campaign, without the
// dispatch stagger. The orchestrator's lock still applies.
func (pc *PipelineController) RunCampaign(c *fiber.Ctx) error {
	campaignID := utils.ParseUint(c.Params("id"))
	if campaignID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid campaign id",
		})
	}

	go func() {
		if err := pc.Orchestrator.Run(pc.appCtx, campaignID); err != nil {
			pc.Logger.WithError(err).WithField("campaign_id", campaignID).Error("ad hoc run failed")
		}
	}()

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message": "Campaign run started",
	})
}
