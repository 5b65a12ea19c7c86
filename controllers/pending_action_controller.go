package controller

import (
	"time"

	"linknexy/models"
	"linknexy/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// PendingActionController lists the reviewable queue. Approval and
// rejection live in the review UI; the pipeline only creates and expires
// these rows.
type PendingActionController struct {
	DB     *gorm.DB
	Logger *logrus.Entry
}

func NewPendingActionController(db *gorm.DB, logger *logrus.Entry) *PendingActionController {
	return &PendingActionController{DB: db, Logger: logger}
}

// GetPendingActions returns a user's actions still awaiting review.
// Expired rows never appear, even if the sweep has not caught them yet.
func (pc *PendingActionController) GetPendingActions(c *fiber.Ctx) error {
	userID := utils.ParseUint(c.Query("user_id"))
	if userID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "user_id query parameter is required",
		})
	}

	var actions []models.PendingAction
	err := pc.DB.Where("user_id = ? AND status = ? AND expires_at > ?",
		userID, models.PendingActionPending, time.Now().UTC()).
		Order("created_at ASC").
		Find(&actions).Error
	if err != nil {
		pc.Logger.WithError(err).Error("failed to list pending actions")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list pending actions",
		})
	}

	return c.JSON(actions)
}
