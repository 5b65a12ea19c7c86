package controller

import (
	"errors"
	"time"

	"linknexy/models"
	"linknexy/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type CampaignController struct {
	DB     *gorm.DB
	Logger *logrus.Entry
}

func NewCampaignController(db *gorm.DB, logger *logrus.Entry) *CampaignController {
	return &CampaignController{DB: db, Logger: logger}
}

type createCampaignInput struct {
	UserID      uint   `json:"user_id" validate:"required"`
	Name        string `json:"name" validate:"required,min=1,max=120"`
	Description string `json:"description"`

	JobTitles  []string `json:"job_titles"`
	Locations  []string `json:"locations"`
	Industries []string `json:"industries"`
	Keywords   []string `json:"keywords"`

	ConnectionMessage string                `json:"connection_message"`
	FollowUps         []models.FollowUpStep `json:"follow_ups" validate:"max=3,dive"`

	DailyConnectionLimit int `json:"daily_connection_limit" validate:"gte=0"`
	DailyMessageLimit    int `json:"daily_message_limit" validate:"gte=0"`
}

func (cc *CampaignController) CreateCampaign(c *fiber.Ctx) error {
	var input createCampaignInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
	}

	if err := utils.ValidateStruct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	campaign := models.Campaign{
		UserID:               input.UserID,
		Name:                 input.Name,
		Description:          input.Description,
		JobTitles:            input.JobTitles,
		Locations:            input.Locations,
		Industries:           input.Industries,
		Keywords:             input.Keywords,
		ConnectionMessage:    input.ConnectionMessage,
		FollowUps:            input.FollowUps,
		DailyConnectionLimit: input.DailyConnectionLimit,
		DailyMessageLimit:    input.DailyMessageLimit,
		Status:               models.CampaignStatusDraft,
	}
	if campaign.DailyConnectionLimit == 0 {
		campaign.DailyConnectionLimit = 20
	}
	if campaign.DailyMessageLimit == 0 {
		campaign.DailyMessageLimit = 30
	}

	if err := cc.DB.Create(&campaign).Error; err != nil {
		cc.Logger.WithError(err).Error("failed to create campaign")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create campaign",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(campaign)
}

func (cc *CampaignController) GetCampaigns(c *fiber.Ctx) error {
	userID := utils.ParseUint(c.Query("user_id"))
	if userID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "user_id query parameter is required",
		})
	}

	var campaigns []models.Campaign
	if err := cc.DB.Where("user_id = ?", userID).Order("created_at DESC").Find(&campaigns).Error; err != nil {
		cc.Logger.WithError(err).Error("failed to list campaigns")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list campaigns",
		})
	}

	return c.JSON(campaigns)
}

func (cc *CampaignController) GetCampaign(c *fiber.Ctx) error {
	var campaign models.Campaign
	if err := cc.DB.First(&campaign, c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Campaign not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load campaign",
		})
	}

	return c.JSON(campaign)
}

type updateStatusInput struct {
	Status string `json:"status" validate:"required,oneof=active paused"`
}

// UpdateCampaignStatus activates or pauses a campaign. "completed" is not
// accepted here: campaigns complete only through the pipeline's
// auto-completion check.
func (cc *CampaignController) UpdateCampaignStatus(c *fiber.Ctx) error {
	var input updateStatusInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := utils.ValidateStruct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	var campaign models.Campaign
	if err := cc.DB.First(&campaign, c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Campaign not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load campaign",
		})
	}

	if campaign.Status == models.CampaignStatusCompleted {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Completed campaigns cannot be restarted",
		})
	}

	updates := map[string]interface{}{"status": input.Status}
	if input.Status == models.CampaignStatusActive && campaign.StartedAt == nil {
		updates["started_at"] = utils.Pointer(time.Now().UTC())
	}

	if err := cc.DB.Model(&campaign).Updates(updates).Error; err != nil {
		cc.Logger.WithError(err).Error("failed to update campaign status")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update campaign status",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Campaign status updated",
		"status":  input.Status,
	})
}
