package worker

import (
	"context"
	"fmt"

	"linknexy/linkedin"
	"linknexy/models"
	"linknexy/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ConnectStage advances queued prospects to connection_sent, bounded by the
// campaign's daily connection quota. Prospects left queued when the quota
// runs out simply carry over to the next cycle.
type ConnectStage struct {
	DB     *gorm.DB
	Client linkedin.Client
	Logger *logrus.Entry
}

func NewConnectStage(db *gorm.DB, client linkedin.Client, logger *logrus.Entry) *ConnectStage {
	return &ConnectStage{DB: db, Client: client, Logger: logger}
}

func (s *ConnectStage) Name() string { return "connect" }

func (s *ConnectStage) Run(ctx context.Context, campaign *models.Campaign, account *models.LinkedInAccount) error {
	sentToday, err := ConnectionsSentToday(s.DB, campaign.ID, nowUTC())
	if err != nil {
		return fmt.Errorf("connection quota check: %w", err)
	}
	if sentToday >= campaign.DailyConnectionLimit {
		s.Logger.WithFields(logrus.Fields{
			"campaign_id": campaign.ID,
			"sent_today":  sentToday,
		}).Info("daily connection limit reached")
		return nil
	}

	remaining := campaign.DailyConnectionLimit - sentToday
	var queue []models.CampaignProspect
	if err := s.DB.Where("campaign_id = ? AND status = ?", campaign.ID, models.CampaignProspectQueued).
		Order("created_at ASC").
		Limit(remaining).
		Preload("Prospect").
		Find(&queue).Error; err != nil {
		return fmt.Errorf("load queued prospects: %w", err)
	}
	if len(queue) == 0 {
		return nil
	}

	autopilot, err := autopilotEnabled(s.DB, campaign.UserID)
	if err != nil {
		return fmt.Errorf("load user settings: %w", err)
	}

	for i := range queue {
		enrollment := &queue[i]
		prospect := enrollment.Prospect

		// No stable handle to contact this candidate: terminal, no retry.
		if prospect.ExternalProfileID == "" {
			if err := s.markFailed(enrollment); err != nil {
				return err
			}
			continue
		}

		message := utils.PersonalizeMessage(campaign.ConnectionMessage,
			prospect.FirstName, prospect.LastName, prospect.Company)

		if !autopilot {
			if err := createPendingAction(s.DB, campaign, &prospect,
				models.ActionTypeSendConnection, message); err != nil {
				return fmt.Errorf("create pending action: %w", err)
			}
			continue
		}

		if err := s.Client.SendConnectionRequest(ctx, account.ProviderAccountID,
			prospect.ExternalProfileID, message); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.Logger.WithError(err).WithFields(logrus.Fields{
				"campaign_id": campaign.ID,
				"prospect_id": prospect.ID,
			}).Error("connection request failed")
			// Terminal for this enrollment; a fresh attempt needs re-discovery
			if err := s.markFailed(enrollment); err != nil {
				return err
			}
			continue
		}

		now := nowUTC()
		if err := s.DB.Model(enrollment).Updates(map[string]interface{}{
			"status":             models.CampaignProspectConnectionSent,
			"connection_sent_at": now,
		}).Error; err != nil {
			return err
		}
		if err := s.DB.Model(&models.Prospect{}).Where("id = ?", prospect.ID).
			Update("connection_status", models.ConnectionStatusPending).Error; err != nil {
			return err
		}
		if err := s.DB.Model(&models.Campaign{}).Where("id = ?", campaign.ID).
			Update("connections_sent", gorm.Expr("connections_sent + ?", 1)).Error; err != nil {
			return err
		}
		if err := logActivity(s.DB, campaign.UserID, &campaign.ID, &prospect.ID,
			models.EventConnectionSent,
			fmt.Sprintf("connection request sent to %s %s", prospect.FirstName, prospect.LastName)); err != nil {
			s.Logger.WithError(err).Warn("failed to record connection activity")
		}
	}

	return nil
}

func (s *ConnectStage) markFailed(enrollment *models.CampaignProspect) error {
	return s.DB.Model(enrollment).Update("status", models.CampaignProspectFailed).Error
}
