package worker

import (
	"context"
	"fmt"
	"time"

	"linknexy/linkedin"
	"linknexy/models"
	"linknexy/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// FollowUpStage advances connected prospects through the campaign's
// scripted follow-up sequence, bounded by the daily message quota and each
// prospect's per-step delay. It also owns the campaign auto-completion
// check.
type FollowUpStage struct {
	DB     *gorm.DB
	Client linkedin.Client
	Logger *logrus.Entry
}

func NewFollowUpStage(db *gorm.DB, client linkedin.Client, logger *logrus.Entry) *FollowUpStage {
	return &FollowUpStage{DB: db, Client: client, Logger: logger}
}

func (s *FollowUpStage) Name() string { return "followup" }

func (s *FollowUpStage) Run(ctx context.Context, campaign *models.Campaign, account *models.LinkedInAccount) error {
	if err := s.processDue(ctx, campaign, account); err != nil {
		return err
	}
	return s.checkCompletion(campaign)
}

func (s *FollowUpStage) processDue(ctx context.Context, campaign *models.Campaign, account *models.LinkedInAccount) error {
	sentToday, err := MessagesSentToday(s.DB, campaign.ID, nowUTC())
	if err != nil {
		return fmt.Errorf("message quota check: %w", err)
	}
	if sentToday >= campaign.DailyMessageLimit {
		s.Logger.WithFields(logrus.Fields{
			"campaign_id": campaign.ID,
			"sent_today":  sentToday,
		}).Info("daily message limit reached")
		return nil
	}

	remaining := campaign.DailyMessageLimit - sentToday
	var due []models.CampaignProspect
	if err := s.DB.Where("campaign_id = ? AND next_follow_up_at IS NOT NULL AND next_follow_up_at <= ?",
		campaign.ID, nowUTC()).
		Order("next_follow_up_at ASC").
		Limit(remaining).
		Preload("Prospect").
		Find(&due).Error; err != nil {
		return fmt.Errorf("load due follow-ups: %w", err)
	}
	if len(due) == 0 {
		return nil
	}

	autopilot, err := autopilotEnabled(s.DB, campaign.UserID)
	if err != nil {
		return fmt.Errorf("load user settings: %w", err)
	}

	// One thread listing serves the whole batch.
	var conversations []linkedin.Conversation
	if autopilot {
		conversations, err = s.Client.ListConversations(ctx, account.ProviderAccountID, syncConversationLimit)
		if err != nil {
			return fmt.Errorf("list conversations: %w", err)
		}
	}

	for i := range due {
		enrollment := &due[i]
		if err := s.sendNext(ctx, campaign, account, enrollment, conversations, autopilot); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.Logger.WithError(err).WithFields(logrus.Fields{
				"campaign_id": campaign.ID,
				"prospect_id": enrollment.ProspectID,
			}).Error("follow-up failed")
		}
	}

	return nil
}

// sendNext delivers the follow-up step the enrollment is due for and
// advances its state machine. Delivery problems leave the row untouched so
// the next cycle retries; an exhausted or unscripted sequence clears
// NextFollowUpAt terminally.
func (s *FollowUpStage) sendNext(ctx context.Context, campaign *models.Campaign, account *models.LinkedInAccount,
	enrollment *models.CampaignProspect, conversations []linkedin.Conversation, autopilot bool) error {

	step := enrollment.FollowUpCount
	if step >= models.MaxFollowUpSteps || step >= len(campaign.FollowUps) ||
		campaign.FollowUps[step].Message == "" {
		// Nothing left to send for this prospect
		return s.clearSchedule(enrollment)
	}

	prospect := enrollment.Prospect
	if prospect.ExternalProfileID == "" {
		s.Logger.WithField("prospect_id", prospect.ID).Warn("prospect has no external id, skipping follow-up")
		return nil
	}

	message := utils.PersonalizeMessage(campaign.FollowUps[step].Message,
		prospect.FirstName, prospect.LastName, prospect.Company)

	if !autopilot {
		return createPendingAction(s.DB, campaign, &prospect, models.ActionTypeSendFollowUp, message)
	}

	conversationID := findConversation(conversations, prospect.ExternalProfileID)
	if conversationID != "" {
		if err := s.Client.SendMessage(ctx, conversationID, message); err != nil {
			return err
		}
	} else {
		// No existing thread: open one by messaging the profile directly
		if _, err := s.Client.StartConversation(ctx, account.ProviderAccountID,
			prospect.ExternalProfileID, message); err != nil {
			return err
		}
	}

	return s.advance(campaign, enrollment, &prospect, step)
}

func (s *FollowUpStage) advance(campaign *models.Campaign, enrollment *models.CampaignProspect,
	prospect *models.Prospect, step int) error {

	now := nowUTC()
	newCount := step + 1
	updates := map[string]interface{}{
		"status":               models.CampaignProspectMessageSent,
		"follow_up_count":      newCount,
		"last_message_sent_at": now,
	}

	// The delay on the next step schedules it; no next step or a zero delay
	// ends the sequence here.
	if newCount < len(campaign.FollowUps) && campaign.FollowUps[newCount].DelayDays > 0 {
		updates["next_follow_up_at"] = now.Add(time.Duration(campaign.FollowUps[newCount].DelayDays) * 24 * time.Hour)
	} else {
		updates["next_follow_up_at"] = nil
	}

	if err := s.DB.Model(enrollment).Updates(updates).Error; err != nil {
		return err
	}
	if err := s.DB.Model(&models.Campaign{}).Where("id = ?", campaign.ID).
		Update("messages_sent", gorm.Expr("messages_sent + ?", 1)).Error; err != nil {
		return err
	}
	if err := logActivity(s.DB, campaign.UserID, &campaign.ID, &prospect.ID,
		models.EventFollowUpSent,
		fmt.Sprintf("follow-up #%d sent to %s %s", newCount, prospect.FirstName, prospect.LastName)); err != nil {
		s.Logger.WithError(err).Warn("failed to record follow-up activity")
	}
	return nil
}

func (s *FollowUpStage) clearSchedule(enrollment *models.CampaignProspect) error {
	return s.DB.Model(enrollment).Update("next_follow_up_at", nil).Error
}

// checkCompletion transitions the campaign to completed once no prospect is
// queued, mid-connection, or awaiting a follow-up. A campaign that has not
// enrolled anyone yet is not complete.
func (s *FollowUpStage) checkCompletion(campaign *models.Campaign) error {
	var total int64
	if err := s.DB.Model(&models.CampaignProspect{}).
		Where("campaign_id = ?", campaign.ID).
		Count(&total).Error; err != nil {
		return err
	}
	if total == 0 {
		return nil
	}

	var open int64
	if err := s.DB.Model(&models.CampaignProspect{}).
		Where("campaign_id = ? AND (status IN ? OR next_follow_up_at IS NOT NULL)",
			campaign.ID,
			[]string{models.CampaignProspectQueued, models.CampaignProspectConnectionSent}).
		Count(&open).Error; err != nil {
		return err
	}
	if open > 0 {
		return nil
	}

	if err := s.DB.Model(&models.Campaign{}).
		Where("id = ? AND status = ?", campaign.ID, models.CampaignStatusActive).
		Updates(map[string]interface{}{
			"status":       models.CampaignStatusCompleted,
			"completed_at": nowUTC(),
		}).Error; err != nil {
		return err
	}

	s.Logger.WithField("campaign_id", campaign.ID).Info("campaign completed")
	return logActivity(s.DB, campaign.UserID, &campaign.ID, nil,
		models.EventCampaignCompleted,
		fmt.Sprintf("campaign %q finished its outreach sequence", campaign.Name))
}

func findConversation(conversations []linkedin.Conversation, profileID string) string {
	for _, conv := range conversations {
		for _, participant := range conv.ParticipantIDs {
			if participant == profileID {
				return conv.ID
			}
		}
	}
	return ""
}
