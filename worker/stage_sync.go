package worker

import (
	"context"
	"errors"
	"fmt"

	"linknexy/linkedin"
	"linknexy/models"
	"linknexy/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// syncConversationLimit bounds how many threads one sync pass inspects.
const syncConversationLimit = 50

// SyncStage reconciles externally-observed state (accepted invitations, new
// replies) into prospect records before this cycle commits new outbound
// actions. It consumes no quota.
type SyncStage struct {
	DB     *gorm.DB
	Client linkedin.Client
	Logger *logrus.Entry
}

func NewSyncStage(db *gorm.DB, client linkedin.Client, logger *logrus.Entry) *SyncStage {
	return &SyncStage{DB: db, Client: client, Logger: logger}
}

func (s *SyncStage) Name() string { return "sync" }

func (s *SyncStage) Run(ctx context.Context, campaign *models.Campaign, account *models.LinkedInAccount) error {
	conversations, err := s.Client.ListConversations(ctx, account.ProviderAccountID, syncConversationLimit)
	if err != nil {
		return fmt.Errorf("list conversations: %w", err)
	}

	for _, conv := range conversations {
		for _, participantID := range conv.ParticipantIDs {
			if participantID == account.ProviderAccountID {
				continue
			}
			if err := s.reconcileParticipant(campaign, participantID, conv); err != nil {
				s.Logger.WithError(err).WithFields(logrus.Fields{
					"campaign_id":    campaign.ID,
					"participant_id": participantID,
				}).Error("failed to reconcile conversation participant")
			}
		}
	}

	return nil
}

// reconcileParticipant maps one conversation participant back to a prospect.
// Appearing in the account's thread list means the invitation was accepted:
// the platform does not allow chatting with a non-connection.
func (s *SyncStage) reconcileParticipant(campaign *models.Campaign, participantID string, conv linkedin.Conversation) error {
	var prospect models.Prospect
	err := s.DB.Where("user_id = ? AND external_profile_id = ?", campaign.UserID, participantID).
		First(&prospect).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Not one of ours, e.g. an organic conversation
		return nil
	}
	if err != nil {
		return err
	}

	if prospect.ConnectionStatus == models.ConnectionStatusPending {
		if err := s.DB.Model(&prospect).
			Update("connection_status", models.ConnectionStatusConnected).Error; err != nil {
			return err
		}
		if err := logActivity(s.DB, campaign.UserID, &campaign.ID, &prospect.ID,
			models.EventConnectionAccepted,
			fmt.Sprintf("%s %s accepted the connection request", prospect.FirstName, prospect.LastName)); err != nil {
			s.Logger.WithError(err).Warn("failed to record connection acceptance")
		}
	}

	var enrollment models.CampaignProspect
	err = s.DB.Where("campaign_id = ? AND prospect_id = ?", campaign.ID, prospect.ID).
		First(&enrollment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	// Arm the first follow-up once the connection is live.
	if enrollment.Status == models.CampaignProspectConnectionSent &&
		enrollment.FollowUpCount == 0 && enrollment.NextFollowUpAt == nil &&
		len(campaign.FollowUps) > 0 {
		if err := s.DB.Model(&enrollment).
			Update("next_follow_up_at", utils.Pointer(nowUTC())).Error; err != nil {
			return err
		}
	}

	// A message back from a prospect we already messaged is a reply.
	if conv.LastSenderID == participantID &&
		enrollment.Status == models.CampaignProspectMessageSent {
		seen, err := hasActivity(s.DB, campaign.ID, prospect.ID, models.EventReplyDetected)
		if err != nil {
			return err
		}
		if !seen {
			if err := logActivity(s.DB, campaign.UserID, &campaign.ID, &prospect.ID,
				models.EventReplyDetected,
				fmt.Sprintf("%s %s replied", prospect.FirstName, prospect.LastName)); err != nil {
				s.Logger.WithError(err).Warn("failed to record reply")
			}
		}
	}

	return nil
}
