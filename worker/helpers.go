package worker

import (
	"errors"
	"fmt"
	"time"

	"linknexy/models"

	"gorm.io/gorm"
)

func nowUTC() time.Time {
	return time.Now().UTC()
}

// hasActivity reports whether an event of this type was already logged for
// the (campaign, prospect) pair, so recurring sync passes do not duplicate
// audit entries.
func hasActivity(db *gorm.DB, campaignID, prospectID uint, eventType string) (bool, error) {
	var count int64
	err := db.Model(&models.ActivityLog{}).
		Where("campaign_id = ? AND prospect_id = ? AND event_type = ?", campaignID, prospectID, eventType).
		Count(&count).Error
	return count > 0, err
}

// autopilotEnabled reads the user's autopilot flag. A user without a
// settings row has autopilot off, so nothing is sent without review.
func autopilotEnabled(db *gorm.DB, userID uint) (bool, error) {
	var settings models.UserSettings
	err := db.Where("user_id = ?", userID).First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return settings.AutopilotEnabled, nil
}

// logActivity appends one entry to the audit trail. Failures are returned so
// callers can log them, but the trail is advisory and never blocks a stage.
func logActivity(db *gorm.DB, userID uint, campaignID, prospectID *uint, eventType, description string) error {
	return db.Create(&models.ActivityLog{
		UserID:      userID,
		CampaignID:  campaignID,
		ProspectID:  prospectID,
		EventType:   eventType,
		Description: description,
	}).Error
}

// createPendingAction enqueues a human-reviewable action with a 7-day
// expiry. At most one pending row exists per (campaign, prospect, type) so
// repeated cycles do not pile up duplicate review items.
func createPendingAction(db *gorm.DB, campaign *models.Campaign, prospect *models.Prospect, actionType, message string) error {
	var existing int64
	err := db.Model(&models.PendingAction{}).
		Where("campaign_id = ? AND prospect_id = ? AND action_type = ? AND status = ?",
			campaign.ID, prospect.ID, actionType, models.PendingActionPending).
		Count(&existing).Error
	if err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}

	return db.Create(&models.PendingAction{
		UserID:       campaign.UserID,
		CampaignID:   campaign.ID,
		ProspectID:   prospect.ID,
		ActionType:   actionType,
		Status:       models.PendingActionPending,
		Message:      message,
		CampaignName: campaign.Name,
		ProspectName: fmt.Sprintf("%s %s", prospect.FirstName, prospect.LastName),
		ExpiresAt:    time.Now().UTC().Add(models.PendingActionTTL),
	}).Error
}
