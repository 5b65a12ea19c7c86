package worker

import (
	"time"

	"linknexy/models"
	"linknexy/utils"

	"gorm.io/gorm"
)

// Daily quota counts are derived from persisted, timestamped rows rather
// than an in-memory counter, so a restart mid-cycle cannot reset them. The
// window is the UTC calendar day.

// ConnectionsSentToday counts connection requests already sent for the
// campaign during today's UTC window.
func ConnectionsSentToday(db *gorm.DB, campaignID uint, now time.Time) (int, error) {
	var count int64
	err := db.Model(&models.CampaignProspect{}).
		Where("campaign_id = ? AND connection_sent_at >= ?", campaignID, utils.StartOfDayUTC(now)).
		Count(&count).Error
	return int(count), err
}

// MessagesSentToday counts follow-up messages already sent for the campaign
// during today's UTC window. Follow-up delays are whole days, so a prospect
// receives at most one message per day and row counting equals message
// counting.
func MessagesSentToday(db *gorm.DB, campaignID uint, now time.Time) (int, error) {
	var count int64
	err := db.Model(&models.CampaignProspect{}).
		Where("campaign_id = ? AND last_message_sent_at >= ?", campaignID, utils.StartOfDayUTC(now)).
		Count(&count).Error
	return int(count), err
}
