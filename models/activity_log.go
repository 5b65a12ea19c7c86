package models

import "gorm.io/gorm"

// Activity event types emitted by the pipeline
const (
	EventProspectsDiscovered = "prospects_discovered"
	EventConnectionSent      = "connection_sent"
	EventConnectionAccepted  = "connection_accepted"
	EventFollowUpSent        = "follow_up_sent"
	EventReplyDetected       = "reply_detected"
	EventCampaignCompleted   = "campaign_completed"
)

// ActivityLog is the append-only audit trail of pipeline-caused events,
// attributed to a user and optionally linked to a campaign and prospect.
type ActivityLog struct {
	gorm.Model
	UserID     uint  `gorm:"not null;index" json:"user_id"`
	CampaignID *uint `gorm:"index" json:"campaign_id,omitempty"`
	ProspectID *uint `gorm:"index" json:"prospect_id,omitempty"`

	EventType   string `gorm:"not null;index" json:"event_type"`
	Description string `gorm:"type:text" json:"description"`

	// Relations
	Campaign *Campaign `json:"-"`
	Prospect *Prospect `json:"-"`
}
