package models

import (
	"time"

	"gorm.io/gorm"
)

// Campaign statuses. A campaign only ever reaches "completed" through the
// pipeline's auto-completion check, never through the API.
const (
	CampaignStatusDraft     = "draft"
	CampaignStatusActive    = "active"
	CampaignStatusPaused    = "paused"
	CampaignStatusCompleted = "completed"
)

// Campaign represents a LinkedIn outreach campaign
type Campaign struct {
	gorm.Model
	UserID uint `gorm:"not null;index" json:"user_id"`

	// Campaign details
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`

	// Targeting criteria used to build the prospect search
	JobTitles  []string `gorm:"type:jsonb;serializer:json" json:"job_titles"`
	Locations  []string `gorm:"type:jsonb;serializer:json" json:"locations"`
	Industries []string `gorm:"type:jsonb;serializer:json" json:"industries"`
	Keywords   []string `gorm:"type:jsonb;serializer:json" json:"keywords"`

	// Message templates
	ConnectionMessage string         `gorm:"type:text" json:"connection_message"`
	FollowUps         []FollowUpStep `gorm:"type:jsonb;serializer:json" json:"follow_ups"` // up to 3 steps

	// Daily quotas
	DailyConnectionLimit int `gorm:"default:20" json:"daily_connection_limit"`
	DailyMessageLimit    int `gorm:"default:30" json:"daily_message_limit"`

	// Statistics (denormalized for performance)
	ConnectionsSent int `gorm:"default:0" json:"connections_sent"`
	MessagesSent    int `gorm:"default:0" json:"messages_sent"`

	// Scheduling
	Status      string     `gorm:"default:'draft';index" json:"status"` // draft, active, paused, completed
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`

	// Relations
	Prospects []CampaignProspect `gorm:"foreignKey:CampaignID;constraint:OnDelete:CASCADE" json:"prospects,omitempty"`
}

// FollowUpStep is one scripted follow-up message in a campaign's sequence.
// DelayDays is the wait before this step becomes due, counted from the
// previous send.
type FollowUpStep struct {
	Message   string `json:"message"`
	DelayDays int    `json:"delay_days"`
}

// MaxFollowUpSteps caps the scripted sequence length per campaign.
const MaxFollowUpSteps = 3

// CampaignProspect statuses
const (
	CampaignProspectQueued         = "queued"
	CampaignProspectConnectionSent = "connection_sent"
	CampaignProspectMessageSent    = "message_sent"
	CampaignProspectFailed         = "failed"
)

// CampaignProspect records a prospect's journey within one specific
// campaign. Unique per (campaign, prospect); FollowUpCount only increases.
type CampaignProspect struct {
	gorm.Model
	CampaignID uint `gorm:"not null;uniqueIndex:idx_campaign_prospect" json:"campaign_id"`
	ProspectID uint `gorm:"not null;uniqueIndex:idx_campaign_prospect" json:"prospect_id"`

	Status        string `gorm:"default:'queued';index" json:"status"` // queued, connection_sent, message_sent, failed
	FollowUpCount int    `gorm:"default:0" json:"follow_up_count"`     // 0-3

	ConnectionSentAt  *time.Time `json:"connection_sent_at"`
	LastMessageSentAt *time.Time `json:"last_message_sent_at"`
	NextFollowUpAt    *time.Time `gorm:"index" json:"next_follow_up_at"` // nil once the sequence is exhausted

	// Relations
	Campaign Campaign `json:"-"`
	Prospect Prospect `json:"-"`
}
