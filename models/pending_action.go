package models

import (
	"time"

	"gorm.io/gorm"
)

// Pending action types
const (
	ActionTypeSendConnection = "send_connection"
	ActionTypeSendFollowUp   = "send_follow_up"
)

// Pending action statuses. The pipeline only creates and expires pending
// actions; approval and rejection happen in the review UI.
const (
	PendingActionPending  = "pending"
	PendingActionApproved = "approved"
	PendingActionRejected = "rejected"
	PendingActionExpired  = "expired"
)

// PendingActionTTL is how long a pending action stays reviewable before the
// scheduler sweep expires it.
const PendingActionTTL = 7 * 24 * time.Hour

// PendingAction is a deferred, human-reviewable outbound action created when
// a user has autopilot disabled. It references campaign and prospect for
// lookup only and carries denormalized display metadata for the review list.
type PendingAction struct {
	gorm.Model
	UserID     uint `gorm:"not null;index" json:"user_id"`
	CampaignID uint `gorm:"index" json:"campaign_id"`
	ProspectID uint `gorm:"index" json:"prospect_id"`

	ActionType string `gorm:"not null" json:"action_type"`            // send_connection, send_follow_up
	Status     string `gorm:"default:'pending';index" json:"status"`  // pending, approved, rejected, expired
	Message    string `gorm:"type:text" json:"message"`

	// Display metadata
	CampaignName string `json:"campaign_name"`
	ProspectName string `json:"prospect_name"`

	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
}
