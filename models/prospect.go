package models

import "gorm.io/gorm"

// Prospect connection statuses
const (
	ConnectionStatusNone      = "none"
	ConnectionStatusPending   = "pending"
	ConnectionStatusConnected = "connected"
)

// Prospect is a discovered LinkedIn profile. It is scoped to a user, not a
// campaign: the same profile discovered by two campaigns of one user maps to
// a single row, keyed by (user_id, external_profile_id). The pipeline never
// deletes prospects.
type Prospect struct {
	gorm.Model
	UserID            uint   `gorm:"not null;uniqueIndex:idx_user_external_profile" json:"user_id"`
	ExternalProfileID string `gorm:"not null;uniqueIndex:idx_user_external_profile" json:"external_profile_id"`

	// Denormalized profile attributes
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Headline   string `json:"headline"`
	Company    string `json:"company"`
	ProfileURL string `json:"profile_url"`
	AvatarURL  string `json:"avatar_url"`

	ConnectionStatus string `gorm:"default:'none'" json:"connection_status"` // none, pending, connected

	// Relations
	Enrollments []CampaignProspect `gorm:"foreignKey:ProspectID" json:"enrollments,omitempty"`
}
