package models

import "gorm.io/gorm"

// User represents a tenant on the platform
type User struct {
	gorm.Model
	Email    string `gorm:"not null;uniqueIndex" json:"email"`
	Name     string `json:"name"`
	IsActive bool   `gorm:"default:true" json:"is_active"`

	// Relations
	Settings  *UserSettings     `gorm:"foreignKey:UserID" json:"settings,omitempty"`
	Campaigns []Campaign        `gorm:"foreignKey:UserID" json:"campaigns,omitempty"`
	Accounts  []LinkedInAccount `gorm:"foreignKey:UserID" json:"accounts,omitempty"`
}

// UserSettings holds per-user automation preferences. With autopilot off,
// Connect/FollowUp divert their sends into pending actions for human review
// instead of calling the provider.
type UserSettings struct {
	gorm.Model
	UserID uint `gorm:"not null;uniqueIndex" json:"user_id"`

	AutopilotEnabled bool `gorm:"default:false" json:"autopilot_enabled"`
}
