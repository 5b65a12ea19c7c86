package models

import "gorm.io/gorm"

// LinkedIn account statuses
const (
	AccountStatusActive       = "active"
	AccountStatusDisconnected = "disconnected"
)

// LinkedInAccount is a user's connected LinkedIn account at the automation
// provider. A user has at most one active row; pipeline stages are no-ops
// when it is absent or inactive.
type LinkedInAccount struct {
	gorm.Model
	UserID uint `gorm:"not null;index" json:"user_id"`

	ProviderAccountID string `gorm:"not null;index" json:"provider_account_id"`
	DisplayName       string `json:"display_name"`
	Status            string `gorm:"default:'active'" json:"status"` // active, disconnected
}

func (LinkedInAccount) TableName() string {
	return "linkedin_accounts"
}
