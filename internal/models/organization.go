package models

import (
	"time"

	"gorm.io/datatypes"
)

// Organization is the tenant. Every domain row references one.
type Organization struct {
	BaseModel

	Name   string             `gorm:"not null" json:"name"`
	Slug   string             `gorm:"uniqueIndex;size:50;not null" json:"slug"`
	Status OrganizationStatus `gorm:"size:16;not null;index" json:"status"`

	Phone string `json:"phone,omitempty"`
	Address
	WebsiteURL string `gorm:"column:website_url" json:"website_url,omitempty"`
	LogoURL    string `gorm:"column:logo_url" json:"logo_url,omitempty"`
	TaxID      string `gorm:"column:tax_id" json:"tax_id,omitempty"`

	Settings    datatypes.JSONMap `json:"settings"`
	BillingInfo datatypes.JSONMap `json:"-"`

	SubscriptionStatus string     `gorm:"size:32" json:"subscription_status"`
	SubscriptionTier   string     `gorm:"size:32" json:"subscription_tier"`
	TrialEndsAt        *time.Time `json:"trial_ends_at,omitempty"`
}
