package models

import (
	"time"

	"gorm.io/datatypes"
)

// OrganizationRegistration records a self-service organization sign-up.
type OrganizationRegistration struct {
	BaseModel

	AccountID        string            `gorm:"type:uuid;not null;index" json:"account_id"`
	OrganizationID   *string           `gorm:"type:uuid;index" json:"organization_id,omitempty"`
	Email            string            `gorm:"not null" json:"email"`
	FirstName        string            `json:"first_name"`
	LastName         string            `json:"last_name"`
	OrganizationData datatypes.JSONMap `json:"organization_data"`
	Status           string            `gorm:"size:16;not null" json:"status"`
	ProcessedAt      *time.Time        `json:"processed_at,omitempty"`
}
