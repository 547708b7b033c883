package models

import (
	"time"

	"gorm.io/datatypes"
)

type Contact struct {
	TenantModel

	Type        ContactType `gorm:"size:16;not null;index" json:"type"`
	DisplayName string      `gorm:"not null" json:"display_name"`
	FirstName   string      `json:"first_name,omitempty"`
	LastName    string      `json:"last_name,omitempty"`
	CompanyName string      `json:"company_name,omitempty"`
	Email       string      `gorm:"index" json:"email,omitempty"`
	Phone       string      `json:"phone,omitempty"`
	Mobile      string      `json:"mobile,omitempty"`
	Address
	Website string `json:"website,omitempty"`
	Notes   string `json:"notes,omitempty"`

	Tags         datatypes.JSONSlice[string] `json:"tags"`
	CustomFields datatypes.JSONMap           `json:"custom_fields"`
	IsActive     bool                        `gorm:"not null;index" json:"is_active"`

	CreatedBy string  `gorm:"type:uuid;not null" json:"created_by"`
	UpdatedBy *string `gorm:"type:uuid" json:"updated_by,omitempty"`
}

// ContactActivity is one entry of a contact's communication log.
type ContactActivity struct {
	TenantModel

	ContactID  string            `gorm:"type:uuid;not null;index" json:"contact_id"`
	Type       CommunicationType `gorm:"size:16;not null" json:"type"`
	Subject    string            `json:"subject,omitempty"`
	Body       string            `json:"body,omitempty"`
	OccurredAt time.Time         `gorm:"index" json:"occurred_at"`
	CreatedBy  string            `gorm:"type:uuid;not null" json:"created_by"`
}
