package models

import (
	"time"

	"gorm.io/datatypes"
)

type Lead struct {
	TenantModel

	Title       string  `gorm:"not null" json:"title"`
	Description string  `json:"description,omitempty"`
	ContactID   *string `gorm:"type:uuid;index" json:"contact_id,omitempty"`
	AssignedTo  *string `gorm:"type:uuid;index" json:"assigned_to,omitempty"`

	Division Division   `gorm:"size:24;index" json:"division,omitempty"`
	Source   LeadSource `gorm:"size:24;not null" json:"source"`
	Status   LeadStatus `gorm:"size:24;not null;index" json:"status"`

	EstimatedValue    *float64   `gorm:"type:numeric(12,2)" json:"estimated_value,omitempty"`
	Probability       *int       `json:"probability,omitempty"`
	Priority          *int       `json:"priority,omitempty"`
	ExpectedCloseDate *time.Time `json:"expected_close_date,omitempty"`

	Address
	Tags         datatypes.JSONSlice[string] `json:"tags"`
	CustomFields datatypes.JSONMap           `json:"custom_fields"`

	CreatedBy string  `gorm:"type:uuid;not null" json:"created_by"`
	UpdatedBy *string `gorm:"type:uuid" json:"updated_by,omitempty"`
}
