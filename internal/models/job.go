package models

import (
	"time"

	"gorm.io/datatypes"
)

type Job struct {
	TenantModel

	JobNumber   string  `gorm:"size:32;not null;index" json:"job_number"`
	Title       string  `gorm:"not null" json:"title"`
	Description string  `json:"description,omitempty"`
	ContactID   string  `gorm:"type:uuid;not null;index" json:"contact_id"`
	LeadID      *string `gorm:"type:uuid;index" json:"lead_id,omitempty"`

	Division Division  `gorm:"size:24;not null" json:"division"`
	Status   JobStatus `gorm:"size:24;not null;index" json:"status"`

	ContractValue       *float64   `gorm:"type:numeric(12,2)" json:"contract_value,omitempty"`
	StartDate           *time.Time `json:"start_date,omitempty"`
	ScheduledCompletion *time.Time `json:"scheduled_completion,omitempty"`
	ActualCompletion    *time.Time `json:"actual_completion,omitempty"`

	ProjectManagerID *string `gorm:"type:uuid;index" json:"project_manager_id,omitempty"`
	FieldManagerID   *string `gorm:"type:uuid;index" json:"field_manager_id,omitempty"`

	Notes string `json:"notes,omitempty"`
	Address
	Tags         datatypes.JSONSlice[string] `json:"tags"`
	CustomFields datatypes.JSONMap           `json:"custom_fields"`

	CreatedBy string  `gorm:"type:uuid;not null" json:"created_by"`
	UpdatedBy *string `gorm:"type:uuid" json:"updated_by,omitempty"`
}
