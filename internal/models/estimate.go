package models

import "time"

type Estimate struct {
	TenantModel

	EstimateNumber string  `gorm:"size:32;not null;index" json:"estimate_number"`
	Title          string  `gorm:"not null" json:"title"`
	Description    string  `json:"description,omitempty"`
	ContactID      string  `gorm:"type:uuid;not null;index" json:"contact_id"`
	LeadID         *string `gorm:"type:uuid;index" json:"lead_id,omitempty"`

	Division Division       `gorm:"size:24;not null" json:"division"`
	Status   EstimateStatus `gorm:"size:16;not null;index" json:"status"`

	Subtotal    float64 `gorm:"type:numeric(12,2);not null" json:"subtotal"`
	TaxRate     float64 `gorm:"type:numeric(6,3)" json:"tax_rate"`
	TaxAmount   float64 `gorm:"type:numeric(12,2)" json:"tax_amount"`
	TotalAmount float64 `gorm:"type:numeric(12,2);not null" json:"total_amount"`

	ValidUntil *time.Time `gorm:"index" json:"valid_until,omitempty"`
	SentAt     *time.Time `json:"sent_at,omitempty"`
	ViewedAt   *time.Time `json:"viewed_at,omitempty"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
	RejectedAt *time.Time `json:"rejected_at,omitempty"`

	PreparedBy string  `gorm:"type:uuid;not null;index" json:"prepared_by"`
	ApprovedBy *string `gorm:"type:uuid" json:"approved_by,omitempty"`
	Terms      string  `json:"terms,omitempty"`
	Notes      string  `json:"notes,omitempty"`

	CreatedBy string  `gorm:"type:uuid;not null" json:"created_by"`
	UpdatedBy *string `gorm:"type:uuid" json:"updated_by,omitempty"`
}
