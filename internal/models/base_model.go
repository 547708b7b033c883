package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel provides shared fields for all persistent models.
type BaseModel struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate ensures UUID identifiers are generated automatically.
func (m *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// TenantModel is embedded by every row owned by an organization. The
// organization id is always stamped by the service layer from the caller's
// tenant, never from request input.
type TenantModel struct {
	BaseModel
	OrganizationID string `gorm:"type:uuid;not null;index" json:"organization_id"`
}

// Address is the postal address block shared by organizations, contacts,
// leads and jobs.
type Address struct {
	AddressLine1 string `gorm:"column:address_line_1" json:"address_line_1,omitempty"`
	AddressLine2 string `gorm:"column:address_line_2" json:"address_line_2,omitempty"`
	City         string `gorm:"column:city" json:"city,omitempty"`
	State        string `gorm:"column:state" json:"state,omitempty"`
	ZipCode      string `gorm:"column:zip_code" json:"zip_code,omitempty"`
}
