package models

import "time"

// Session tracks a signed-in device. The refresh token is stored hashed and
// rotated on every refresh.
type Session struct {
	BaseModel

	AccountID        string  `gorm:"type:uuid;not null;index" json:"account_id"`
	OrganizationID   *string `gorm:"type:uuid;index" json:"organization_id,omitempty"`
	RefreshTokenHash string  `gorm:"uniqueIndex;size:64;not null" json:"-"`

	IPAddress  string `json:"ip_address"`
	UserAgent  string `json:"user_agent"`
	DeviceInfo string `json:"device_info"`

	StartedAt      time.Time  `json:"started_at"`
	LastActivityAt time.Time  `json:"last_activity_at"`
	ExpiresAt      time.Time  `gorm:"index" json:"expires_at"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
	IsActive       bool       `gorm:"index" json:"is_active"`
}

func (Session) TableName() string { return "user_sessions" }
