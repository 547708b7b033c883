package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// NotificationPreferences controls which channels a member is notified on.
type NotificationPreferences struct {
	Email   bool `json:"email"`
	Browser bool `json:"browser"`
	Mobile  bool `json:"mobile"`
}

// DefaultNotificationPreferences is applied to new members.
func DefaultNotificationPreferences() NotificationPreferences {
	return NotificationPreferences{Email: true, Browser: true, Mobile: false}
}

// User is an account's membership and profile inside one organization.
type User struct {
	BaseModel

	AccountID      string        `gorm:"type:uuid;not null;uniqueIndex:idx_users_account_org" json:"account_id"`
	OrganizationID string        `gorm:"type:uuid;not null;uniqueIndex:idx_users_account_org;index" json:"organization_id"`
	Organization   *Organization `gorm:"constraint:OnDelete:CASCADE" json:"organization,omitempty"`

	Email       string `gorm:"not null;index" json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	DisplayName string `json:"display_name"`

	Role    UserRole   `gorm:"size:32;not null;index" json:"role"`
	Status  UserStatus `gorm:"size:16;not null;index" json:"status"`
	IsAdmin bool       `json:"is_admin"`

	Phone      string     `json:"phone,omitempty"`
	Mobile     string     `json:"mobile,omitempty"`
	Title      string     `json:"title,omitempty"`
	Department string     `json:"department,omitempty"`
	Timezone   string     `json:"timezone,omitempty"`
	HireDate   *time.Time `json:"hire_date,omitempty"`

	Permissions             datatypes.JSONSlice[string]                 `json:"permissions"`
	NotificationPreferences datatypes.JSONType[NotificationPreferences] `json:"notification_preferences"`

	InvitedBy   *string    `gorm:"type:uuid" json:"invited_by,omitempty"`
	InvitedAt   *time.Time `json:"invited_at,omitempty"`
	ActivatedAt *time.Time `json:"activated_at,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	LoginCount  int        `json:"login_count"`
}

// RefreshDisplayName recomputes display_name from first and last name.
func (u *User) RefreshDisplayName() {
	u.DisplayName = strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if u.DisplayName == "" {
		u.DisplayName = u.Email
	}
}
