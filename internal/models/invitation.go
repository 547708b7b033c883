package models

import "time"

// Invitation grants an email address a role in an organization once accepted.
// Only the sha256 digest of the token is stored.
type Invitation struct {
	BaseModel

	OrganizationID string        `gorm:"type:uuid;not null;index" json:"organization_id"`
	Organization   *Organization `gorm:"constraint:OnDelete:CASCADE" json:"organization,omitempty"`

	Email     string           `gorm:"not null;index" json:"email"`
	Role      UserRole         `gorm:"size:32;not null" json:"role"`
	InvitedBy string           `gorm:"type:uuid;not null" json:"invited_by"`
	Inviter   *User            `gorm:"foreignKey:InvitedBy;constraint:OnDelete:CASCADE" json:"inviter,omitempty"`
	TokenHash string           `gorm:"uniqueIndex;size:64;not null" json:"-"`
	Status    InvitationStatus `gorm:"size:16;not null;index" json:"status"`

	ExpiresAt  time.Time  `gorm:"index" json:"expires_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
	AcceptedBy *string    `gorm:"type:uuid" json:"accepted_by,omitempty"`
}

func (Invitation) TableName() string { return "user_invitations" }

// Expired reports whether the invitation is past its expiry at now.
func (i *Invitation) Expired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}
