package models

import "time"

// Account is the sign-in identity. An account holds one membership (User)
// per organization it belongs to.
type Account struct {
	BaseModel

	Email        string  `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string  `json:"-"`
	OIDCSubject  *string `gorm:"column:oidc_subject;uniqueIndex" json:"-"`
	FirstName    string  `json:"first_name"`
	LastName     string  `json:"last_name"`

	CurrentOrganizationID *string    `gorm:"type:uuid;index" json:"current_organization_id"`
	LastSignInAt          *time.Time `json:"last_sign_in_at,omitempty"`
}
