package models

// OrganizationCounter hands out sequential document numbers per organization.
type OrganizationCounter struct {
	OrganizationID string `gorm:"primaryKey;type:uuid"`
	Name           string `gorm:"primaryKey;size:32"`
	Year           int    `gorm:"primaryKey"`
	Value          int64  `gorm:"not null"`
}
