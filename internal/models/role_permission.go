package models

// RolePermission mirrors the in-code role grants so reporting and database
// policies can join against them.
type RolePermission struct {
	BaseModel

	Role     UserRole `gorm:"size:32;not null;uniqueIndex:idx_role_permission" json:"role"`
	Resource string   `gorm:"size:32;not null;uniqueIndex:idx_role_permission" json:"resource"`
	Action   string   `gorm:"size:16;not null;uniqueIndex:idx_role_permission" json:"action"`
}
