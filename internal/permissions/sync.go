package permissions

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/exteriorcrm/internal/models"
)

// Sync mirrors the role grants into the role_permissions table, removing
// rows that are no longer granted.
func Sync(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("permission: db is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		keep := make(map[string]struct{})

		for _, role := range models.AllRoles {
			for _, id := range ForRole(role) {
				perm, ok := Get(id)
				if !ok {
					return fmt.Errorf("%w %q", ErrUnknownPermission, id)
				}

				record := models.RolePermission{
					Role:     role,
					Resource: perm.Resource,
					Action:   perm.Action,
				}
				if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error; err != nil {
					return fmt.Errorf("permission: sync %s/%s: %w", role, id, err)
				}
				keep[string(role)+":"+id] = struct{}{}
			}
		}

		var existing []models.RolePermission
		if err := tx.Find(&existing).Error; err != nil {
			return fmt.Errorf("permission: load role grants: %w", err)
		}
		for _, row := range existing {
			if _, ok := keep[string(row.Role)+":"+row.Resource+"."+row.Action]; ok {
				continue
			}
			if err := tx.Delete(&models.RolePermission{}, "id = ?", row.ID).Error; err != nil {
				return fmt.Errorf("permission: prune %s/%s.%s: %w", row.Role, row.Resource, row.Action, err)
			}
		}
		return nil
	})
}
