package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/exteriorcrm/internal/database"
	"github.com/charlesng35/exteriorcrm/internal/models"
	"github.com/charlesng35/exteriorcrm/internal/permissions"
)

// Tenant identifies the caller inside the organization a request acts on.
// UserID is the membership (users.id), not the account.
type Tenant struct {
	OrganizationID string
	UserID         string
	AccountID      string
	Role           models.UserRole
	Email          string
}

func (t Tenant) valid() error {
	if strings.TrimSpace(t.OrganizationID) == "" || strings.TrimSpace(t.UserID) == "" {
		return ErrProfileNotFound
	}
	return nil
}

// Limited reports whether the caller only sees rows assigned to them.
func (t Tenant) Limited() bool {
	return permissions.HasLimitedAccess(t.Role)
}

// Can reports whether the tenant's role holds permissionID.
func (t Tenant) Can(permissionID string) bool {
	return permissions.Has(t.Role, permissionID)
}

// scoped runs fn inside a transaction bound to the tenant's organization.
// Queries inside fn must still filter with inOrganization.
func scoped(ctx context.Context, db *gorm.DB, tenant Tenant, fn func(tx *gorm.DB) error) error {
	if err := tenant.valid(); err != nil {
		return err
	}
	return db.WithContext(ensureContext(ctx)).Transaction(func(tx *gorm.DB) error {
		if err := database.ApplyTenant(tx, tenant.OrganizationID); err != nil {
			return err
		}
		return fn(tx)
	})
}

// inOrganization starts a query restricted to the tenant's organization.
func inOrganization(tx *gorm.DB, tenant Tenant) *gorm.DB {
	return tx.Where("organization_id = ?", tenant.OrganizationID)
}

// requireInOrganization verifies that id names a row of model owned by the
// tenant's organization.
func requireInOrganization(tx *gorm.DB, tenant Tenant, model any, id *string) error {
	if id == nil {
		return nil
	}
	var count int64
	if err := inOrganization(tx.Model(model), tenant).Where("id = ?", *id).Count(&count).Error; err != nil {
		return fmt.Errorf("check reference: %w", err)
	}
	if count == 0 {
		return ErrInvalidReference
	}
	return nil
}

// findInOrganization loads a tenant row by id, mapping a miss to notFound.
func findInOrganization(tx *gorm.DB, tenant Tenant, dest any, id string, notFound error) error {
	err := inOrganization(tx, tenant).Where("id = ?", strings.TrimSpace(id)).Take(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return err
}
