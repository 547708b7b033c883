package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/charlesng35/exteriorcrm/internal/models"
	"github.com/charlesng35/exteriorcrm/internal/permissions"
)

type compositeIndex struct {
	model   any
	name    string
	columns string
	unique  bool
}

// Document numbers are unique per organization. The columns live on the
// embedded TenantModel, so the index cannot be declared through struct tags.
var compositeIndexes = []compositeIndex{
	{model: &models.Job{}, name: "idx_jobs_org_number", columns: "organization_id, job_number", unique: true},
	{model: &models.Estimate{}, name: "idx_estimates_org_number", columns: "organization_id, estimate_number", unique: true},
	{model: &models.Contact{}, name: "idx_contacts_org_active", columns: "organization_id, is_active"},
	{model: &models.Lead{}, name: "idx_leads_org_status", columns: "organization_id, status"},
}

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Organization{},
		&models.Account{},
		&models.User{},
		&models.Invitation{},
		&models.OrganizationRegistration{},
		&models.Session{},
		&models.Contact{},
		&models.ContactActivity{},
		&models.Lead{},
		&models.Job{},
		&models.Estimate{},
		&models.OrganizationCounter{},
		&models.RolePermission{},
		&models.AuditLog{},
		&models.CacheEntry{},
	); err != nil {
		return err
	}

	return ensureCompositeIndexes(db)
}

func ensureCompositeIndexes(db *gorm.DB) error {
	migrator := db.Migrator()
	for _, idx := range compositeIndexes {
		if migrator.HasIndex(idx.model, idx.name) {
			continue
		}

		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(idx.model); err != nil {
			return fmt.Errorf("parse %T: %w", idx.model, err)
		}

		kind := "INDEX"
		if idx.unique {
			kind = "UNIQUE INDEX"
		}
		sql := fmt.Sprintf("CREATE %s %s ON %s (%s)", kind, idx.name, stmt.Schema.Table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("create index %s: %w", idx.name, err)
		}
	}
	return nil
}

// SeedData mirrors the role grant table into role_permissions.
func SeedData(db *gorm.DB) error {
	return permissions.Sync(context.Background(), db)
}
