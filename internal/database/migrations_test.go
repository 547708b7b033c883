package database

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/exteriorcrm/internal/models"
)

func TestAutoMigrateCreatesTenantTables(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, AutoMigrate(db))

	migrator := db.Migrator()
	tables := []any{
		&models.Organization{},
		&models.Account{},
		&models.User{},
		&models.Invitation{},
		&models.Contact{},
		&models.ContactActivity{},
		&models.Lead{},
		&models.Job{},
		&models.Estimate{},
		&models.OrganizationCounter{},
		&models.AuditLog{},
		&models.CacheEntry{},
	}
	for _, table := range tables {
		require.True(t, migrator.HasTable(table), "expected table for %T to exist", table)
	}

	require.True(t, migrator.HasIndex(&models.Job{}, "idx_jobs_org_number"))
	require.True(t, migrator.HasIndex(&models.Estimate{}, "idx_estimates_org_number"))
}

func TestAutoMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, AutoMigrate(db))
	require.NoError(t, AutoMigrate(db))
}

func TestJobNumbersAreUniquePerOrganization(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db))

	orgA := models.Organization{Name: "Acme Siding", Slug: "acme-siding"}
	orgB := models.Organization{Name: "Bright Gutters", Slug: "bright-gutters"}
	require.NoError(t, db.Create(&orgA).Error)
	require.NoError(t, db.Create(&orgB).Error)

	newJob := func(orgID string) *models.Job {
		return &models.Job{
			TenantModel: models.TenantModel{OrganizationID: orgID},
			JobNumber:   "J-2025-0001",
			Title:       "Re-side north wall",
			ContactID:   "00000000-0000-0000-0000-000000000001",
			Division:    models.DivisionSingleFamily,
			Status:      models.JobStatusScheduled,
			CreatedBy:   "00000000-0000-0000-0000-000000000002",
		}
	}

	require.NoError(t, db.Create(newJob(orgA.ID)).Error)
	require.NoError(t, db.Create(newJob(orgB.ID)).Error)
	require.Error(t, db.Create(newJob(orgA.ID)).Error)
}
