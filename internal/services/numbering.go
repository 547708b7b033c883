package services

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/exteriorcrm/internal/models"
)

const (
	counterJobs      = "jobs"
	counterEstimates = "estimates"
)

// nextDocumentNumber reserves the next sequence value for the organization and
// formats it as <prefix>-<year>-<0000>. The upsert holds the counter row lock
// until tx commits, so concurrent callers never share a value.
func nextDocumentNumber(tx *gorm.DB, organizationID, counter, prefix string, now time.Time) (string, error) {
	year := now.UTC().Year()

	row := models.OrganizationCounter{
		OrganizationID: organizationID,
		Name:           counter,
		Year:           year,
		Value:          1,
	}
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "organization_id"}, {Name: "name"}, {Name: "year"}},
		DoUpdates: clause.Assignments(map[string]any{
			"value": gorm.Expr("? + 1", clause.Column{Table: "organization_counters", Name: "value"}),
		}),
	}).Create(&row).Error
	if err != nil {
		return "", fmt.Errorf("reserve %s number: %w", counter, err)
	}

	var current models.OrganizationCounter
	if err := tx.
		Where("organization_id = ? AND name = ? AND year = ?", organizationID, counter, year).
		Take(&current).Error; err != nil {
		return "", fmt.Errorf("read %s counter: %w", counter, err)
	}

	return fmt.Sprintf("%s-%d-%04d", prefix, year, current.Value), nil
}

// reserveDocumentNumber draws sequence values until one is not already held by
// a row of model in the tenant's organization. Numbers entered by hand are
// skipped instead of colliding on the unique index.
func reserveDocumentNumber(tx *gorm.DB, tenant Tenant, model any, column, counter, prefix string, now time.Time) (string, error) {
	for {
		number, err := nextDocumentNumber(tx, tenant.OrganizationID, counter, prefix, now)
		if err != nil {
			return "", err
		}
		var used int64
		if err := inOrganization(tx.Model(model), tenant).Where(column+" = ?", number).Count(&used).Error; err != nil {
			return "", fmt.Errorf("check %s number: %w", counter, err)
		}
		if used == 0 {
			return number, nil
		}
	}
}
