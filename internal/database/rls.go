package database

import (
	"errors"
	"fmt"
	"regexp"

	"gorm.io/gorm"
)

// TenancyPluginName identifies the tenancy plugin in gorm's plugin registry.
const TenancyPluginName = "crm:tenancy"

// DefaultTenantRole is the non-owner role tenant transactions switch to on postgres.
const DefaultTenantRole = "crm_tenant"

// TenantTables carry an organization_id column and are isolated by row level security.
var TenantTables = []string{
	"contacts",
	"contact_activities",
	"leads",
	"jobs",
	"estimates",
	"users",
	"user_invitations",
	"organization_counters",
	"audit_logs",
}

var roleNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Tenancy records which database role tenant-scoped transactions assume.
// It is registered with db.Use so every session derived from the handle can find it.
type Tenancy struct {
	Role string
}

// Name implements gorm.Plugin.
func (t *Tenancy) Name() string { return TenancyPluginName }

// Initialize implements gorm.Plugin.
func (t *Tenancy) Initialize(*gorm.DB) error {
	if !roleNamePattern.MatchString(t.Role) {
		return fmt.Errorf("tenancy: invalid role name %q", t.Role)
	}
	return nil
}

func tenantRole(db *gorm.DB) string {
	if db == nil || db.Config == nil {
		return ""
	}
	plugin, ok := db.Config.Plugins[TenancyPluginName]
	if !ok {
		return ""
	}
	if tenancy, ok := plugin.(*Tenancy); ok {
		return tenancy.Role
	}
	return ""
}

func isPostgres(db *gorm.DB) bool {
	return db != nil && db.Dialector != nil && db.Dialector.Name() == "postgres"
}

// ApplyTenant binds the transaction to an organization. On postgres with the
// tenancy plugin registered it switches to the tenant role and publishes the
// organization id for the isolation policies; elsewhere it is a no-op and the
// query scopes alone enforce isolation. tx must be a transaction.
func ApplyTenant(tx *gorm.DB, organizationID string) error {
	if !isPostgres(tx) {
		return nil
	}
	role := tenantRole(tx)
	if role == "" {
		return nil
	}
	if organizationID == "" {
		return errors.New("tenancy: organization id is required")
	}

	if err := tx.Exec(fmt.Sprintf("SET LOCAL ROLE %s", role)).Error; err != nil {
		return fmt.Errorf("tenancy: set role: %w", err)
	}
	if err := tx.Exec("SELECT set_config('app.current_organization_id', ?, true)", organizationID).Error; err != nil {
		return fmt.Errorf("tenancy: set organization: %w", err)
	}
	return nil
}

// EnableRowLevelSecurity provisions the tenant role, grants it table access
// and installs an isolation policy on every tenant table. Policies are not
// forced, so the owning connection keeps unrestricted access for system
// tasks such as maintenance and sign-in. Non-postgres databases are skipped.
func EnableRowLevelSecurity(db *gorm.DB, role string) error {
	if !isPostgres(db) {
		return nil
	}
	if !roleNamePattern.MatchString(role) {
		return fmt.Errorf("tenancy: invalid role name %q", role)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		statements := []string{
			fmt.Sprintf(`DO $$ BEGIN
	IF NOT EXISTS (SELECT 1 FROM pg_roles WHERE rolname = '%[1]s') THEN
		CREATE ROLE %[1]s NOLOGIN;
	END IF;
END $$`, role),
			fmt.Sprintf("GRANT %s TO CURRENT_USER", role),
			fmt.Sprintf("GRANT USAGE ON SCHEMA public TO %s", role),
			fmt.Sprintf("GRANT SELECT, INSERT, UPDATE, DELETE ON ALL TABLES IN SCHEMA public TO %s", role),
		}

		for _, table := range TenantTables {
			predicate := "organization_id::text = current_setting('app.current_organization_id', true)"
			statements = append(statements,
				fmt.Sprintf("ALTER TABLE %s ENABLE ROW LEVEL SECURITY", table),
				fmt.Sprintf("DROP POLICY IF EXISTS tenant_isolation ON %s", table),
				fmt.Sprintf("CREATE POLICY tenant_isolation ON %s USING (%s) WITH CHECK (%s)", table, predicate, predicate),
			)
		}

		for _, stmt := range statements {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("tenancy: %w", err)
			}
		}
		return nil
	})
}
