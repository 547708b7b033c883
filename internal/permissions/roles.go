package permissions

import (
	"sort"

	"github.com/charlesng35/exteriorcrm/internal/models"
)

// roleGrants lists what each non-owner role may do. Owners hold every
// registered permission.
var roleGrants = map[models.UserRole][]string{
	models.RoleOperationsManager: {
		UsersCreate, UsersRead, UsersUpdate,
		InvitationsCreate, InvitationsRead,
		ContactsCreate, ContactsRead, ContactsUpdate,
		LeadsRead, LeadsUpdate,
		JobsRead, JobsUpdate,
		EstimatesRead,
		ReportsRead,
	},
	models.RoleSalesManager: {
		UsersRead,
		InvitationsCreate, InvitationsRead,
		ContactsCreate, ContactsRead, ContactsUpdate,
		LeadsCreate, LeadsRead, LeadsUpdate,
		JobsRead,
		EstimatesRead,
		ReportsRead,
	},
	models.RoleEstimatingManager: {
		ContactsRead,
		LeadsRead, LeadsUpdate,
		JobsRead,
		EstimatesCreate, EstimatesRead, EstimatesUpdate,
		ReportsRead,
	},
	models.RoleEstimator: {
		ContactsRead,
		LeadsRead, LeadsUpdate,
		EstimatesCreate, EstimatesRead, EstimatesUpdate,
	},
	models.RoleFieldManagement: {
		ContactsRead,
		JobsRead, JobsUpdate,
	},
}

// ForRole returns the sorted permission ids granted to the role.
func ForRole(role models.UserRole) []string {
	if role == models.RoleOwner {
		return IDs()
	}

	grants := roleGrants[role]
	out := append([]string(nil), grants...)
	sort.Strings(out)
	return out
}

// Has reports whether the role holds permID and every permission it depends on.
func Has(role models.UserRole, permID string) bool {
	if _, ok := Get(permID); !ok {
		return false
	}
	if role == models.RoleOwner {
		return true
	}

	granted := grantSet(role)
	if _, ok := granted[permID]; !ok {
		return false
	}

	deps, err := ResolveDependencies(permID)
	if err != nil {
		return false
	}
	for _, dep := range deps {
		if _, ok := granted[dep]; !ok {
			return false
		}
	}
	return true
}

func grantSet(role models.UserRole) map[string]struct{} {
	grants := roleGrants[role]
	set := make(map[string]struct{}, len(grants))
	for _, id := range grants {
		set[id] = struct{}{}
	}
	return set
}
