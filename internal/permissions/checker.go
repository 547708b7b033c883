package permissions

import (
	"fmt"
	"strings"

	"github.com/charlesng35/exteriorcrm/internal/models"
	"github.com/charlesng35/exteriorcrm/pkg/metrics"
)

// Checker evaluates role grants and records the outcome.
type Checker struct{}

// NewChecker constructs a permission checker.
func NewChecker() *Checker {
	return &Checker{}
}

// Check determines whether the role holds permissionID. Unknown ids are an
// error so typos in route wiring fail loudly.
func (c *Checker) Check(role models.UserRole, permissionID string) (bool, error) {
	permissionID = strings.TrimSpace(permissionID)
	if _, ok := Get(permissionID); !ok {
		metrics.PermissionChecks.WithLabelValues(permissionID, "error").Inc()
		return false, fmt.Errorf("%w %q", ErrUnknownPermission, permissionID)
	}

	allowed := Has(role, permissionID)
	result := "deny"
	if allowed {
		result = "allow"
	}
	metrics.PermissionChecks.WithLabelValues(permissionID, result).Inc()
	return allowed, nil
}

// CheckRoles reports whether role is one of allowed, recording the result
// under the synthetic permission label "role:<joined roles>".
func (c *Checker) CheckRoles(role models.UserRole, allowed ...models.UserRole) bool {
	ok := roleIn(role, allowed...)
	names := make([]string, len(allowed))
	for i, r := range allowed {
		names[i] = string(r)
	}
	result := "deny"
	if ok {
		result = "allow"
	}
	metrics.PermissionChecks.WithLabelValues("role:"+strings.Join(names, "|"), result).Inc()
	return ok
}
