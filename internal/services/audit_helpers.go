package services

import (
	"context"

	"github.com/charlesng35/exteriorcrm/internal/auditctx"
)

// recordAudit logs the supplied entry while tolerating audit failures.
// Request metadata attached by the HTTP layer fills blank fields.
func recordAudit(audit *AuditService, ctx context.Context, entry AuditEntry) {
	if audit == nil {
		return
	}
	if actor, ok := auditctx.FromContext(ctx); ok {
		if entry.IPAddress == "" {
			entry.IPAddress = actor.IPAddress
		}
		if entry.UserAgent == "" {
			entry.UserAgent = actor.UserAgent
		}
		if entry.Actor == "" {
			entry.Actor = actor.Email
		}
	}
	_ = audit.Log(ctx, entry)
}

// tenantAudit prefills the organization and actor of an entry.
func tenantAudit(tenant Tenant, action, resource string, metadata map[string]any) AuditEntry {
	return AuditEntry{
		OrganizationID: stringPtr(tenant.OrganizationID),
		UserID:         stringPtr(tenant.UserID),
		Actor:          tenant.Email,
		Action:         action,
		Resource:       resource,
		Result:         AuditResultSuccess,
		Metadata:       metadata,
	}
}
