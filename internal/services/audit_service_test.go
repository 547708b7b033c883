package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/exteriorcrm/internal/auditctx"
	"github.com/charlesng35/exteriorcrm/internal/models"
)

func TestAuditServiceListIsScopedToOrganization(t *testing.T) {
	db := openServiceTestDB(t)
	svc := newTestAudit(t, db)
	ctx := context.Background()

	orgA := seedOrganization(t, db, "acme")
	orgB := seedOrganization(t, db, "bravo")
	ownerA := seedMember(t, db, orgA, "owner@acme.test", models.RoleOwner)
	ownerB := seedMember(t, db, orgB, "owner@bravo.test", models.RoleOwner)

	require.NoError(t, svc.Log(ctx, tenantAudit(ownerA, "lead.create", "leads", map[string]any{"lead_id": "l-1"})))
	require.NoError(t, svc.Log(ctx, tenantAudit(ownerA, "job.create", "jobs", nil)))
	require.NoError(t, svc.Log(ctx, tenantAudit(ownerB, "lead.create", "leads", nil)))
	require.NoError(t, svc.Log(ctx, AuditEntry{Action: "account.signup", Result: AuditResultSuccess}))

	logs, total, err := svc.List(ctx, ownerA, AuditListOptions{})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, logs, 2)

	logs, total, err = svc.List(ctx, ownerA, AuditListOptions{Filters: AuditFilters{Action: "lead.create"}})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "l-1", logs[0].Metadata["lead_id"])

	_, total, err = svc.List(ctx, ownerA, AuditListOptions{Filters: AuditFilters{UserID: ownerB.UserID}})
	require.NoError(t, err)
	require.Zero(t, total)
}

func TestAuditServiceLogValidates(t *testing.T) {
	svc := newTestAudit(t, openServiceTestDB(t))

	require.Error(t, svc.Log(context.Background(), AuditEntry{Result: AuditResultSuccess}))
	require.Error(t, svc.Log(context.Background(), AuditEntry{Action: "x"}))
}

func TestAuditServiceCleanupOlderThan(t *testing.T) {
	db := openServiceTestDB(t)
	svc := newTestAudit(t, db)
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	svc.now = fixedClock(now)

	old := models.AuditLog{Action: "old.action", Result: AuditResultSuccess, CreatedAt: now.AddDate(0, 0, -100)}
	recent := models.AuditLog{Action: "recent.action", Result: AuditResultSuccess, CreatedAt: now.AddDate(0, 0, -10)}
	require.NoError(t, db.Create(&old).Error)
	require.NoError(t, db.Create(&recent).Error)

	rows, err := svc.CleanupOlderThan(context.Background(), 90)
	require.NoError(t, err)
	require.Equal(t, int64(1), rows)

	_, err = svc.CleanupOlderThan(context.Background(), 0)
	require.Error(t, err)
}

func TestRecordAuditUsesRequestActor(t *testing.T) {
	db := openServiceTestDB(t)
	svc := newTestAudit(t, db)

	ctx := auditctx.WithActor(context.Background(), auditctx.Actor{
		Email:     "crew@example.com",
		IPAddress: "203.0.113.7",
		UserAgent: "test-agent",
	})
	recordAudit(svc, ctx, AuditEntry{Action: "account.login", Result: AuditResultFailure})
	recordAudit(nil, ctx, AuditEntry{Action: "ignored", Result: AuditResultSuccess})

	var logs []models.AuditLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	require.Equal(t, "203.0.113.7", logs[0].IPAddress)
	require.Equal(t, "test-agent", logs[0].UserAgent)
	require.Equal(t, "crew@example.com", logs[0].Actor)
}
