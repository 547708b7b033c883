package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/exteriorcrm/internal/models"
	apperrors "github.com/charlesng35/exteriorcrm/pkg/errors"
)

func TestContactServiceCRUD(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewContactService(db, newTestAudit(t, db))
	require.NoError(t, err)
	ctx := context.Background()

	org := seedOrganization(t, db, "acme")
	owner := seedMember(t, db, org, "owner@acme.test", models.RoleOwner)

	contact, err := svc.Create(ctx, owner, ContactInput{
		FirstName: ptr("Pat"),
		LastName:  ptr("Homeowner"),
		Email:     ptr(" PAT@Example.com "),
		City:      ptr("Aurora"),
		Tags:      []string{"repeat", " ", "<i>vip</i>"},
	})
	require.NoError(t, err)
	require.Equal(t, "Pat Homeowner", contact.DisplayName)
	require.Equal(t, "pat@example.com", contact.Email)
	require.Equal(t, models.ContactTypeCustomer, contact.Type)
	require.True(t, contact.IsActive)
	require.Equal(t, []string{"repeat", "vip"}, []string(contact.Tags))

	_, err = svc.Create(ctx, owner, ContactInput{Email: ptr("x@example.com")})
	require.ErrorIs(t, err, apperrors.ErrBadRequest)

	_, err = svc.Create(ctx, owner, ContactInput{CompanyName: ptr("Bad"), Email: ptr("nope")})
	require.ErrorIs(t, err, apperrors.ErrBadRequest)

	updated, err := svc.Update(ctx, owner, contact.ID, ContactInput{CompanyName: ptr("Homeowner Holdings"), DisplayName: ptr("")})
	require.NoError(t, err)
	require.Equal(t, "Homeowner Holdings", updated.DisplayName)
	require.NotNil(t, updated.UpdatedBy)

	require.NoError(t, svc.Delete(ctx, owner, contact.ID))
	_, err = svc.Get(ctx, owner, contact.ID)
	require.ErrorIs(t, err, ErrContactNotFound)
}

func TestContactServiceListIsTenantScoped(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewContactService(db, nil)
	require.NoError(t, err)
	ctx := context.Background()

	acme := seedMember(t, db, seedOrganization(t, db, "acme"), "owner@acme.test", models.RoleOwner)
	bravo := seedMember(t, db, seedOrganization(t, db, "bravo"), "owner@bravo.test", models.RoleOwner)

	seedContact(t, db, acme, "Harbor HOA")
	seedContact(t, db, acme, "Lakeside Builders")
	foreign := seedContact(t, db, bravo, "Harbor Roofing")

	contacts, total, err := svc.List(ctx, acme, ContactFilters{}, ListOptions{})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, contacts, 2)

	contacts, total, err = svc.List(ctx, acme, ContactFilters{Query: "harbor"}, ListOptions{})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "Harbor HOA", contacts[0].DisplayName)

	contacts, _, err = svc.List(ctx, acme, ContactFilters{}, ListOptions{Page: 2, PerPage: 1})
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	require.Equal(t, "Lakeside Builders", contacts[0].DisplayName)

	_, err = svc.Get(ctx, acme, foreign.ID)
	require.ErrorIs(t, err, ErrContactNotFound)

	_, err = svc.Update(ctx, acme, foreign.ID, ContactInput{Notes: ptr("hijack")})
	require.ErrorIs(t, err, ErrContactNotFound)

	require.ErrorIs(t, svc.Delete(ctx, acme, foreign.ID), ErrContactNotFound)
}

func TestContactServiceActivities(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewContactService(db, nil)
	require.NoError(t, err)
	ctx := context.Background()
	now := time.Date(2026, 7, 1, 15, 0, 0, 0, time.UTC)
	svc.now = fixedClock(now)

	owner := seedMember(t, db, seedOrganization(t, db, "acme"), "owner@acme.test", models.RoleOwner)
	contact := seedContact(t, db, owner, "Harbor HOA")

	earlier := now.Add(-48 * time.Hour)
	_, err = svc.LogActivity(ctx, owner, contact.ID, ActivityInput{Type: models.CommunicationPhone, Subject: "Intro call", OccurredAt: &earlier})
	require.NoError(t, err)
	latest, err := svc.LogActivity(ctx, owner, contact.ID, ActivityInput{Type: models.CommunicationEmail, Body: "Sent brochure"})
	require.NoError(t, err)
	require.True(t, latest.OccurredAt.Equal(now))

	_, err = svc.LogActivity(ctx, owner, contact.ID, ActivityInput{Type: "carrier_pigeon", Subject: "hi"})
	require.ErrorIs(t, err, apperrors.ErrBadRequest)

	_, err = svc.LogActivity(ctx, owner, contact.ID, ActivityInput{Type: models.CommunicationNote})
	require.ErrorIs(t, err, apperrors.ErrBadRequest)

	activities, err := svc.Activities(ctx, owner, contact.ID)
	require.NoError(t, err)
	require.Len(t, activities, 2)
	require.Equal(t, latest.ID, activities[0].ID)

	require.NoError(t, svc.Delete(ctx, owner, contact.ID))
	var remaining int64
	require.NoError(t, db.Model(&models.ContactActivity{}).Count(&remaining).Error)
	require.Zero(t, remaining)
}
