package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/charlesng35/exteriorcrm/internal/models"
	apperrors "github.com/charlesng35/exteriorcrm/pkg/errors"
	"github.com/charlesng35/exteriorcrm/pkg/sanitize"
	"github.com/charlesng35/exteriorcrm/pkg/validator"
)

var ErrContactNotFound = apperrors.New("CONTACT_NOT_FOUND", "Contact not found", http.StatusNotFound)

// ContactInput carries contact fields. On update nil fields are left alone.
type ContactInput struct {
	Type         *models.ContactType
	DisplayName  *string
	FirstName    *string
	LastName     *string
	CompanyName  *string
	Email        *string
	Phone        *string
	Mobile       *string
	AddressLine1 *string
	AddressLine2 *string
	City         *string
	State        *string
	ZipCode      *string
	Website      *string
	Notes        *string
	Tags         []string
	CustomFields map[string]any
	IsActive     *bool
}

// ContactFilters narrows contact listings.
type ContactFilters struct {
	Type     models.ContactType
	IsActive *bool
	Query    string
}

// ActivityInput records one entry in a contact's communication log.
type ActivityInput struct {
	Type       models.CommunicationType
	Subject    string
	Body       string
	OccurredAt *time.Time
}

// ContactService manages contacts and their activity log.
type ContactService struct {
	db    *gorm.DB
	audit *AuditService
	now   func() time.Time
}

// NewContactService constructs a ContactService.
func NewContactService(db *gorm.DB, audit *AuditService) (*ContactService, error) {
	if db == nil {
		return nil, errors.New("contact service: db is required")
	}
	return &ContactService{db: db, audit: audit, now: time.Now}, nil
}

// List returns the organization's contacts.
func (s *ContactService) List(ctx context.Context, tenant Tenant, filters ContactFilters, opts ListOptions) ([]models.Contact, int64, error) {
	page, perPage := opts.normalise()

	var (
		contacts []models.Contact
		total    int64
	)
	err := scoped(ctx, s.db, tenant, func(tx *gorm.DB) error {
		filtered := func() *gorm.DB {
			query := inOrganization(tx.Model(&models.Contact{}), tenant)
			if filters.Type != "" {
				query = query.Where("type = ?", filters.Type)
			}
			if filters.IsActive != nil {
				query = query.Where("is_active = ?", *filters.IsActive)
			}
			if q := strings.ToLower(strings.TrimSpace(filters.Query)); q != "" {
				like := "%" + q + "%"
				query = query.Where(
					"(LOWER(display_name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(company_name) LIKE ?)",
					like, like, like,
				)
			}
			return query
		}
		if err := filtered().Count(&total).Error; err != nil {
			return err
		}
		return filtered().
			Order("display_name ASC").
			Offset((page - 1) * perPage).
			Limit(perPage).
			Find(&contacts).Error
	})
	if err != nil {
		return nil, 0, fmt.Errorf("contact service: list contacts: %w", err)
	}
	return contacts, total, nil
}

// Get returns a single contact.
func (s *ContactService) Get(ctx context.Context, tenant Tenant, id string) (*models.Contact, error) {
	var contact models.Contact
	err := scoped(ctx, s.db, tenant, func(tx *gorm.DB) error {
		return findInOrganization(tx, tenant, &contact, id, ErrContactNotFound)
	})
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

// Create stores a new contact.
func (s *ContactService) Create(ctx context.Context, tenant Tenant, input ContactInput) (*models.Contact, error) {
	ctx = ensureContext(ctx)

	contact := &models.Contact{
		Type:         models.ContactTypeCustomer,
		IsActive:     true,
		Tags:         []string{},
		CustomFields: datatypes.JSONMap{},
		CreatedBy:    tenant.UserID,
	}
	contact.OrganizationID = tenant.OrganizationID
	if err := applyContactInput(contact, input); err != nil {
		return nil, err
	}

	err := scoped(ctx, s.db, tenant, func(tx *gorm.DB) error {
		return tx.Create(contact).Error
	})
	if err != nil {
		return nil, translateDBError(err, nil)
	}

	recordAudit(s.audit, ctx, tenantAudit(tenant, "contact.create", "contacts", map[string]any{"contact_id": contact.ID}))
	return contact, nil
}

// Update edits an existing contact.
func (s *ContactService) Update(ctx context.Context, tenant Tenant, id string, input ContactInput) (*models.Contact, error) {
	ctx = ensureContext(ctx)

	var contact models.Contact
	err := scoped(ctx, s.db, tenant, func(tx *gorm.DB) error {
		if err := findInOrganization(tx, tenant, &contact, id, ErrContactNotFound); err != nil {
			return err
		}
		if err := applyContactInput(&contact, input); err != nil {
			return err
		}
		contact.UpdatedBy = stringPtr(tenant.UserID)
		return tx.Save(&contact).Error
	})
	if err != nil {
		return nil, translateDBError(err, nil)
	}

	recordAudit(s.audit, ctx, tenantAudit(tenant, "contact.update", "contacts", map[string]any{"contact_id": contact.ID}))
	return &contact, nil
}

// Delete removes a contact and its activity log.
func (s *ContactService) Delete(ctx context.Context, tenant Tenant, id string) error {
	ctx = ensureContext(ctx)

	err := scoped(ctx, s.db, tenant, func(tx *gorm.DB) error {
		var contact models.Contact
		if err := findInOrganization(tx, tenant, &contact, id, ErrContactNotFound); err != nil {
			return err
		}
		if err := inOrganization(tx, tenant).Where("contact_id = ?", contact.ID).Delete(&models.ContactActivity{}).Error; err != nil {
			return err
		}
		return inOrganization(tx, tenant).Where("id = ?", contact.ID).Delete(&models.Contact{}).Error
	})
	if err != nil {
		return translateDBError(err, nil)
	}

	recordAudit(s.audit, ctx, tenantAudit(tenant, "contact.delete", "contacts", map[string]any{"contact_id": id}))
	return nil
}

// Activities returns a contact's communication log, newest first.
func (s *ContactService) Activities(ctx context.Context, tenant Tenant, contactID string) ([]models.ContactActivity, error) {
	var activities []models.ContactActivity
	err := scoped(ctx, s.db, tenant, func(tx *gorm.DB) error {
		var contact models.Contact
		if err := findInOrganization(tx, tenant, &contact, contactID, ErrContactNotFound); err != nil {
			return err
		}
		return inOrganization(tx, tenant).
			Where("contact_id = ?", contact.ID).
			Order("occurred_at DESC").
			Find(&activities).Error
	})
	if err != nil {
		return nil, err
	}
	return activities, nil
}

// LogActivity appends an entry to a contact's communication log.
func (s *ContactService) LogActivity(ctx context.Context, tenant Tenant, contactID string, input ActivityInput) (*models.ContactActivity, error) {
	ctx = ensureContext(ctx)

	if !input.Type.Valid() {
		return nil, apperrors.NewBadRequest("Invalid activity type")
	}
	activity := &models.ContactActivity{
		Type:      input.Type,
		Subject:   sanitize.Text(input.Subject),
		Body:      sanitize.Text(input.Body),
		CreatedBy: tenant.UserID,
	}
	activity.OrganizationID = tenant.OrganizationID
	if input.OccurredAt != nil {
		activity.OccurredAt = *input.OccurredAt
	} else {
		activity.OccurredAt = s.now()
	}
	if activity.Subject == "" && activity.Body == "" {
		return nil, apperrors.NewBadRequest("Activity requires a subject or body")
	}

	err := scoped(ctx, s.db, tenant, func(tx *gorm.DB) error {
		var contact models.Contact
		if err := findInOrganization(tx, tenant, &contact, contactID, ErrContactNotFound); err != nil {
			return err
		}
		activity.ContactID = contact.ID
		return tx.Create(activity).Error
	})
	if err != nil {
		return nil, translateDBError(err, nil)
	}

	recordAudit(s.audit, ctx, tenantAudit(tenant, "contact.activity.create", "contacts", map[string]any{
		"contact_id":  activity.ContactID,
		"activity_id": activity.ID,
	}))
	return activity, nil
}

func applyContactInput(contact *models.Contact, input ContactInput) error {
	if input.Type != nil {
		if !input.Type.Valid() {
			return apperrors.NewBadRequest("Invalid contact type")
		}
		contact.Type = *input.Type
	}

	text := func(target *string, value *string) {
		if value != nil {
			*target = sanitize.Text(*value)
		}
	}
	text(&contact.FirstName, input.FirstName)
	text(&contact.LastName, input.LastName)
	text(&contact.CompanyName, input.CompanyName)
	text(&contact.Phone, input.Phone)
	text(&contact.Mobile, input.Mobile)
	text(&contact.Website, input.Website)
	text(&contact.Notes, input.Notes)
	applyAddress(&contact.Address, input.AddressLine1, input.AddressLine2, input.City, input.State, input.ZipCode)

	if input.Email != nil {
		email := normaliseEmail(*input.Email)
		if email != "" && !validator.IsEmail(email) {
			return apperrors.NewBadRequest("Invalid email format")
		}
		contact.Email = email
	}
	if input.Tags != nil {
		contact.Tags = sanitize.TextSlice(input.Tags)
	}
	if input.CustomFields != nil {
		contact.CustomFields = datatypes.JSONMap(input.CustomFields)
	}
	if input.IsActive != nil {
		contact.IsActive = *input.IsActive
	}

	if input.DisplayName != nil {
		contact.DisplayName = sanitize.Text(*input.DisplayName)
	}
	if contact.DisplayName == "" {
		contact.DisplayName = contactDisplayName(contact)
	}
	if contact.DisplayName == "" {
		return apperrors.NewMissingFields([]string{"display_name"})
	}
	return nil
}

// contactDisplayName prefers the company name, then "first last".
func contactDisplayName(contact *models.Contact) string {
	if contact.CompanyName != "" {
		return contact.CompanyName
	}
	return strings.TrimSpace(contact.FirstName + " " + contact.LastName)
}
