package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/exteriorcrm/internal/models"
	"github.com/charlesng35/exteriorcrm/internal/permissions"
	apperrors "github.com/charlesng35/exteriorcrm/pkg/errors"
	"github.com/charlesng35/exteriorcrm/pkg/logger"
	"github.com/charlesng35/exteriorcrm/pkg/sanitize"
)

var (
	ErrUserNotFound     = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)
	ErrLastOwner        = apperrors.New("LAST_OWNER", "Organization must keep at least one active owner", http.StatusConflict)
	ErrSelfStatusChange = apperrors.New("SELF_STATUS_CHANGE", "You cannot change your own status", http.StatusBadRequest)
	ErrInvalidStatus    = apperrors.New("INVALID_STATUS", "Invalid status", http.StatusBadRequest)
)

// SessionTerminator ends the sessions a member holds in an organization.
type SessionTerminator interface {
	EndAccountSessions(ctx context.Context, accountID, organizationID string) (int64, error)
}

// Profile is the caller's membership as returned by the user endpoint.
type Profile struct {
	User         *models.User             `json:"user"`
	Organization *models.Organization     `json:"organization"`
	Role         models.UserRole          `json:"role"`
	Permissions  []string                 `json:"permissions"`
	Capabilities permissions.Capabilities `json:"capabilities"`
}

// UpdateProfileInput holds the self-editable profile fields.
type UpdateProfileInput struct {
	FirstName               *string
	LastName                *string
	Phone                   *string
	Mobile                  *string
	Title                   *string
	Timezone                *string
	NotificationPreferences *models.NotificationPreferences
}

// UserFilters narrows team listings.
type UserFilters struct {
	Status models.UserStatus
	Role   models.UserRole
}

// UserService manages member profiles and team administration.
type UserService struct {
	db       *gorm.DB
	sessions SessionTerminator
	audit    *AuditService
}

// NewUserService constructs a UserService. sessions may be nil, in which case
// deactivation does not end sessions.
func NewUserService(db *gorm.DB, sessions SessionTerminator, audit *AuditService) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	return &UserService{db: db, sessions: sessions, audit: audit}, nil
}

// Profile returns the caller's membership with its organization and grants.
func (s *UserService) Profile(ctx context.Context, tenant Tenant) (*Profile, error) {
	var user models.User
	err := scoped(ctx, s.db, tenant, func(tx *gorm.DB) error {
		return findInOrganization(tx.Preload("Organization"), tenant, &user, tenant.UserID, ErrProfileNotFound)
	})
	if err != nil {
		return nil, err
	}

	return &Profile{
		User:         &user,
		Organization: user.Organization,
		Role:         user.Role,
		Permissions:  permissions.ForRole(user.Role),
		Capabilities: permissions.CapabilitiesFor(user.Role),
	}, nil
}

// UpdateProfile edits the caller's own profile fields.
func (s *UserService) UpdateProfile(ctx context.Context, tenant Tenant, input UpdateProfileInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := scoped(ctx, s.db, tenant, func(tx *gorm.DB) error {
		if err := findInOrganization(tx, tenant, &user, tenant.UserID, ErrProfileNotFound); err != nil {
			return err
		}

		changed := false
		assign := func(target *string, value *string) {
			if value != nil {
				*target = sanitize.Text(*value)
				changed = true
			}
		}
		assign(&user.FirstName, input.FirstName)
		assign(&user.LastName, input.LastName)
		assign(&user.Phone, input.Phone)
		assign(&user.Mobile, input.Mobile)
		assign(&user.Title, input.Title)
		assign(&user.Timezone, input.Timezone)
		if input.NotificationPreferences != nil {
			user.NotificationPreferences = datatypes.NewJSONType(*input.NotificationPreferences)
			changed = true
		}
		if !changed {
			return ErrNoValidFields
		}
		user.RefreshDisplayName()

		return tx.Model(&user).Select(
			"first_name", "last_name", "display_name", "phone", "mobile",
			"title", "timezone", "notification_preferences", "updated_at",
		).Updates(&user).Error
	})
	if err != nil {
		return nil, translateDBError(err, nil)
	}

	recordAudit(s.audit, ctx, tenantAudit(tenant, "user.profile.update", "users", nil))
	return &user, nil
}

// List returns the organization's members.
func (s *UserService) List(ctx context.Context, tenant Tenant, filters UserFilters, opts ListOptions) ([]models.User, int64, error) {
	page, perPage := opts.normalise()

	var (
		users []models.User
		total int64
	)
	err := scoped(ctx, s.db, tenant, func(tx *gorm.DB) error {
		filtered := func() *gorm.DB {
			query := inOrganization(tx.Model(&models.User{}), tenant)
			if filters.Status != "" {
				query = query.Where("status = ?", filters.Status)
			}
			if filters.Role != "" {
				query = query.Where("role = ?", filters.Role)
			}
			return query
		}
		if err := filtered().Count(&total).Error; err != nil {
			return err
		}
		return filtered().
			Order("created_at ASC").
			Offset((page - 1) * perPage).
			Limit(perPage).
			Find(&users).Error
	})
	if err != nil {
		return nil, 0, fmt.Errorf("user service: list users: %w", err)
	}
	return users, total, nil
}

// ChangeRole assigns a new role to a member. Only owners may do this.
func (s *UserService) ChangeRole(ctx context.Context, tenant Tenant, userID string, role models.UserRole) (*models.User, error) {
	ctx = ensureContext(ctx)

	if tenant.Role != models.RoleOwner {
		return nil, apperrors.ErrForbidden.WithMessage("Only owners can change roles")
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	var (
		user     models.User
		previous models.UserRole
	)
	err := scoped(ctx, s.db, tenant, func(tx *gorm.DB) error {
		if err := findInOrganization(tx, tenant, &user, userID, ErrUserNotFound); err != nil {
			return err
		}
		previous = user.Role
		if previous == role {
			return nil
		}
		if previous == models.RoleOwner && user.Status == models.UserStatusActive {
			if err := ensureAnotherOwner(tx, tenant, user.ID); err != nil {
				return err
			}
		}

		user.Role = role
		user.IsAdmin = role == models.RoleOwner
		return tx.Model(&user).Updates(map[string]any{"role": user.Role, "is_admin": user.IsAdmin}).Error
	})
	if err != nil {
		return nil, translateDBError(err, nil)
	}

	if previous != role {
		recordAudit(s.audit, ctx, tenantAudit(tenant, "user.role.update", "users", map[string]any{
			"user_id": user.ID,
			"from":    string(previous),
			"to":      string(role),
		}))
	}
	return &user, nil
}

// SetStatus activates or deactivates a member. Deactivation ends the member's
// sessions in this organization.
func (s *UserService) SetStatus(ctx context.Context, tenant Tenant, userID string, status models.UserStatus) (*models.User, error) {
	ctx = ensureContext(ctx)

	switch status {
	case models.UserStatusActive, models.UserStatusInactive, models.UserStatusSuspended:
	default:
		return nil, ErrInvalidStatus
	}
	if strings.TrimSpace(userID) == tenant.UserID {
		return nil, ErrSelfStatusChange
	}

	var user models.User
	err := scoped(ctx, s.db, tenant, func(tx *gorm.DB) error {
		if err := findInOrganization(tx, tenant, &user, userID, ErrUserNotFound); err != nil {
			return err
		}
		if user.Role == models.RoleOwner && tenant.Role != models.RoleOwner {
			return apperrors.ErrForbidden.WithMessage("Only owners can change an owner's status")
		}
		if user.Role == models.RoleOwner && user.Status == models.UserStatusActive && status != models.UserStatusActive {
			if err := ensureAnotherOwner(tx, tenant, user.ID); err != nil {
				return err
			}
		}

		user.Status = status
		return tx.Model(&user).Update("status", status).Error
	})
	if err != nil {
		return nil, translateDBError(err, nil)
	}

	if status != models.UserStatusActive && s.sessions != nil {
		if _, err := s.sessions.EndAccountSessions(ctx, user.AccountID, tenant.OrganizationID); err != nil {
			logger.WithModule("users").Warn("failed to end sessions of deactivated member",
				zap.String("user_id", user.ID), zap.Error(err))
		}
	}

	recordAudit(s.audit, ctx, tenantAudit(tenant, "user.status.update", "users", map[string]any{
		"user_id": user.ID,
		"status":  string(status),
	}))
	return &user, nil
}

// ensureAnotherOwner fails with ErrLastOwner unless an active owner other than
// userID remains. The organization row stays locked until tx ends, so
// concurrent owner changes in one organization are counted one at a time.
func ensureAnotherOwner(tx *gorm.DB, tenant Tenant, userID string) error {
	var org models.Organization
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", tenant.OrganizationID).
		Take(&org).Error; err != nil {
		return fmt.Errorf("lock organization: %w", err)
	}

	var owners int64
	if err := inOrganization(tx.Model(&models.User{}), tenant).
		Where("role = ? AND status = ? AND id <> ?", models.RoleOwner, models.UserStatusActive, userID).
		Count(&owners).Error; err != nil {
		return err
	}
	if owners == 0 {
		return ErrLastOwner
	}
	return nil
}
