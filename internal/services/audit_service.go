package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/charlesng35/exteriorcrm/internal/models"
)

const (
	AuditResultSuccess = "success"
	AuditResultFailure = "failure"
)

// AuditEntry captures a single audit event to persist.
type AuditEntry struct {
	OrganizationID *string
	UserID         *string
	Actor          string
	Action         string
	Resource       string
	Result         string
	IPAddress      string
	UserAgent      string
	Metadata       map[string]any
}

// AuditFilters encapsulates optional filters when querying audit logs.
type AuditFilters struct {
	UserID   string
	Action   string
	Result   string
	Resource string
	Since    *time.Time
	Until    *time.Time
}

// AuditListOptions controls pagination and filtering for audit queries.
type AuditListOptions struct {
	ListOptions
	Filters AuditFilters
}

// AuditService persists and retrieves audit log entries. Writes go through
// the owning connection so entries without an organization can be stored.
type AuditService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewAuditService constructs an AuditService using the provided database handle.
func NewAuditService(db *gorm.DB) (*AuditService, error) {
	if db == nil {
		return nil, errors.New("audit service: db is required")
	}
	return &AuditService{db: db, now: time.Now}, nil
}

// Log stores an audit entry.
func (s *AuditService) Log(ctx context.Context, entry AuditEntry) error {
	ctx = ensureContext(ctx)

	if strings.TrimSpace(entry.Action) == "" {
		return errors.New("audit service: action is required")
	}
	if strings.TrimSpace(entry.Result) == "" {
		return errors.New("audit service: result is required")
	}

	log := models.AuditLog{
		OrganizationID: optionalID(entry.OrganizationID),
		UserID:         optionalID(entry.UserID),
		Actor:          strings.TrimSpace(entry.Actor),
		Action:         strings.TrimSpace(entry.Action),
		Resource:       strings.TrimSpace(entry.Resource),
		Result:         strings.TrimSpace(entry.Result),
		IPAddress:      strings.TrimSpace(entry.IPAddress),
		UserAgent:      strings.TrimSpace(entry.UserAgent),
		Metadata:       datatypes.JSONMap(entry.Metadata),
	}

	if err := s.db.WithContext(ctx).Create(&log).Error; err != nil {
		return fmt.Errorf("audit service: create log: %w", err)
	}
	return nil
}

// List returns the organization's audit logs, newest first.
func (s *AuditService) List(ctx context.Context, tenant Tenant, opts AuditListOptions) ([]models.AuditLog, int64, error) {
	page, perPage := opts.normalise()

	var (
		results []models.AuditLog
		total   int64
	)

	err := scoped(ctx, s.db, tenant, func(tx *gorm.DB) error {
		query := applyAuditFilters(inOrganization(tx.Model(&models.AuditLog{}), tenant), opts.Filters)
		if err := query.Count(&total).Error; err != nil {
			return fmt.Errorf("audit service: count logs: %w", err)
		}

		query = applyAuditFilters(inOrganization(tx.Model(&models.AuditLog{}), tenant), opts.Filters)
		if err := query.
			Order("created_at DESC").
			Offset((page - 1) * perPage).
			Limit(perPage).
			Find(&results).Error; err != nil {
			return fmt.Errorf("audit service: list logs: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	return results, total, nil
}

// CleanupOlderThan removes audit logs older than the supplied retention window (in days).
func (s *AuditService) CleanupOlderThan(ctx context.Context, retentionDays int) (int64, error) {
	ctx = ensureContext(ctx)

	if retentionDays <= 0 {
		return 0, errors.New("audit service: retentionDays must be positive")
	}

	cutoff := s.now().AddDate(0, 0, -retentionDays)

	result := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.AuditLog{})
	if result.Error != nil {
		return 0, fmt.Errorf("audit service: cleanup logs: %w", result.Error)
	}

	return result.RowsAffected, nil
}

func applyAuditFilters(query *gorm.DB, filters AuditFilters) *gorm.DB {
	if filters.UserID != "" {
		query = query.Where("user_id = ?", filters.UserID)
	}
	if filters.Action != "" {
		query = query.Where("action = ?", filters.Action)
	}
	if filters.Result != "" {
		query = query.Where("result = ?", filters.Result)
	}
	if filters.Resource != "" {
		query = query.Where("resource = ?", filters.Resource)
	}
	if filters.Since != nil {
		query = query.Where("created_at >= ?", *filters.Since)
	}
	if filters.Until != nil {
		query = query.Where("created_at <= ?", *filters.Until)
	}
	return query
}
