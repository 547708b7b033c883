package services

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	apperrors "github.com/charlesng35/exteriorcrm/pkg/errors"
)

const (
	mysqlDuplicateEntry  = 1062
	mysqlNoReferencedRow = 1452
)

var (
	// ErrInvalidReference is returned when a referenced row is missing or
	// belongs to another organization.
	ErrInvalidReference = apperrors.New("INVALID_REFERENCE", "Referenced record does not exist", http.StatusBadRequest)
	// ErrProfileNotFound signals that the caller has no membership to act through.
	ErrProfileNotFound = apperrors.New("PROFILE_NOT_FOUND", "User profile not found", http.StatusNotFound)
	// ErrMembershipInactive blocks members whose status is not active.
	ErrMembershipInactive = apperrors.New("MEMBERSHIP_INACTIVE", "User account is not active", http.StatusForbidden)
	// ErrOrganizationInactive blocks organizations that are suspended or cancelled.
	ErrOrganizationInactive = apperrors.New("ORGANIZATION_INACTIVE", "Organization is not active", http.StatusForbidden)
	// ErrAccessDenied is returned when the caller has no access to an organization.
	ErrAccessDenied = apperrors.New("ACCESS_DENIED", "Access denied", http.StatusForbidden)
	// ErrNoValidFields is returned by patches that carry nothing updatable.
	ErrNoValidFields = apperrors.New("NO_VALID_FIELDS", "No valid fields to update", http.StatusBadRequest)
)

// isUniqueConstraintError detects database uniqueness constraint violations across vendors.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil {
		return pgErr.Code == pgerrcode.UniqueViolation
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil {
		return myErr.Number == mysqlDuplicateEntry
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique constraint") ||
		strings.Contains(lower, "duplicate")
}

// isForeignKeyError detects foreign key violations across vendors.
func isForeignKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil {
		return pgErr.Code == pgerrcode.ForeignKeyViolation
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil {
		return myErr.Number == mysqlNoReferencedRow
	}

	return strings.Contains(strings.ToLower(err.Error()), "foreign key constraint")
}

// translateDBError maps driver errors onto API errors. conflict is used for
// unique violations; when nil the generic conflict error is returned.
func translateDBError(err error, conflict *apperrors.AppError) error {
	if err == nil {
		return nil
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.ErrNotFound.WithInternal(err)
	case isUniqueConstraintError(err):
		if conflict == nil {
			conflict = apperrors.ErrConflict
		}
		return conflict.WithInternal(err)
	case isForeignKeyError(err):
		return ErrInvalidReference.WithInternal(err)
	}
	return apperrors.ErrInternalServer.WithInternal(err)
}
