package services

import (
	"context"
	"strings"
	"time"
)

const (
	defaultPageSize = 25
	maxPageSize     = 100
)

// ListOptions carries pagination for list endpoints.
type ListOptions struct {
	Page    int
	PerPage int
}

func (o ListOptions) normalise() (page, perPage int) {
	page = o.Page
	if page <= 0 {
		page = 1
	}
	perPage = o.PerPage
	if perPage <= 0 {
		perPage = defaultPageSize
	}
	if perPage > maxPageSize {
		perPage = maxPageSize
	}
	return page, perPage
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func trimPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	return &trimmed
}

// optionalID trims an optional id, folding blanks to nil.
func optionalID(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func containsString(values []string, target string) bool {
	target = strings.TrimSpace(target)
	if target == "" {
		return false
	}
	for _, value := range values {
		if strings.TrimSpace(value) == target {
			return true
		}
	}
	return false
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func stringPtr(value string) *string {
	return &value
}
