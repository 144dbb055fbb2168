package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// OrderSortFields contains allowed sort fields for eligible order listings
var OrderSortFields = map[string]bool{
	"created_at":             true,
	"updated_at":             true,
	"order_number":           true,
	"expected_delivery_date": true,
}

// BatchSortFields contains allowed sort fields for batch listings
var BatchSortFields = map[string]bool{
	"created_at":     true,
	"updated_at":     true,
	"batch_number":   true,
	"scheduled_date": true,
	"status":         true,
	"started_at":     true,
	"completed_at":   true,
}
