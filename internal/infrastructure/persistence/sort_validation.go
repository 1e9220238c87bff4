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

// AuctionSortFields contains allowed sort fields for auctions
var AuctionSortFields = map[string]bool{
	"created_at":          true,
	"updated_at":          true,
	"title":               true,
	"start_time":          true,
	"end_time":            true,
	"starting_price":      true,
	"current_highest_bid": true,
	"current_lowest_bid":  true,
	"total_bids":          true,
}

// BidSortFields contains allowed sort fields for bids
var BidSortFields = map[string]bool{
	"submitted_at": true,
	"amount":       true,
}
