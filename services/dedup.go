package services

import (
	"strings"

	"car-sales/models"
)

// Deduplicate keeps one listing per series: the input is stable-sorted by
// monthly sales descending (unknown sales last) and the first occurrence of
// each series wins. Listings with a blank series never collide with each other.
// The input slice is not modified.
func Deduplicate(listings []*models.Listing) []*models.Listing {
	sorted := make([]*models.Listing, len(listings))
	copy(sorted, listings)
	models.SortBySales(sorted)

	seen := make(map[string]struct{}, len(sorted))
	result := make([]*models.Listing, 0, len(sorted))
	for _, l := range sorted {
		key := strings.TrimSpace(l.Series)
		if key != "" {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
		}
		result = append(result, l)
	}
	return result
}
