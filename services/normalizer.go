package services

import (
	"car-sales/models"
	"car-sales/normalize"
	"car-sales/utils"
)

// Normalizer converts RawListings into typed Listings and reports on data quality.
type Normalizer struct {
	logger *utils.Logger
}

// NewNormalizer creates a Normalizer with the given logger.
func NewNormalizer(logger *utils.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Normalize converts every raw listing; nothing is dropped here.
func (n *Normalizer) Normalize(raw []*models.RawListing) []*models.Listing {
	result := make([]*models.Listing, 0, len(raw))
	unpriced, unsold := 0, 0

	for _, r := range raw {
		l := normalize.Listing(r)
		if l.MinPrice == nil {
			unpriced++
			n.logger.Debug("[normalizer] No price for %s (%q)", l.Series, r.PriceText)
		}
		if l.MonthlySales == nil {
			unsold++
			n.logger.Debug("[normalizer] Unparseable sales for %s (%q)", l.Series, r.MonthlySales)
		}
		result = append(result, l)
	}

	n.logger.Info("[normalizer] Normalised %d listings (%d without price, %d without sales)",
		len(result), unpriced, unsold)
	return result
}
