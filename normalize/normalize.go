// Package normalize turns free-text ranking fields into typed values.
// Every function here is total: malformed input degrades to nil or a default,
// never to an error.
package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/width"

	"car-sales/models"
)

// CategorySuffix is appended to the brand when no category field is present.
const CategorySuffix = "系列"

var (
	// priceNumberRegexp captures a run of digits with an optional decimal part.
	priceNumberRegexp = regexp.MustCompile(`\d+(?:\.\d+)?`)

	// unavailableMarkers flag text meaning "no price published".
	unavailableMarkers = []string{"暂无", "未公布", "待公布", "待定"}
)

// Price turns a price range such as "17.98-21.98万" into numeric bounds.
// One number collapses both bounds to it; zero or more than two numbers, empty
// text, or an unavailable marker yield (nil, nil). Units are kept as-is.
// Full-width digits and points are read as their ASCII forms.
func Price(text string) (min, max *float64) {
	text = strings.TrimSpace(width.Narrow.String(text))
	if text == "" {
		return nil, nil
	}
	for _, marker := range unavailableMarkers {
		if strings.Contains(text, marker) {
			return nil, nil
		}
	}

	matches := priceNumberRegexp.FindAllString(text, -1)
	values := make([]float64, 0, len(matches))
	for _, m := range matches {
		v, err := strconv.ParseFloat(m, 64)
		if err != nil || math.IsInf(v, 0) {
			return nil, nil
		}
		values = append(values, v)
	}

	switch len(values) {
	case 1:
		lo, hi := values[0], values[0]
		return &lo, &hi
	case 2:
		lo, hi := values[0], values[1]
		return &lo, &hi
	}
	return nil, nil
}

// Category returns the first candidate that is non-empty after trimming,
// falling back to brand + "系列". The result is never empty.
func Category(candidates []string, brand string) string {
	for _, c := range candidates {
		if c = strings.TrimSpace(c); c != "" {
			return c
		}
	}
	return strings.TrimSpace(brand) + CategorySuffix
}

// Count accepts "1234", "1,234" or an integral "1234.0" (full-width digits
// included); negative, fractional or out-of-range values are nil.
func Count(raw string) *int64 {
	s := strings.ReplaceAll(strings.TrimSpace(width.Narrow.String(raw)), ",", "")
	if s == "" {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return nil
		}
		var ok bool
		if n, ok = Integral(f); !ok {
			return nil
		}
	}
	if n < 0 {
		return nil
	}
	return &n
}

// Integral converts f to int64 when it is a whole number that fits.
func Integral(f float64) (int64, bool) {
	if math.IsNaN(f) || f != math.Trunc(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

// Listing converts a single raw ranking entry.
func Listing(r *models.RawListing) *models.Listing {
	brand := Text(r.BrandName)
	minPrice, maxPrice := Price(r.PriceText)

	var rank *int
	if n := Count(r.Rank); n != nil {
		v := int(*n)
		rank = &v
	}

	return &models.Listing{
		Rank:         rank,
		Brand:        brand,
		Series:       Text(r.SeriesName),
		PriceRange:   strings.TrimSpace(r.PriceText),
		MinPrice:     minPrice,
		MaxPrice:     maxPrice,
		MonthlySales: Count(r.MonthlySales),
		Category:     Category(r.CategoryCandidates, brand),
	}
}

// Text strips leading/trailing whitespace and collapses internal whitespace.
func Text(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}
