package models

import (
	"sort"
	"strings"
	"time"
)

// RawListing holds one ranking entry exactly as the source published it.
// It is written to CSV before any normalisation.
type RawListing struct {
	Rank         string
	BrandName    string
	SeriesName   string
	PriceText    string
	MonthlySales string
	// CategoryCandidates lists the possible category fields in priority order.
	// An absent field is recorded as "".
	CategoryCandidates []string
	ScrapedAt          time.Time
}

// Listing is the normalised record stored in the car_sales table.
// Prices are in 万 (10k currency units); nil means "no price published".
type Listing struct {
	ID           int64    `json:"id,omitempty"`
	Rank         *int     `json:"rank"`
	Brand        string   `json:"brand"`
	Series       string   `json:"series"`
	PriceRange   string   `json:"price_range"`
	MinPrice     *float64 `json:"min_price"`
	MaxPrice     *float64 `json:"max_price"`
	MonthlySales *int64   `json:"monthly_sales"`
	Category     string   `json:"category"`
}

// Sales returns MonthlySales or -1 when unknown, so unknown sorts below zero.
func (l *Listing) Sales() int64 {
	if l.MonthlySales == nil {
		return -1
	}
	return *l.MonthlySales
}

// CategoryAny is the dashboard and CLI label for "no category filter".
const CategoryAny = "全部"

// CategoryAll values disable the category predicate.
var CategoryAll = []string{"", "all", CategoryAny}

// Filter is a structured listing query.
type Filter struct {
	MinPrice float64
	MaxPrice float64
	Category string
	Limit    int
	// AnyPrice drops the price predicate entirely (default top-N queries).
	AnyPrice bool
}

// CategoryKeyword returns the trimmed keyword, or "" when the filter is unrestricted.
func (f Filter) CategoryKeyword() string {
	kw := strings.TrimSpace(f.Category)
	for _, all := range CategoryAll {
		if strings.EqualFold(kw, all) {
			return ""
		}
	}
	return kw
}

// Match applies the filter predicate to a single listing. It mirrors the SQL
// built by the storage layer: an inclusive starting-price range and a substring
// match of the keyword against category OR series.
func (f Filter) Match(l *Listing) bool {
	if !f.AnyPrice {
		if l.MinPrice == nil || *l.MinPrice < f.MinPrice || *l.MinPrice > f.MaxPrice {
			return false
		}
	}
	if kw := f.CategoryKeyword(); kw != "" {
		return strings.Contains(l.Category, kw) || strings.Contains(l.Series, kw)
	}
	return true
}

// TopSellers is the default query: the n best-selling series regardless of price.
func TopSellers(n int) Filter {
	return Filter{AnyPrice: true, Limit: n}
}

// SortBySales orders listings by monthly sales descending, keeping the input
// order among equal sales.
func SortBySales(listings []*Listing) {
	sort.SliceStable(listings, func(i, j int) bool {
		return listings[i].Sales() > listings[j].Sales()
	})
}
