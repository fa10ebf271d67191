package storage

import (
	"context"

	"car-sales/models"
	"car-sales/normalize"
)

// CSVSource answers structured queries from the intermediate file when the
// database cannot. Prices are re-derived from the stored text on every read.
type CSVSource struct {
	path string
}

// NewCSVSource creates a source over a CSV or JSON listings file.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

// Name identifies the source in results and logs.
func (c *CSVSource) Name() string { return "csv:" + c.path }

// Query applies the same predicate, ordering and cap as the SQL store.
func (c *CSVSource) Query(ctx context.Context, f models.Filter) ([]*models.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := ReadListingsFile(c.path)
	if err != nil {
		return nil, err
	}

	var matched []*models.Listing
	for _, r := range raw {
		if l := normalize.Listing(r); f.Match(l) {
			matched = append(matched, l)
		}
	}

	models.SortBySales(matched)
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	return matched, nil
}
