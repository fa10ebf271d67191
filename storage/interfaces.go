package storage

import (
	"context"
	"errors"

	"car-sales/models"
)

// ErrUnavailable marks a backend that could not be reached at all, as opposed
// to one that answered with an error.
var ErrUnavailable = errors.New("storage unavailable")

// ListingWriter is the interface any storage backend must satisfy.
type ListingWriter interface {
	Write(ctx context.Context, listings []*models.Listing) error
	Close() error
}

// ListingSource answers structured listing queries.
type ListingSource interface {
	Name() string
	Query(ctx context.Context, f models.Filter) ([]*models.Listing, error)
}

// ExpressionSource additionally executes vetted read-only SELECT expressions.
type ExpressionSource interface {
	ListingSource
	QuerySQL(ctx context.Context, expr string, limit int) ([]*models.Listing, error)
}
