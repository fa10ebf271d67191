package services

import (
	"context"
	"sync"

	"car-sales/models"
)

type fakeSource struct {
	name     string
	listings []*models.Listing
	err      error

	mu      sync.Mutex
	filters []models.Filter
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Query(_ context.Context, filter models.Filter) ([]*models.Listing, error) {
	f.mu.Lock()
	f.filters = append(f.filters, filter)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.listings, nil
}

type fakeExprStore struct {
	fakeSource
	exprErr map[string]error
	exprs   []string
}

func (f *fakeExprStore) QuerySQL(_ context.Context, expr string, limit int) ([]*models.Listing, error) {
	f.mu.Lock()
	f.exprs = append(f.exprs, expr)
	f.mu.Unlock()
	if err, ok := f.exprErr[expr]; ok {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	if len(f.listings) > limit {
		return f.listings[:limit], nil
	}
	return f.listings, nil
}

// fakeCompleter answers prompts in order; a nil reply slot means "return err".
type fakeCompleter struct {
	replies []string
	err     error

	mu      sync.Mutex
	prompts []string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if len(f.replies) == 0 {
		return "", f.err
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	if r == "" {
		return "", f.err
	}
	return r, nil
}
