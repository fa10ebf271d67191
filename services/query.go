package services

import (
	"context"
	"errors"
	"fmt"

	"car-sales/metrics"
	"car-sales/models"
	"car-sales/storage"
	"car-sales/utils"
)

// Limits caps the three kinds of result sets.
type Limits struct {
	Filter    int
	Ask       int
	Recommend int
}

// QueryService answers structured queries from the primary store, falling
// back to the degraded source when the primary fails for any reason.
type QueryService struct {
	primary  storage.ListingSource
	degraded storage.ListingSource
	limits   Limits
	logger   *utils.Logger
}

// NewQueryService wires the two sources. Either may be nil, but not both.
func NewQueryService(primary, degraded storage.ListingSource, limits Limits, logger *utils.Logger) *QueryService {
	return &QueryService{primary: primary, degraded: degraded, limits: limits, logger: logger}
}

// Limits returns the configured caps.
func (q *QueryService) Limits() Limits { return q.limits }

// Search filters by starting price and optional category keyword, capped at the filter limit.
func (q *QueryService) Search(ctx context.Context, minPrice, maxPrice float64, category string) (*models.QueryResult, error) {
	return q.Query(ctx, models.Filter{
		MinPrice: minPrice,
		MaxPrice: maxPrice,
		Category: category,
		Limit:    q.limits.Filter,
	})
}

// Query runs f against the primary source, then the degraded one.
// An empty result is a valid answer, not an error.
func (q *QueryService) Query(ctx context.Context, f models.Filter) (*models.QueryResult, error) {
	var fallbacks []string

	if q.primary != nil {
		listings, err := q.primary.Query(ctx, f)
		if err == nil {
			metrics.Queries.WithLabelValues("primary").Inc()
			return &models.QueryResult{Listings: listings, Source: q.primary.Name()}, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		fallbacks = append(fallbacks, recordFallback(q.logger, Classify("query", err)))
	}

	res, err := q.QueryDegraded(ctx, f)
	if err != nil {
		return nil, err
	}
	res.Fallbacks = append(fallbacks, res.Fallbacks...)
	return res, nil
}

// QueryDegraded skips the primary source.
func (q *QueryService) QueryDegraded(ctx context.Context, f models.Filter) (*models.QueryResult, error) {
	if q.degraded == nil {
		return nil, &Failure{Kind: KindSourceUnavailable, Op: "degraded_query", Err: errors.New("no degraded source configured")}
	}
	listings, err := q.degraded.Query(ctx, f)
	if err != nil {
		return nil, Classify("degraded_query", fmt.Errorf("%s: %w", q.degraded.Name(), err))
	}
	metrics.Queries.WithLabelValues("degraded").Inc()
	return &models.QueryResult{Listings: listings, Source: q.degraded.Name(), Degraded: true}, nil
}

// Recommend returns the best sellers within budget with a one-line tip.
func (q *QueryService) Recommend(ctx context.Context, minPrice, maxPrice float64, category string) (*models.Recommendation, error) {
	res, err := q.Query(ctx, models.Filter{
		MinPrice: minPrice,
		MaxPrice: maxPrice,
		Category: category,
		Limit:    q.limits.Recommend,
	})
	if err != nil {
		return nil, err
	}
	return &models.Recommendation{Result: res, Tip: RecommendationTip(res.Listings)}, nil
}

// RecommendationTip names the best seller of an already sorted shortlist.
func RecommendationTip(listings []*models.Listing) string {
	if len(listings) == 0 {
		return "抱歉，当前数据中没有符合您要求的车型，可以试试放宽预算或更换车型关键词。"
	}
	return fmt.Sprintf("在这个预算范围内，%s 的销量最高，市场认可度最强，建议优先试驾。", listings[0].Series)
}
