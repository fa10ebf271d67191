package models

// QueryResult is the caller-facing outcome of a listing query, whichever
// backing source served it.
type QueryResult struct {
	Listings []*Listing `json:"listings"`
	Source   string     `json:"source"`
	Degraded bool       `json:"degraded"`
	// Fallbacks names the failure kinds that were absorbed on the way.
	Fallbacks []string `json:"fallbacks,omitempty"`
}

// Empty reports whether the query matched nothing.
func (r *QueryResult) Empty() bool {
	return r == nil || len(r.Listings) == 0
}

// Answer is the response to a free-text question.
type Answer struct {
	Question   string       `json:"question"`
	Expression string       `json:"expression"`
	Result     *QueryResult `json:"result"`
	Summary    string       `json:"summary"`
	Fallbacks  []string     `json:"fallbacks,omitempty"`
}

// Recommendation is a budget-constrained shortlist with a one-line tip.
type Recommendation struct {
	Result *QueryResult `json:"result"`
	Tip    string       `json:"tip"`
}

// InsightReport holds the computed analytics over a result set.
type InsightReport struct {
	TotalSeries     int
	TotalSales      int64
	AverageMinPrice float64
	LowestMinPrice  float64
	HighestMinPrice float64
	TopSeller       *Listing
	BestValue       *Listing
	TopSellers      []*Listing
	SalesByCategory map[string]int64
}
