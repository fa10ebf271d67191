package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Fallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "car_sales_fallbacks_total",
			Help: "Failures absorbed by a fallback path, by failure kind and operation",
		},
		[]string{"kind", "op"},
	)

	ListingsIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "car_sales_ingested_total",
			Help: "Listings written to the store after normalisation and deduplication",
		},
	)

	LLMRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "car_sales_llm_requests_total",
			Help: "Language model requests by purpose and outcome",
		},
		[]string{"purpose", "outcome"},
	)

	Queries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "car_sales_queries_total",
			Help: "Listing queries by serving source",
		},
		[]string{"source"},
	)
)
