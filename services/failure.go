package services

import (
	"errors"
	"fmt"

	"car-sales/llm"
	"car-sales/metrics"
	"car-sales/storage"
	"car-sales/utils"
)

// FailureKind classifies why a fallback path was taken.
type FailureKind string

const (
	KindSourceUnavailable FailureKind = "source_unavailable"
	KindQueryFailed       FailureKind = "query_failed"
	KindDelegationFailed  FailureKind = "delegation_failed"
	KindUnusableOutput    FailureKind = "unusable_output"
)

// Failure is a classified error returned up to the boundary that owns the
// fallback policy.
type Failure struct {
	Kind FailureKind
	Op   string
	Err  error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s: %v", f.Op, f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// ErrUnusableExpression is returned when the model output cannot be run as a query.
var ErrUnusableExpression = errors.New("unusable filter expression")

// Classify wraps err into a Failure for op, deriving the kind from the error chain.
func Classify(op string, err error) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return &Failure{Kind: kindOf(err), Op: op, Err: err}
}

func kindOf(err error) FailureKind {
	switch {
	case errors.Is(err, storage.ErrUnavailable):
		return KindSourceUnavailable
	case errors.Is(err, ErrUnusableExpression), errors.Is(err, llm.ErrEmptyCompletion):
		return KindUnusableOutput
	case errors.Is(err, llm.ErrRequest), errors.Is(err, llm.ErrStatus), errors.Is(err, llm.ErrDisabled):
		return KindDelegationFailed
	}
	return KindQueryFailed
}

// recordFallback logs and counts a failure that is about to be absorbed.
func recordFallback(logger *utils.Logger, f *Failure) string {
	logger.Warn("[fallback] %s failed (%s): %v", f.Op, f.Kind, f.Err)
	metrics.Fallbacks.WithLabelValues(string(f.Kind), f.Op).Inc()
	return string(f.Kind)
}
