package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"car-sales/llm"
	"car-sales/storage"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want FailureKind
	}{
		{fmt.Errorf("postgres: %w: refused", storage.ErrUnavailable), KindSourceUnavailable},
		{errors.New(`syntax error at or near "FROM"`), KindQueryFailed},
		{fmt.Errorf("%w: not a SELECT", ErrUnusableExpression), KindUnusableOutput},
		{llm.ErrEmptyCompletion, KindUnusableOutput},
		{fmt.Errorf("%w 500: boom", llm.ErrStatus), KindDelegationFailed},
		{fmt.Errorf("%w: timeout", llm.ErrRequest), KindDelegationFailed},
		{llm.ErrDisabled, KindDelegationFailed},
	}
	for _, tt := range tests {
		f := Classify("op", tt.err)
		assert.Equal(t, tt.want, f.Kind, "Classify(%v)", tt.err)
		assert.ErrorIs(t, f, tt.err)
	}
}

func TestClassifyKeepsExistingFailure(t *testing.T) {
	inner := &Failure{Kind: KindSourceUnavailable, Op: "degraded_query", Err: errors.New("x")}
	got := Classify("outer", fmt.Errorf("wrapped: %w", inner))
	assert.Same(t, inner, got)
	assert.Nil(t, Classify("op", nil))
}
