package retry_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	config "github.com/tigerroll/caseflow/pkg/engine/core/config"
	"github.com/tigerroll/caseflow/pkg/engine/core/retry"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/exception"
)

func TestExponentialPolicy_Backoff(t *testing.T) {
	p := retry.NewExponentialPolicy(config.RetryConfig{MaxAttempts: 5, InitialInterval: 100, MaxInterval: 500, Factor: 2}, nil)

	assert.Equal(t, 5, p.MaxAttempts())
	assert.Equal(t, 100*time.Millisecond, p.Backoff(0))
	assert.Equal(t, 100*time.Millisecond, p.Backoff(1))
	assert.Equal(t, 200*time.Millisecond, p.Backoff(2))
	assert.Equal(t, 400*time.Millisecond, p.Backoff(3))
	assert.Equal(t, 500*time.Millisecond, p.Backoff(4))
	assert.Equal(t, 500*time.Millisecond, p.Backoff(60))
}

func TestExponentialPolicy_NormalizesConfig(t *testing.T) {
	p := retry.NewExponentialPolicy(config.RetryConfig{InitialInterval: 10, Factor: 0.5}, nil)
	assert.Equal(t, 1, p.MaxAttempts())
	assert.Equal(t, 10*time.Millisecond, p.Backoff(3))
}

func TestExponentialPolicy_ShouldRetry(t *testing.T) {
	p := retry.NewExponentialPolicy(config.RetryConfig{
		MaxAttempts:         3,
		RetryableExceptions: []string{"context.DeadlineExceeded"},
	}, exception.IsOptimisticLockingFailure)

	assert.False(t, p.ShouldRetry(nil))
	assert.True(t, p.ShouldRetry(exception.NewOptimisticLockingFailureException("repo", "stale", nil)))
	assert.True(t, p.ShouldRetry(fmt.Errorf("validate: %w", context.DeadlineExceeded)))
	assert.False(t, p.ShouldRetry(context.Canceled))
	assert.False(t, p.ShouldRetry(errors.New("syntax error")))
}

func TestNeverRetry(t *testing.T) {
	var p retry.RetryPolicy = retry.NeverRetry{}
	assert.Equal(t, 1, p.MaxAttempts())
	assert.False(t, p.ShouldRetry(errors.New("x")))
	assert.Zero(t, p.Backoff(3))
}
