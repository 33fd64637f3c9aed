// Package retry provides the retry policies used by the command executor
// (conflict retry) and the job scheduler (worker retry).
package retry

import (
	"math"
	"time"

	config "github.com/tigerroll/caseflow/pkg/engine/core/config"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/exception"
)

// RetryPolicy decides whether and when a failed attempt is repeated.
type RetryPolicy interface {
	// ShouldRetry determines if err is retryable.
	ShouldRetry(err error) bool
	// Backoff returns the wait before attempt+1, for attempt starting at 1.
	Backoff(attempt int) time.Duration
	// MaxAttempts returns the total number of attempts, including the first one.
	MaxAttempts() int
}

// Classifier reports whether an error is retryable regardless of configuration.
type Classifier func(err error) bool

// ExponentialPolicy retries with an exponentially growing, capped interval.
type ExponentialPolicy struct {
	maxAttempts         int
	initialInterval     time.Duration
	maxInterval         time.Duration
	factor              float64
	retryableExceptions []string
	classifier          Classifier
}

// NewExponentialPolicy builds a policy from cfg. classifier may be nil; when
// set, any error it accepts is retryable in addition to the configured names.
func NewExponentialPolicy(cfg config.RetryConfig, classifier Classifier) *ExponentialPolicy {
	p := &ExponentialPolicy{
		maxAttempts:         cfg.MaxAttempts,
		initialInterval:     time.Duration(cfg.InitialInterval) * time.Millisecond,
		maxInterval:         time.Duration(cfg.MaxInterval) * time.Millisecond,
		factor:              cfg.Factor,
		retryableExceptions: cfg.RetryableExceptions,
		classifier:          classifier,
	}
	if p.maxAttempts < 1 {
		p.maxAttempts = 1
	}
	if p.factor < 1 {
		p.factor = 1
	}
	return p
}

// MaxAttempts returns the maximum number of attempts.
func (p *ExponentialPolicy) MaxAttempts() int {
	return p.maxAttempts
}

// ShouldRetry checks the classifier, then the configured exception names.
func (p *ExponentialPolicy) ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if p.classifier != nil && p.classifier(err) {
		return true
	}
	for _, typeName := range p.retryableExceptions {
		if exception.IsErrorOfType(err, typeName) {
			return true
		}
	}
	return false
}

// Backoff returns initialInterval * factor^(attempt-1), capped at maxInterval.
func (p *ExponentialPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(p.initialInterval) * math.Pow(p.factor, float64(attempt-1))
	if p.maxInterval > 0 && d > float64(p.maxInterval) {
		return p.maxInterval
	}
	if d >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

// NeverRetry is a policy with a single attempt.
type NeverRetry struct{}

func (NeverRetry) ShouldRetry(error) bool    { return false }
func (NeverRetry) Backoff(int) time.Duration { return 0 }
func (NeverRetry) MaxAttempts() int          { return 1 }

var (
	_ RetryPolicy = (*ExponentialPolicy)(nil)
	_ RetryPolicy = NeverRetry{}
)
