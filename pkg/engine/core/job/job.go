// Package job declares the asynchronous job-scheduling port used to run
// batch workers out of band, and the execution context resource that defers
// scheduling until the submitting transaction has committed.
package job

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Job is one unit of asynchronous work: a batch id and the handler that processes it.
type Job struct {
	ID          string
	HandlerType string
	BatchID     string
	// Attempt is 1 for the first execution and grows with each retry.
	Attempt     int
	SubmittedAt time.Time
}

// NewJob creates a Job for batchID handled by handlerType.
func NewJob(handlerType, batchID string) Job {
	return Job{
		ID:          uuid.New().String(),
		HandlerType: handlerType,
		BatchID:     batchID,
		Attempt:     1,
		SubmittedAt: time.Now(),
	}
}

// Handler processes jobs of one type.
type Handler interface {
	// Type is the handler reference stored in Job.HandlerType.
	Type() string
	// Handle processes the job. A returned error is retried according to the
	// scheduler's policy.
	Handle(ctx context.Context, j Job) error
	// OnExhausted is called once when the scheduler stops retrying j.
	OnExhausted(ctx context.Context, j Job, cause error) error
}

// Scheduler accepts jobs and guarantees at-least-once execution.
type Scheduler interface {
	Submit(ctx context.Context, j Job) error
	RegisterHandler(h Handler)
}
