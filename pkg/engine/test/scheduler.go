package test

import (
	"context"
	"sync"

	"github.com/tigerroll/caseflow/pkg/engine/core/job"
)

// RecordingScheduler is a job.Scheduler that keeps submitted jobs instead of running them.
// Tests drain it with RunAll to execute the workers deterministically.
type RecordingScheduler struct {
	mu       sync.Mutex
	handlers map[string]job.Handler
	jobs     []job.Job
	// SubmitErr, when set, is returned by Submit.
	SubmitErr error
}

func NewRecordingScheduler() *RecordingScheduler {
	return &RecordingScheduler{handlers: map[string]job.Handler{}}
}

func (s *RecordingScheduler) RegisterHandler(h job.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[h.Type()] = h
}

func (s *RecordingScheduler) Submit(ctx context.Context, j job.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SubmitErr != nil {
		return s.SubmitErr
	}
	s.jobs = append(s.jobs, j)
	return nil
}

// Jobs returns a copy of the pending jobs.
func (s *RecordingScheduler) Jobs() []job.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]job.Job(nil), s.jobs...)
}

// RunAll runs every pending job once, in submission order, and clears the queue.
// A handler error triggers OnExhausted immediately. The first error of
// OnExhausted is returned.
func (s *RecordingScheduler) RunAll(ctx context.Context) error {
	s.mu.Lock()
	pending := s.jobs
	s.jobs = nil
	s.mu.Unlock()

	for _, j := range pending {
		s.mu.Lock()
		h, ok := s.handlers[j.HandlerType]
		s.mu.Unlock()
		if !ok {
			continue
		}
		if err := h.Handle(ctx, j); err != nil {
			if exErr := h.OnExhausted(ctx, j, err); exErr != nil {
				return exErr
			}
		}
	}
	return nil
}

var _ job.Scheduler = (*RecordingScheduler)(nil)
