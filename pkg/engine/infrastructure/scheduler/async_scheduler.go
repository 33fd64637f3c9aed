// Package scheduler provides the in-process job scheduler: an unbounded
// backlog fed through a bounded hand-off queue to a fixed pool of worker
// goroutines, with retry and backoff.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tigerroll/caseflow/pkg/engine/core/job"
	"github.com/tigerroll/caseflow/pkg/engine/core/metrics"
	"github.com/tigerroll/caseflow/pkg/engine/core/retry"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/exception"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/logger"
)

// ErrSchedulerStopped is returned by Submit after Stop.
var ErrSchedulerStopped = exception.NewEngineError("AsyncScheduler", exception.KindInternal, "scheduler is stopped", nil, false)

// Options configures an AsyncScheduler.
type Options struct {
	Workers   int
	QueueSize int
	Policy    retry.RetryPolicy
	Recorder  metrics.MetricRecorder
	Tracer    metrics.Tracer
}

// AsyncScheduler implements job.Scheduler.
//
// Every accepted job runs until its handler succeeds, the retry policy gives
// up (the handler's OnExhausted is then called), or the scheduler stops.
// Submit never waits for workers: accepted jobs wait in the backlog, and a
// dispatcher goroutine moves them to the QueueSize hand-off channel. Jobs
// still waiting at Stop are dropped.
type AsyncScheduler struct {
	opts Options

	handlersMu sync.RWMutex
	handlers   map[string]job.Handler

	queue  chan job.Job
	wake   chan struct{}
	stopCh chan struct{}
	wg     sync.WaitGroup

	mu      sync.Mutex
	backlog []job.Job
	started bool
	stopped bool
	timers  map[*time.Timer]struct{}

	baseCtx context.Context
	cancel  context.CancelFunc
}

// NewAsyncScheduler creates a stopped scheduler. Call Start to run workers.
func NewAsyncScheduler(opts Options) *AsyncScheduler {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.Policy == nil {
		opts.Policy = retry.NeverRetry{}
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NewNoOpMetricRecorder()
	}
	if opts.Tracer == nil {
		opts.Tracer = metrics.NewNoOpTracer()
	}
	baseCtx, cancel := context.WithCancel(context.Background())
	return &AsyncScheduler{
		opts:     opts,
		handlers: make(map[string]job.Handler),
		queue:    make(chan job.Job, opts.QueueSize),
		wake:     make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		timers:   make(map[*time.Timer]struct{}),
		baseCtx:  baseCtx,
		cancel:   cancel,
	}
}

// RegisterHandler makes h serve jobs of h.Type(), replacing any previous handler.
func (s *AsyncScheduler) RegisterHandler(h job.Handler) {
	s.handlersMu.Lock()
	defer s.handlersMu.Unlock()
	if _, exists := s.handlers[h.Type()]; exists {
		logger.Warnf("AsyncScheduler: Handler for type '%s' already registered. Overwriting.", h.Type())
	}
	s.handlers[h.Type()] = h
}

// Start launches the workers. Calling it again has no effect.
func (s *AsyncScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped {
		return
	}
	s.started = true
	s.wg.Add(1)
	go s.dispatch()
	for i := 0; i < s.opts.Workers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
	logger.Infof("AsyncScheduler: Started %d worker(s) (queue size: %d).", s.opts.Workers, s.opts.QueueSize)
}

// Submit adds j to the backlog and returns at once. Jobs submitted before
// Start run once the scheduler starts.
func (s *AsyncScheduler) Submit(ctx context.Context, j job.Job) error {
	if err := ctx.Err(); err != nil {
		return exception.NewTemporaryError("AsyncScheduler", fmt.Sprintf("could not enqueue job %s", j.ID), err)
	}
	if j.Attempt < 1 {
		j.Attempt = 1
	}
	if j.SubmittedAt.IsZero() {
		j.SubmittedAt = time.Now()
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrSchedulerStopped
	}
	s.backlog = append(s.backlog, j)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return nil
}

// Pending returns the number of accepted jobs no worker has picked up yet.
func (s *AsyncScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.backlog) + len(s.queue)
}

// dispatch feeds the backlog to the workers in submission order.
func (s *AsyncScheduler) dispatch() {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		var next job.Job
		ok := len(s.backlog) > 0
		if ok {
			next = s.backlog[0]
		}
		s.mu.Unlock()

		if !ok {
			select {
			case <-s.wake:
				continue
			case <-s.stopCh:
				return
			}
		}

		select {
		case s.queue <- next:
			s.mu.Lock()
			s.backlog[0] = job.Job{}
			s.backlog = s.backlog[1:]
			s.mu.Unlock()
		case <-s.stopCh:
			return
		}
	}
}

// Stop stops accepting jobs, cancels pending retries and waits for running
// jobs until ctx is done. Handlers still running then see their context cancelled.
func (s *AsyncScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	close(s.stopCh)
	for t := range s.timers {
		t.Stop()
	}
	cancelledRetries := len(s.timers)
	s.timers = make(map[*time.Timer]struct{})
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	defer s.cancel()
	select {
	case <-done:
		if dropped := s.Pending(); dropped > 0 || cancelledRetries > 0 {
			logger.Warnf("AsyncScheduler: Stopped with %d queued job(s) and %d pending retry(ies) dropped.", dropped, cancelledRetries)
		}
		logger.Infof("AsyncScheduler: Stopped.")
		return nil
	case <-ctx.Done():
		return exception.NewEngineError("AsyncScheduler", exception.KindInternal, "timed out waiting for running jobs", ctx.Err(), false)
	}
}

func (s *AsyncScheduler) worker(id int) {
	defer s.wg.Done()
	for {
		select {
		case <-s.stopCh:
			return
		case j := <-s.queue:
			s.process(j)
		}
	}
}

func (s *AsyncScheduler) handlerFor(handlerType string) (job.Handler, bool) {
	s.handlersMu.RLock()
	defer s.handlersMu.RUnlock()
	h, ok := s.handlers[handlerType]
	return h, ok
}

func (s *AsyncScheduler) process(j job.Job) {
	h, ok := s.handlerFor(j.HandlerType)
	if !ok {
		logger.Errorf("AsyncScheduler: No handler registered for job type '%s'; dropping job %s (batch %s).", j.HandlerType, j.ID, j.BatchID)
		return
	}

	ctx, end := s.opts.Tracer.StartJobSpan(s.baseCtx, j.HandlerType, j.BatchID, j.Attempt)
	start := time.Now()
	err := safeHandle(ctx, h, j)
	end()
	duration := time.Since(start)

	if err == nil {
		s.opts.Recorder.RecordJobAttempt(ctx, j.HandlerType, metrics.OutcomeSuccess, duration)
		return
	}
	s.opts.Tracer.RecordError(ctx, "AsyncScheduler", err)

	policy := s.opts.Policy
	if j.Attempt < policy.MaxAttempts() && policy.ShouldRetry(err) {
		s.opts.Recorder.RecordJobAttempt(ctx, j.HandlerType, metrics.OutcomeRetry, duration)
		delay := policy.Backoff(j.Attempt)
		logger.Warnf("AsyncScheduler: Job %s (batch %s) attempt %d failed, retrying in %v: %v", j.ID, j.BatchID, j.Attempt, delay, err)
		next := j
		next.Attempt++
		s.retryAfter(next, delay)
		return
	}

	s.opts.Recorder.RecordJobAttempt(ctx, j.HandlerType, metrics.OutcomeFailure, duration)
	logger.Errorf("AsyncScheduler: Job %s (batch %s) gave up after %d attempt(s): %v", j.ID, j.BatchID, j.Attempt, err)
	s.exhaust(ctx, h, j, err)
}

// exhaust calls OnExhausted, repeating it with backoff while it fails, so that
// the job's batch still reaches a terminal state after a transient outage.
func (s *AsyncScheduler) exhaust(ctx context.Context, h job.Handler, j job.Job, cause error) {
	policy := s.opts.Policy
	for attempt := 1; ; attempt++ {
		err := h.OnExhausted(ctx, j, cause)
		if err == nil {
			return
		}
		if attempt >= policy.MaxAttempts() {
			logger.Errorf("AsyncScheduler: OnExhausted of job %s (batch %s) failed %d time(s); giving up: %v", j.ID, j.BatchID, attempt, err)
			return
		}
		logger.Warnf("AsyncScheduler: OnExhausted of job %s (batch %s) failed: %v", j.ID, j.BatchID, err)
		timer := time.NewTimer(policy.Backoff(attempt))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

func (s *AsyncScheduler) retryAfter(j job.Job, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, t)
		s.mu.Unlock()
		if err := s.Submit(s.baseCtx, j); err != nil {
			logger.Warnf("AsyncScheduler: Could not resubmit job %s (batch %s): %v", j.ID, j.BatchID, err)
		}
	})
	s.timers[t] = struct{}{}
}

// safeHandle turns a handler panic into an error.
func safeHandle(ctx context.Context, h job.Handler, j job.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = exception.NewEngineError("AsyncScheduler", exception.KindInternal, fmt.Sprintf("handler '%s' panicked: %v", j.HandlerType, r), nil, false)
		}
	}()
	return h.Handle(ctx, j)
}

var _ job.Scheduler = (*AsyncScheduler)(nil)
