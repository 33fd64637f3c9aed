package metrics

import (
	"context"
	"sync"
	"time"

	"go.uber.org/fx"

	config "github.com/tigerroll/caseflow/pkg/engine/core/config"
	model "github.com/tigerroll/caseflow/pkg/engine/core/domain/model"
	"github.com/tigerroll/caseflow/pkg/engine/core/metrics"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/logger"
)

// MetricEvent is a metric recording deferred to the worker goroutine.
type MetricEvent struct {
	Type     string
	Batch    *model.Batch
	Children int
	Name     string // command name, handler type or duration name
	Outcome  string
	Duration time.Duration
	Tags     map[string]string
}

// Metric event type constants
const (
	MetricEventTypeCommand        = "command"
	MetricEventTypeBatchSubmitted = "batch_submitted"
	MetricEventTypeChildFinished  = "child_finished"
	MetricEventTypeBatchCompleted = "batch_completed"
	MetricEventTypeJobAttempt     = "job_attempt"
	MetricEventTypeRecordDuration = "record_duration"
)

const defaultBufferSize = 100

// AsyncMetricRecorder asynchronously records metrics by pushing events to a channel
// and processing them in a separate goroutine.
type AsyncMetricRecorder struct {
	eventQueue   chan MetricEvent
	stopCh       chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup
	syncRecorder metrics.MetricRecorder
}

// NewAsyncMetricRecorder creates a new asynchronous metric recorder.
// bufferSize: The buffer size for the event queue. If 0 or less, a default value is used.
// syncRec: The synchronous recorder that performs the actual metric recording.
func NewAsyncMetricRecorder(bufferSize int, syncRec metrics.MetricRecorder) *AsyncMetricRecorder {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	r := &AsyncMetricRecorder{
		eventQueue:   make(chan MetricEvent, bufferSize),
		stopCh:       make(chan struct{}),
		syncRecorder: syncRec,
	}
	r.wg.Add(1)
	go r.run()
	logger.Debugf("AsyncMetricRecorder: Worker goroutine started (buffer size: %d).", bufferSize)
	return r
}

func (r *AsyncMetricRecorder) run() {
	defer r.wg.Done()
	for {
		select {
		case event := <-r.eventQueue:
			r.processEvent(event)
		case <-r.stopCh:
			// Drain what is already queued before exiting.
			remaining := len(r.eventQueue)
			for i := 0; i < remaining; i++ {
				r.processEvent(<-r.eventQueue)
			}
			logger.Debugf("AsyncMetricRecorder: Worker goroutine stopped. Processed %d remaining events.", remaining)
			return
		}
	}
}

// processEvent runs with a background context; the caller's context may be
// cancelled long before the event is dequeued.
func (r *AsyncMetricRecorder) processEvent(event MetricEvent) {
	ctx := context.Background()
	switch event.Type {
	case MetricEventTypeCommand:
		r.syncRecorder.RecordCommand(ctx, event.Name, event.Outcome, event.Duration)
	case MetricEventTypeBatchSubmitted:
		r.syncRecorder.RecordBatchSubmitted(ctx, event.Batch, event.Children)
	case MetricEventTypeChildFinished:
		r.syncRecorder.RecordChildFinished(ctx, event.Batch)
	case MetricEventTypeBatchCompleted:
		r.syncRecorder.RecordBatchCompleted(ctx, event.Batch)
	case MetricEventTypeJobAttempt:
		r.syncRecorder.RecordJobAttempt(ctx, event.Name, event.Outcome, event.Duration)
	case MetricEventTypeRecordDuration:
		r.syncRecorder.RecordDuration(ctx, event.Name, event.Duration, event.Tags)
	default:
		logger.Warnf("AsyncMetricRecorder: Unknown metric event type: %s", event.Type)
	}
}

// Close stops the worker after processing the events already queued. It is
// safe to call more than once.
func (r *AsyncMetricRecorder) Close() {
	r.stopOnce.Do(func() {
		logger.Debugf("AsyncMetricRecorder: Sending shutdown signal...")
		close(r.stopCh)
	})
	r.wg.Wait()
}

// sendEvent enqueues event, dropping it with a warning when the queue is full.
func (r *AsyncMetricRecorder) sendEvent(event MetricEvent, id string) {
	select {
	case r.eventQueue <- event:
	default:
		logger.Warnf("AsyncMetricRecorder: Event queue is full (type: %s, ID: %s). Event discarded.", event.Type, id)
	}
}

func (r *AsyncMetricRecorder) RecordCommand(ctx context.Context, commandName string, outcome string, duration time.Duration) {
	r.sendEvent(MetricEvent{Type: MetricEventTypeCommand, Name: commandName, Outcome: outcome, Duration: duration}, commandName)
}

// Batches are cloned because the caller keeps mutating its copy after commit.
func (r *AsyncMetricRecorder) RecordBatchSubmitted(ctx context.Context, batch *model.Batch, children int) {
	if batch == nil {
		return
	}
	r.sendEvent(MetricEvent{Type: MetricEventTypeBatchSubmitted, Batch: batch.Clone(), Children: children}, batch.ID)
}

func (r *AsyncMetricRecorder) RecordChildFinished(ctx context.Context, child *model.Batch) {
	if child == nil {
		return
	}
	r.sendEvent(MetricEvent{Type: MetricEventTypeChildFinished, Batch: child.Clone()}, child.ID)
}

func (r *AsyncMetricRecorder) RecordBatchCompleted(ctx context.Context, batch *model.Batch) {
	if batch == nil {
		return
	}
	r.sendEvent(MetricEvent{Type: MetricEventTypeBatchCompleted, Batch: batch.Clone()}, batch.ID)
}

func (r *AsyncMetricRecorder) RecordJobAttempt(ctx context.Context, handlerType string, outcome string, duration time.Duration) {
	r.sendEvent(MetricEvent{Type: MetricEventTypeJobAttempt, Name: handlerType, Outcome: outcome, Duration: duration}, handlerType)
}

func (r *AsyncMetricRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	r.sendEvent(MetricEvent{Type: MetricEventTypeRecordDuration, Name: name, Duration: duration, Tags: tags}, name)
}

var _ metrics.MetricRecorder = (*AsyncMetricRecorder)(nil)

// NewAsyncMetricRecorderWrapper is a helper function for use with fx.Decorate.
// The wrapper is closed on application stop.
func NewAsyncMetricRecorderWrapper(lc fx.Lifecycle, cfg *config.Config, syncRecorder metrics.MetricRecorder) metrics.MetricRecorder {
	asyncRecorder := NewAsyncMetricRecorder(cfg.Caseflow.Metrics.AsyncBufferSize, syncRecorder)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			asyncRecorder.Close()
			return nil
		},
	})
	logger.Debugf("MetricRecorder decorated with asynchronous wrapper.")
	return asyncRecorder
}
