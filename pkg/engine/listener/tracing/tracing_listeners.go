package tracing

import (
	"context"

	model "github.com/tigerroll/caseflow/pkg/engine/core/domain/model"
	"github.com/tigerroll/caseflow/pkg/engine/core/metrics"
	"github.com/tigerroll/caseflow/pkg/engine/core/migration"
)

// TracingBatchListener adds batch transitions as events to the span active in ctx.
// Listeners run after commit but still inside the dispatch span.
type TracingBatchListener struct {
	tracer metrics.Tracer
}

func NewTracingBatchListener(tracer metrics.Tracer) *TracingBatchListener {
	return &TracingBatchListener{tracer: tracer}
}

func (l *TracingBatchListener) OnBatchSubmitted(ctx context.Context, parent *model.Batch, children int) {
	l.tracer.RecordEvent(ctx, "batch.submitted", map[string]interface{}{
		"caseflow.batch.id":       parent.ID,
		"caseflow.batch.type":     parent.Type,
		"caseflow.batch.children": children,
	})
}

func (l *TracingBatchListener) OnChildCompleted(ctx context.Context, child *model.Batch) {
	l.tracer.RecordEvent(ctx, "batch.child.completed", childAttributes(child))
}

func (l *TracingBatchListener) OnChildFailed(ctx context.Context, child *model.Batch, cause error) {
	l.tracer.RecordEvent(ctx, "batch.child.failed", childAttributes(child))
	if cause != nil {
		l.tracer.RecordError(ctx, "TracingBatchListener", cause)
	}
}

func (l *TracingBatchListener) OnBatchCompleted(ctx context.Context, parent *model.Batch) {
	l.tracer.RecordEvent(ctx, "batch.completed", map[string]interface{}{
		"caseflow.batch.id":   parent.ID,
		"caseflow.batch.type": parent.Type,
	})
}

func childAttributes(child *model.Batch) map[string]interface{} {
	return map[string]interface{}{
		"caseflow.batch.id":        child.ID,
		"caseflow.batch.parent_id": child.ParentID,
		"caseflow.instance.id":     child.SearchKey2,
	}
}

var _ migration.BatchListener = (*TracingBatchListener)(nil)
