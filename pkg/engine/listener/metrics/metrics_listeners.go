package metrics

import (
	"context"

	model "github.com/tigerroll/caseflow/pkg/engine/core/domain/model"
	"github.com/tigerroll/caseflow/pkg/engine/core/metrics"
	"github.com/tigerroll/caseflow/pkg/engine/core/migration"
)

// MetricsBatchListener forwards committed batch transitions to a MetricRecorder.
type MetricsBatchListener struct {
	recorder metrics.MetricRecorder
}

func NewMetricsBatchListener(recorder metrics.MetricRecorder) *MetricsBatchListener {
	return &MetricsBatchListener{recorder: recorder}
}

func (l *MetricsBatchListener) OnBatchSubmitted(ctx context.Context, parent *model.Batch, children int) {
	l.recorder.RecordBatchSubmitted(ctx, parent, children)
}

func (l *MetricsBatchListener) OnChildCompleted(ctx context.Context, child *model.Batch) {
	l.recorder.RecordChildFinished(ctx, child)
}

func (l *MetricsBatchListener) OnChildFailed(ctx context.Context, child *model.Batch, cause error) {
	l.recorder.RecordChildFinished(ctx, child)
}

func (l *MetricsBatchListener) OnBatchCompleted(ctx context.Context, parent *model.Batch) {
	l.recorder.RecordBatchCompleted(ctx, parent)
}

var _ migration.BatchListener = (*MetricsBatchListener)(nil)
