package logging

import (
	"context"

	model "github.com/tigerroll/caseflow/pkg/engine/core/domain/model"
	"github.com/tigerroll/caseflow/pkg/engine/core/migration"
	logger "github.com/tigerroll/caseflow/pkg/engine/support/util/logger"
)

type LoggingBatchListener struct{}

func NewLoggingBatchListener() *LoggingBatchListener {
	return &LoggingBatchListener{}
}

func (l *LoggingBatchListener) OnBatchSubmitted(ctx context.Context, parent *model.Batch, children int) {
	logger.Infof("BatchListener: Submitted - ID: %s, Type: %s, Source: %s, Target: %s, Children: %d, Status: %s",
		parent.ID, parent.Type, parent.SearchKey, parent.SearchKey2, children, parent.Status)
}

func (l *LoggingBatchListener) OnChildCompleted(ctx context.Context, child *model.Batch) {
	logger.Debugf("BatchListener: ChildCompleted - ID: %s, Parent: %s, Instance: %s", child.ID, child.ParentID, child.SearchKey2)
}

func (l *LoggingBatchListener) OnChildFailed(ctx context.Context, child *model.Batch, cause error) {
	logger.Warnf("BatchListener: ChildFailed - ID: %s, Parent: %s, Instance: %s, Cause: %v", child.ID, child.ParentID, child.SearchKey2, cause)
}

func (l *LoggingBatchListener) OnBatchCompleted(ctx context.Context, parent *model.Batch) {
	duration := "n/a"
	if parent.CompleteTime != nil {
		duration = parent.CompleteTime.Sub(parent.CreateTime).String()
	}
	logger.Infof("BatchListener: Completed - ID: %s, Type: %s, Children: %d, Duration: %s", parent.ID, parent.Type, len(parent.Children), duration)
}

var _ migration.BatchListener = (*LoggingBatchListener)(nil)
