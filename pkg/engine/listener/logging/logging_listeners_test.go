package logging_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	model "github.com/tigerroll/caseflow/pkg/engine/core/domain/model"
	"github.com/tigerroll/caseflow/pkg/engine/listener/logging"
)

func TestLoggingBatchListener_HandlesEveryTransition(t *testing.T) {
	l := logging.NewLoggingBatchListener()
	ctx := context.Background()

	parent := model.NewBatch(model.BatchTypeMigrationValidation)
	child := model.NewChildBatch(parent, 0)

	assert.NotPanics(t, func() {
		l.OnBatchSubmitted(ctx, parent, 1)
		l.OnChildCompleted(ctx, child)
		l.OnChildFailed(ctx, child, errors.New("boom"))
		// no CompleteTime yet
		l.OnBatchCompleted(ctx, parent)

		done := parent.CreateTime.Add(time.Second)
		parent.CompleteTime = &done
		l.OnBatchCompleted(ctx, parent)
	})
}
