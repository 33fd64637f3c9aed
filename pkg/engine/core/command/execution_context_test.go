package command_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/caseflow/pkg/engine/core/command"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/exception"
)

type recordingResource struct {
	name     string
	log      *[]string
	flushErr error
}

func (r *recordingResource) Flush(ctx context.Context) error {
	*r.log = append(*r.log, "flush "+r.name)
	return r.flushErr
}

func (r *recordingResource) Close() error {
	*r.log = append(*r.log, "close "+r.name)
	return nil
}

func resourceFactory(name string, log *[]string, flushErr error) command.ResourceFactory {
	return func(ec *command.ExecutionContext) (command.Resource, error) {
		return &recordingResource{name: name, log: log, flushErr: flushErr}, nil
	}
}

func TestExecutionContext_ResourcesFlushAndCloseInOrder(t *testing.T) {
	tm, _ := newTxManager()
	var log []string
	exec := command.New(tm,
		command.WithResource("a", resourceFactory("a", &log, nil)),
		command.WithResource("b", resourceFactory("b", &log, nil)),
	)

	_, err := command.Execute(context.Background(), exec, command.CommandFunc[bool](func(ec *command.ExecutionContext) (bool, error) {
		b, err := ec.Resource("b")
		require.NoError(t, err)
		a, err := command.ResourceAs[*recordingResource](ec, "a")
		require.NoError(t, err)
		again, err := ec.Resource("b")
		require.NoError(t, err)
		assert.Same(t, b, again)
		assert.Equal(t, "a", a.name)
		return true, nil
	}))

	require.NoError(t, err)
	assert.Equal(t, []string{"flush b", "flush a", "close a", "close b"}, log)
}

func TestExecutionContext_FlushFailureRollsBack(t *testing.T) {
	tm, _ := newTxManager()
	var log []string
	flushErr := errors.New("queue full")
	exec := command.New(tm, command.WithResource("jobs", resourceFactory("jobs", &log, flushErr)))

	_, err := command.Execute(context.Background(), exec, command.CommandFunc[bool](func(ec *command.ExecutionContext) (bool, error) {
		_, err := ec.Resource("jobs")
		return err == nil, err
	}))

	assert.True(t, exception.IsKind(err, exception.KindTransaction))
	assert.ErrorIs(t, err, flushErr)
	assert.Equal(t, []string{"flush jobs", "close jobs"}, log)
	tm.AssertNumberOfCalls(t, "Rollback", 1)
	tm.AssertNotCalled(t, "Commit", mock.Anything)
}

func TestExecutionContext_UnknownResourceAndAttributes(t *testing.T) {
	tm, _ := newTxManager()
	exec := command.New(tm)

	_, err := command.Execute(context.Background(), exec, command.CommandFunc[bool](func(ec *command.ExecutionContext) (bool, error) {
		_, err := ec.Resource("missing")
		assert.True(t, exception.IsInvalidArgument(err))

		_, ok := ec.Attribute("k")
		assert.False(t, ok)
		ec.SetAttribute("k", 1)
		v, ok := ec.Attribute("k")
		assert.True(t, ok)
		assert.Equal(t, 1, v)
		return true, nil
	}))
	require.NoError(t, err)
}

func TestExecutionContext_FirstRollbackCauseWins(t *testing.T) {
	tm, _ := newTxManager()
	exec := command.New(tm)
	first, second := errors.New("first"), errors.New("second")

	_, err := command.Execute(context.Background(), exec, command.CommandFunc[bool](func(ec *command.ExecutionContext) (bool, error) {
		ec.SetRollbackOnly(first)
		ec.SetRollbackOnly(second)
		return true, nil
	}))
	assert.ErrorIs(t, err, first)
	assert.NotErrorIs(t, err, second)
}

func TestPropagationString(t *testing.T) {
	assert.Equal(t, "REQUIRED", command.PropagationRequired.String())
	assert.Equal(t, "REQUIRES_NEW", command.PropagationRequiresNew.String())
	assert.Equal(t, "Propagation(7)", command.Propagation(7).String())
}
