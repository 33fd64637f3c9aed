package job_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/caseflow/pkg/engine/core/command"
	"github.com/tigerroll/caseflow/pkg/engine/core/job"
	"github.com/tigerroll/caseflow/pkg/engine/test"
)

func newExecutor(scheduler job.Scheduler) *command.CommandExecutor {
	tm := new(test.MockTxManager)
	t := new(test.MockTx)
	tm.On("Begin", mock.Anything, mock.Anything).Return(t, nil)
	tm.On("Commit", t).Return(nil)
	tm.On("Rollback", t).Return(nil)
	reg := job.NewSessionRegistration(scheduler)
	return command.New(tm, command.WithResource(reg.Kind, reg.Factory))
}

func TestSession_SubmitsAfterCommit(t *testing.T) {
	scheduler := test.NewRecordingScheduler()
	exec := newExecutor(scheduler)

	_, err := command.Execute(context.Background(), exec, command.CommandFunc[bool](func(ec *command.ExecutionContext) (bool, error) {
		session, err := job.SessionFrom(ec)
		require.NoError(t, err)
		session.Schedule(job.NewJob("validation", "child-1"))
		session.Schedule(job.NewJob("validation", "child-2"))
		assert.Equal(t, 2, session.Pending())
		assert.Empty(t, scheduler.Jobs(), "nothing is submitted before commit")
		return true, nil
	}))
	require.NoError(t, err)

	jobs := scheduler.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "child-1", jobs[0].BatchID)
	assert.Equal(t, "child-2", jobs[1].BatchID)
	assert.Equal(t, 1, jobs[0].Attempt)
	assert.NotEmpty(t, jobs[0].ID)
}

func TestSession_DiscardsOnRollback(t *testing.T) {
	scheduler := test.NewRecordingScheduler()
	exec := newExecutor(scheduler)

	_, err := command.Execute(context.Background(), exec, command.CommandFunc[bool](func(ec *command.ExecutionContext) (bool, error) {
		session, err := job.SessionFrom(ec)
		require.NoError(t, err)
		session.Schedule(job.NewJob("validation", "child-1"))
		return false, errors.New("insert failed")
	}))
	require.Error(t, err)
	assert.Empty(t, scheduler.Jobs())
}

func TestSession_SubmitErrorDoesNotFailCommand(t *testing.T) {
	scheduler := test.NewRecordingScheduler()
	scheduler.SubmitErr = errors.New("scheduler is stopped")
	exec := newExecutor(scheduler)

	ok, err := command.Execute(context.Background(), exec, command.CommandFunc[bool](func(ec *command.ExecutionContext) (bool, error) {
		session, err := job.SessionFrom(ec)
		require.NoError(t, err)
		session.Schedule(job.NewJob("validation", "child-1"))
		return true, nil
	}))
	require.NoError(t, err)
	assert.True(t, ok)
}
