package job

import (
	"context"

	"github.com/tigerroll/caseflow/pkg/engine/core/command"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/logger"
)

// SessionResourceKind is the ExecutionContext resource kind of Session.
const SessionResourceKind = "job-session"

// Session collects jobs scheduled during a dispatch and hands them to the
// Scheduler once the transaction has committed, so that workers only ever see
// committed batch records. Jobs of a rolled back dispatch are discarded.
type Session struct {
	scheduler Scheduler
	pending   []Job
}

// NewSessionRegistration returns the ResourceRegistration of the job session.
func NewSessionRegistration(scheduler Scheduler) command.ResourceRegistration {
	return command.ResourceRegistration{
		Kind: SessionResourceKind,
		Factory: func(ec *command.ExecutionContext) (command.Resource, error) {
			s := &Session{scheduler: scheduler}
			ec.AddCloseListener(command.CloseListenerFuncs{
				OnCommit: func(*command.ExecutionContext) { s.submitPending() },
				OnRollback: func(_ *command.ExecutionContext, cause error) {
					if len(s.pending) > 0 {
						logger.Debugf("Discarding %d scheduled job(s) after rollback: %v", len(s.pending), cause)
					}
					s.pending = nil
				},
			})
			return s, nil
		},
	}
}

// SessionFrom returns the job session of ec.
func SessionFrom(ec *command.ExecutionContext) (*Session, error) {
	return command.ResourceAs[*Session](ec, SessionResourceKind)
}

// Schedule queues j for submission after commit.
func (s *Session) Schedule(j Job) {
	s.pending = append(s.pending, j)
}

// Pending returns the number of queued jobs.
func (s *Session) Pending() int {
	return len(s.pending)
}

// Flush has nothing to write; jobs are submitted after commit.
func (s *Session) Flush(ctx context.Context) error {
	return nil
}

// Close drops anything still queued.
func (s *Session) Close() error {
	s.pending = nil
	return nil
}

func (s *Session) submitPending() {
	jobs := s.pending
	s.pending = nil
	for _, j := range jobs {
		// The scheduler runs jobs on its own context; the dispatch context is done.
		if err := s.scheduler.Submit(context.Background(), j); err != nil {
			logger.Errorf("Failed to submit job %s for batch %s: %v", j.ID, j.BatchID, err)
		}
	}
	if len(jobs) > 0 {
		logger.Debugf("Submitted %d job(s) after commit.", len(jobs))
	}
}
