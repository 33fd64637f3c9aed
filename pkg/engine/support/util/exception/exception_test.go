package exception_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tigerroll/caseflow/pkg/engine/support/util/exception"
)

type CustomError struct {
	Msg string
}

func (e *CustomError) Error() string {
	return fmt.Sprintf("CustomError: %s", e.Msg)
}

func TestNewEngineError(t *testing.T) {
	originalErr := errors.New("db connection refused")
	ee := exception.NewEngineError("db", exception.KindTransaction, "failed to begin", originalErr, true)

	assert.Equal(t, "db", ee.Module)
	assert.Equal(t, exception.KindTransaction, ee.Kind)
	assert.Equal(t, originalErr, ee.Unwrap())
	assert.True(t, ee.IsRetryable())
	assert.Equal(t, "[db] failed to begin: db connection refused", ee.Error())
	assert.NotEmpty(t, ee.StackTrace)
}

func TestNewEngineErrorf(t *testing.T) {
	ee1 := exception.NewEngineErrorf("reader", exception.KindNotFound, "batch %d not found", 10)
	assert.Nil(t, ee1.Unwrap())
	assert.False(t, ee1.IsRetryable())
	assert.Equal(t, "[reader] batch 10 not found", ee1.Error())

	cause := errors.New("io error")
	ee2 := exception.NewEngineErrorf("io", exception.KindInternal, "read of %s failed", "b1", cause)
	assert.Equal(t, cause, ee2.Unwrap())
	assert.Equal(t, "read of b1 failed", ee2.Message)
}

func TestKindPredicates(t *testing.T) {
	notFound := exception.NewNotFoundError("repo", "missing", nil)
	assert.True(t, exception.IsNotFound(notFound))
	assert.False(t, exception.IsInvalidArgument(notFound))
	assert.Equal(t, exception.KindNotFound, exception.KindOf(notFound))

	// The kind is found anywhere in the chain, also behind fmt wrapping.
	wrapped := exception.NewWorkerFailureError("worker", "validation failed", fmt.Errorf("ctx: %w", notFound))
	assert.True(t, exception.IsNotFound(wrapped))
	assert.True(t, exception.IsKind(wrapped, exception.KindWorkerFailure))
	assert.Equal(t, exception.KindWorkerFailure, exception.KindOf(wrapped))

	assert.True(t, exception.IsInvalidArgument(exception.NewInvalidArgumentError("cmd", "batch id is empty")))
	assert.Equal(t, exception.KindInternal, exception.KindOf(errors.New("plain")))
	assert.False(t, exception.IsNotFound(nil))
}

func TestNewOptimisticLockingFailureException(t *testing.T) {
	ee := exception.NewOptimisticLockingFailureException("repo", "version mismatch", nil)
	assert.True(t, exception.IsOptimisticLockingFailure(ee))
	assert.True(t, ee.IsRetryable())
	assert.Equal(t, exception.KindConflict, ee.Kind)
	assert.Equal(t, "version mismatch", exception.ExtractErrorMessage(ee))

	cause := errors.New("0 rows affected")
	withCause := exception.NewOptimisticLockingFailureException("repo", "version mismatch", cause)
	assert.True(t, exception.IsOptimisticLockingFailure(withCause))
	assert.ErrorIs(t, withCause, cause)

	assert.False(t, exception.IsOptimisticLockingFailure(errors.New("other")))
	assert.False(t, exception.IsOptimisticLockingFailure(nil))
}

func TestIsTemporary(t *testing.T) {
	assert.True(t, exception.IsTemporary(exception.NewTemporaryError("tx", "lock contention", nil)))
	assert.False(t, exception.IsTemporary(exception.NewDecodeError("serialization", "bad payload", nil)))
	assert.True(t, exception.IsTemporary(errors.New("dial tcp: connection refused")))
	assert.True(t, exception.IsTemporary(errors.New("database is locked")))
	assert.True(t, exception.IsTemporary(errors.New("ERROR: could not serialize access due to concurrent update (SQLSTATE 40001)")))
	assert.False(t, exception.IsTemporary(errors.New("syntax error")))
	assert.False(t, exception.IsTemporary(nil))

	// A non-retryable EngineError is not temporary even if its message looks so.
	assert.False(t, exception.IsTemporary(exception.NewEngineError("x", exception.KindInternal, "timeout", nil, false)))
}

func TestNewTransactionError_RetryableFollowsCause(t *testing.T) {
	locked := exception.NewTransactionError("tx", "commit failed", errors.New("database is locked"))
	assert.True(t, exception.IsKind(locked, exception.KindTransaction))
	assert.True(t, exception.IsTemporary(locked))

	assert.False(t, exception.IsTemporary(exception.NewTransactionError("tx", "commit failed", errors.New("constraint violated"))))
	assert.False(t, exception.IsTemporary(exception.NewTransactionError("tx", "already finished", nil)))
}

func TestExtractErrorMessage(t *testing.T) {
	assert.Equal(t, "", exception.ExtractErrorMessage(nil))
	assert.Equal(t, "plain", exception.ExtractErrorMessage(errors.New("plain")))
	ee := exception.NewWorkerFailureError("w", "validation failed", errors.New("boom"))
	assert.Equal(t, "validation failed: boom", exception.ExtractErrorMessage(ee))
}

func TestIsErrorOfType(t *testing.T) {
	assert.True(t, exception.IsErrorTypeRegistered(exception.OptimisticLockingFailureException))
	assert.False(t, exception.IsErrorTypeRegistered("NoSuchException"))

	// Registered sentinel.
	deadline := fmt.Errorf("job: %w", context.DeadlineExceeded)
	assert.True(t, exception.IsErrorOfType(deadline, "context.DeadlineExceeded"))
	assert.False(t, exception.IsErrorOfType(deadline, "context.Canceled"))

	// Kind name.
	assert.True(t, exception.IsErrorOfType(exception.NewDecodeError("s", "bad", nil), string(exception.KindDecode)))

	// Message substring and Go type name.
	custom := fmt.Errorf("outer: %w", &CustomError{Msg: "bad row"})
	assert.True(t, exception.IsErrorOfType(custom, "bad row"))
	assert.True(t, exception.IsErrorOfType(custom, "exception_test.CustomError"))
	assert.False(t, exception.IsErrorOfType(nil, "anything"))
}

func TestRegisterErrorType_PanicsOnInvalidInput(t *testing.T) {
	assert.Panics(t, func() { exception.RegisterErrorType("", errors.New("x")) })
	assert.Panics(t, func() { exception.RegisterErrorType("Nil", nil) })

	sentinel := errors.New("quota exceeded")
	exception.RegisterErrorType("QuotaExceeded", sentinel)
	assert.True(t, exception.IsErrorOfType(fmt.Errorf("w: %w", sentinel), "QuotaExceeded"))
}
