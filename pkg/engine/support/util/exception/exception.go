// Package exception provides the error types shared by the caseflow engine.
// Every failure surfaced by a command is classified with a Kind so callers can
// tell invalid input, missing records, worker failures and transactional
// failures apart without parsing messages.
package exception

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Kind classifies an EngineError.
type Kind string

const (
	// KindInvalidArgument marks malformed caller input. Raised before any resource is acquired.
	KindInvalidArgument Kind = "InvalidArgument"
	// KindNotFound marks a reference to a record that does not exist.
	KindNotFound Kind = "NotFound"
	// KindDecode marks a payload that could not be decoded.
	KindDecode Kind = "DecodeError"
	// KindWorkerFailure marks an unrecoverable failure of an asynchronous worker.
	KindWorkerFailure Kind = "WorkerFailure"
	// KindTransaction marks a failure of the transaction boundary itself (begin/commit).
	KindTransaction Kind = "TransactionFailure"
	// KindConflict marks a concurrent modification detected through optimistic locking.
	KindConflict Kind = "Conflict"
	// KindInternal marks everything else, including recovered panics.
	KindInternal Kind = "Internal"
)

// EngineError is the error type returned by engine components.
type EngineError struct {
	// Module is the component that raised the error (e.g. "StartCaseInstanceCmd", "SQLBatchRepository").
	Module string
	// Kind classifies the error.
	Kind Kind
	// Message is a concise description of the error.
	Message string
	// OriginalErr is the wrapped cause, if any.
	OriginalErr error
	// StackTrace is captured at construction for debugging.
	StackTrace string

	retryable bool
}

// NewEngineError creates a new EngineError.
func NewEngineError(module string, kind Kind, message string, originalErr error, retryable bool) *EngineError {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)

	return &EngineError{
		Module:      module,
		Kind:        kind,
		Message:     message,
		OriginalErr: originalErr,
		StackTrace:  string(buf[:n]),
		retryable:   retryable,
	}
}

// NewEngineErrorf creates a non-retryable EngineError with a formatted message.
// A trailing error argument is not formatted; it is wrapped as the original error.
func NewEngineErrorf(module string, kind Kind, format string, a ...interface{}) *EngineError {
	var originalErr error
	if len(a) > 0 {
		if err, ok := a[len(a)-1].(error); ok {
			originalErr = err
			a = a[:len(a)-1]
		}
	}
	return NewEngineError(module, kind, fmt.Sprintf(format, a...), originalErr, false)
}

// NewInvalidArgumentError creates a KindInvalidArgument error.
func NewInvalidArgumentError(module, message string) *EngineError {
	return NewEngineError(module, KindInvalidArgument, message, nil, false)
}

// NewNotFoundError creates a KindNotFound error wrapping the store's sentinel.
func NewNotFoundError(module, message string, originalErr error) *EngineError {
	return NewEngineError(module, KindNotFound, message, originalErr, false)
}

// NewDecodeError creates a KindDecode error.
func NewDecodeError(module, message string, originalErr error) *EngineError {
	return NewEngineError(module, KindDecode, message, originalErr, false)
}

// NewWorkerFailureError creates a KindWorkerFailure error.
func NewWorkerFailureError(module, message string, originalErr error) *EngineError {
	return NewEngineError(module, KindWorkerFailure, message, originalErr, false)
}

// NewTransactionError creates a KindTransaction error. It is retryable when
// its cause is temporary, e.g. a lock held at commit.
func NewTransactionError(module, message string, originalErr error) *EngineError {
	return NewEngineError(module, KindTransaction, message, originalErr, IsTemporary(originalErr))
}

// NewTemporaryError creates a retryable KindInternal error, e.g. for lock contention
// reported by a collaborator.
func NewTemporaryError(module, message string, originalErr error) *EngineError {
	return NewEngineError(module, KindInternal, message, originalErr, true)
}

// OptimisticLockingFailureException is the registry name of ErrOptimisticLockingFailure.
const OptimisticLockingFailureException = "OptimisticLockingFailureException"

// ErrOptimisticLockingFailure is the sentinel for a version conflict on update.
var ErrOptimisticLockingFailure = errors.New(OptimisticLockingFailureException)

// NewOptimisticLockingFailureException creates a KindConflict error.
// Conflicts are retryable: the whole dispatch is re-run against fresh state.
func NewOptimisticLockingFailureException(module, message string, originalErr error) *EngineError {
	errToWrap := ErrOptimisticLockingFailure
	if originalErr != nil {
		errToWrap = errors.Join(ErrOptimisticLockingFailure, originalErr)
	}
	return NewEngineError(module, KindConflict, message, errToWrap, true)
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Module, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s", e.Module, e.Message)
}

// Unwrap returns the original error for errors.Is / errors.As.
func (e *EngineError) Unwrap() error {
	return e.OriginalErr
}

// IsRetryable reports whether the error may succeed on another attempt.
func (e *EngineError) IsRetryable() bool {
	return e.retryable
}

// KindOf returns the Kind of the outermost EngineError in the chain, or
// KindInternal when err carries none.
func KindOf(err error) Kind {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return KindInternal
}

// IsKind reports whether any EngineError in the chain has the given kind.
func IsKind(err error, kind Kind) bool {
	for err != nil {
		var ee *EngineError
		if !errors.As(err, &ee) {
			return false
		}
		if ee.Kind == kind {
			return true
		}
		err = ee.OriginalErr
	}
	return false
}

// IsInvalidArgument reports whether err is a KindInvalidArgument error.
func IsInvalidArgument(err error) bool { return IsKind(err, KindInvalidArgument) }

// IsNotFound reports whether err is a KindNotFound error.
func IsNotFound(err error) bool { return IsKind(err, KindNotFound) }

// IsOptimisticLockingFailure reports whether err wraps ErrOptimisticLockingFailure.
func IsOptimisticLockingFailure(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrOptimisticLockingFailure)
}

// IsTemporary determines whether an error is transient (contention, timeouts,
// dropped connections). The retryable flag of an EngineError takes precedence.
func IsTemporary(err error) bool {
	if err == nil {
		return false
	}
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.IsRetryable()
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "deadlock") ||
		strings.Contains(errStr, "database is locked") ||
		strings.Contains(errStr, "could not serialize access")
}

// ExtractErrorMessage returns the Message of an EngineError, or err.Error() otherwise.
func ExtractErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var ee *EngineError
	if errors.As(err, &ee) {
		if ee.OriginalErr != nil && ee.Kind != KindConflict {
			return fmt.Sprintf("%s: %v", ee.Message, ee.OriginalErr)
		}
		return ee.Message
	}
	return err.Error()
}
