// Package command is the single entry point for mutating engine state.
//
// A Command is dispatched through a CommandExecutor, which wraps it in an
// interceptor chain (logging, observation, conflict retry, execution context,
// transaction). Nested dispatches made with the context handed to a command
// share its ExecutionContext and transaction.
package command

import (
	"database/sql"
	"fmt"
	"strings"
)

// Command is a unit of work producing a T. Implementations are plain structs
// carrying their typed input; they hold no state beyond it.
type Command[T any] interface {
	Execute(ec *ExecutionContext) (T, error)
}

// CommandFunc adapts a function to Command.
type CommandFunc[T any] func(ec *ExecutionContext) (T, error)

// Execute calls f(ec).
func (f CommandFunc[T]) Execute(ec *ExecutionContext) (T, error) {
	return f(ec)
}

// Propagation controls how a dispatch relates to an already active ExecutionContext.
type Propagation int

const (
	// PropagationRequired joins the active context and transaction, or starts new ones.
	PropagationRequired Propagation = iota
	// PropagationRequiresNew always starts a new context and transaction.
	PropagationRequiresNew
)

// String returns the propagation name.
func (p Propagation) String() string {
	switch p {
	case PropagationRequired:
		return "REQUIRED"
	case PropagationRequiresNew:
		return "REQUIRES_NEW"
	}
	return fmt.Sprintf("Propagation(%d)", int(p))
}

// Config holds per-dispatch options.
type Config struct {
	Propagation Propagation
	// TxOptions is passed to TransactionManager.Begin for a new transaction.
	TxOptions *sql.TxOptions
	// DisableRetry turns off conflict retry for this dispatch.
	DisableRetry bool
}

// DefaultConfig returns the configuration used by Execute.
func DefaultConfig() Config {
	return Config{Propagation: PropagationRequired}
}

// RequiresNew returns a copy of c that starts a new context.
func (c Config) RequiresNew() Config {
	c.Propagation = PropagationRequiresNew
	return c
}

// commandName derives a short display name, e.g. "SubmitMigrationValidationCmd".
func commandName(cmd any) string {
	name := fmt.Sprintf("%T", cmd)
	name = strings.TrimLeft(name, "*")
	if i := strings.Index(name, "["); i >= 0 {
		name = name[:i]
	}
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}
