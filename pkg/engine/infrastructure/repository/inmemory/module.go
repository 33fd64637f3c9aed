package inmemory

import (
	"go.uber.org/fx"

	repository "github.com/tigerroll/caseflow/pkg/engine/core/domain/repository"
	"github.com/tigerroll/caseflow/pkg/engine/core/tx"
)

// Module provides the in-memory store as repository.BatchRepository together
// with the tx.TransactionManager that stages its writes.
var Module = fx.Options(
	fx.Provide(
		fx.Annotate(
			NewInMemoryBatchRepository,
			fx.As(fx.Self()),
			fx.As(new(repository.BatchRepository)),
		),
		fx.Annotate(
			NewTransactionManager,
			fx.As(new(tx.TransactionManager)),
		),
	),
)
