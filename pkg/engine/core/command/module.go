package command

import "go.uber.org/fx"

// Module provides the CommandExecutor.
var Module = fx.Options(
	fx.Provide(NewCommandExecutor),
)
