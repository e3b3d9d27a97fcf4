package login

import "go.uber.org/fx"

var Module = fx.Module("login",
	fx.Provide(NewService),
)
