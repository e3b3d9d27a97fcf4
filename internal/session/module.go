package session

import "go.uber.org/fx"

// Module provides the session token codec
var Module = fx.Module("session",
	fx.Provide(
		NewFromConfig,
	),
)
