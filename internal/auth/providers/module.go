package providers

import "go.uber.org/fx"

var Module = fx.Module("providers",
	fx.Provide(
		fx.Annotate(
			NewFromConfig,
			fx.As(new(Provider)),
		),
	),
)
