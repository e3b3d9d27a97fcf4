package directory

import (
	"github.com/Innov8rs-paradise/mufa-login/internal/config"
	"go.uber.org/fx"
)

func directoryConfig(cfg *config.Config) *config.DirectoryConfig {
	return &cfg.Directory
}

// Module provides the directory client dependencies
var Module = fx.Module("directory",
	fx.Provide(
		directoryConfig,
		fx.Annotate(
			NewHTTPAuthManager,
			fx.As(new(AuthManager)),
		),
		fx.Annotate(
			NewHTTPClient,
			fx.As(new(Directory)),
		),
	),
)
