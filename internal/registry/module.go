package registry

import (
	"log/slog"

	"github.com/schemactl/schema-registry-mcp/pkg/config"
	"go.uber.org/fx"
)

// NewClientFromConfig selects the registry client implementation. Only the
// offline client ships with this server; a configured URL is logged so the
// operator knows the connection is not being made from here.
func NewClientFromConfig(cfg config.RegistryConfig, logger *slog.Logger) Client {
	if cfg.URL != "" {
		logger.Warn("Schema registry URL configured but no HTTP client is bundled; running offline",
			"url", cfg.URL)
	}
	return NewOfflineClient()
}

var Module = fx.Module("registry",
	fx.Provide(
		NewClientFromConfig,
		fx.Annotate(
			NewStaticDefaultsProvider,
			fx.As(new(DefaultsProvider)),
		),
	),
)
