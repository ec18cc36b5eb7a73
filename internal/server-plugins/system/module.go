package system

import (
	serverDomain "github.com/schemactl/schema-registry-mcp/internal/server-plugin/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("system-plugin",
	fx.Provide(
		fx.Annotate(
			NewSystemServerPlugin,
			fx.As(new(serverDomain.ServerPlugin)),
			fx.ResultTags(`group:"server_plugins"`),
		),
	),
)
