package schema

import (
	serverDomain "github.com/schemactl/schema-registry-mcp/internal/server-plugin/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("schema-plugin",
	fx.Provide(
		fx.Annotate(
			NewSchemaServerPlugin,
			fx.As(new(serverDomain.ServerPlugin)),
			fx.ResultTags(`group:"server_plugins"`),
		),
	),
)
