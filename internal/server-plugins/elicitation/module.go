package elicitation

import (
	serverDomain "github.com/schemactl/schema-registry-mcp/internal/server-plugin/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("elicitation-plugin",
	fx.Provide(
		fx.Annotate(
			NewElicitationServerPlugin,
			fx.As(new(serverDomain.ServerPlugin)),
			fx.ResultTags(`group:"server_plugins"`),
		),
	),
)
