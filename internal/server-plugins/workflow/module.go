package workflow

import (
	serverDomain "github.com/schemactl/schema-registry-mcp/internal/server-plugin/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("workflow-plugin",
	fx.Provide(
		fx.Annotate(
			NewWorkflowServerPlugin,
			fx.As(new(serverDomain.ServerPlugin)),
			fx.ResultTags(`group:"server_plugins"`),
		),
	),
)
