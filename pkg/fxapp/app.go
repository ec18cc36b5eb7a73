package fxapp

import (
	"log"

	"github.com/schemactl/schema-registry-mcp/internal/elicitation"
	"github.com/schemactl/schema-registry-mcp/internal/registry"
	"github.com/schemactl/schema-registry-mcp/internal/server"
	elicitationPlugin "github.com/schemactl/schema-registry-mcp/internal/server-plugins/elicitation"
	schemaPlugin "github.com/schemactl/schema-registry-mcp/internal/server-plugins/schema"
	systemPlugin "github.com/schemactl/schema-registry-mcp/internal/server-plugins/system"
	workflowPlugin "github.com/schemactl/schema-registry-mcp/internal/server-plugins/workflow"
	"github.com/schemactl/schema-registry-mcp/internal/workflow"
	"github.com/schemactl/schema-registry-mcp/pkg/config"
	"github.com/schemactl/schema-registry-mcp/pkg/logger"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

func New() *fx.App {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Default to a verbose logger for debug level
	var fxLogger fx.Option = fx.WithLogger(
		func() fxevent.Logger {
			return &fxevent.ConsoleLogger{W: log.Writer()}
		},
	)

	if cfg.LogLevel != "debug" {
		fxLogger = fx.NopLogger
	}

	return fx.New(
		fxLogger,
		fx.Supply(cfg),
		config.Module,
		logger.Module,
		registry.Module,
		elicitation.Module,
		workflow.Module,
		server.Module,
		elicitationPlugin.Module,
		workflowPlugin.Module,
		schemaPlugin.Module,
		systemPlugin.Module,
	)
}
