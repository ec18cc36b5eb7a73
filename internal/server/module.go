package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"
	plugins "github.com/schemactl/schema-registry-mcp/internal/server-plugin/application"
	"github.com/schemactl/schema-registry-mcp/pkg/config"
	"go.uber.org/fx"
)

var Module = fx.Module("server",
	fx.Provide(
		NewMCPServerInstance,
		plugins.NewServerPluginRegistry,
		func(registry *plugins.ServerPluginRegistry, mcpServer *server.MCPServer, logger *slog.Logger) *MCPAdapter {
			return NewMCPAdapter(registry, mcpServer, logger)
		},
	),
	fx.Invoke(registerServerHooks),
)

// registerServerHooks wires plugin registration and transport startup into
// the application lifecycle.
func registerServerHooks(
	lc fx.Lifecycle,
	cfg *config.ServerConfig,
	adapter *MCPAdapter,
	mcpServer *server.MCPServer,
	logger *slog.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := adapter.RegisterAllServerPlugins(ctx); err != nil {
				return err
			}

			switch cfg.Transport.Type {
			case "sse":
				addr := fmt.Sprintf("%s:%d", cfg.Transport.Host, cfg.Transport.Port)
				logger.Info("MCP Server listening on SSE", "addr", addr)
				sseServer := server.NewSSEServer(mcpServer)
				go func() {
					if err := sseServer.Start(addr); err != nil {
						logger.Error("Server error", "error", err)
					}
				}()
			default:
				logger.Info("MCP Server listening on stdio")
				go func() {
					if err := server.ServeStdio(mcpServer); err != nil {
						logger.Error("Server error", "error", err)
					}
				}()
			}

			return nil
		},
		OnStop: func(context.Context) error {
			logger.Info("Stopping Schema Registry MCP Server...")
			return nil
		},
	})
}
