package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/schemactl/schema-registry-mcp/internal/server-plugin/domain"
)

// ServerPluginProvider interface defines what we need from the plugin registry
type ServerPluginProvider interface {
	GetResourceProviders() []domain.ResourceProvider
	GetToolProviders() []domain.ToolProvider
}

// MCPAdapter bridges between our plugin system and the MCP server
// Single responsibility: Adapt plugin capabilities to MCP server registration
type MCPAdapter struct {
	registry  ServerPluginProvider
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// NewMCPAdapter creates a new MCP adapter
func NewMCPAdapter(registry ServerPluginProvider, mcpServer *server.MCPServer, logger *slog.Logger) *MCPAdapter {
	return &MCPAdapter{
		registry:  registry,
		mcpServer: mcpServer,
		logger:    logger,
	}
}

// RegisterAllServerPlugins registers all plugins from the registry with the MCP server
func (a *MCPAdapter) RegisterAllServerPlugins(ctx context.Context) error {
	a.logger.Info("Registering all plugins with MCP server")

	if err := a.registerResources(ctx); err != nil {
		return fmt.Errorf("failed to register resources: %w", err)
	}

	if err := a.registerTools(ctx); err != nil {
		return fmt.Errorf("failed to register tools: %w", err)
	}

	a.logger.Info("All plugins registered successfully")
	return nil
}

// registerResources registers all resources from resource providers
func (a *MCPAdapter) registerResources(ctx context.Context) error {
	providers := a.registry.GetResourceProviders()
	a.logger.Debug("Starting resource registration", "provider_count", len(providers))

	for _, provider := range providers {
		resources, err := provider.GetResources(ctx)
		if err != nil {
			a.logger.Error("Failed to get resources from provider",
				"plugin", provider.ID(), "error", err)
			continue
		}

		for _, resource := range resources {
			mcpResource := mcp.NewResource(
				resource.URI,
				resource.Name,
				mcp.WithResourceDescription(resource.Description),
				mcp.WithMIMEType(resource.MIMEType),
			)

			a.mcpServer.AddResource(mcpResource, resource.Handler)
			a.logger.Debug("Resource registered",
				"plugin", provider.ID(),
				"resource", resource.Name,
				"uri", resource.URI)
		}
	}

	return nil
}

// registerTools registers all tools from tool providers
func (a *MCPAdapter) registerTools(ctx context.Context) error {
	providers := a.registry.GetToolProviders()
	a.logger.Debug("Starting tool registration", "provider_count", len(providers))

	for _, provider := range providers {
		tools, err := provider.GetTools(ctx)
		if err != nil {
			a.logger.Error("Failed to get tools from provider",
				"plugin", provider.ID(), "error", err)
			continue
		}

		for _, tool := range tools {
			// Use the builder pattern to create the MCP tool
			mcpTool := tool.Builder()

			a.mcpServer.AddTool(mcpTool, tool.Handler)
			a.logger.Debug("Tool registered",
				"plugin", provider.ID(),
				"tool", tool.Name)
		}
	}

	return nil
}
