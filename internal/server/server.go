package server

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/server"
	"github.com/schemactl/schema-registry-mcp/pkg/config"
)

// NewMCPServerInstance creates a new MCP server instance.
func NewMCPServerInstance(cfg *config.ServerConfig, logger *slog.Logger) *server.MCPServer {
	logger.Debug("Creating MCP server instance")
	version := "dev"
	mcpServer := server.NewMCPServer(
		"Schema Registry MCP Server",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, true),
	)
	logger.Debug("MCP server instance created successfully")
	return mcpServer
}
