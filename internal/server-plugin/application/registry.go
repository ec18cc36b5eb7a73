package plugins

import (
	"sync"

	"github.com/schemactl/schema-registry-mcp/internal/server-plugin/domain"
	"go.uber.org/fx"
)

// ServerPluginRegistry manages the registration of server plugins
type ServerPluginRegistry struct {
	plugins map[string]domain.ServerPlugin
	mu      sync.RWMutex
}

// ServerPluginRegistryParams collects every plugin contributed to the
// server_plugins group.
type ServerPluginRegistryParams struct {
	fx.In
	ServerPlugins []domain.ServerPlugin `group:"server_plugins"`
}

// NewServerPluginRegistry creates a registry pre-populated with all plugins
// provided through the fx group.
func NewServerPluginRegistry(params ServerPluginRegistryParams) *ServerPluginRegistry {
	registry := &ServerPluginRegistry{
		plugins: make(map[string]domain.ServerPlugin),
	}
	for _, plugin := range params.ServerPlugins {
		registry.Register(plugin)
	}
	return registry
}

// Register registers a server plugin
func (r *ServerPluginRegistry) Register(plugin domain.ServerPlugin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plugins[plugin.ID()] = plugin
}

// GetServerPlugins returns all registered plugins
func (r *ServerPluginRegistry) GetServerPlugins() []domain.ServerPlugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	plugins := make([]domain.ServerPlugin, 0, len(r.plugins))
	for _, plugin := range r.plugins {
		plugins = append(plugins, plugin)
	}
	return plugins
}

// GetResourceProviders returns all plugins that provide resources
func (r *ServerPluginRegistry) GetResourceProviders() []domain.ResourceProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var providers []domain.ResourceProvider
	for _, plugin := range r.plugins {
		if provider, ok := plugin.(domain.ResourceProvider); ok {
			providers = append(providers, provider)
		}
	}
	return providers
}

// GetToolProviders returns all plugins that provide tools
func (r *ServerPluginRegistry) GetToolProviders() []domain.ToolProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var providers []domain.ToolProvider
	for _, plugin := range r.plugins {
		if provider, ok := plugin.(domain.ToolProvider); ok {
			providers = append(providers, provider)
		}
	}
	return providers
}
