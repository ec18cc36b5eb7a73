package config

import "go.uber.org/fx"

// Module provides the smaller per-concern configs. The full ServerConfig is
// supplied by the application entrypoint after LoadConfig.
var Module = fx.Module("config",
	fx.Provide(func(cfg *ServerConfig) TransportConfig { return cfg.Transport }),
	fx.Provide(func(cfg *ServerConfig) ElicitationConfig { return cfg.Elicitation }),
	fx.Provide(func(cfg *ServerConfig) WorkflowConfig { return cfg.Workflow }),
	fx.Provide(func(cfg *ServerConfig) RegistryConfig { return cfg.Registry }),
)
