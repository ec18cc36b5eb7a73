package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type TransportConfig struct {
	Type string `mapstructure:"type"` // "stdio" or "sse"
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// ElicitationConfig controls pending-request lifecycle defaults. Retention is
// how long completed, cancelled and expired requests stay queryable before
// the sweep evicts them.
type ElicitationConfig struct {
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
	SweepInterval  time.Duration `mapstructure:"sweep_interval"`
	MaxPending     int           `mapstructure:"max_pending"`
	Retention      time.Duration `mapstructure:"retention"`
}

// WorkflowConfig controls multi-step workflow behaviour. Retention is how
// long completed and aborted instances stay queryable before eviction.
type WorkflowConfig struct {
	DefinitionsDir     string        `mapstructure:"definitions_dir"`
	StepTimeout        time.Duration `mapstructure:"step_timeout"`
	MaxActiveInstances int           `mapstructure:"max_active_instances"`
	SweepInterval      time.Duration `mapstructure:"sweep_interval"`
	Retention          time.Duration `mapstructure:"retention"`
}

// RegistryConfig describes the Schema Registry this server fronts.
// The registry client itself is an external collaborator; only
// connectivity settings live here.
type RegistryConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ServerConfig struct {
	Transport   TransportConfig   `mapstructure:"transport"`
	LogLevel    string            `mapstructure:"log_level"`
	LogFormat   string            `mapstructure:"log_format"`
	LogBuffer   int               `mapstructure:"log_buffer"`
	Elicitation ElicitationConfig `mapstructure:"elicitation"`
	Workflow    WorkflowConfig    `mapstructure:"workflow"`
	Registry    RegistryConfig    `mapstructure:"registry"`
}

func DefaultConfig() *ServerConfig {
	return &ServerConfig{
		Transport: TransportConfig{
			Type: "stdio",
			Host: "localhost",
			Port: 8080,
		},
		LogLevel:  "info",
		LogFormat: "json",
		LogBuffer: 1000,
		Elicitation: ElicitationConfig{
			DefaultTimeout: 5 * time.Minute,
			SweepInterval:  30 * time.Second,
			MaxPending:     256,
			Retention:      time.Hour,
		},
		Workflow: WorkflowConfig{
			DefinitionsDir:     "",
			StepTimeout:        24 * time.Hour,
			MaxActiveInstances: 128,
			SweepInterval:      time.Minute,
			Retention:          time.Hour,
		},
		Registry: RegistryConfig{
			URL:     "",
			Timeout: 30 * time.Second,
		},
	}
}

func LoadConfig() (*ServerConfig, error) {
	config := DefaultConfig()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/schema-registry-mcp/")
	viper.AddConfigPath("$HOME/.schema-registry-mcp/")

	viper.SetEnvPrefix("SCHEMA_REGISTRY_MCP")
	viper.AutomaticEnv()

	// Transport defaults
	viper.SetDefault("transport.type", config.Transport.Type)
	viper.SetDefault("transport.host", config.Transport.Host)
	viper.SetDefault("transport.port", config.Transport.Port)

	// Logging defaults
	viper.SetDefault("log_level", config.LogLevel)
	viper.SetDefault("log_format", config.LogFormat)
	viper.SetDefault("log_buffer", config.LogBuffer)

	// Elicitation defaults
	viper.SetDefault("elicitation.default_timeout", config.Elicitation.DefaultTimeout)
	viper.SetDefault("elicitation.sweep_interval", config.Elicitation.SweepInterval)
	viper.SetDefault("elicitation.max_pending", config.Elicitation.MaxPending)
	viper.SetDefault("elicitation.retention", config.Elicitation.Retention)

	// Workflow defaults
	viper.SetDefault("workflow.definitions_dir", config.Workflow.DefinitionsDir)
	viper.SetDefault("workflow.step_timeout", config.Workflow.StepTimeout)
	viper.SetDefault("workflow.max_active_instances", config.Workflow.MaxActiveInstances)
	viper.SetDefault("workflow.sweep_interval", config.Workflow.SweepInterval)
	viper.SetDefault("workflow.retention", config.Workflow.Retention)

	// Registry defaults
	viper.SetDefault("registry.url", config.Registry.URL)
	viper.SetDefault("registry.timeout", config.Registry.Timeout)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read configuration file: %w", err)
		}
	}

	// Decode the configuration
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func validateConfig(config *ServerConfig) error {
	if config.Transport.Type != "stdio" && config.Transport.Type != "sse" {
		return fmt.Errorf("invalid transport type: %s", config.Transport.Type)
	}

	if config.Transport.Type == "sse" {
		if config.Transport.Port <= 0 || config.Transport.Port > 65535 {
			return fmt.Errorf("the transport port must be between 1 and 65535")
		}
	}

	if config.Elicitation.DefaultTimeout <= 0 {
		return fmt.Errorf("the elicitation default timeout must be positive")
	}

	if config.Elicitation.SweepInterval <= 0 {
		return fmt.Errorf("the elicitation sweep interval must be positive")
	}

	if config.Elicitation.MaxPending <= 0 {
		return fmt.Errorf("the elicitation pending capacity must be positive")
	}

	if config.Elicitation.Retention <= 0 {
		return fmt.Errorf("the elicitation retention must be positive")
	}

	if config.Workflow.StepTimeout <= 0 {
		return fmt.Errorf("the workflow step timeout must be positive")
	}

	if config.Workflow.MaxActiveInstances <= 0 {
		return fmt.Errorf("the workflow instance capacity must be positive")
	}

	if config.Workflow.SweepInterval <= 0 {
		return fmt.Errorf("the workflow sweep interval must be positive")
	}

	if config.Workflow.Retention <= 0 {
		return fmt.Errorf("the workflow retention must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[config.LogLevel] {
		return fmt.Errorf("invalid log level: %s", config.LogLevel)
	}

	validLogFormats := map[string]bool{
		"json": true, "text": true,
	}
	if !validLogFormats[config.LogFormat] {
		return fmt.Errorf("invalid log format: %s", config.LogFormat)
	}

	return nil
}
