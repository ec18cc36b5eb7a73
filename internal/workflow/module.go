package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/schemactl/schema-registry-mcp/pkg/config"
	"go.uber.org/fx"
)

var Module = fx.Module("workflow",
	fx.Provide(
		NewDefinitionRegistry,
		NewManager,
	),
	fx.Invoke(
		loadFileDefinitions,
		registerJanitor,
	),
)

// loadFileDefinitions registers operator-supplied workflow definitions from
// the configured directory at startup.
func loadFileDefinitions(lc fx.Lifecycle, registry *DefinitionRegistry, cfg config.WorkflowConfig, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			provider := NewYAMLFileProvider(cfg.DefinitionsDir)
			count, err := provider.LoadInto(registry)
			if err != nil {
				return err
			}
			if count > 0 {
				logger.Info("Workflow definitions loaded from disk",
					"directory", cfg.DefinitionsDir,
					"count", count)
			}
			return nil
		},
	})
}

// registerJanitor evicts terminal instances past the retention window on a
// ticker for the lifetime of the application.
func registerJanitor(lc fx.Lifecycle, manager *Manager, cfg config.WorkflowConfig, logger *slog.Logger) {
	done := make(chan struct{})
	stopped := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer close(stopped)
				ticker := time.NewTicker(cfg.SweepInterval)
				defer ticker.Stop()
				for {
					select {
					case <-ticker.C:
						manager.PruneTerminated()
					case <-done:
						return
					}
				}
			}()
			logger.Debug("Workflow instance janitor started",
				"interval", cfg.SweepInterval,
				"retention", cfg.Retention)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			close(done)
			select {
			case <-stopped:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		},
	})
}
