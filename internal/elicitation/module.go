package elicitation

import (
	"context"
	"log/slog"
	"time"

	"github.com/schemactl/schema-registry-mcp/pkg/config"
	"go.uber.org/fx"
)

var Module = fx.Module("elicitation",
	fx.Provide(NewManager),
	fx.Invoke(registerSweeper),
)

// registerSweeper runs the expiry sweep and terminal-record eviction on a
// ticker for the lifetime of the application. The sweep shares the per-record
// discipline with submit and cancel, so it is safe to run concurrently with
// any request's lifecycle.
func registerSweeper(lc fx.Lifecycle, manager *Manager, cfg config.ElicitationConfig, logger *slog.Logger) {
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
						manager.SweepExpired()
						manager.PruneTerminated()
					case <-done:
						return
					}
				}
			}()
			logger.Debug("Elicitation expiry sweeper started", "interval", cfg.SweepInterval)
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
