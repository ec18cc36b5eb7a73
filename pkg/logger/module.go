package logger

import (
	"log/slog"
	"os"

	"github.com/schemactl/schema-registry-mcp/pkg/config"
	"go.uber.org/fx"
)

// NewRecentActivityBuffer provides the ring buffer that captures recent log
// lines for the system status resource.
func NewRecentActivityBuffer(cfg *config.ServerConfig) *RingBuffer {
	return NewRingBuffer(cfg.LogBuffer)
}

func NewSlogLogger(cfg *config.ServerConfig, buffer *RingBuffer) *slog.Logger {
	var handler slog.Handler

	// Configure log level
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	// Create handler based on format preference
	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	// Tee records into the ring buffer so recent activity can be served
	// as an MCP resource without touching process stderr.
	handler = newBufferingHandler(handler, buffer)

	return slog.New(handler)
}

var Module = fx.Module("logger",
	fx.Provide(
		NewRecentActivityBuffer,
		NewSlogLogger,
	),
)
