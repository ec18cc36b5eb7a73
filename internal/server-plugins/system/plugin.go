package system

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/schemactl/schema-registry-mcp/internal/elicitation"
	serverDomain "github.com/schemactl/schema-registry-mcp/internal/server-plugin/domain"
	"github.com/schemactl/schema-registry-mcp/internal/workflow"
	"github.com/schemactl/schema-registry-mcp/pkg/config"
	"github.com/schemactl/schema-registry-mcp/pkg/logger"
)

// SystemServerPlugin exposes operational resources: server status, recent
// log activity and a capabilities summary.
type SystemServerPlugin struct {
	cfg          *config.ServerConfig
	elicitations *elicitation.Manager
	workflows    *workflow.Manager
	activity     *logger.RingBuffer
	logger       *slog.Logger
	startedAt    time.Time
}

func NewSystemServerPlugin(
	cfg *config.ServerConfig,
	elicitations *elicitation.Manager,
	workflows *workflow.Manager,
	activity *logger.RingBuffer,
	log *slog.Logger,
) *SystemServerPlugin {
	return &SystemServerPlugin{
		cfg:          cfg,
		elicitations: elicitations,
		workflows:    workflows,
		activity:     activity,
		logger:       log,
		startedAt:    time.Now(),
	}
}

// ServerPlugin interface
func (p *SystemServerPlugin) ID() string   { return "system" }
func (p *SystemServerPlugin) Name() string { return "System" }
func (p *SystemServerPlugin) Description() string {
	return "Server status, recent activity and capability information"
}
func (p *SystemServerPlugin) Version() string { return "0.1.0" }

// ResourceProvider implementation
func (p *SystemServerPlugin) GetResources(ctx context.Context) ([]serverDomain.Resource, error) {
	return []serverDomain.Resource{
		{
			URI:         "registry-mcp://system/status",
			Name:        "Server Status",
			Description: "Live counts for elicitation requests and workflow instances",
			MIMEType:    "application/json",
			Handler:     p.handleStatusResource,
		},
		{
			URI:         "registry-mcp://system/logs",
			Name:        "Recent Activity",
			Description: "Most recent log lines from the in-memory ring buffer",
			MIMEType:    "text/plain",
			Handler:     p.handleLogsResource,
		},
		{
			URI:         "registry-mcp://system/capabilities",
			Name:        "Server Capabilities",
			Description: "Transport, limits and registered workflow definitions",
			MIMEType:    "application/json",
			Handler:     p.handleCapabilitiesResource,
		},
	}, nil
}

func (p *SystemServerPlugin) handleStatusResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	overview := p.elicitations.Status()

	payload := map[string]any{
		"uptime_seconds": int(time.Since(p.startedAt).Seconds()),
		"elicitation": map[string]any{
			"pending":     overview.PendingCount,
			"by_priority": overview.ByPriority,
			"tracked":     p.elicitations.Count(),
		},
		"workflow": map[string]any{
			"active_instances": p.workflows.ActiveCount(),
			"definitions":      p.workflows.Registry().Count(),
		},
	}

	return jsonContents(request.Params.URI, payload)
}

func (p *SystemServerPlugin) handleLogsResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	lines := p.activity.GetLast(100)

	text := ""
	for _, line := range lines {
		text += line + "\n"
	}
	if text == "" {
		text = "no recent activity\n"
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "text/plain",
			Text:     text,
		},
	}, nil
}

func (p *SystemServerPlugin) handleCapabilitiesResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	definitions := p.workflows.Registry().List()
	workflowIDs := make([]string, 0, len(definitions))
	for _, definition := range definitions {
		workflowIDs = append(workflowIDs, definition.ID)
	}

	payload := map[string]any{
		"transport": p.cfg.Transport.Type,
		"limits": map[string]any{
			"max_pending_requests": p.cfg.Elicitation.MaxPending,
			"max_active_instances": p.cfg.Workflow.MaxActiveInstances,
			"default_timeout":      p.cfg.Elicitation.DefaultTimeout.String(),
			"step_timeout":         p.cfg.Workflow.StepTimeout.String(),
		},
		"workflows": workflowIDs,
	}

	return jsonContents(request.Params.URI, payload)
}

func jsonContents(uri string, payload any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize resource: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
