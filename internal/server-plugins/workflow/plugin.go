package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/schemactl/schema-registry-mcp/internal/registry"
	serverDomain "github.com/schemactl/schema-registry-mcp/internal/server-plugin/domain"
	elicitationPlugin "github.com/schemactl/schema-registry-mcp/internal/server-plugins/elicitation"
	"github.com/schemactl/schema-registry-mcp/internal/workflow"
	workflowDomain "github.com/schemactl/schema-registry-mcp/internal/workflow/domain"
)

// WorkflowServerPlugin exposes multi-step workflow control as MCP tools.
type WorkflowServerPlugin struct {
	manager  *workflow.Manager
	defaults registry.DefaultsProvider
	logger   *slog.Logger
}

func NewWorkflowServerPlugin(
	manager *workflow.Manager,
	defaults registry.DefaultsProvider,
	logger *slog.Logger,
) *WorkflowServerPlugin {
	return &WorkflowServerPlugin{
		manager:  manager,
		defaults: defaults,
		logger:   logger,
	}
}

// ServerPlugin interface
func (p *WorkflowServerPlugin) ID() string   { return "workflow" }
func (p *WorkflowServerPlugin) Name() string { return "Multi-Step Workflows" }
func (p *WorkflowServerPlugin) Description() string {
	return "Guided multi-step flows built on elicitation requests"
}
func (p *WorkflowServerPlugin) Version() string { return "0.1.0" }

// ToolProvider implementation
func (p *WorkflowServerPlugin) GetTools(ctx context.Context) ([]serverDomain.Tool, error) {
	return []serverDomain.Tool{
		{
			Name:        "start_workflow",
			Description: "Start an instance of a registered workflow",
			Builder:     buildStartWorkflowTool,
			Handler:     p.handleStartWorkflow,
		},
		{
			Name:        "list_available_workflows",
			Description: "List the registered workflow definitions",
			Builder:     buildListWorkflowsTool,
			Handler:     p.handleListWorkflows,
		},
		{
			Name:        "get_workflow_status",
			Description: "Get the state of a workflow instance",
			Builder:     buildWorkflowStatusTool,
			Handler:     p.handleWorkflowStatus,
		},
		{
			Name:        "abort_workflow",
			Description: "Abort an active workflow instance",
			Builder:     buildAbortWorkflowTool,
			Handler:     p.handleAbortWorkflow,
		},
	}, nil
}

// Tool builders

func buildStartWorkflowTool() mcp.Tool {
	return mcp.NewTool(
		"start_workflow",
		mcp.WithDescription("Start a workflow instance. Returns the instance id and the elicitation request for the first step; answer it with submit_elicitation_response."),
		mcp.WithString("workflow_id",
			mcp.Required(),
			mcp.Description("Id of a registered workflow"),
		),
		mcp.WithObject("context",
			mcp.Description("Initial key/value context merged over suggested defaults"),
		),
	)
}

func buildListWorkflowsTool() mcp.Tool {
	return mcp.NewTool(
		"list_available_workflows",
		mcp.WithDescription("List registered workflows with their ids, names and descriptions"),
	)
}

func buildWorkflowStatusTool() mcp.Tool {
	return mcp.NewTool(
		"get_workflow_status",
		mcp.WithDescription("Current step, history and status of a workflow instance"),
		mcp.WithString("instance_id",
			mcp.Required(),
			mcp.Description("Id of the workflow instance"),
		),
	)
}

func buildAbortWorkflowTool() mcp.Tool {
	return mcp.NewTool(
		"abort_workflow",
		mcp.WithDescription("Abort an active workflow instance immediately"),
		mcp.WithString("instance_id",
			mcp.Required(),
			mcp.Description("Id of the workflow instance"),
		),
	)
}

// Handlers

func (p *WorkflowServerPlugin) handleStartWorkflow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workflowID, err := req.RequireString("workflow_id")
	if err != nil {
		return mcp.NewToolResultError("Workflow id is required"), nil
	}

	// Suggested defaults seed the context; explicit values win.
	initialContext := p.defaults.SuggestDefaults(ctx, workflowID)
	if raw, ok := req.GetArguments()["context"].(map[string]any); ok {
		for key, value := range raw {
			initialContext[key] = fmt.Sprintf("%v", value)
		}
	}

	state, request, err := p.manager.Start(workflowID, initialContext)
	if err != nil {
		return workflowErrorResult(err), nil
	}

	return jsonResult(map[string]any{
		"instance_id":     state.InstanceID(),
		"workflow_id":     state.WorkflowID(),
		"current_step_id": state.CurrentStepID(),
		"status":          state.Status(),
		"request":         elicitationPlugin.RequestPayload(request),
	})
}

func (p *WorkflowServerPlugin) handleListWorkflows(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workflows := p.manager.Registry().List()

	payload := make([]map[string]any, 0, len(workflows))
	for _, definition := range workflows {
		payload = append(payload, map[string]any{
			"id":          definition.ID,
			"name":        definition.Name,
			"description": definition.Description,
			"steps":       len(definition.Steps),
		})
	}

	return jsonResult(map[string]any{
		"count":     len(payload),
		"workflows": payload,
	})
}

func (p *WorkflowServerPlugin) handleWorkflowStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instanceID, err := req.RequireString("instance_id")
	if err != nil {
		return mcp.NewToolResultError("Instance id is required"), nil
	}

	state, err := p.manager.Status(instanceID)
	if err != nil {
		return workflowErrorResult(err), nil
	}

	history := state.History()
	return jsonResult(map[string]any{
		"instance_id":     state.InstanceID(),
		"workflow_id":     state.WorkflowID(),
		"current_step_id": state.CurrentStepID(),
		"history":         history,
		"history_length":  len(history),
		"status":          state.Status(),
		"started_at":      state.StartedAt(),
		"updated_at":      state.UpdatedAt(),
	})
}

func (p *WorkflowServerPlugin) handleAbortWorkflow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instanceID, err := req.RequireString("instance_id")
	if err != nil {
		return mcp.NewToolResultError("Instance id is required"), nil
	}

	if err := p.manager.Abort(instanceID); err != nil {
		return workflowErrorResult(err), nil
	}

	return jsonResult(map[string]any{
		"instance_id": instanceID,
		"aborted":     true,
	})
}

func workflowErrorResult(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, workflowDomain.ErrWorkflowNotFound):
		return mcp.NewToolResultError("Workflow not found")
	case errors.Is(err, workflowDomain.ErrInstanceNotFound):
		return mcp.NewToolResultError("Workflow instance not found")
	case errors.Is(err, workflowDomain.ErrInstanceNotActive):
		return mcp.NewToolResultError("Workflow instance is no longer active")
	case errors.Is(err, workflowDomain.ErrTooManyInstances):
		return mcp.NewToolResultError("Too many active workflow instances")
	default:
		return mcp.NewToolResultError(err.Error())
	}
}

func jsonResult(payload any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
