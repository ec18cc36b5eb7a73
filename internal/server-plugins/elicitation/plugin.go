package elicitation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/schemactl/schema-registry-mcp/internal/elicitation"
	elicdomain "github.com/schemactl/schema-registry-mcp/internal/elicitation/domain"
	serverDomain "github.com/schemactl/schema-registry-mcp/internal/server-plugin/domain"
	"github.com/schemactl/schema-registry-mcp/internal/workflow"
	workflowDomain "github.com/schemactl/schema-registry-mcp/internal/workflow/domain"
)

// ElicitationServerPlugin exposes the request lifecycle as MCP tools.
// Creating a request and answering it are separate tool calls; no handler
// ever blocks waiting for the user.
type ElicitationServerPlugin struct {
	manager   *elicitation.Manager
	workflows *workflow.Manager
	logger    *slog.Logger
}

func NewElicitationServerPlugin(
	manager *elicitation.Manager,
	workflows *workflow.Manager,
	logger *slog.Logger,
) *ElicitationServerPlugin {
	return &ElicitationServerPlugin{
		manager:   manager,
		workflows: workflows,
		logger:    logger,
	}
}

// ServerPlugin interface
func (p *ElicitationServerPlugin) ID() string   { return "elicitation" }
func (p *ElicitationServerPlugin) Name() string { return "Elicitation" }
func (p *ElicitationServerPlugin) Description() string {
	return "Structured user-input requests with bounded lifetimes"
}
func (p *ElicitationServerPlugin) Version() string { return "0.1.0" }

// ToolProvider implementation
func (p *ElicitationServerPlugin) GetTools(ctx context.Context) ([]serverDomain.Tool, error) {
	return []serverDomain.Tool{
		{
			Name:        "create_elicitation_request",
			Description: "Create a structured request for user input",
			Builder:     buildCreateRequestTool,
			Handler:     p.handleCreateRequest,
		},
		{
			Name:        "submit_elicitation_response",
			Description: "Submit user-provided values for a pending request",
			Builder:     buildSubmitResponseTool,
			Handler:     p.handleSubmitResponse,
		},
		{
			Name:        "list_elicitation_requests",
			Description: "List pending elicitation requests",
			Builder:     buildListRequestsTool,
			Handler:     p.handleListRequests,
		},
		{
			Name:        "get_elicitation_request",
			Description: "Get an elicitation request and its response if any",
			Builder:     buildGetRequestTool,
			Handler:     p.handleGetRequest,
		},
		{
			Name:        "cancel_elicitation_request",
			Description: "Cancel a pending elicitation request",
			Builder:     buildCancelRequestTool,
			Handler:     p.handleCancelRequest,
		},
		{
			Name:        "get_elicitation_status",
			Description: "Summarize the pending elicitation requests",
			Builder:     buildStatusTool,
			Handler:     p.handleStatus,
		},
	}, nil
}

// Tool builders

func buildCreateRequestTool() mcp.Tool {
	return mcp.NewTool(
		"create_elicitation_request",
		mcp.WithDescription("Create a structured request for user input. The call returns immediately; the answer arrives later through submit_elicitation_response."),
		mcp.WithString("type",
			mcp.Required(),
			mcp.Description("Request kind: text, choice, confirmation or form"),
			mcp.Enum("text", "choice", "confirmation", "form"),
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Short title shown to the user"),
		),
		mcp.WithString("description",
			mcp.Description("Longer explanation of what is being asked"),
		),
		mcp.WithArray("fields",
			mcp.Description("Field definitions: [{name, type, label, placeholder?, required?, options?, default?}]. Required for form requests; single-field kinds may instead use the label/options/default shortcuts."),
		),
		mcp.WithString("label",
			mcp.Description("Label for the single implicit field of a non-form request"),
		),
		mcp.WithArray("options",
			mcp.Description("Options for a single choice request"),
		),
		mcp.WithString("default",
			mcp.Description("Default value for the single implicit field"),
		),
		mcp.WithString("priority",
			mcp.Description("low, medium or high (default medium)"),
			mcp.Enum("low", "medium", "high"),
		),
		mcp.WithNumber("timeout_seconds",
			mcp.Description("Seconds before the request expires (default from configuration)"),
		),
		mcp.WithObject("context",
			mcp.Description("Opaque key/value bag passed back to the caller"),
		),
	)
}

func buildSubmitResponseTool() mcp.Tool {
	return mcp.NewTool(
		"submit_elicitation_response",
		mcp.WithDescription("Submit values for a pending request. Workflow-owned requests advance their workflow instance; submit {\"_workflow_action\":\"back\"} to return to the previous step."),
		mcp.WithString("request_id",
			mcp.Required(),
			mcp.Description("Id of the pending request"),
		),
		mcp.WithObject("values",
			mcp.Required(),
			mcp.Description("Field name to value map"),
		),
		mcp.WithBoolean("complete",
			mcp.Description("Whether this response satisfies all required fields (default true)"),
		),
	)
}

func buildListRequestsTool() mcp.Tool {
	return mcp.NewTool(
		"list_elicitation_requests",
		mcp.WithDescription("List pending, non-expired elicitation requests ordered by priority then age"),
		mcp.WithString("priority",
			mcp.Description("Only return requests with this priority"),
			mcp.Enum("low", "medium", "high"),
		),
	)
}

func buildGetRequestTool() mcp.Tool {
	return mcp.NewTool(
		"get_elicitation_request",
		mcp.WithDescription("Get a single elicitation request, its status and its response if one was applied"),
		mcp.WithString("request_id",
			mcp.Required(),
			mcp.Description("Id of the request"),
		),
	)
}

func buildCancelRequestTool() mcp.Tool {
	return mcp.NewTool(
		"cancel_elicitation_request",
		mcp.WithDescription("Cancel a pending elicitation request"),
		mcp.WithString("request_id",
			mcp.Required(),
			mcp.Description("Id of the request"),
		),
	)
}

func buildStatusTool() mcp.Tool {
	return mcp.NewTool(
		"get_elicitation_status",
		mcp.WithDescription("Count of pending requests with per-request summaries"),
	)
}

// Handlers

func (p *ElicitationServerPlugin) handleCreateRequest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kindParam, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError("Request type is required"), nil
	}

	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError("Request title is required"), nil
	}

	args := req.GetArguments()

	fields, err := parseFields(args, elicdomain.RequestKind(kindParam))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var timeout time.Duration
	if seconds, ok := args["timeout_seconds"].(float64); ok {
		if seconds <= 0 {
			return mcp.NewToolResultError("timeout_seconds must be positive"), nil
		}
		timeout = time.Duration(seconds * float64(time.Second))
	}

	priority := elicdomain.PriorityMedium
	if value, ok := args["priority"].(string); ok && value != "" {
		priority = elicdomain.Priority(value)
	}

	request, err := p.manager.Create(elicitation.CreateRequestInput{
		Kind:          elicdomain.RequestKind(kindParam),
		Title:         title,
		Description:   stringArg(args, "description"),
		Fields:        fields,
		AllowMultiple: len(fields) > 1,
		Priority:      priority,
		Timeout:       timeout,
		Context:       stringMapArg(args, "context"),
	})
	if err != nil {
		return elicitationErrorResult(err), nil
	}

	return jsonResult(RequestPayload(request))
}

func (p *ElicitationServerPlugin) handleSubmitResponse(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	requestID, err := req.RequireString("request_id")
	if err != nil {
		return mcp.NewToolResultError("Request id is required"), nil
	}

	args := req.GetArguments()
	values := stringMapArg(args, "values")

	complete := true
	if flag, ok := args["complete"].(bool); ok {
		complete = flag
	}

	request, _, err := p.manager.Get(requestID)
	if err != nil {
		return elicitationErrorResult(err), nil
	}

	instanceID, workflowOwned := request.ContextValue(workflow.ContextKeyInstanceID)

	// Back-navigation never completes the step's request; the workflow
	// manager withdraws it and issues one for the restored step.
	if workflowOwned && values[workflowDomain.ActionKey] == workflowDomain.ActionBack {
		outcome, err := p.workflows.HandleResponse(instanceID, values)
		if err != nil {
			return workflowErrorResult(err), nil
		}
		return jsonResult(outcomePayload(outcome))
	}

	response, err := p.manager.SubmitResponse(requestID, values, complete)
	if err != nil {
		return elicitationErrorResult(err), nil
	}

	if !workflowOwned || !response.Complete {
		return jsonResult(map[string]any{
			"request_id":   response.RequestID,
			"values":       response.Values,
			"complete":     response.Complete,
			"submitted_at": response.SubmittedAt,
		})
	}

	outcome, err := p.workflows.HandleResponse(instanceID, response.Values)
	if err != nil {
		return workflowErrorResult(err), nil
	}
	return jsonResult(outcomePayload(outcome))
}

func (p *ElicitationServerPlugin) handleListRequests(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var filter *elicdomain.Priority
	if value := req.GetString("priority", ""); value != "" {
		priority := elicdomain.Priority(value)
		if !priority.IsValid() {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid priority %q", value)), nil
		}
		filter = &priority
	}

	pending := p.manager.ListPending(filter)
	payload := make([]map[string]any, 0, len(pending))
	for _, request := range pending {
		payload = append(payload, RequestPayload(request))
	}

	return jsonResult(map[string]any{
		"count":    len(payload),
		"requests": payload,
	})
}

func (p *ElicitationServerPlugin) handleGetRequest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	requestID, err := req.RequireString("request_id")
	if err != nil {
		return mcp.NewToolResultError("Request id is required"), nil
	}

	request, response, err := p.manager.Get(requestID)
	if err != nil {
		return elicitationErrorResult(err), nil
	}

	payload := RequestPayload(request)
	if response != nil {
		payload["response"] = map[string]any{
			"values":       response.Values,
			"complete":     response.Complete,
			"submitted_at": response.SubmittedAt,
		}
	}

	return jsonResult(payload)
}

func (p *ElicitationServerPlugin) handleCancelRequest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	requestID, err := req.RequireString("request_id")
	if err != nil {
		return mcp.NewToolResultError("Request id is required"), nil
	}

	if err := p.manager.Cancel(requestID); err != nil {
		return elicitationErrorResult(err), nil
	}

	return jsonResult(map[string]any{
		"request_id": requestID,
		"cancelled":  true,
	})
}

func (p *ElicitationServerPlugin) handleStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(p.manager.Status())
}

// RequestPayload renders a request in the wire shape consumed by clients.
func RequestPayload(request *elicdomain.ElicitationRequest) map[string]any {
	return map[string]any{
		"id":             request.ID(),
		"type":           request.Kind(),
		"title":          request.Title(),
		"description":    request.Description(),
		"fields":         request.Fields(),
		"allow_multiple": request.AllowMultiple(),
		"priority":       request.Priority(),
		"created_at":     request.CreatedAt(),
		"expires_at":     request.ExpiresAt(),
		"status":         request.Status(),
		"expired":        request.IsExpired(time.Now()),
		"context":        request.Context(),
	}
}

func outcomePayload(outcome *workflow.StepOutcome) map[string]any {
	payload := map[string]any{
		"instance_id":     outcome.InstanceID,
		"current_step_id": outcome.CurrentStepID,
		"completed":       outcome.Completed,
	}
	if outcome.Completed {
		payload["values"] = outcome.Values
	}
	if outcome.Request != nil {
		payload["next_request"] = RequestPayload(outcome.Request)
	}
	return payload
}

// parseFields builds the field set either from an explicit fields array or
// from the single-field shortcuts of non-form requests.
func parseFields(args map[string]any, kind elicdomain.RequestKind) ([]elicdomain.Field, error) {
	if raw, ok := args["fields"].([]any); ok && len(raw) > 0 {
		encoded, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid fields: %v", err)
		}
		var fields []elicdomain.Field
		if err := json.Unmarshal(encoded, &fields); err != nil {
			return nil, fmt.Errorf("invalid fields: %v", err)
		}
		return fields, nil
	}

	if kind == elicdomain.RequestKindForm {
		return nil, fmt.Errorf("form requests require a fields array")
	}

	field := elicdomain.Field{
		Name:     "value",
		Kind:     elicdomain.FieldKind(kind),
		Label:    stringArg(args, "label"),
		Required: true,
		Default:  stringArg(args, "default"),
	}
	if raw, ok := args["options"].([]any); ok {
		for _, option := range raw {
			field.Options = append(field.Options, fmt.Sprintf("%v", option))
		}
	}

	return []elicdomain.Field{field}, nil
}

func elicitationErrorResult(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, elicdomain.ErrRequestNotFound):
		return mcp.NewToolResultError("Elicitation request not found")
	case errors.Is(err, elicdomain.ErrRequestExpired):
		return mcp.NewToolResultError("Elicitation request has expired")
	case errors.Is(err, elicdomain.ErrInvalidState):
		return mcp.NewToolResultError("Elicitation request is no longer pending")
	case errors.Is(err, elicdomain.ErrStoreFull):
		return mcp.NewToolResultError("Too many pending elicitation requests")
	default:
		return mcp.NewToolResultError(err.Error())
	}
}

func workflowErrorResult(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, workflowDomain.ErrInstanceNotFound):
		return mcp.NewToolResultError("Workflow instance not found")
	case errors.Is(err, workflowDomain.ErrInstanceNotActive):
		return mcp.NewToolResultError("Workflow instance is no longer active")
	case errors.Is(err, workflowDomain.ErrNoHistory):
		return mcp.NewToolResultError("Cannot navigate back from the initial step")
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

func stringArg(args map[string]any, key string) string {
	value, _ := args[key].(string)
	return value
}

func stringMapArg(args map[string]any, key string) map[string]string {
	result := make(map[string]string)
	raw, ok := args[key].(map[string]any)
	if !ok {
		return result
	}
	for key, value := range raw {
		switch typed := value.(type) {
		case string:
			result[key] = typed
		case bool:
			if typed {
				result[key] = "true"
			} else {
				result[key] = "false"
			}
		default:
			result[key] = fmt.Sprintf("%v", typed)
		}
	}
	return result
}
