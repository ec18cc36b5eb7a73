package schema

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/schemactl/schema-registry-mcp/internal/registry"
	serverDomain "github.com/schemactl/schema-registry-mcp/internal/server-plugin/domain"
	"github.com/schemactl/schema-registry-mcp/internal/workflow"
	workflowDomain "github.com/schemactl/schema-registry-mcp/internal/workflow/domain"
)

// SchemaServerPlugin ships the built-in schema wizards. It registers the
// workflow definitions, applies completed wizard runs against the registry
// client and exposes a resource describing the wizards.
type SchemaServerPlugin struct {
	workflows *workflow.Manager
	client    registry.Client
	logger    *slog.Logger
}

func NewSchemaServerPlugin(
	workflows *workflow.Manager,
	client registry.Client,
	logger *slog.Logger,
) (*SchemaServerPlugin, error) {
	plugin := &SchemaServerPlugin{
		workflows: workflows,
		client:    client,
		logger:    logger,
	}

	for _, definition := range []*workflowDomain.MultiStepWorkflow{
		registerSchemaWizard(),
		migrateCompatibilityWizard(),
	} {
		if err := workflows.Registry().Register(definition); err != nil {
			return nil, fmt.Errorf("failed to register built-in workflow %q: %w", definition.ID, err)
		}
	}

	workflows.OnComplete(RegisterSchemaWizardID, plugin.applySchemaRegistration)
	workflows.OnComplete(MigrateCompatibilityWizardID, plugin.applyCompatibilityMigration)

	return plugin, nil
}

// ServerPlugin interface
func (p *SchemaServerPlugin) ID() string   { return "schema" }
func (p *SchemaServerPlugin) Name() string { return "Schema Wizards" }
func (p *SchemaServerPlugin) Description() string {
	return "Built-in guided workflows for schema registration and compatibility migration"
}
func (p *SchemaServerPlugin) Version() string { return "0.1.0" }

// ResourceProvider implementation
func (p *SchemaServerPlugin) GetResources(ctx context.Context) ([]serverDomain.Resource, error) {
	return []serverDomain.Resource{
		{
			URI:         "registry-mcp://schema/wizards",
			Name:        "Schema Wizards",
			Description: "Built-in schema workflow wizards and how to start them",
			MIMEType:    "application/json",
			Handler:     p.handleWizardsResource,
		},
	}, nil
}

func (p *SchemaServerPlugin) handleWizardsResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	definitions := p.workflows.Registry().List()

	wizards := make([]map[string]any, 0, len(definitions))
	for _, definition := range definitions {
		steps := make([]string, 0, len(definition.Steps))
		for _, step := range definition.Steps {
			steps = append(steps, step.ID)
		}
		wizards = append(wizards, map[string]any{
			"id":           definition.ID,
			"name":         definition.Name,
			"description":  definition.Description,
			"initial_step": definition.InitialStep,
			"steps":        steps,
		})
	}

	payload := map[string]any{
		"wizards": wizards,
		"usage":   "Start a wizard with the start_workflow tool, then answer each step with submit_elicitation_response.",
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize wizards resource: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// applySchemaRegistration runs after a register_schema_wizard instance
// completes. The wizard only reaches the terminal step through an explicit
// confirmation, so the collected values are applied as-is.
func (p *SchemaServerPlugin) applySchemaRegistration(instanceID string, values map[string]string) {
	input := registry.RegisterSchemaInput{
		Subject:    values[workflowDomain.NamespacedKey("subject", "subject")],
		SchemaType: registry.SchemaType(values[workflowDomain.NamespacedKey("schema_type", "schema_type")]),
		Schema:     values[workflowDomain.NamespacedKey("schema", "schema")],
	}

	version, err := p.client.RegisterSchema(context.Background(), input)
	if err != nil {
		if errors.Is(err, registry.ErrRegistryUnavailable) {
			p.logger.Warn("Schema collected but no registry is configured",
				"instance_id", instanceID,
				"subject", input.Subject)
			return
		}
		p.logger.Error("Failed to register schema",
			"instance_id", instanceID,
			"subject", input.Subject,
			"error", err)
		return
	}

	p.logger.Info("Schema registered",
		"instance_id", instanceID,
		"subject", input.Subject,
		"version", version)

	level := registry.CompatibilityLevel(values[workflowDomain.NamespacedKey("compatibility", "compatibility")])
	if err := p.client.SetSubjectCompatibility(context.Background(), input.Subject, level); err != nil {
		p.logger.Error("Failed to set compatibility for registered subject",
			"instance_id", instanceID,
			"subject", input.Subject,
			"compatibility", level,
			"error", err)
		return
	}

	p.logger.Info("Subject compatibility set",
		"instance_id", instanceID,
		"subject", input.Subject,
		"compatibility", level)
}

// applyCompatibilityMigration runs after a migrate_compatibility_wizard
// instance completes. A dry run logs the planned change without applying it.
func (p *SchemaServerPlugin) applyCompatibilityMigration(instanceID string, values map[string]string) {
	subject := values[workflowDomain.NamespacedKey("subject", "subject")]
	level := registry.CompatibilityLevel(values[workflowDomain.NamespacedKey("target_level", "target_level")])
	dryRun := values[workflowDomain.NamespacedKey("dry_run", "dry_run")] == "true"

	if dryRun {
		p.logger.Info("Compatibility migration dry run",
			"instance_id", instanceID,
			"subject", subject,
			"target_level", level)
		return
	}

	if err := p.client.SetSubjectCompatibility(context.Background(), subject, level); err != nil {
		if errors.Is(err, registry.ErrRegistryUnavailable) {
			p.logger.Warn("Migration collected but no registry is configured",
				"instance_id", instanceID,
				"subject", subject,
				"target_level", level)
			return
		}
		p.logger.Error("Failed to migrate subject compatibility",
			"instance_id", instanceID,
			"subject", subject,
			"error", err)
		return
	}

	p.logger.Info("Subject compatibility migrated",
		"instance_id", instanceID,
		"subject", subject,
		"target_level", level)
}
