package schema

import (
	elicdomain "github.com/schemactl/schema-registry-mcp/internal/elicitation/domain"
	"github.com/schemactl/schema-registry-mcp/internal/registry"
	workflowDomain "github.com/schemactl/schema-registry-mcp/internal/workflow/domain"
)

// Built-in workflow ids.
const (
	RegisterSchemaWizardID       = "register_schema_wizard"
	MigrateCompatibilityWizardID = "migrate_compatibility_wizard"
)

var schemaTypeOptions = []string{
	string(registry.SchemaTypeAvro),
	string(registry.SchemaTypeJSON),
	string(registry.SchemaTypeProtobuf),
}

var compatibilityOptions = []string{
	string(registry.CompatibilityBackward),
	string(registry.CompatibilityBackwardTransitive),
	string(registry.CompatibilityForward),
	string(registry.CompatibilityForwardTransitive),
	string(registry.CompatibilityFull),
	string(registry.CompatibilityFullTransitive),
	string(registry.CompatibilityNone),
}

// registerSchemaWizard walks the user through registering a schema version:
// subject, schema type, schema body, compatibility level, confirmation.
// Declining the confirmation loops back to the subject step with all
// previously collected values offered as defaults.
func registerSchemaWizard() *workflowDomain.MultiStepWorkflow {
	return &workflowDomain.MultiStepWorkflow{
		ID:          RegisterSchemaWizardID,
		Name:        "Register Schema",
		Description: "Guided registration of a new schema version under a subject",
		InitialStep: "subject",
		Steps: []workflowDomain.WorkflowStep{
			{
				ID:          "subject",
				Title:       "Subject",
				Description: "Which subject should the schema be registered under?",
				Fields: []elicdomain.Field{
					{
						Name:        "subject",
						Kind:        elicdomain.FieldKindText,
						Label:       "Subject name",
						Placeholder: "orders-value",
						Required:    true,
					},
				},
				Next: map[string]map[string]string{
					"subject": {workflowDomain.DefaultTransition: "schema_type"},
				},
			},
			{
				ID:          "schema_type",
				Title:       "Schema Type",
				Description: "Which format is the schema written in?",
				Fields: []elicdomain.Field{
					{
						Name:     "schema_type",
						Kind:     elicdomain.FieldKindChoice,
						Label:    "Schema format",
						Required: true,
						Default:  string(registry.SchemaTypeAvro),
						Options:  schemaTypeOptions,
					},
				},
				Next: map[string]map[string]string{
					"schema_type": {workflowDomain.DefaultTransition: "schema"},
				},
			},
			{
				ID:          "schema",
				Title:       "Schema",
				Description: "Paste the full schema definition",
				Fields: []elicdomain.Field{
					{
						Name:        "schema",
						Kind:        elicdomain.FieldKindText,
						Label:       "Schema body",
						Placeholder: "{\"type\": \"record\", ...}",
						Required:    true,
					},
				},
				Next: map[string]map[string]string{
					"schema": {workflowDomain.DefaultTransition: "compatibility"},
				},
			},
			{
				ID:          "compatibility",
				Title:       "Compatibility",
				Description: "Which compatibility level should the subject use?",
				Fields: []elicdomain.Field{
					{
						Name:     "compatibility",
						Kind:     elicdomain.FieldKindChoice,
						Label:    "Compatibility level",
						Required: true,
						Default:  string(registry.CompatibilityBackward),
						Options:  compatibilityOptions,
					},
				},
				Next: map[string]map[string]string{
					"compatibility": {workflowDomain.DefaultTransition: "confirm"},
				},
			},
			{
				ID:          "confirm",
				Title:       "Confirm Registration",
				Description: "Register the schema with the collected settings?",
				Fields: []elicdomain.Field{
					{
						Name:     "confirm",
						Kind:     elicdomain.FieldKindConfirmation,
						Label:    "Register now",
						Required: true,
					},
				},
				Next: map[string]map[string]string{
					"confirm": {
						"true":  workflowDomain.TerminalStep,
						"false": "subject",
					},
				},
			},
		},
	}
}

// migrateCompatibilityWizard changes a subject's compatibility level.
// Selecting NONE routes through an extra risk acknowledgement step before
// the dry-run choice.
func migrateCompatibilityWizard() *workflowDomain.MultiStepWorkflow {
	return &workflowDomain.MultiStepWorkflow{
		ID:          MigrateCompatibilityWizardID,
		Name:        "Migrate Compatibility",
		Description: "Guided change of a subject's compatibility level",
		InitialStep: "subject",
		Steps: []workflowDomain.WorkflowStep{
			{
				ID:          "subject",
				Title:       "Subject",
				Description: "Which subject should be migrated?",
				Fields: []elicdomain.Field{
					{
						Name:     "subject",
						Kind:     elicdomain.FieldKindText,
						Label:    "Subject name",
						Required: true,
					},
				},
				Next: map[string]map[string]string{
					"subject": {workflowDomain.DefaultTransition: "target_level"},
				},
			},
			{
				ID:          "target_level",
				Title:       "Target Level",
				Description: "Which compatibility level should the subject move to?",
				Fields: []elicdomain.Field{
					{
						Name:     "target_level",
						Kind:     elicdomain.FieldKindChoice,
						Label:    "Compatibility level",
						Required: true,
						Default:  string(registry.CompatibilityBackward),
						Options:  compatibilityOptions,
					},
				},
				Conditions: []workflowDomain.ConditionRule{
					{
						Field: "target_level",
						Op:    workflowDomain.ConditionOpEq,
						Value: string(registry.CompatibilityNone),
						Then:  "confirm_none",
					},
				},
				Next: map[string]map[string]string{
					"target_level": {workflowDomain.DefaultTransition: "dry_run"},
				},
			},
			{
				ID:          "confirm_none",
				Title:       "Disable Compatibility Checks",
				Description: "NONE disables all compatibility checking for the subject. Proceed anyway?",
				Fields: []elicdomain.Field{
					{
						Name:     "accept_risk",
						Kind:     elicdomain.FieldKindConfirmation,
						Label:    "I understand the risk",
						Required: true,
					},
				},
				Next: map[string]map[string]string{
					"accept_risk": {
						"true":  "dry_run",
						"false": "target_level",
					},
				},
			},
			{
				ID:          "dry_run",
				Title:       "Dry Run",
				Description: "Preview the change without applying it?",
				Fields: []elicdomain.Field{
					{
						Name:     "dry_run",
						Kind:     elicdomain.FieldKindConfirmation,
						Label:    "Dry run only",
						Required: true,
						Default:  "true",
					},
				},
				Next: map[string]map[string]string{
					"dry_run": {workflowDomain.DefaultTransition: workflowDomain.TerminalStep},
				},
			},
		},
	}
}
