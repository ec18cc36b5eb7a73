package domain

import (
	"fmt"

	elicitation "github.com/schemactl/schema-registry-mcp/internal/elicitation/domain"
)

// TerminalStep is the reserved next-step value meaning "workflow ends here".
const TerminalStep = "end"

// DefaultTransition is the fallback key inside a field's transition map.
const DefaultTransition = "default"

const (
	// ActionKey is the reserved values key carrying a navigation action.
	ActionKey = "_workflow_action"
	// ActionBack requests back-navigation to the previously visited step.
	ActionBack = "back"
)

// ConditionOp is the closed set of predicate operators a condition rule may use.
type ConditionOp string

const (
	ConditionOpEq       ConditionOp = "eq"
	ConditionOpNe       ConditionOp = "ne"
	ConditionOpExists   ConditionOp = "exists"
	ConditionOpAbsent   ConditionOp = "absent"
	ConditionOpContains ConditionOp = "contains"
)

// IsValid checks if the operator is one of the supported predicates
func (op ConditionOp) IsValid() bool {
	switch op {
	case ConditionOpEq, ConditionOpNe, ConditionOpExists, ConditionOpAbsent, ConditionOpContains:
		return true
	default:
		return false
	}
}

// ConditionRule is a declarative transition predicate evaluated against the
// accumulated values before the static transition table. Rules are plain
// data so workflow definitions stay serializable; no callables are ever
// embedded in a definition.
type ConditionRule struct {
	Field string      `yaml:"field" json:"field"`
	Op    ConditionOp `yaml:"op" json:"op"`
	Value string      `yaml:"value,omitempty" json:"value,omitempty"`
	Then  string      `yaml:"then" json:"then"`
}

// WorkflowStep is one question screen inside a multi-step workflow.
//
// Next maps a field name to a value -> next-step table; the reserved
// "default" value entry is the fallback when the submitted value has no
// explicit mapping. A step with no transitions at all ends the workflow.
type WorkflowStep struct {
	ID          string                       `yaml:"id" json:"id"`
	Title       string                       `yaml:"title" json:"title"`
	Description string                       `yaml:"description,omitempty" json:"description,omitempty"`
	Fields      []elicitation.Field          `yaml:"fields" json:"fields"`
	Next        map[string]map[string]string `yaml:"next,omitempty" json:"next,omitempty"`
	Conditions  []ConditionRule              `yaml:"conditions,omitempty" json:"conditions,omitempty"`
}

// MultiStepWorkflow is a declarative, registered workflow definition.
// Immutable once registered and shared read-only across all instances.
type MultiStepWorkflow struct {
	ID          string         `yaml:"id" json:"id"`
	Name        string         `yaml:"name" json:"name"`
	Description string         `yaml:"description" json:"description"`
	InitialStep string         `yaml:"initial_step" json:"initial_step"`
	Steps       []WorkflowStep `yaml:"steps" json:"steps"`
}

// Step returns the step with the given id.
func (w *MultiStepWorkflow) Step(id string) (WorkflowStep, bool) {
	for _, step := range w.Steps {
		if step.ID == id {
			return step, true
		}
	}
	return WorkflowStep{}, false
}

// Validate checks the whole definition: step ids, field sets and every
// transition target. Dangling step references are a definition bug and are
// rejected here, at registration time, never at run time.
func (w *MultiStepWorkflow) Validate() error {
	if w.ID == "" {
		return fmt.Errorf("workflow id is required")
	}
	if w.Name == "" {
		return fmt.Errorf("workflow %s: name is required", w.ID)
	}
	if len(w.Steps) == 0 {
		return fmt.Errorf("workflow %s: at least one step is required", w.ID)
	}

	stepIDs := make(map[string]bool, len(w.Steps))
	for _, step := range w.Steps {
		if step.ID == "" {
			return fmt.Errorf("workflow %s: step id is required", w.ID)
		}
		if step.ID == TerminalStep {
			return fmt.Errorf("workflow %s: step id %q is reserved", w.ID, TerminalStep)
		}
		if stepIDs[step.ID] {
			return fmt.Errorf("workflow %s: duplicate step id %q", w.ID, step.ID)
		}
		stepIDs[step.ID] = true
	}

	if w.InitialStep == "" {
		return fmt.Errorf("workflow %s: initial step is required", w.ID)
	}
	if !stepIDs[w.InitialStep] {
		return fmt.Errorf("workflow %s: initial step %q does not exist", w.ID, w.InitialStep)
	}

	for _, step := range w.Steps {
		if err := elicitation.ValidateFields(step.Fields); err != nil {
			return fmt.Errorf("workflow %s: step %s: %w", w.ID, step.ID, err)
		}

		fieldNames := make(map[string]bool, len(step.Fields))
		for _, field := range step.Fields {
			fieldNames[field.Name] = true
		}

		for fieldName, transitions := range step.Next {
			if !fieldNames[fieldName] {
				return fmt.Errorf("workflow %s: step %s: transition references unknown field %q", w.ID, step.ID, fieldName)
			}
			for value, target := range transitions {
				if target != TerminalStep && !stepIDs[target] {
					return fmt.Errorf("workflow %s: step %s: transition %s=%s targets unknown step %q", w.ID, step.ID, fieldName, value, target)
				}
			}
		}

		for i, rule := range step.Conditions {
			if rule.Field == "" {
				return fmt.Errorf("workflow %s: step %s: condition %d: field is required", w.ID, step.ID, i)
			}
			if !rule.Op.IsValid() {
				return fmt.Errorf("workflow %s: step %s: condition %d: unknown operator %q", w.ID, step.ID, i, rule.Op)
			}
			if rule.Then != TerminalStep && !stepIDs[rule.Then] {
				return fmt.Errorf("workflow %s: step %s: condition %d targets unknown step %q", w.ID, step.ID, i, rule.Then)
			}
		}
	}

	return nil
}
