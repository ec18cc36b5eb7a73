package domain

import "strings"

// NamespacedKey builds the values key for a field answered at a step.
// Namespacing keeps steps that reuse a field name from clobbering each other.
func NamespacedKey(stepID, fieldName string) string {
	return stepID + "." + fieldName
}

// ResolveNext determines the step that follows the given step once a
// response has been merged into values.
//
// Condition rules are evaluated first, in declaration order; the first rule
// that fires wins. Otherwise the static transition table is consulted per
// responding field: exact value match, then the "default" fallback. A step
// without any transitions ends the workflow. A table that exists but covers
// neither the submitted value nor a default is a definition bug surfaced as
// a TransitionError.
func ResolveNext(workflowID string, step WorkflowStep, values map[string]string, response map[string]string) (string, error) {
	for _, rule := range step.Conditions {
		if rule.matches(step.ID, values) {
			return rule.Then, nil
		}
	}

	if len(step.Next) == 0 {
		return TerminalStep, nil
	}

	for _, field := range step.Fields {
		transitions, ok := step.Next[field.Name]
		if !ok {
			continue
		}

		value, answered := response[field.Name]
		if answered {
			if target, ok := transitions[value]; ok {
				return target, nil
			}
		}
		if target, ok := transitions[DefaultTransition]; ok {
			return target, nil
		}

		return "", &TransitionError{
			WorkflowID: workflowID,
			StepID:     step.ID,
			Field:      field.Name,
			Value:      value,
		}
	}

	return "", &TransitionError{WorkflowID: workflowID, StepID: step.ID}
}

// matches evaluates a rule against the accumulated values. The rule's field
// may be a namespaced key ("step.field") or a bare field name, which is
// resolved against the current step's namespace.
func (r ConditionRule) matches(stepID string, values map[string]string) bool {
	value, ok := values[r.Field]
	if !ok {
		value, ok = values[NamespacedKey(stepID, r.Field)]
	}

	switch r.Op {
	case ConditionOpExists:
		return ok
	case ConditionOpAbsent:
		return !ok
	case ConditionOpEq:
		return ok && value == r.Value
	case ConditionOpNe:
		return ok && value != r.Value
	case ConditionOpContains:
		return ok && strings.Contains(value, r.Value)
	default:
		return false
	}
}
