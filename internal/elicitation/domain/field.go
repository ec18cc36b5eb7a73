package domain

import "fmt"

// FieldKind is the closed set of question kinds a field can take.
type FieldKind string

const (
	FieldKindText         FieldKind = "text"
	FieldKindChoice       FieldKind = "choice"
	FieldKindConfirmation FieldKind = "confirmation"
)

// IsValid checks if the field kind is one of the supported kinds
func (k FieldKind) IsValid() bool {
	switch k {
	case FieldKindText, FieldKindChoice, FieldKindConfirmation:
		return true
	default:
		return false
	}
}

// String returns the string representation of the field kind
func (k FieldKind) String() string {
	return string(k)
}

// confirmationOptions is the effective option set for confirmation fields.
var confirmationOptions = []string{"true", "false"}

// Field describes a single question inside a request or workflow step.
type Field struct {
	Name        string    `json:"name" yaml:"name"`
	Kind        FieldKind `json:"type" yaml:"type"`
	Label       string    `json:"label" yaml:"label"`
	Placeholder string    `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Required    bool      `json:"required" yaml:"required"`
	Default     string    `json:"default,omitempty" yaml:"default,omitempty"`
	Options     []string  `json:"options,omitempty" yaml:"options,omitempty"`
}

// EffectiveOptions returns the option set used for membership checks.
// Confirmation fields always answer against {"true","false"}.
func (f Field) EffectiveOptions() []string {
	if f.Kind == FieldKindConfirmation {
		return confirmationOptions
	}
	return f.Options
}

// Validate checks the field definition itself. Unknown kinds and
// malformed choice fields are rejected here, at definition time,
// rather than when a response arrives.
func (f Field) Validate() error {
	if f.Name == "" {
		return &ValidationError{Message: "field name is required"}
	}

	if !f.Kind.IsValid() {
		return &ValidationError{Field: f.Name, Message: fmt.Sprintf("unknown field kind %q", f.Kind)}
	}

	if f.Kind == FieldKindChoice {
		if len(f.Options) == 0 {
			return &ValidationError{Field: f.Name, Message: "choice field requires at least one option"}
		}
		if f.Default != "" && !contains(f.Options, f.Default) {
			return &ValidationError{Field: f.Name, Message: fmt.Sprintf("default %q is not one of the options", f.Default)}
		}
	}

	if f.Kind == FieldKindConfirmation && f.Default != "" && !contains(confirmationOptions, f.Default) {
		return &ValidationError{Field: f.Name, Message: "confirmation default must be \"true\" or \"false\""}
	}

	return nil
}

// ValidateFields validates a whole field set, including name uniqueness.
func ValidateFields(fields []Field) error {
	if len(fields) == 0 {
		return &ValidationError{Message: "at least one field is required"}
	}

	seen := make(map[string]bool, len(fields))
	for _, field := range fields {
		if err := field.Validate(); err != nil {
			return err
		}
		if seen[field.Name] {
			return &ValidationError{Field: field.Name, Message: "duplicate field name"}
		}
		seen[field.Name] = true
	}
	return nil
}

// ValidateValue checks a single submitted value against a field and returns
// the value to record. A missing optional value falls back to the default.
func ValidateValue(field Field, value string, present bool) (string, error) {
	if !present || value == "" {
		if field.Default != "" {
			return field.Default, nil
		}
		if field.Required {
			return "", &ValidationError{Field: field.Name, Message: "required field is missing"}
		}
		return "", nil
	}

	switch field.Kind {
	case FieldKindText:
		return value, nil
	case FieldKindChoice, FieldKindConfirmation:
		options := field.EffectiveOptions()
		if !contains(options, value) {
			return "", &ValidationError{
				Field:   field.Name,
				Message: fmt.Sprintf("value %q is not one of %v", value, options),
			}
		}
		return value, nil
	default:
		return "", &ValidationError{Field: field.Name, Message: fmt.Sprintf("unknown field kind %q", field.Kind)}
	}
}

// ValidateValues checks a submitted value map against a field set and returns
// the accepted values. Keys beyond the field set are ignored for forward
// compatibility with richer clients. When requireComplete is false only the
// supplied values are checked and required fields may still be absent.
func ValidateValues(fields []Field, values map[string]string, requireComplete bool) (map[string]string, error) {
	accepted := make(map[string]string, len(fields))

	for _, field := range fields {
		value, present := values[field.Name]

		if !present && !requireComplete {
			continue
		}

		validated, err := ValidateValue(field, value, present)
		if err != nil {
			return nil, err
		}
		if validated != "" || present {
			accepted[field.Name] = validated
		}
	}

	return accepted, nil
}

func contains(options []string, value string) bool {
	for _, option := range options {
		if option == value {
			return true
		}
	}
	return false
}
