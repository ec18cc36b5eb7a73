// Package registry defines the Schema Registry collaborator surface.
// The elicitation and workflow engine never talks to Kafka or the registry
// directly; it hands collected values to implementations of these interfaces.
package registry

import (
	"context"
	"errors"
)

// ErrRegistryUnavailable is returned by the offline client for every call.
var ErrRegistryUnavailable = errors.New("schema registry not configured")

// SchemaType enumerates the schema formats a registry accepts.
type SchemaType string

const (
	SchemaTypeAvro     SchemaType = "AVRO"
	SchemaTypeJSON     SchemaType = "JSON"
	SchemaTypeProtobuf SchemaType = "PROTOBUF"
)

// CompatibilityLevel enumerates registry compatibility modes.
type CompatibilityLevel string

const (
	CompatibilityBackward           CompatibilityLevel = "BACKWARD"
	CompatibilityBackwardTransitive CompatibilityLevel = "BACKWARD_TRANSITIVE"
	CompatibilityForward            CompatibilityLevel = "FORWARD"
	CompatibilityForwardTransitive  CompatibilityLevel = "FORWARD_TRANSITIVE"
	CompatibilityFull               CompatibilityLevel = "FULL"
	CompatibilityFullTransitive     CompatibilityLevel = "FULL_TRANSITIVE"
	CompatibilityNone               CompatibilityLevel = "NONE"
)

// RegisterSchemaInput carries everything needed to register a schema version.
type RegisterSchemaInput struct {
	Subject    string
	SchemaType SchemaType
	Schema     string
}

// Client is the Schema Registry HTTP client contract. The real HTTP
// implementation lives outside this repository; the server ships with an
// offline client so it runs without a registry.
type Client interface {
	RegisterSchema(ctx context.Context, input RegisterSchemaInput) (int, error)
	SetSubjectCompatibility(ctx context.Context, subject string, level CompatibilityLevel) error
	ListSubjects(ctx context.Context) ([]string, error)
}

// DefaultsProvider is the optional value-prefill hook: implementations
// suggest initial context values for a workflow before it starts.
type DefaultsProvider interface {
	SuggestDefaults(ctx context.Context, workflowID string) map[string]string
}
