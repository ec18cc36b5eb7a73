package registry

import "context"

// OfflineClient is the no-op Client used when no registry URL is configured.
// Every call fails with ErrRegistryUnavailable; callers are expected to
// surface the collected values instead of applying them.
type OfflineClient struct{}

// NewOfflineClient creates a client that refuses every operation.
func NewOfflineClient() *OfflineClient {
	return &OfflineClient{}
}

func (c *OfflineClient) RegisterSchema(ctx context.Context, input RegisterSchemaInput) (int, error) {
	return 0, ErrRegistryUnavailable
}

func (c *OfflineClient) SetSubjectCompatibility(ctx context.Context, subject string, level CompatibilityLevel) error {
	return ErrRegistryUnavailable
}

func (c *OfflineClient) ListSubjects(ctx context.Context) ([]string, error) {
	return nil, ErrRegistryUnavailable
}

// StaticDefaultsProvider returns fixed prefill suggestions. It stands in for
// the smart-defaults heuristics, which are an external collaborator.
type StaticDefaultsProvider struct {
	defaults map[string]map[string]string
}

// NewStaticDefaultsProvider creates a provider with per-workflow suggestions.
func NewStaticDefaultsProvider() *StaticDefaultsProvider {
	return &StaticDefaultsProvider{
		defaults: map[string]map[string]string{
			"register_schema_wizard": {
				"suggested_schema_type":   string(SchemaTypeAvro),
				"suggested_compatibility": string(CompatibilityBackward),
			},
			"migrate_compatibility_wizard": {
				"suggested_compatibility": string(CompatibilityBackward),
			},
		},
	}
}

func (p *StaticDefaultsProvider) SuggestDefaults(ctx context.Context, workflowID string) map[string]string {
	suggestions := make(map[string]string, len(p.defaults[workflowID]))
	for key, value := range p.defaults[workflowID] {
		suggestions[key] = value
	}
	return suggestions
}
