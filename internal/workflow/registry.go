package workflow

import (
	"sort"
	"sync"

	"github.com/schemactl/schema-registry-mcp/internal/workflow/domain"
)

// DefinitionRegistry holds the registered workflow definitions. Definitions
// are validated on the way in and shared read-only across all instances.
type DefinitionRegistry struct {
	mu        sync.RWMutex
	workflows map[string]*domain.MultiStepWorkflow
}

// NewDefinitionRegistry creates an empty registry.
func NewDefinitionRegistry() *DefinitionRegistry {
	return &DefinitionRegistry{
		workflows: make(map[string]*domain.MultiStepWorkflow),
	}
}

// Register validates and adds a definition. Duplicate ids are rejected so a
// file-provided workflow cannot silently shadow a built-in one.
func (r *DefinitionRegistry) Register(workflow *domain.MultiStepWorkflow) error {
	if err := workflow.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.workflows[workflow.ID]; exists {
		return domain.ErrWorkflowAlreadyExists
	}
	r.workflows[workflow.ID] = workflow
	return nil
}

// Get returns a registered definition by id.
func (r *DefinitionRegistry) Get(id string) (*domain.MultiStepWorkflow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	workflow, ok := r.workflows[id]
	if !ok {
		return nil, domain.ErrWorkflowNotFound
	}
	return workflow, nil
}

// List returns all registered definitions ordered by id.
func (r *DefinitionRegistry) List() []*domain.MultiStepWorkflow {
	r.mu.RLock()
	defer r.mu.RUnlock()

	workflows := make([]*domain.MultiStepWorkflow, 0, len(r.workflows))
	for _, workflow := range r.workflows {
		workflows = append(workflows, workflow)
	}
	sort.Slice(workflows, func(i, j int) bool {
		return workflows[i].ID < workflows[j].ID
	})
	return workflows
}

// Count returns the number of registered definitions.
func (r *DefinitionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.workflows)
}
