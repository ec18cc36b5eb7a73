package workflow

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/schemactl/schema-registry-mcp/internal/workflow/domain"
	"gopkg.in/yaml.v3"
)

// YAMLFileProvider loads workflow definitions from YAML files in a directory,
// letting operators add guided flows without rebuilding the server.
type YAMLFileProvider struct {
	definitionsDir string
}

// NewYAMLFileProvider creates a provider reading from the given directory.
func NewYAMLFileProvider(definitionsDir string) *YAMLFileProvider {
	return &YAMLFileProvider{
		definitionsDir: definitionsDir,
	}
}

// GetWorkflows returns all workflow definitions found in YAML files.
// A missing directory yields an empty set, not an error.
func (p *YAMLFileProvider) GetWorkflows() ([]*domain.MultiStepWorkflow, error) {
	var workflows []*domain.MultiStepWorkflow

	if p.definitionsDir == "" {
		return workflows, nil
	}
	if _, err := os.Stat(p.definitionsDir); os.IsNotExist(err) {
		return workflows, nil
	}

	err := filepath.WalkDir(p.definitionsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() || !isYAMLFile(path) {
			return nil
		}

		workflow, err := p.parseWorkflowFile(path)
		if err != nil {
			return fmt.Errorf("failed to parse workflow file %s: %w", path, err)
		}

		workflows = append(workflows, workflow)
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to read workflow definitions directory: %w", err)
	}

	return workflows, nil
}

// LoadInto registers every definition found on disk.
func (p *YAMLFileProvider) LoadInto(registry *DefinitionRegistry) (int, error) {
	workflows, err := p.GetWorkflows()
	if err != nil {
		return 0, err
	}

	for _, workflow := range workflows {
		if err := registry.Register(workflow); err != nil {
			return 0, fmt.Errorf("failed to register workflow %q: %w", workflow.ID, err)
		}
	}

	return len(workflows), nil
}

// parseWorkflowFile reads and parses a single YAML workflow file.
// Definition-level validation happens at registration.
func (p *YAMLFileProvider) parseWorkflowFile(filePath string) (*domain.MultiStepWorkflow, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var workflow domain.MultiStepWorkflow
	if err := yaml.Unmarshal(data, &workflow); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := workflow.Validate(); err != nil {
		return nil, err
	}

	return &workflow, nil
}

// isYAMLFile checks if a file has a YAML extension.
func isYAMLFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".yaml" || ext == ".yml"
}
