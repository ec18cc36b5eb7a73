package workflow

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/schemactl/schema-registry-mcp/internal/elicitation"
	elicdomain "github.com/schemactl/schema-registry-mcp/internal/elicitation/domain"
	"github.com/schemactl/schema-registry-mcp/internal/workflow/domain"
	"github.com/schemactl/schema-registry-mcp/pkg/config"
)

// Context keys stamped on every step's elicitation request so a response can
// be routed back to the owning instance.
const (
	ContextKeyInstanceID = "workflow_instance_id"
	ContextKeyWorkflowID = "workflow_id"
	ContextKeyStepID     = "step_id"
)

// StepOutcome is the result of handling one response: either the workflow
// completed with its full value map, or a new elicitation request was issued
// for the next (or restored) step.
type StepOutcome struct {
	InstanceID    string
	CurrentStepID string
	Completed     bool
	Values        map[string]string
	Request       *elicdomain.ElicitationRequest
}

// CompletionHandler is invoked when an instance of the workflow it was
// registered for reaches the terminal step.
type CompletionHandler func(instanceID string, values map[string]string)

// trackedInstance serializes all mutations of one running instance.
type trackedInstance struct {
	mu              sync.Mutex
	state           *domain.WorkflowState
	activeRequestID string
}

// Manager starts workflow instances and drives each answered step to the
// next one. The original tool invocation never blocks on a user answer:
// every step is represented as a pending elicitation request, and the
// instance suspends as plain state until a response arrives.
type Manager struct {
	registry     *DefinitionRegistry
	elicitations *elicitation.Manager
	stepTimeout  time.Duration
	maxActive    int
	retention    time.Duration
	logger       *slog.Logger

	mu        sync.RWMutex
	instances map[string]*trackedInstance

	handlerMu sync.RWMutex
	handlers  map[string][]CompletionHandler
}

// NewManager creates a workflow manager on top of the elicitation manager.
func NewManager(
	registry *DefinitionRegistry,
	elicitations *elicitation.Manager,
	cfg config.WorkflowConfig,
	logger *slog.Logger,
) *Manager {
	retention := cfg.Retention
	if retention <= 0 {
		retention = time.Hour
	}
	return &Manager{
		registry:     registry,
		elicitations: elicitations,
		stepTimeout:  cfg.StepTimeout,
		maxActive:    cfg.MaxActiveInstances,
		retention:    retention,
		logger:       logger,
		instances:    make(map[string]*trackedInstance),
		handlers:     make(map[string][]CompletionHandler),
	}
}

// Registry exposes the definition registry for listing and registration.
func (m *Manager) Registry() *DefinitionRegistry {
	return m.registry
}

// OnComplete registers a handler fired when an instance of the given
// workflow completes. Handlers run outside the instance lock.
func (m *Manager) OnComplete(workflowID string, handler CompletionHandler) {
	m.handlerMu.Lock()
	defer m.handlerMu.Unlock()
	m.handlers[workflowID] = append(m.handlers[workflowID], handler)
}

// Start creates an instance of a registered workflow positioned at its
// initial step and issues the elicitation request for that step.
func (m *Manager) Start(workflowID string, initialContext map[string]string) (*domain.WorkflowState, *elicdomain.ElicitationRequest, error) {
	workflow, err := m.registry.Get(workflowID)
	if err != nil {
		return nil, nil, err
	}

	if m.maxActive > 0 && m.activeCount() >= m.maxActive {
		return nil, nil, domain.ErrTooManyInstances
	}

	state := domain.NewWorkflowState(workflowID, workflow.InitialStep, initialContext)

	step, _ := workflow.Step(workflow.InitialStep)
	request, err := m.issueStepRequest(workflow, state, step)
	if err != nil {
		return nil, nil, err
	}

	m.mu.Lock()
	m.instances[state.InstanceID()] = &trackedInstance{
		state:           state,
		activeRequestID: request.ID(),
	}
	m.mu.Unlock()

	m.logger.Info("Workflow instance started",
		"workflow_id", workflowID,
		"instance_id", state.InstanceID(),
		"initial_step", workflow.InitialStep)

	return state.Clone(), request, nil
}

// HandleResponse drives an instance forward (or backward) with a submitted
// value map.
//
// Back-navigation is requested through the reserved "_workflow_action":"back"
// entry; it pops the history and re-issues the restored step with previously
// collected values as defaults, without merging anything. A validation
// failure leaves the instance untouched so the caller can resubmit. A
// transition-table gap aborts the instance: it indicates a malformed
// definition, not a user error.
func (m *Manager) HandleResponse(instanceID string, values map[string]string) (*StepOutcome, error) {
	tracked, ok := m.lookup(instanceID)
	if !ok {
		return nil, domain.ErrInstanceNotFound
	}

	var completedValues map[string]string
	var completedWorkflowID string
	defer func() {
		if completedValues != nil {
			m.fireCompletion(completedWorkflowID, instanceID, completedValues)
		}
	}()

	tracked.mu.Lock()
	defer tracked.mu.Unlock()

	state := tracked.state
	if state.Status() != domain.InstanceStatusActive {
		return nil, domain.ErrInstanceNotActive
	}

	workflow, err := m.registry.Get(state.WorkflowID())
	if err != nil {
		return nil, err
	}

	if values[domain.ActionKey] == domain.ActionBack {
		return m.stepBack(tracked, workflow)
	}

	step, ok := workflow.Step(state.CurrentStepID())
	if !ok {
		// Unreachable for validated definitions.
		return nil, domain.ErrWorkflowNotFound
	}

	accepted, err := elicdomain.ValidateValues(step.Fields, stripReservedKeys(values), true)
	if err != nil {
		return nil, err
	}

	state.MergeStepValues(step.ID, accepted)

	nextStepID, err := domain.ResolveNext(workflow.ID, step, state.Values(), accepted)
	if err != nil {
		// Definition bug: fatal to this instance only.
		if abortErr := state.MarkAborted(); abortErr == nil {
			m.cancelActiveRequest(tracked)
		}
		m.logger.Error("Workflow instance aborted on unresolvable transition",
			"workflow_id", workflow.ID,
			"instance_id", instanceID,
			"step_id", step.ID,
			"error", err)
		return nil, err
	}

	m.cancelActiveRequest(tracked)

	if nextStepID == domain.TerminalStep {
		if err := state.MarkCompleted(); err != nil {
			return nil, err
		}
		m.logger.Info("Workflow instance completed",
			"workflow_id", workflow.ID,
			"instance_id", instanceID,
			"steps_visited", len(state.History()))

		completedValues = state.Values()
		completedWorkflowID = workflow.ID
		return &StepOutcome{
			InstanceID:    instanceID,
			CurrentStepID: step.ID,
			Completed:     true,
			Values:        completedValues,
		}, nil
	}

	state.Advance(nextStepID)

	nextStep, _ := workflow.Step(nextStepID)
	request, err := m.issueStepRequest(workflow, state, nextStep)
	if err != nil {
		return nil, err
	}
	tracked.activeRequestID = request.ID()

	m.logger.Debug("Workflow instance advanced",
		"workflow_id", workflow.ID,
		"instance_id", instanceID,
		"step_id", nextStepID)

	return &StepOutcome{
		InstanceID:    instanceID,
		CurrentStepID: nextStepID,
		Completed:     false,
		Request:       request,
	}, nil
}

// Abort terminates an active instance immediately and unconditionally.
func (m *Manager) Abort(instanceID string) error {
	tracked, ok := m.lookup(instanceID)
	if !ok {
		return domain.ErrInstanceNotFound
	}

	tracked.mu.Lock()
	defer tracked.mu.Unlock()

	if err := tracked.state.MarkAborted(); err != nil {
		return err
	}
	m.cancelActiveRequest(tracked)

	m.logger.Info("Workflow instance aborted",
		"workflow_id", tracked.state.WorkflowID(),
		"instance_id", instanceID)
	return nil
}

// Status returns a point-in-time snapshot of the instance state, copied under
// the instance lock. Concurrent step handling never shows through a returned
// snapshot.
func (m *Manager) Status(instanceID string) (*domain.WorkflowState, error) {
	tracked, ok := m.lookup(instanceID)
	if !ok {
		return nil, domain.ErrInstanceNotFound
	}

	tracked.mu.Lock()
	defer tracked.mu.Unlock()
	return tracked.state.Clone(), nil
}

// ActiveCount returns the number of instances still in progress.
func (m *Manager) ActiveCount() int {
	return m.activeCount()
}

// stepBack handles a back-navigation request. Values submitted alongside the
// back action are deliberately discarded.
func (m *Manager) stepBack(tracked *trackedInstance, workflow *domain.MultiStepWorkflow) (*StepOutcome, error) {
	state := tracked.state
	if err := state.StepBack(); err != nil {
		return nil, err
	}

	m.cancelActiveRequest(tracked)

	step, _ := workflow.Step(state.CurrentStepID())
	request, err := m.issueStepRequest(workflow, state, step)
	if err != nil {
		return nil, err
	}
	tracked.activeRequestID = request.ID()

	m.logger.Debug("Workflow instance navigated back",
		"workflow_id", workflow.ID,
		"instance_id", state.InstanceID(),
		"step_id", step.ID)

	return &StepOutcome{
		InstanceID:    state.InstanceID(),
		CurrentStepID: step.ID,
		Completed:     false,
		Request:       request,
	}, nil
}

// issueStepRequest creates the elicitation request representing a step,
// pre-filling field defaults with any values already collected for that step
// so re-entry after back-navigation is idempotent.
func (m *Manager) issueStepRequest(workflow *domain.MultiStepWorkflow, state *domain.WorkflowState, step domain.WorkflowStep) (*elicdomain.ElicitationRequest, error) {
	fields := make([]elicdomain.Field, len(step.Fields))
	copy(fields, step.Fields)
	for i := range fields {
		if value, ok := state.Value(domain.NamespacedKey(step.ID, fields[i].Name)); ok {
			fields[i].Default = value
		}
	}

	kind := elicdomain.RequestKindForm
	if len(fields) == 1 {
		switch fields[0].Kind {
		case elicdomain.FieldKindText:
			kind = elicdomain.RequestKindText
		case elicdomain.FieldKindChoice:
			kind = elicdomain.RequestKindChoice
		case elicdomain.FieldKindConfirmation:
			kind = elicdomain.RequestKindConfirmation
		}
	}

	return m.elicitations.Create(elicitation.CreateRequestInput{
		Kind:          kind,
		Title:         step.Title,
		Description:   step.Description,
		Fields:        fields,
		AllowMultiple: len(fields) > 1,
		Priority:      elicdomain.PriorityMedium,
		Timeout:       m.stepTimeout,
		Context: map[string]string{
			ContextKeyInstanceID: state.InstanceID(),
			ContextKeyWorkflowID: workflow.ID,
			ContextKeyStepID:     step.ID,
		},
	})
}

// cancelActiveRequest withdraws the instance's outstanding elicitation
// request. The request may legitimately already be terminal (the submit path
// completes it before routing here), so InvalidState is not an error.
func (m *Manager) cancelActiveRequest(tracked *trackedInstance) {
	if tracked.activeRequestID == "" {
		return
	}
	err := m.elicitations.Cancel(tracked.activeRequestID)
	if err != nil &&
		!errors.Is(err, elicdomain.ErrInvalidState) &&
		!errors.Is(err, elicdomain.ErrRequestExpired) &&
		!errors.Is(err, elicdomain.ErrRequestNotFound) {
		m.logger.Warn("Failed to cancel step elicitation request",
			"request_id", tracked.activeRequestID,
			"error", err)
	}
	tracked.activeRequestID = ""
}

func (m *Manager) lookup(instanceID string) (*trackedInstance, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tracked, ok := m.instances[instanceID]
	return tracked, ok
}

func (m *Manager) activeCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	active := 0
	for _, tracked := range m.instances {
		tracked.mu.Lock()
		if tracked.state.Status() == domain.InstanceStatusActive {
			active++
		}
		tracked.mu.Unlock()
	}
	return active
}

// PruneTerminated evicts completed and aborted instances whose last update is
// older than the retention window. Active instances are never touched.
func (m *Manager) PruneTerminated() int {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	pruned := 0
	for instanceID, tracked := range m.instances {
		tracked.mu.Lock()
		stale := tracked.state.Status().IsTerminal() &&
			now.Sub(tracked.state.UpdatedAt()) >= m.retention
		tracked.mu.Unlock()

		if stale {
			delete(m.instances, instanceID)
			pruned++
		}
	}

	if pruned > 0 {
		m.logger.Debug("Terminal workflow instances pruned", "count", pruned)
	}
	return pruned
}

func (m *Manager) fireCompletion(workflowID, instanceID string, values map[string]string) {
	m.handlerMu.RLock()
	handlers := m.handlers[workflowID]
	m.handlerMu.RUnlock()

	for _, handler := range handlers {
		handler(instanceID, values)
	}
}

// stripReservedKeys drops navigation and routing keys before validation so
// they are never mistaken for field answers.
func stripReservedKeys(values map[string]string) map[string]string {
	stripped := make(map[string]string, len(values))
	for key, value := range values {
		if strings.HasPrefix(key, "_") {
			continue
		}
		stripped[key] = value
	}
	return stripped
}
