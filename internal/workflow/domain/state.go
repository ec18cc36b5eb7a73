package domain

import (
	"time"

	"github.com/google/uuid"
)

// InstanceStatus is the lifecycle state of a running workflow instance.
type InstanceStatus string

const (
	InstanceStatusActive    InstanceStatus = "active"
	InstanceStatusCompleted InstanceStatus = "completed"
	InstanceStatusAborted   InstanceStatus = "aborted"
)

// IsTerminal reports whether no further transition is allowed.
func (s InstanceStatus) IsTerminal() bool {
	return s != InstanceStatusActive
}

// WorkflowState is the per-instance record: current step, the exact visit
// history (including revisits, for back-navigation) and every accumulated
// answer, namespaced by step id. Suspension between steps is nothing more
// than this state sitting in the store; no goroutine waits on a human.
type WorkflowState struct {
	workflowID    string
	instanceID    string
	currentStepID string
	history       []string
	values        map[string]string
	status        InstanceStatus
	startedAt     time.Time
	updatedAt     time.Time
}

// NewWorkflowState creates an active instance positioned at the initial step.
func NewWorkflowState(workflowID, initialStepID string, initialContext map[string]string) *WorkflowState {
	values := make(map[string]string, len(initialContext))
	for key, value := range initialContext {
		values[key] = value
	}

	now := time.Now()
	return &WorkflowState{
		workflowID:    workflowID,
		instanceID:    uuid.NewString(),
		currentStepID: initialStepID,
		history:       []string{},
		values:        values,
		status:        InstanceStatusActive,
		startedAt:     now,
		updatedAt:     now,
	}
}

func (s *WorkflowState) WorkflowID() string     { return s.workflowID }
func (s *WorkflowState) InstanceID() string     { return s.instanceID }
func (s *WorkflowState) CurrentStepID() string  { return s.currentStepID }
func (s *WorkflowState) Status() InstanceStatus { return s.status }
func (s *WorkflowState) StartedAt() time.Time   { return s.startedAt }
func (s *WorkflowState) UpdatedAt() time.Time   { return s.updatedAt }

// Clone returns a deep copy of the state. Managers hand out clones so
// callers can read a consistent point-in-time snapshot without holding the
// instance lock.
func (s *WorkflowState) Clone() *WorkflowState {
	clone := *s
	clone.history = make([]string, len(s.history))
	copy(clone.history, s.history)
	clone.values = make(map[string]string, len(s.values))
	for key, value := range s.values {
		clone.values[key] = value
	}
	return &clone
}

// History returns a copy of the visited step ids, oldest first.
func (s *WorkflowState) History() []string {
	history := make([]string, len(s.history))
	copy(history, s.history)
	return history
}

// Values returns a copy of the accumulated answers, keyed "stepID.fieldName"
// (initial context keys stay as given).
func (s *WorkflowState) Values() map[string]string {
	values := make(map[string]string, len(s.values))
	for key, value := range s.values {
		values[key] = value
	}
	return values
}

// Value looks up a single accumulated value.
func (s *WorkflowState) Value(key string) (string, bool) {
	value, ok := s.values[key]
	return value, ok
}

// MergeStepValues records validated answers for a step and pushes the step
// onto the history.
func (s *WorkflowState) MergeStepValues(stepID string, values map[string]string) {
	for name, value := range values {
		s.values[NamespacedKey(stepID, name)] = value
	}
	s.history = append(s.history, stepID)
	s.updatedAt = time.Now()
}

// Advance moves the instance to the next step.
func (s *WorkflowState) Advance(stepID string) {
	s.currentStepID = stepID
	s.updatedAt = time.Now()
}

// StepBack pops the most recent history entry and restores it as the current
// step. Previously recorded values are retained so the restored step can be
// re-issued with the old answers as defaults.
func (s *WorkflowState) StepBack() error {
	if len(s.history) == 0 {
		return ErrNoHistory
	}
	last := s.history[len(s.history)-1]
	s.history = s.history[:len(s.history)-1]
	s.currentStepID = last
	s.updatedAt = time.Now()
	return nil
}

// MarkCompleted transitions active -> completed.
func (s *WorkflowState) MarkCompleted() error {
	if s.status != InstanceStatusActive {
		return ErrInstanceNotActive
	}
	s.status = InstanceStatusCompleted
	s.updatedAt = time.Now()
	return nil
}

// MarkAborted transitions active -> aborted. Abort is unconditional for an
// active instance regardless of its current step.
func (s *WorkflowState) MarkAborted() error {
	if s.status != InstanceStatusActive {
		return ErrInstanceNotActive
	}
	s.status = InstanceStatusAborted
	s.updatedAt = time.Now()
	return nil
}
