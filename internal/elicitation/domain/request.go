package domain

import (
	"time"

	"github.com/google/uuid"
)

// RequestKind describes the overall shape of an elicitation request.
type RequestKind string

const (
	RequestKindText         RequestKind = "text"
	RequestKindChoice       RequestKind = "choice"
	RequestKindConfirmation RequestKind = "confirmation"
	RequestKindForm         RequestKind = "form"
)

// IsValid checks if the request kind is one of the supported kinds
func (k RequestKind) IsValid() bool {
	switch k {
	case RequestKindText, RequestKindChoice, RequestKindConfirmation, RequestKindForm:
		return true
	default:
		return false
	}
}

// Priority orders pending requests for the caller.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// IsValid checks if the priority is one of the supported levels
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// Rank maps priorities onto a sortable scale, highest first.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	default:
		return 0
	}
}

// RequestStatus is the lifecycle state of an elicitation request.
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusCompleted RequestStatus = "completed"
	RequestStatusCancelled RequestStatus = "cancelled"
	RequestStatusExpired   RequestStatus = "expired"
)

// IsTerminal reports whether no further transition is allowed.
func (s RequestStatus) IsTerminal() bool {
	return s != RequestStatusPending
}

// ElicitationRequest is a single structured question with a bounded lifetime.
// It is owned by the request store from creation to terminal status and is
// never mutated after reaching a terminal status.
type ElicitationRequest struct {
	id            string
	kind          RequestKind
	title         string
	description   string
	fields        []Field
	allowMultiple bool
	priority      Priority
	createdAt     time.Time
	expiresAt     time.Time
	context       map[string]string
	status        RequestStatus
}

// NewElicitationRequest creates a pending request. Field definitions, the
// request kind and the timeout are validated here; a request that cannot be
// answered is rejected before it ever enters the store.
func NewElicitationRequest(
	kind RequestKind,
	title string,
	description string,
	fields []Field,
	allowMultiple bool,
	priority Priority,
	timeout time.Duration,
	context map[string]string,
) (*ElicitationRequest, error) {
	if !kind.IsValid() {
		return nil, &ValidationError{Message: "unknown request kind"}
	}

	if !priority.IsValid() {
		priority = PriorityMedium
	}

	if timeout <= 0 {
		return nil, &ValidationError{Message: "timeout must be positive"}
	}

	if err := ValidateFields(fields); err != nil {
		return nil, err
	}

	ctx := make(map[string]string, len(context))
	for key, value := range context {
		ctx[key] = value
	}

	now := time.Now()
	return &ElicitationRequest{
		id:            uuid.NewString(),
		kind:          kind,
		title:         title,
		description:   description,
		fields:        fields,
		allowMultiple: allowMultiple,
		priority:      priority,
		createdAt:     now,
		expiresAt:     now.Add(timeout),
		context:       ctx,
		status:        RequestStatusPending,
	}, nil
}

// Clone returns a deep copy of the request. The store keeps the live record;
// everything handed to callers is a snapshot taken under the record lock.
func (r *ElicitationRequest) Clone() *ElicitationRequest {
	clone := *r
	clone.fields = make([]Field, len(r.fields))
	copy(clone.fields, r.fields)
	clone.context = make(map[string]string, len(r.context))
	for key, value := range r.context {
		clone.context[key] = value
	}
	return &clone
}

func (r *ElicitationRequest) ID() string            { return r.id }
func (r *ElicitationRequest) Kind() RequestKind     { return r.kind }
func (r *ElicitationRequest) Title() string         { return r.title }
func (r *ElicitationRequest) Description() string   { return r.description }
func (r *ElicitationRequest) AllowMultiple() bool   { return r.allowMultiple }
func (r *ElicitationRequest) Priority() Priority    { return r.priority }
func (r *ElicitationRequest) CreatedAt() time.Time  { return r.createdAt }
func (r *ElicitationRequest) ExpiresAt() time.Time  { return r.expiresAt }
func (r *ElicitationRequest) Status() RequestStatus { return r.status }

// Fields returns the ordered field definitions.
func (r *ElicitationRequest) Fields() []Field {
	fields := make([]Field, len(r.fields))
	copy(fields, r.fields)
	return fields
}

// Context returns a copy of the opaque context bag passed at creation.
func (r *ElicitationRequest) Context() map[string]string {
	ctx := make(map[string]string, len(r.context))
	for key, value := range r.context {
		ctx[key] = value
	}
	return ctx
}

// ContextValue looks up a single context key.
func (r *ElicitationRequest) ContextValue(key string) (string, bool) {
	value, ok := r.context[key]
	return value, ok
}

// IsExpired reports whether the request outlived its timeout, regardless of
// whether the sweep has already transitioned it.
func (r *ElicitationRequest) IsExpired(now time.Time) bool {
	return now.After(r.expiresAt)
}

// MarkCompleted transitions pending -> completed.
func (r *ElicitationRequest) MarkCompleted() error {
	if r.status != RequestStatusPending {
		return ErrInvalidState
	}
	r.status = RequestStatusCompleted
	return nil
}

// MarkCancelled transitions pending -> cancelled.
func (r *ElicitationRequest) MarkCancelled() error {
	if r.status != RequestStatusPending {
		return ErrInvalidState
	}
	r.status = RequestStatusCancelled
	return nil
}

// MarkExpired transitions pending -> expired. A response or cancellation that
// won the race keeps its terminal status; the sweep must not double-apply.
func (r *ElicitationRequest) MarkExpired() error {
	if r.status != RequestStatusPending {
		return ErrInvalidState
	}
	r.status = RequestStatusExpired
	return nil
}

// ElicitationResponse records the answer applied to a request.
type ElicitationResponse struct {
	RequestID   string            `json:"request_id"`
	Values      map[string]string `json:"values"`
	Complete    bool              `json:"complete"`
	SubmittedAt time.Time         `json:"submitted_at"`
}

// Clone returns a copy with its own values map.
func (r *ElicitationResponse) Clone() *ElicitationResponse {
	if r == nil {
		return nil
	}
	clone := *r
	clone.Values = make(map[string]string, len(r.Values))
	for key, value := range r.Values {
		clone.Values[key] = value
	}
	return &clone
}
