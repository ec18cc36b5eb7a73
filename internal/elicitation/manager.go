package elicitation

import (
	"log/slog"
	"sort"
	"time"

	"github.com/schemactl/schema-registry-mcp/internal/elicitation/domain"
	"github.com/schemactl/schema-registry-mcp/pkg/config"
)

// CreateRequestInput carries everything needed to raise a new question.
type CreateRequestInput struct {
	Kind          domain.RequestKind
	Title         string
	Description   string
	Fields        []domain.Field
	AllowMultiple bool
	Priority      domain.Priority
	Timeout       time.Duration
	Context       map[string]string
}

// RequestSummary is the per-request line in the status overview.
type RequestSummary struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Priority  domain.Priority `json:"priority"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// StatusOverview aggregates the pending set for the status tool.
type StatusOverview struct {
	PendingCount int                     `json:"pending_count"`
	ByPriority   map[domain.Priority]int `json:"by_priority"`
	Requests     []RequestSummary        `json:"requests"`
}

// Manager is the public surface for creating elicitation requests, applying
// responses and running the expiry sweep. Creating a request and answering it
// are decoupled calls correlated by id; nothing ever blocks waiting on a
// human.
type Manager struct {
	store          *RequestStore
	defaultTimeout time.Duration
	retention      time.Duration
	logger         *slog.Logger
}

// NewManager creates an elicitation manager backed by an in-memory store.
func NewManager(cfg config.ElicitationConfig, logger *slog.Logger) *Manager {
	retention := cfg.Retention
	if retention <= 0 {
		retention = time.Hour
	}
	return &Manager{
		store:          NewRequestStore(cfg.MaxPending),
		defaultTimeout: cfg.DefaultTimeout,
		retention:      retention,
		logger:         logger,
	}
}

// Create validates the definition and inserts a pending request.
// A zero timeout falls back to the configured default.
func (m *Manager) Create(input CreateRequestInput) (*domain.ElicitationRequest, error) {
	timeout := input.Timeout
	if timeout == 0 {
		timeout = m.defaultTimeout
	}

	request, err := domain.NewElicitationRequest(
		input.Kind,
		input.Title,
		input.Description,
		input.Fields,
		input.AllowMultiple,
		input.Priority,
		timeout,
		input.Context,
	)
	if err != nil {
		return nil, err
	}

	if err := m.store.Insert(request); err != nil {
		return nil, err
	}

	m.logger.Debug("Elicitation request created",
		"request_id", request.ID(),
		"kind", request.Kind(),
		"priority", request.Priority(),
		"expires_at", request.ExpiresAt())

	return request.Clone(), nil
}

// SubmitResponse applies a user answer to a pending request.
//
// For allow_multiple requests a non-complete submission merges the supplied
// values and leaves the request pending so the client can keep filling the
// form. A complete submission validates the merged values against every
// field, applies defaults, and transitions the request to completed.
func (m *Manager) SubmitResponse(requestID string, values map[string]string, complete bool) (*domain.ElicitationResponse, error) {
	tracked, ok := m.store.get(requestID)
	if !ok {
		return nil, domain.ErrRequestNotFound
	}

	tracked.mu.Lock()
	defer tracked.mu.Unlock()

	now := time.Now()
	switch {
	case tracked.request.Status() == domain.RequestStatusExpired:
		return nil, domain.ErrRequestExpired
	case tracked.request.Status() != domain.RequestStatusPending:
		return nil, domain.ErrInvalidState
	case tracked.request.IsExpired(now):
		// Past the deadline but the sweep has not run yet; expire in place
		// rather than accepting a late answer.
		if err := tracked.request.MarkExpired(); err == nil {
			tracked.terminalAt = now
		}
		return nil, domain.ErrRequestExpired
	}

	merged := make(map[string]string, len(tracked.partial)+len(values))
	for key, value := range tracked.partial {
		merged[key] = value
	}
	for key, value := range values {
		merged[key] = value
	}

	completing := complete || !tracked.request.AllowMultiple()

	if !completing {
		// Incremental submission: check only what was supplied, keep pending.
		if _, err := domain.ValidateValues(tracked.request.Fields(), values, false); err != nil {
			return nil, err
		}
		tracked.partial = merged
		return (&domain.ElicitationResponse{
			RequestID:   requestID,
			Values:      merged,
			Complete:    false,
			SubmittedAt: now,
		}).Clone(), nil
	}

	accepted, err := domain.ValidateValues(tracked.request.Fields(), merged, true)
	if err != nil {
		return nil, err
	}

	if err := tracked.request.MarkCompleted(); err != nil {
		return nil, err
	}
	tracked.terminalAt = now

	response := &domain.ElicitationResponse{
		RequestID:   requestID,
		Values:      accepted,
		Complete:    true,
		SubmittedAt: now,
	}
	tracked.response = response

	m.logger.Debug("Elicitation response applied", "request_id", requestID)
	return response.Clone(), nil
}

// Cancel transitions a pending request to cancelled.
func (m *Manager) Cancel(requestID string) error {
	tracked, ok := m.store.get(requestID)
	if !ok {
		return domain.ErrRequestNotFound
	}

	tracked.mu.Lock()
	defer tracked.mu.Unlock()

	if tracked.request.Status() == domain.RequestStatusExpired {
		return domain.ErrRequestExpired
	}
	if err := tracked.request.MarkCancelled(); err != nil {
		return err
	}
	tracked.terminalAt = time.Now()

	m.logger.Debug("Elicitation request cancelled", "request_id", requestID)
	return nil
}

// Get returns a snapshot of the request and, when one has been applied, its
// response. The copies are taken under the record lock so readers never
// observe a half-applied transition.
func (m *Manager) Get(requestID string) (*domain.ElicitationRequest, *domain.ElicitationResponse, error) {
	tracked, ok := m.store.get(requestID)
	if !ok {
		return nil, nil, domain.ErrRequestNotFound
	}

	tracked.mu.Lock()
	defer tracked.mu.Unlock()
	return tracked.request.Clone(), tracked.response.Clone(), nil
}

// ListPending returns snapshots of non-expired pending requests, optionally
// filtered by priority, ordered by priority descending then creation time
// ascending.
func (m *Manager) ListPending(priorityFilter *domain.Priority) []*domain.ElicitationRequest {
	now := time.Now()
	var pending []*domain.ElicitationRequest

	for _, tracked := range m.store.snapshot() {
		tracked.mu.Lock()
		request := tracked.request
		if request.Status() == domain.RequestStatusPending && !request.IsExpired(now) {
			if priorityFilter == nil || request.Priority() == *priorityFilter {
				pending = append(pending, request.Clone())
			}
		}
		tracked.mu.Unlock()
	}

	sort.SliceStable(pending, func(i, j int) bool {
		if pending[i].Priority().Rank() != pending[j].Priority().Rank() {
			return pending[i].Priority().Rank() > pending[j].Priority().Rank()
		}
		return pending[i].CreatedAt().Before(pending[j].CreatedAt())
	})

	return pending
}

// Status aggregates the pending set for the overview tool.
func (m *Manager) Status() StatusOverview {
	pending := m.ListPending(nil)

	overview := StatusOverview{
		PendingCount: len(pending),
		ByPriority:   make(map[domain.Priority]int),
		Requests:     make([]RequestSummary, 0, len(pending)),
	}

	for _, request := range pending {
		overview.ByPriority[request.Priority()]++
		overview.Requests = append(overview.Requests, RequestSummary{
			ID:        request.ID(),
			Title:     request.Title(),
			Priority:  request.Priority(),
			CreatedAt: request.CreatedAt(),
			ExpiresAt: request.ExpiresAt(),
		})
	}

	return overview
}

// SweepExpired transitions every pending request past its deadline to
// expired. Idempotent; a response or cancellation that already won the
// per-record race keeps its terminal status.
func (m *Manager) SweepExpired() int {
	now := time.Now()
	expired := 0

	for _, tracked := range m.store.snapshot() {
		tracked.mu.Lock()
		if tracked.request.Status() == domain.RequestStatusPending && tracked.request.IsExpired(now) {
			if err := tracked.request.MarkExpired(); err == nil {
				tracked.terminalAt = now
				expired++
			}
		}
		tracked.mu.Unlock()
	}

	if expired > 0 {
		m.logger.Debug("Expired elicitation requests swept", "count", expired)
	}
	return expired
}

// PruneTerminated evicts terminal requests that have been sitting past the
// retention window, freeing the arena for long-running servers. Pending
// requests are never touched.
func (m *Manager) PruneTerminated() int {
	now := time.Now()
	var evict []string

	for _, tracked := range m.store.snapshot() {
		tracked.mu.Lock()
		if tracked.request.Status().IsTerminal() &&
			!tracked.terminalAt.IsZero() &&
			now.Sub(tracked.terminalAt) >= m.retention {
			evict = append(evict, tracked.request.ID())
		}
		tracked.mu.Unlock()
	}

	for _, id := range evict {
		m.store.Remove(id)
	}

	if len(evict) > 0 {
		m.logger.Debug("Terminal elicitation requests pruned", "count", len(evict))
	}
	return len(evict)
}

// Count returns the number of tracked requests in any status.
func (m *Manager) Count() int {
	return m.store.Count()
}
