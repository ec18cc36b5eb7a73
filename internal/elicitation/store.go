package elicitation

import (
	"sync"
	"time"

	"github.com/schemactl/schema-registry-mcp/internal/elicitation/domain"
)

// trackedRequest couples a request with its response and the partial values
// accumulated by incremental submissions. All mutation happens under mu, so
// operations on a single request id are serialized while unrelated requests
// proceed in parallel. terminalAt is set when the request reaches a terminal
// status and drives retention-based eviction.
type trackedRequest struct {
	mu         sync.Mutex
	request    *domain.ElicitationRequest
	response   *domain.ElicitationResponse
	partial    map[string]string
	terminalAt time.Time
}

// RequestStore is the id-keyed arena owning every elicitation request from
// creation to terminal status.
type RequestStore struct {
	mu       sync.RWMutex
	requests map[string]*trackedRequest
	capacity int
}

// NewRequestStore creates a store that admits at most capacity pending
// requests at a time.
func NewRequestStore(capacity int) *RequestStore {
	return &RequestStore{
		requests: make(map[string]*trackedRequest),
		capacity: capacity,
	}
}

// Insert admits a freshly created request. Fails with ErrStoreFull when the
// pending set is at capacity.
func (s *RequestStore) Insert(request *domain.ElicitationRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.capacity > 0 {
		pending := 0
		for _, tracked := range s.requests {
			tracked.mu.Lock()
			if tracked.request.Status() == domain.RequestStatusPending {
				pending++
			}
			tracked.mu.Unlock()
		}
		if pending >= s.capacity {
			return domain.ErrStoreFull
		}
	}

	s.requests[request.ID()] = &trackedRequest{
		request: request,
		partial: make(map[string]string),
	}
	return nil
}

// get returns the tracked record for an id.
func (s *RequestStore) get(id string) (*trackedRequest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tracked, ok := s.requests[id]
	return tracked, ok
}

// snapshot returns the current set of tracked records. The slice is safe to
// iterate without the store lock; each record still serializes through its
// own mutex.
func (s *RequestStore) snapshot() []*trackedRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]*trackedRequest, 0, len(s.requests))
	for _, tracked := range s.requests {
		records = append(records, tracked)
	}
	return records
}

// Remove drops a request from the arena.
func (s *RequestStore) Remove(id string) {
	s.mu.Lock()
	delete(s.requests, id)
	s.mu.Unlock()
}

// Count returns the number of tracked requests in any status.
func (s *RequestStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.requests)
}
