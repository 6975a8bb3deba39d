// Package suggestion holds the stored code-review suggestion model and its
// status lifecycle. Status only ever changes through the store's
// compare-and-set Update, which is what keeps two concurrent apply attempts
// from both entering the Applying state.
package suggestion

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a suggestion. Transitions are monotonic:
// Pending -> Applying -> Applied or Failed. Rejected is terminal and only
// reachable from Pending or Failed. A Failed suggestion may re-enter
// Applying on a later apply attempt.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApplying Status = "applying"
	StatusApplied  Status = "applied"
	StatusFailed   Status = "failed"
	StatusRejected Status = "rejected"
)

// ErrNotFound indicates the suggestion id is unknown.
var ErrNotFound = errors.New("suggestion not found")

// StatusError reports a failed compare-and-set: the stored status was not
// what the caller expected.
type StatusError struct {
	ID       string
	Expected Status
	Actual   Status
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("suggestion %s is %s, expected %s", e.ID, e.Actual, e.Expected)
}

// Suggestion is a single-file patch proposed by a review agent.
type Suggestion struct {
	ID       string
	Agent    string
	Message  string
	Patch    string
	FilePath string
	Status   Status

	// Populated once an apply run finishes.
	PRNumber int
	PRURL    string
	Error    string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store is an in-memory suggestion store. It stands in for the external
// persistence the review pipeline writes to; the engine only depends on
// Get, List, and the CAS Update.
type Store struct {
	mu          sync.RWMutex
	suggestions map[string]*Suggestion
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		suggestions: make(map[string]*Suggestion),
	}
}

// Create registers a suggestion. An empty ID gets a fresh UUID; an empty
// status starts Pending. Returns the stored ID.
func (s *Store) Create(sugg *Suggestion) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sugg.ID == "" {
		sugg.ID = uuid.NewString()
	}
	if sugg.Status == "" {
		sugg.Status = StatusPending
	}
	now := time.Now()
	sugg.CreatedAt = now
	sugg.UpdatedAt = now

	s.suggestions[sugg.ID] = sugg
	return sugg.ID
}

// Get returns a copy of the suggestion. Callers hold a borrowed snapshot,
// never the stored record itself.
func (s *Store) Get(id string) (*Suggestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sugg, ok := s.suggestions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *sugg
	return &cp, nil
}

// List returns copies of all suggestions, newest first.
func (s *Store) List() []*Suggestion {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Suggestion, 0, len(s.suggestions))
	for _, sugg := range s.suggestions {
		cp := *sugg
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Update transitions a suggestion's status, but only if the stored status
// equals expected. Returns *StatusError when the CAS loses, ErrNotFound for
// unknown ids.
func (s *Store) Update(id string, expected, next Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sugg, ok := s.suggestions[id]
	if !ok {
		return ErrNotFound
	}
	if sugg.Status != expected {
		return &StatusError{ID: id, Expected: expected, Actual: sugg.Status}
	}

	sugg.Status = next
	sugg.UpdatedAt = time.Now()
	return nil
}

// SetResult records the outcome of a finished apply run alongside the
// status it already holds.
func (s *Store) SetResult(id string, prNumber int, prURL, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sugg, ok := s.suggestions[id]
	if !ok {
		return ErrNotFound
	}

	sugg.PRNumber = prNumber
	sugg.PRURL = prURL
	sugg.Error = errMsg
	sugg.UpdatedAt = time.Now()
	return nil
}
