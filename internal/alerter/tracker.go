package alerter

import (
	"sync"

	"github.com/scadawatch/scadawatch/internal/evaluator"
)

// Transition is the edge detected between two observations of one alarm.
type Transition int

const (
	Unchanged Transition = iota
	Entered
	Left
)

func (t Transition) String() string {
	switch t {
	case Entered:
		return "entered"
	case Left:
		return "left"
	default:
		return "unchanged"
	}
}

// TransitionStore remembers the last classification per alarm identity. It
// lives for one monitoring session and is cleared on organization switch.
type TransitionStore struct {
	mu   sync.Mutex
	last map[string]evaluator.Classification
}

// NewTransitionStore creates an empty store.
func NewTransitionStore() *TransitionStore {
	return &TransitionStore{last: make(map[string]evaluator.Classification)}
}

// Detect compares c with the stored classification of id and stores c.
// The first observation of an id is always Unchanged.
func (s *TransitionStore) Detect(id string, c evaluator.Classification) Transition {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, seen := s.last[id]
	s.last[id] = c
	if !seen || prev.OutOfRange == c.OutOfRange {
		return Unchanged
	}
	if c.OutOfRange {
		return Entered
	}
	return Left
}

// Last returns the stored classification of id.
func (s *TransitionStore) Last(id string) (evaluator.Classification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.last[id]
	return c, ok
}

// Forget drops the memory of a single id.
func (s *TransitionStore) Forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.last, id)
}

// Reset clears all remembered classifications.
func (s *TransitionStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = make(map[string]evaluator.Classification)
}

// Len returns the number of tracked identities.
func (s *TransitionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.last)
}
