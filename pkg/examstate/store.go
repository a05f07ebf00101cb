package examstate

import "sync"

// Store serializes dispatches over a state value. Subscribers observe whole
// transitions: a Batch produces exactly one notification.
type Store struct {
	mu          sync.Mutex
	state       State
	subscribers map[int]func(State)
	nextSubID   int
}

func NewStore() *Store {
	return &Store{
		state:       NewState(),
		subscribers: make(map[int]func(State)),
	}
}

// Dispatch applies the action and notifies subscribers with the new state.
func (s *Store) Dispatch(action Action) State {
	s.mu.Lock()
	next := Reduce(s.state, action)
	next.Rev = s.state.Rev + 1
	s.state = next

	observers := make([]func(State), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		observers = append(observers, fn)
	}
	s.mu.Unlock()

	for _, fn := range observers {
		fn(next)
	}
	return next
}

// Snapshot returns the current state value.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers an observer and returns its unsubscribe function.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}
