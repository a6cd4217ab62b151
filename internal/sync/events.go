package sync

import (
	"sync"
	"time"
)

// State is the manager's lifecycle state.
type State string

// Manager states. There is no "error" state: a failed cycle returns to idle
// and reports the error through the event and the Sync return value.
const (
	StateIdle    State = "idle"
	StateSyncing State = "syncing"
)

// Result summarizes one sync cycle.
type Result struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Coalesced means this call found a cycle already in flight and did
	// nothing; every other field is zero.
	Coalesced bool `json:"coalesced"`

	Pushed     int `json:"pushed"`
	PushFailed int `json:"push_failed"`
	Applied    int `json:"applied"`
	Merged     int `json:"merged"`
	Conflicts  int `json:"conflicts"`
	Deleted    int `json:"deleted"`

	// Reconciled means the remote reported drift after our push and a full
	// snapshot upload ran.
	Reconciled bool `json:"reconciled"`
}

// Event is what subscribers receive on every state transition.
type Event struct {
	State  State   `json:"state"`
	Result *Result `json:"result,omitempty"`
	Err    error   `json:"-"`
}

// subscribers is a fan-out registry. Delivery is non-blocking: a subscriber
// that stops draining its channel misses events rather than stalling a sync
// cycle.
type subscribers struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

func newSubscribers() *subscribers {
	return &subscribers{subs: make(map[int]chan Event)}
}

func (s *subscribers) subscribe() (int, <-chan Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.next
	s.next++
	ch := make(chan Event, 8)
	s.subs[id] = ch
	return id, ch
}

func (s *subscribers) unsubscribe(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ch, ok := s.subs[id]; ok {
		delete(s.subs, id)
		close(ch)
	}
}

func (s *subscribers) notify(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (s *subscribers) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}
