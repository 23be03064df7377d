package store

import (
	"sync"
)

// TaskItem is one server-assigned to-do entry.
type TaskItem struct {
	ID          int64
	Description string
	Completed   bool
}

// Snapshot is an immutable view of the collection at one version.
// Version 0 is the empty store before any server snapshot arrived.
type Snapshot struct {
	Version uint64
	Items   []TaskItem
}

// Len reports the number of items in the snapshot.
func (s Snapshot) Len() int {
	return len(s.Items)
}

// Store holds the most recently applied snapshot and fans it out to subscribers.
type Store struct {
	mu      sync.RWMutex
	current Snapshot
	subs    map[uint64]chan Snapshot
	nextSub uint64
}

func New() *Store {
	return &Store{
		current: Snapshot{Items: []TaskItem{}},
		subs:    make(map[uint64]chan Snapshot),
	}
}

// ApplyReplaceAll swaps the whole collection for items and notifies subscribers.
func (s *Store) ApplyReplaceAll(items []TaskItem) Snapshot {
	next := make([]TaskItem, len(items))
	copy(next, items)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = Snapshot{
		Version: s.current.Version + 1,
		Items:   next,
	}
	for _, ch := range s.subs {
		publishLatest(ch, s.current)
	}
	return s.current
}

// Snapshot returns the current value. Callers must not mutate Items.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Items returns a copy of the current ordered collection.
func (s *Store) Items() []TaskItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]TaskItem, len(s.current.Items))
	copy(out, s.current.Items)
	return out
}

// Subscribe registers a change listener. The channel holds at most one pending
// snapshot; a slow reader only ever sees the newest one. cancel closes the channel.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// publishLatest never blocks: a stale pending snapshot is replaced by snap.
// Caller must hold s.mu for writing.
func publishLatest(ch chan Snapshot, snap Snapshot) {
	for {
		select {
		case ch <- snap:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
