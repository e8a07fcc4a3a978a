package report

import (
	"container/list"
	"sync"
)

// LRUStore keeps the most recent invocations in memory and writes every
// invocation through to a backing Store. Loads that miss the memory tier
// fall through to the backing store and are promoted.
type LRUStore struct {
	mu    sync.Mutex
	cap   int
	back  Store
	order *list.List // of *Invocation, most recent at front
	items map[string]*list.Element
}

// NewLRUStore creates an LRU store holding up to cap invocations in memory
// in front of back. Capacity must be >= 1.
func NewLRUStore(cap int, back Store) *LRUStore {
	if cap < 1 {
		cap = 1
	}
	return &LRUStore{
		cap:   cap,
		back:  back,
		order: list.New(),
		items: make(map[string]*list.Element, cap),
	}
}

// Save records inv in memory and delegates to the backing store.
func (s *LRUStore) Save(inv *Invocation) error {
	s.mu.Lock()
	s.put(inv)
	s.mu.Unlock()

	return s.back.Save(inv)
}

// Load returns the invocation for runID from memory, or from the backing
// store on a miss.
func (s *LRUStore) Load(runID string) (*Invocation, error) {
	s.mu.Lock()
	if e, ok := s.items[runID]; ok {
		s.order.MoveToFront(e)
		inv := e.Value.(*Invocation)
		s.mu.Unlock()
		return inv, nil
	}
	s.mu.Unlock()

	inv, err := s.back.Load(runID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.put(inv)
	s.mu.Unlock()
	return inv, nil
}

// Len reports how many invocations are held in memory.
func (s *LRUStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

// put inserts or refreshes inv. s.mu must be held.
func (s *LRUStore) put(inv *Invocation) {
	if e, ok := s.items[inv.ID]; ok {
		e.Value = inv
		s.order.MoveToFront(e)
		return
	}
	s.items[inv.ID] = s.order.PushFront(inv)
	for s.order.Len() > s.cap {
		oldest := s.order.Back()
		s.order.Remove(oldest)
		delete(s.items, oldest.Value.(*Invocation).ID)
	}
}
