package query

import (
	"slices"
	"sync"
)

// Change describes one atomic mutation of a State.
type Change struct {
	Criteria     Criteria
	Order        SortOrder
	Fields       []Field // criteria fields whose value changed
	OrderChanged bool
	Cleared      bool // produced by Clear
	Restored     bool // produced by Restore
}

// Signature returns the signature of the new selection.
func (c Change) Signature() Signature {
	return SignatureOf(c.Criteria, c.Order)
}

// Touches reports whether the change modified field f.
func (c Change) Touches(f Field) bool {
	return slices.Contains(c.Fields, f)
}

// State holds the current filter and sort selection for one view session.
// The zero value is not usable; call NewState.
type State struct {
	mu       sync.Mutex
	criteria Criteria
	order    SortOrder
	subs     map[int]func(Change)
	nextID   int
}

// NewState returns a State at the defaults.
func NewState() *State {
	return &State{order: DefaultOrder(), subs: make(map[int]func(Change))}
}

// Get returns the current selection.
func (s *State) Get() (Criteria, SortOrder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.criteria, s.order
}

// Signature returns the signature of the current selection.
func (s *State) Signature() Signature {
	c, o := s.Get()
	return SignatureOf(c, o)
}

// Set replaces the criteria.
func (s *State) Set(c Criteria) {
	s.apply(func(_ Criteria, o SortOrder) (Criteria, SortOrder) { return c, o }, Change{})
}

// SetOrder replaces the sort order.
func (s *State) SetOrder(o SortOrder) {
	s.apply(func(c Criteria, _ SortOrder) (Criteria, SortOrder) { return c, o }, Change{})
}

// Clear resets criteria and order together in a single change.
func (s *State) Clear() {
	s.apply(func(Criteria, SortOrder) (Criteria, SortOrder) { return Criteria{}, DefaultOrder() }, Change{Cleared: true})
}

// Restore installs a previously persisted selection.
func (s *State) Restore(c Criteria, o SortOrder) {
	s.apply(func(Criteria, SortOrder) (Criteria, SortOrder) { return c, o }, Change{Restored: true})
}

// Subscribe registers fn for every subsequent change. Callbacks run
// synchronously in the goroutine that performed the mutation, after the
// new value is visible through Get.
func (s *State) Subscribe(fn func(Change)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *State) apply(mutate func(Criteria, SortOrder) (Criteria, SortOrder), ch Change) {
	s.mu.Lock()
	prevC, prevO := s.criteria, s.order
	nextC, nextO := mutate(prevC, prevO)
	ch.Fields = prevC.Diff(nextC)
	ch.OrderChanged = prevO != nextO
	if len(ch.Fields) == 0 && !ch.OrderChanged {
		s.mu.Unlock()
		return
	}
	s.criteria, s.order = nextC, nextO
	ch.Criteria, ch.Order = nextC, nextO

	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	subs := make([]func(Change), 0, len(ids))
	for _, id := range ids {
		subs = append(subs, s.subs[id])
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(ch)
	}
}
