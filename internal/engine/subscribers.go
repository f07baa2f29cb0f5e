package engine

import "sync"

// Subscribers is a fan-out registry for Source implementations to embed.
// The zero value is ready to use.
type Subscribers struct {
	mu   sync.Mutex
	fns  map[int]NotifyFunc
	next int
}

func (s *Subscribers) Subscribe(fn NotifyFunc) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fns == nil {
		s.fns = make(map[int]NotifyFunc)
	}
	id := s.next
	s.next++
	s.fns[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.fns, id)
	}
}

// Emit invokes every subscribed callback with ev, in no particular
// order, on the caller's goroutine.
func (s *Subscribers) Emit(ev Event) {
	s.mu.Lock()
	fns := make([]NotifyFunc, 0, len(s.fns))
	for _, fn := range s.fns {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}
