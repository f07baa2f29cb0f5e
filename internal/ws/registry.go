package ws

import (
	"errors"
	"sync"
)

// ErrRegistryClosed is returned by Add once the registry has been torn
// down. The server is stopping; callers must not retry.
var ErrRegistryClosed = errors.New("connection registry closed")

// Registry is the set of connections eligible to receive broadcasts.
// It is touched from the accept path, from each connection's own
// teardown, and from server stop, so every access synchronizes here.
type Registry struct {
	mu     sync.RWMutex
	conns  map[string]*Conn
	closed bool
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]*Conn),
	}
}

func (r *Registry) Add(c *Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRegistryClosed
	}
	r.conns[c.id] = c
	return nil
}

// Remove is idempotent; a connection's own teardown and server stop may
// both try to deregister the same id.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, id)
}

// Snapshot returns a point-in-time copy of the membership, so broadcast
// iteration never races with adds or removals.
func (r *Registry) Snapshot() []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*Conn, 0, len(r.conns))
	for _, c := range r.conns {
		result = append(result, c)
	}
	return result
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Close rejects all future adds and returns the members present at that
// instant so the caller can terminate them. Remove keeps working so
// those members can still deregister themselves.
func (r *Registry) Close() []*Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	result := make([]*Conn, 0, len(r.conns))
	for _, c := range r.conns {
		result = append(result, c)
	}
	return result
}
