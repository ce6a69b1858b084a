package connection

import "sync"

// Registry maps bound bot identities to their live gateway clients. It is
// the shared state between receive loops (which bind and unbind) and
// heartbeat tasks (which check for an open socket before each send).
type Registry struct {
	mu    sync.RWMutex
	conns map[string]Client
}

// NewRegistry creates an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]Client),
	}
}

// Set records the client bound to identity.
func (r *Registry) Set(identity string, c Client) {
	r.mu.Lock()
	r.conns[identity] = c
	r.mu.Unlock()
}

// Get returns the client bound to identity, if any.
func (r *Registry) Get(identity string) (Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[identity]
	return c, ok
}

// Delete removes the binding for identity.
func (r *Registry) Delete(identity string) {
	r.mu.Lock()
	delete(r.conns, identity)
	r.mu.Unlock()
}

// Len returns the number of bound identities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
