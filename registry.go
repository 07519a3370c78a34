package framesync

import (
	"sync"

	"cogentcore.org/core/base/keylist"
)

// Registry is a set of listeners kept in registration order.
// Registering a listener twice and unregistering an absent one are no-ops.
// Safe for concurrent use.
type Registry[L comparable] struct {
	mu   sync.Mutex
	list keylist.List[L, L]
}

// Register adds l and reports whether it was newly added.
func (r *Registry[L]) Register(l L) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list.Add(l, l) == nil
}

// Unregister removes l and reports whether it was present.
func (r *Registry[L]) Unregister(l L) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list.DeleteByKey(l)
}

// Contains reports whether l is registered.
func (r *Registry[L]) Contains(l L) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list.IndexByKey(l) >= 0
}

// Clear removes every listener.
func (r *Registry[L]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.list.Reset()
}

// Len returns the number of registered listeners.
func (r *Registry[L]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list.Len()
}

// Snapshot returns the listeners in registration order. The slice is a copy,
// so callers may dispatch without holding the registry lock.
func (r *Registry[L]) Snapshot() []L {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]L, len(r.list.Values))
	copy(out, r.list.Values)
	return out
}
