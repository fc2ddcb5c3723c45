package rtring

import (
	"reflect"
	"slices"
	"sync"
)

type registryKey struct {
	name string
	typ  reflect.Type
}

// Registry hands out clients of named queues. A name used with two element
// types refers to two different queues.
//
// The registry is only consulted while wiring threads together, never on the
// read or write path, so a plain mutex guards it.
type Registry struct {
	mu     sync.Mutex
	queues map[registryKey]any
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{queues: make(map[registryKey]any)}
}

// Open returns a client of the queue called name holding T values, creating
// the queue with size cells on first use. size is ignored when the queue
// already exists. The client starts at the next write, so it sees no old data.
func Open[T any](r *Registry, name string, size uint64) *Client[T] {
	key := registryKey{name: name, typ: reflect.TypeFor[T]()}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.queues[key]; ok {
		// the key carries T, so the assertion cannot fail
		return existing.(*Broadcast[T]).Client()
	}
	q := NewBroadcast[T](size)
	r.queues[key] = q
	return q.Client()
}

// Len returns the number of queues created.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queues)
}

// Names returns the registered queue names, sorted, one entry per element type.
func (r *Registry) Names() []string {
	r.mu.Lock()
	names := make([]string, 0, len(r.queues))
	for k := range r.queues {
		names = append(names, k.name+"["+k.typ.String()+"]")
	}
	r.mu.Unlock()
	slices.Sort(names)
	return names
}
