package netsync

import "sync"

type Registry interface {
	Resolve(id ObjectID) (interface{}, bool)
}

// MapRegistry is a concurrency-safe Registry backed by a map.
type MapRegistry struct {
	objects map[ObjectID]interface{}
	mu      sync.RWMutex
}

var _ Registry = (*MapRegistry)(nil)

func NewMapRegistry() *MapRegistry {
	return &MapRegistry{
		objects: make(map[ObjectID]interface{}),
	}
}

func (r *MapRegistry) Register(id ObjectID, obj interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.objects[id] = obj
}

func (r *MapRegistry) Unregister(id ObjectID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.objects, id)
}

func (r *MapRegistry) Resolve(id ObjectID) (interface{}, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	obj, ok := r.objects[id]
	return obj, ok
}
