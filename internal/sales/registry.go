package sales

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry holds the in-flight sales. Safe for concurrent use; the registry
// lock only guards the map, per-sale state is guarded by the sale's own
// mutex.
type Registry struct {
	mu    sync.RWMutex
	sales map[string]*Sale
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{sales: make(map[string]*Sale)}
}

// Create opens a new empty sale and returns it.
func (r *Registry) Create(customerRef, locationRef string) *Sale {
	s := newSale(uuid.NewString(), customerRef, locationRef, time.Now().UTC())
	r.mu.Lock()
	r.sales[s.ID] = s
	r.mu.Unlock()
	return s
}

// Get returns the sale for the id.
func (r *Registry) Get(id string) (*Sale, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sales[id]
	return s, ok
}

// Delete discards the sale for the id. Deleting an absent sale is a no-op.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	delete(r.sales, id)
	r.mu.Unlock()
}

// Len returns the number of in-flight sales.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sales)
}
