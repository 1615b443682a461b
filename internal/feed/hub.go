package feed

import (
	"sync"

	"github.com/nhle/crafthub/internal/store"
)

// Hub hands out one Collection per scope so that all sessions of a
// collection share its circuit breaker.
type Hub struct {
	store store.Store
	opts  Options

	mu          sync.Mutex
	collections map[string]*Collection
}

// NewHub creates a hub over s. opts apply to every collection.
func NewHub(s store.Store, opts Options) *Hub {
	if opts.Notifier == nil {
		opts.Notifier = NewMemoryNotifier()
	}
	return &Hub{store: s, opts: opts, collections: make(map[string]*Collection)}
}

// Store returns the backing store.
func (h *Hub) Store() store.Store { return h.store }

// Collection returns the shared collection for scope.
func (h *Hub) Collection(scope store.Scope) (*Collection, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := scope.Topic()
	if c, ok := h.collections[key]; ok {
		return c, nil
	}
	c, err := NewCollection(h.store, scope, h.opts)
	if err != nil {
		return nil, err
	}
	h.collections[key] = c
	return c, nil
}
