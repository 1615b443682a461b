// Package feed exposes a user's task collection as a live stream of
// snapshots and routes writes through the store with change notification.
package feed

import (
	"context"
	"sync"
)

// Notifier fans out "collection changed" signals per topic.
type Notifier interface {
	// Publish signals every listener on topic.
	Publish(ctx context.Context, topic string) error

	// Subscribe registers a listener. Signals are coalesced: a listener
	// that has not drained its channel receives at most one pending
	// signal. The returned func unregisters the listener.
	Subscribe(ctx context.Context, topic string) (<-chan struct{}, func(), error)
}

// MemoryNotifier is a single-process Notifier.
type MemoryNotifier struct {
	mu        sync.Mutex
	listeners map[string]map[chan struct{}]struct{}
}

var _ Notifier = (*MemoryNotifier)(nil)

// NewMemoryNotifier creates an empty in-process broker.
func NewMemoryNotifier() *MemoryNotifier {
	return &MemoryNotifier{listeners: make(map[string]map[chan struct{}]struct{})}
}

func (n *MemoryNotifier) Publish(_ context.Context, topic string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	for ch := range n.listeners[topic] {
		signal(ch)
	}
	return nil
}

func (n *MemoryNotifier) Subscribe(_ context.Context, topic string) (<-chan struct{}, func(), error) {
	ch := make(chan struct{}, 1)

	n.mu.Lock()
	if n.listeners[topic] == nil {
		n.listeners[topic] = make(map[chan struct{}]struct{})
	}
	n.listeners[topic][ch] = struct{}{}
	n.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			delete(n.listeners[topic], ch)
			if len(n.listeners[topic]) == 0 {
				delete(n.listeners, topic)
			}
		})
	}
	return ch, unsubscribe, nil
}

// Listeners reports how many listeners are registered on topic.
func (n *MemoryNotifier) Listeners(topic string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.listeners[topic])
}

// signal does a non-blocking send on a buffer-of-one channel.
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
