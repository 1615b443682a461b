package feed

import (
	"context"
	"sync"
	"time"

	"github.com/nhle/crafthub/internal/model"
)

// Subscription delivers full-collection snapshots until closed. The first
// snapshot is read on start; later ones follow every change signal and
// every resync tick. A slow reader only ever sees the newest snapshot.
type Subscription struct {
	snapshots chan []model.Task
	errs      chan error
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

func startSubscription(
	parent context.Context,
	c *Collection,
	q Query,
	signals <-chan struct{},
	unsubscribe func(),
) *Subscription {
	ctx, cancel := context.WithCancel(parent)
	sub := &Subscription{
		snapshots: make(chan []model.Task, 1),
		errs:      make(chan error, 1),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	go sub.run(ctx, c, q, signals, unsubscribe)
	return sub
}

// Snapshots returns the snapshot channel. It is closed when the
// subscription ends.
func (s *Subscription) Snapshots() <-chan []model.Task { return s.snapshots }

// Errors reports failed refetches. The last good snapshot stays current.
func (s *Subscription) Errors() <-chan error { return s.errs }

// Done is closed once the producer goroutine has exited.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Close stops the stream and waits for the producer to exit. It is safe
// to call more than once.
func (s *Subscription) Close() {
	s.closeOnce.Do(s.cancel)
	<-s.done
}

func (s *Subscription) run(
	ctx context.Context,
	c *Collection,
	q Query,
	signals <-chan struct{},
	unsubscribe func(),
) {
	defer close(s.done)
	defer close(s.errs)
	defer close(s.snapshots)
	defer unsubscribe()

	ticker := time.NewTicker(c.resync)
	defer ticker.Stop()

	s.refresh(ctx, c, q)
	for {
		select {
		case <-ctx.Done():
			return
		case <-signals:
			s.refresh(ctx, c, q)
		case <-ticker.C:
			s.refresh(ctx, c, q)
		}
	}
}

func (s *Subscription) refresh(ctx context.Context, c *Collection, q Query) {
	tasks, err := c.fetch(ctx, q)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		c.log.WithError(err).Warn("snapshot refresh failed")
		offer(s.errs, err)
		return
	}
	offer(s.snapshots, tasks)
}

// offer replaces any unread value so the channel holds only the latest.
// Only the producer goroutine sends, so the loop always terminates.
func offer[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
