package board

import (
	"context"
	"fmt"
	"sync"

	"github.com/nhle/crafthub/internal/feed"
	"github.com/nhle/crafthub/internal/model"
	"github.com/nhle/crafthub/internal/store"
)

// Session is one mounted board: a live subscription feeding the reducer,
// plus the board's write operations.
type Session struct {
	*Actions

	mu    sync.Mutex
	board *Board

	sub   *feed.Subscription
	views chan View
	done  chan struct{}
}

// Open subscribes to scope's collection and starts feeding the board.
// A scope without a user yields ErrSignedOut and does no data work.
func Open(ctx context.Context, hub *feed.Hub, scope store.Scope, opts Options) (*Session, error) {
	actions, err := NewActions(hub, scope, opts)
	if err != nil {
		return nil, err
	}

	sub, err := actions.coll.Subscribe(ctx, feed.Query{IncludeArchived: opts.IncludeArchived})
	if err != nil {
		return nil, fmt.Errorf("opening board: %w", err)
	}

	s := &Session{
		Actions: actions,
		board:   New(actions.columns),
		sub:     sub,
		views:   make(chan View, 1),
		done:    make(chan struct{}),
	}
	go s.pump()
	return s, nil
}

// Views delivers a new View after every snapshot. Unread views are
// replaced by newer ones. The channel closes when the session ends.
func (s *Session) Views() <-chan View { return s.views }

// Done is closed once the session has stopped.
func (s *Session) Done() <-chan struct{} { return s.done }

// Current returns the view of the latest applied snapshot.
func (s *Session) Current() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board.View()
}

// Task looks up a task in the latest snapshot.
func (s *Session) Task(id string) (model.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board.Task(id)
}

// Shift moves a task delta columns left or right of its current column.
func (s *Session) Shift(ctx context.Context, taskID string, delta int) bool {
	s.mu.Lock()
	columns := s.board.Columns()
	s.mu.Unlock()

	for i, col := range columns {
		for _, t := range col.Tasks {
			if t.ID != taskID {
				continue
			}
			j := i + delta
			if j < 0 || j >= len(columns) {
				return false
			}
			return s.Move(ctx, taskID, col.Status, columns[j].Status)
		}
	}
	return false
}

// Close ends the subscription and waits for the pump to stop.
func (s *Session) Close() {
	s.sub.Close()
	<-s.done
}

func (s *Session) pump() {
	defer close(s.done)
	defer close(s.views)

	snapshots, errs := s.sub.Snapshots(), s.sub.Errors()
	for snapshots != nil || errs != nil {
		select {
		case tasks, ok := <-snapshots:
			if !ok {
				snapshots = nil
				continue
			}
			s.mu.Lock()
			s.board.Apply(tasks)
			view := s.board.View()
			s.mu.Unlock()
			replaceView(s.views, view)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.report(err)
		}
	}
}

func replaceView(ch chan View, v View) {
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
