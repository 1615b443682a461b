package board

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/nhle/crafthub/internal/model"
)

type recordingUpdater struct {
	mu    sync.Mutex
	calls []update
	err   error
}

type update struct {
	id    string
	patch model.TaskPatch
}

func (r *recordingUpdater) UpdateFields(_ context.Context, id string, patch model.TaskPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, update{id: id, patch: patch})
	return r.err
}

func inline(fn func()) { fn() }

func TestDropIssuesNothingForNoOps(t *testing.T) {
	tests := []struct {
		name string
		drop Drop
	}{
		{"cancelled", Drop{TaskID: "1", Source: model.StatusTodo}},
		{"same column", Drop{TaskID: "1", Source: model.StatusDoing, Destination: model.StatusDoing}},
		{"column not on board", Drop{TaskID: "1", Source: model.StatusTodo, Destination: model.StatusReview}},
		{"no task", Drop{Source: model.StatusTodo, Destination: model.StatusDone}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &recordingUpdater{}
			c := NewCoordinator(model.PersonalColumns, u, inline, nil)
			if c.Drop(context.Background(), tt.drop) {
				t.Error("Drop reported a write")
			}
			if len(u.calls) != 0 {
				t.Errorf("got %d writes, want 0", len(u.calls))
			}
		})
	}
}

func TestDropWritesStatusOnly(t *testing.T) {
	u := &recordingUpdater{}
	var results []MoveResult
	c := NewCoordinator(model.PersonalColumns, u, inline, func(r MoveResult) { results = append(results, r) })

	if !c.Drop(context.Background(), Drop{TaskID: "42", Source: model.StatusTodo, Destination: model.StatusDone}) {
		t.Fatal("Drop reported no write")
	}

	if len(u.calls) != 1 {
		t.Fatalf("got %d writes, want 1", len(u.calls))
	}
	call := u.calls[0]
	if call.id != "42" {
		t.Errorf("id = %s, want 42", call.id)
	}
	if call.patch.Status == nil || *call.patch.Status != model.StatusDone {
		t.Errorf("status patch = %v", call.patch.Status)
	}
	if call.patch.Title != nil || call.patch.Priority != nil || call.patch.Archived != nil ||
		call.patch.Description != nil || call.patch.DueDate != nil {
		t.Errorf("patch writes more than status: %+v", call.patch)
	}
	if len(results) != 1 || results[0].Err != nil || results[0].To != model.StatusDone {
		t.Errorf("results = %+v", results)
	}
}

func TestDropReportsFailureWithoutRollback(t *testing.T) {
	boom := errors.New("offline")
	u := &recordingUpdater{err: boom}
	var got MoveResult
	c := NewCoordinator(model.ProjectColumns, u, inline, func(r MoveResult) { got = r })

	c.Drop(context.Background(), Drop{TaskID: "1", Source: model.StatusTodo, Destination: model.StatusBlocked})

	if !errors.Is(got.Err, boom) {
		t.Errorf("result err = %v, want %v", got.Err, boom)
	}
	if len(u.calls) != 1 {
		t.Errorf("got %d writes, want exactly 1", len(u.calls))
	}
}

func TestDropDoesNotBlockCaller(t *testing.T) {
	u := &recordingUpdater{}
	var queued []func()
	c := NewCoordinator(model.PersonalColumns, u, func(fn func()) { queued = append(queued, fn) }, nil)

	c.Drop(context.Background(), Drop{TaskID: "1", Source: model.StatusTodo, Destination: model.StatusDoing})
	if len(u.calls) != 0 {
		t.Fatal("write ran before dispatch")
	}
	if len(queued) != 1 {
		t.Fatalf("queued = %d, want 1", len(queued))
	}
	queued[0]()
	if len(u.calls) != 1 {
		t.Errorf("got %d writes after dispatch, want 1", len(u.calls))
	}
}
