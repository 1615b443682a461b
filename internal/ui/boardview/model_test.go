package boardview

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/crafthub/internal/board"
	"github.com/nhle/crafthub/internal/keys"
	"github.com/nhle/crafthub/internal/model"
)

func press(m Model, k string) (Model, tea.Cmd) {
	return m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
}

func viewOf(tasks ...model.Task) board.View {
	b := board.New(model.PersonalColumns)
	b.Apply(tasks)
	return b.View()
}

func TestSelectionMovesAcrossColumns(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 90, 20)
	m.SetView(viewOf(
		model.Task{ID: "1", Title: "A", Status: model.StatusTodo},
		model.Task{ID: "2", Title: "B", Status: model.StatusTodo},
		model.Task{ID: "3", Title: "C", Status: model.StatusDone},
	))

	got, ok := m.Selected()
	if !ok || got.ID != "1" {
		t.Fatalf("initial selection = %+v, %v", got, ok)
	}

	m, _ = press(m, "j")
	if got, _ := m.Selected(); got.ID != "2" {
		t.Fatalf("after j selected %q, want 2", got.ID)
	}
	m, _ = press(m, "j")
	if got, _ := m.Selected(); got.ID != "2" {
		t.Fatalf("cursor ran past the column end: %q", got.ID)
	}

	m, _ = press(m, "l")
	if _, ok := m.Selected(); ok {
		t.Fatal("doing column is empty, nothing should be selected")
	}
	if s, _ := m.FocusedStatus(); s != model.StatusDoing {
		t.Fatalf("focused %q, want doing", s)
	}

	m, _ = press(m, "l")
	m, _ = press(m, "l")
	if s, _ := m.FocusedStatus(); s != model.StatusDone {
		t.Fatalf("focus ran past the last column: %q", s)
	}
}

func TestCursorFollowsMovedCard(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 90, 20)
	m.SetView(viewOf(
		model.Task{ID: "1", Title: "A", Status: model.StatusTodo},
		model.Task{ID: "2", Title: "B", Status: model.StatusTodo},
	))
	m, _ = press(m, "j")

	m.SetView(viewOf(
		model.Task{ID: "1", Title: "A", Status: model.StatusTodo},
		model.Task{ID: "2", Title: "B", Status: model.StatusDoing},
	))

	got, ok := m.Selected()
	if !ok || got.ID != "2" {
		t.Fatalf("selection = %+v, %v; want card 2", got, ok)
	}
	if s, _ := m.FocusedStatus(); s != model.StatusDoing {
		t.Fatalf("focused %q, want doing", s)
	}
}

func TestCursorClampsWhenCardDisappears(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 90, 20)
	m.SetView(viewOf(
		model.Task{ID: "1", Title: "A", Status: model.StatusTodo},
		model.Task{ID: "2", Title: "B", Status: model.StatusTodo},
	))
	m, _ = press(m, "j")

	m.SetView(viewOf(model.Task{ID: "1", Title: "A", Status: model.StatusTodo}))

	got, ok := m.Selected()
	if !ok || got.ID != "1" {
		t.Fatalf("selection = %+v, %v; want card 1", got, ok)
	}
}

func TestEnterOpensSelectedCard(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 90, 20)
	m.SetView(viewOf(model.Task{ID: "7", Title: "A", Status: model.StatusTodo}))

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("enter on a card returned no command")
	}
	msg, ok := cmd().(SelectedTaskMsg)
	if !ok || msg.TaskID != "7" {
		t.Fatalf("got %#v, want SelectedTaskMsg{7}", msg)
	}
}

func TestViewRendersColumnTitles(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 120, 20)
	if !strings.Contains(m.View(), "Loading") {
		t.Fatal("an unloaded board should show the loading text")
	}

	m.SetView(viewOf(model.Task{ID: "1", Title: "Buy milk", Status: model.StatusDoing}))
	out := m.View()
	for _, want := range []string{"To Do", "In Progress", "Done", "Buy milk"} {
		if !strings.Contains(out, want) {
			t.Errorf("view is missing %q", want)
		}
	}
}

func TestOverdue(t *testing.T) {
	fixed := time.Date(2024, 5, 10, 12, 0, 0, 0, time.Local)
	now = func() time.Time { return fixed }
	t.Cleanup(func() { now = time.Now })

	yesterday := fixed.AddDate(0, 0, -1)
	today := fixed

	if !isOverdue(model.Task{Status: model.StatusTodo, DueDate: &yesterday}) {
		t.Error("a card due yesterday should be overdue")
	}
	if isOverdue(model.Task{Status: model.StatusTodo, DueDate: &today}) {
		t.Error("a card due today is not overdue")
	}
	if isOverdue(model.Task{Status: model.StatusDone, DueDate: &yesterday}) {
		t.Error("a finished card is never overdue")
	}
}
