package detail

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/crafthub/internal/keys"
	"github.com/nhle/crafthub/internal/model"
)

func typeText(m Model, s string) Model {
	for _, r := range s {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func TestCommentFlow(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 24)
	m.SetDetail(DetailLoadedMsg{Task: model.Task{ID: "t1", Title: "A", Status: model.StatusTodo}})

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	if !m.Composing() {
		t.Fatal("c should open the comment input")
	}

	m = typeText(m, "  looks good ")
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.Composing() {
		t.Fatal("enter should close the comment input")
	}
	if cmd == nil {
		t.Fatal("submitting text returned no command")
	}
	msg, ok := cmd().(CommentMsg)
	if !ok || msg.TaskID != "t1" || msg.Text != "looks good" {
		t.Fatalf("got %#v", msg)
	}
}

func TestBlankCommentIsDropped(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 24)
	m.SetDetail(DetailLoadedMsg{Task: model.Task{ID: "t1", Title: "A"}})

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	m = typeText(m, "   ")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Fatal("a blank comment should not be submitted")
	}
}

func TestEscGoesBack(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 24)
	m.SetDetail(DetailLoadedMsg{Task: model.Task{ID: "t1", Title: "A"}})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatal("esc returned no command")
	}
	if _, ok := cmd().(BackMsg); !ok {
		t.Fatal("esc should navigate back")
	}
}

func TestRefreshIgnoresOtherTasks(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 24)
	m.SetDetail(DetailLoadedMsg{Task: model.Task{ID: "t1", Title: "A"}})

	m.Refresh(model.Task{ID: "t2", Title: "B"})
	if m.TaskID() != "t1" || m.task.Title != "A" {
		t.Fatalf("refresh replaced the shown task with %+v", m.task)
	}
	m.Refresh(model.Task{ID: "t1", Title: "A2"})
	if m.task.Title != "A2" {
		t.Fatalf("title = %q, want A2", m.task.Title)
	}
}

func withComments() Model {
	m := New(keys.DefaultKeyMap(), 80, 24)
	m.SetDetail(DetailLoadedMsg{
		Task: model.Task{ID: "t1", Title: "A"},
		Comments: []model.Comment{
			{ID: "c1", TaskID: "t1", Author: "Ann", Text: "first"},
			{ID: "c2", TaskID: "t1", Author: "Bob", Text: "second"},
		},
	})
	return m
}

func TestCommentSelectionWraps(t *testing.T) {
	m := withComments()
	if _, ok := m.SelectedComment(); ok {
		t.Fatal("no comment should be selected initially")
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if c, _ := m.SelectedComment(); c.ID != "c1" {
		t.Fatalf("selected %q, want c1", c.ID)
	}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if c, _ := m.SelectedComment(); c.ID != "c1" {
		t.Fatalf("selection should wrap to c1, got %q", c.ID)
	}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	if c, _ := m.SelectedComment(); c.ID != "c2" {
		t.Fatalf("shift+tab should wrap to c2, got %q", c.ID)
	}
}

func TestEditSelectedComment(t *testing.T) {
	m := withComments()
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("e")})
	if !m.Composing() || !m.Editing() {
		t.Fatal("e should open the input on the selected comment")
	}
	m = typeText(m, " take ")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("editing returned no command")
	}
	msg, ok := cmd().(CommentEditMsg)
	if !ok || msg.TaskID != "t1" || msg.CommentID != "c1" || msg.Text != "first take" {
		t.Fatalf("got %#v", msg)
	}
}

func TestBlankCommentEditIsDropped(t *testing.T) {
	m := withComments()
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("e")})
	for range "first" {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	}
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Fatal("clearing a comment should not submit an edit")
	}
	if m.Editing() || m.Composing() {
		t.Fatal("enter should leave edit mode")
	}
}

func TestDeleteSelectedComment(t *testing.T) {
	m := withComments()

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	if cmd != nil {
		t.Fatal("d without a selected comment should do nothing")
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	if cmd == nil {
		t.Fatal("d returned no command")
	}
	msg, ok := cmd().(CommentDeleteMsg)
	if !ok || msg.CommentID != "c2" || msg.TaskID != "t1" {
		t.Fatalf("got %#v", msg)
	}
}

func TestReloadKeepsSelectionInRange(t *testing.T) {
	m := withComments()
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})

	m.SetDetail(DetailLoadedMsg{
		Task:     model.Task{ID: "t1", Title: "A"},
		Comments: []model.Comment{{ID: "c1", TaskID: "t1", Text: "first"}},
	})
	if c, ok := m.SelectedComment(); !ok || c.ID != "c1" {
		t.Fatalf("selection after delete = %q, %v", c.ID, ok)
	}
}
