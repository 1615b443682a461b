package projectmgr

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/crafthub/internal/keys"
	"github.com/nhle/crafthub/internal/model"
	"github.com/nhle/crafthub/tests/testutil"
)

func TestPickerSelectsBoards(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	pid, err := s.CreateProject(ctx, model.Project{UserID: "u1", Name: "Launch"})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if _, err := s.CreateProject(ctx, model.Project{UserID: "u2", Name: "Foreign"}); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	m := New(s, "u1", keys.DefaultKeyMap(), 80, 24)
	m, _ = m.Update(m.Init()())
	if len(m.projects) != 1 {
		t.Fatalf("loaded %d projects, want only the user's own", len(m.projects))
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	sel, ok := cmd().(BoardSelectedMsg)
	if !ok || sel.ProjectID != "" || sel.Name != PersonalBoardName {
		t.Fatalf("first entry selected %#v, want the personal board", sel)
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	sel, ok = cmd().(BoardSelectedMsg)
	if !ok || sel.ProjectID != pid || sel.Name != "Launch" {
		t.Fatalf("second entry selected %#v", sel)
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	if m.selectedIdx != 0 {
		t.Fatalf("cursor should wrap to the top, at %d", m.selectedIdx)
	}
}

func TestArchiveToggleAndArchivedBoardStaysClosed(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	pid, err := s.CreateProject(ctx, model.Project{UserID: "u1", Name: "Launch"})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	m := New(s, "u1", keys.DefaultKeyMap(), 80, 24)
	m.SetActivityLog("Ann", nil)
	m, _ = m.Update(m.Init()())
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a")})
	m, cmd = m.Update(cmd())
	m, _ = m.Update(cmd())

	p, err := s.GetProject(ctx, "u1", pid)
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if !p.Archived {
		t.Fatal("project was not archived")
	}
	entries, err := s.ListUserActivity(ctx, "u1", 5)
	if err != nil {
		t.Fatalf("ListUserActivity: %v", err)
	}
	if len(entries) != 1 || entries[0].Kind != model.ActivityKindProject ||
		entries[0].RefID != pid || entries[0].Action != `project "Launch" archived` {
		t.Fatalf("activity = %+v", entries)
	}

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Fatal("an archived project board should not open")
	}
}

func TestPersonalEntryCannotBeDeleted(t *testing.T) {
	s := testutil.NewTestStore(t)
	m := New(s, "u1", keys.DefaultKeyMap(), 80, 24)
	m, _ = m.Update(m.Init()())

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	if cmd != nil || m.mode != modeList {
		t.Fatal("delete on the personal board entry should do nothing")
	}
}
