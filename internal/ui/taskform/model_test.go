package taskform

import (
	"testing"
	"time"

	"github.com/nhle/crafthub/internal/model"
)

func TestBuildPatchOnlyChangedFields(t *testing.T) {
	due := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	orig := model.Task{
		ID:       "t1",
		Title:    "Write report",
		Priority: model.PriorityMedium,
		Status:   model.StatusTodo,
		DueDate:  &due,
	}

	unchanged := buildPatch(orig, formBindings{
		title:    "  Write report ",
		priority: model.PriorityMedium,
		status:   model.StatusTodo,
	}, parseDate("2024-06-01"))
	if !unchanged.IsEmpty() {
		t.Fatalf("resubmitting the same values produced %+v", unchanged)
	}

	p := buildPatch(orig, formBindings{
		title:    "Write report",
		priority: model.PriorityHigh,
		status:   model.StatusDoing,
	}, nil)
	if p.Title != nil || p.Description != nil {
		t.Fatalf("untouched text fields were patched: %+v", p)
	}
	if p.Priority == nil || *p.Priority != model.PriorityHigh {
		t.Fatalf("priority patch = %v", p.Priority)
	}
	if p.Status == nil || *p.Status != model.StatusDoing {
		t.Fatalf("status patch = %v", p.Status)
	}
	if p.DueDate == nil || *p.DueDate != nil {
		t.Fatal("clearing the due date should patch it to nil")
	}
}

func TestValidateOptionalDate(t *testing.T) {
	for _, s := range []string{"", "  ", "2024-01-31"} {
		if err := validateOptionalDate(s); err != nil {
			t.Errorf("validateOptionalDate(%q) = %v", s, err)
		}
	}
	for _, s := range []string{"tomorrow", "2024-13-01", "31/01/2024"} {
		if err := validateOptionalDate(s); err == nil {
			t.Errorf("validateOptionalDate(%q) accepted", s)
		}
	}
}

func TestPriorityOptionsHighestFirst(t *testing.T) {
	opts := priorityOptions()
	if len(opts) != 3 {
		t.Fatalf("got %d options", len(opts))
	}
	if opts[0].Value != model.PriorityHigh || opts[2].Value != model.PriorityLow {
		t.Fatalf("options out of order: %v, %v", opts[0].Value, opts[2].Value)
	}
}

func submitDraft(t *testing.T, m Model) model.TaskDraft {
	t.Helper()
	cmd := m.handleSubmit()
	created, ok := cmd().(TaskCreatedMsg)
	if !ok {
		t.Fatal("create form did not yield TaskCreatedMsg")
	}
	return created.Draft
}

func TestCreateOffersInitialStatusOnlyWithColumns(t *testing.T) {
	m := New(80, 24)
	m.StartCreate(model.ProjectColumns)
	m.fb.title = "Review copy"
	m.fb.status = model.StatusReview
	if d := submitDraft(t, m); d.Status != model.StatusReview || d.Title != "Review copy" {
		t.Fatalf("project draft = %+v", d)
	}

	m.StartCreate(nil)
	m.fb.title = "Mine"
	m.fb.status = model.StatusDone
	if d := submitDraft(t, m); d.Status != "" {
		t.Fatalf("personal draft carried status %q", d.Status)
	}
}
