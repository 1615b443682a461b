// Package board holds the client-side state of a task board: the latest
// snapshot grouped into status columns, the drop coordinator and the
// progress figure.
package board

import (
	"slices"

	"github.com/nhle/crafthub/internal/model"
)

// Column is one status lane with its tasks in snapshot order.
type Column struct {
	Status model.Status `json:"status"`
	Title  string       `json:"title"`
	Tasks  []model.Task `json:"tasks"`
}

// View is what a presentation renders for one snapshot.
type View struct {
	Columns  []Column `json:"columns"`
	Progress int      `json:"progress"`
}

// Board is the reducer over snapshots. Each Apply replaces the whole
// local task set; there is no merge.
type Board struct {
	columns []model.Status
	tasks   []model.Task
}

// New creates an empty board with the given column set.
func New(columns []model.Status) *Board {
	return &Board{columns: slices.Clone(columns)}
}

// ColumnSet returns the board's statuses in display order.
func (b *Board) ColumnSet() []model.Status { return slices.Clone(b.columns) }

// HasColumn reports whether s is one of the board's columns.
func (b *Board) HasColumn(s model.Status) bool { return slices.Contains(b.columns, s) }

// Apply replaces the local set with snapshot.
func (b *Board) Apply(snapshot []model.Task) {
	b.tasks = slices.Clone(snapshot)
}

// Tasks returns the current local set.
func (b *Board) Tasks() []model.Task { return slices.Clone(b.tasks) }

// Task looks up a task in the current set.
func (b *Board) Task(id string) (model.Task, bool) {
	for _, t := range b.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return model.Task{}, false
}

// Columns partitions the current set by status.
func (b *Board) Columns() []Column { return Partition(b.columns, b.tasks) }

// View returns columns and progress for the current set.
func (b *Board) View() View {
	return View{Columns: b.Columns(), Progress: Progress(b.tasks)}
}

// Partition groups tasks into one column per status in columns, keeping
// input order within each column. A task whose status is unknown, empty
// or not part of columns lands in the todo column, so every task appears
// exactly once.
func Partition(columns []model.Status, tasks []model.Task) []Column {
	out := make([]Column, len(columns))
	index := make(map[model.Status]int, len(columns))
	for i, s := range columns {
		out[i] = Column{Status: s, Title: s.Label(), Tasks: []model.Task{}}
		index[s] = i
	}
	fallback, ok := index[model.StatusTodo]
	if !ok && len(columns) > 0 {
		fallback = 0
	}

	for _, t := range tasks {
		i, ok := index[t.Status]
		if !ok {
			if len(out) == 0 {
				continue
			}
			i = fallback
		}
		out[i].Tasks = append(out[i].Tasks, t)
	}
	return out
}
