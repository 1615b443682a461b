package boardview

import (
	"fmt"
	"time"

	"github.com/nhle/crafthub/internal/model"
	"github.com/nhle/crafthub/internal/theme"
)

// now is swapped in tests.
var now = time.Now

// renderCard draws one card line.
func renderCard(t model.Task, width int, selected bool) string {
	pri := theme.PriorityStyle(t.Priority).Render(priorityMarker(t.Priority))

	due := ""
	if t.DueDate != nil {
		if isOverdue(t) {
			due = theme.OverdueStyle.Render(" !" + t.DueDate.Format("Jan 02"))
		} else {
			due = theme.DueDateStyle.Render(" " + t.DueDate.Format("Jan 02"))
		}
	}

	line := fmt.Sprintf("%s %s%s", pri, t.Title, due)
	if t.Status == model.StatusDone || t.Archived {
		line = theme.DimmedStyle.Render(line)
	}

	style := theme.ListItemStyle
	if selected {
		style = theme.SelectedItemStyle
	}
	return style.MaxWidth(width).Render(line)
}

// isOverdue reports whether an unfinished card is past its due day.
func isOverdue(t model.Task) bool {
	if t.DueDate == nil || t.Status == model.StatusDone {
		return false
	}
	y, m, d := now().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.Local)
	return t.DueDate.Before(today)
}

func priorityMarker(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "▲"
	case model.PriorityLow:
		return "▽"
	default:
		return "●"
	}
}

func countLabel(n int) string {
	return fmt.Sprintf(" (%d)", n)
}

// RelativeTime returns a human-friendly relative time string.
func RelativeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := now().Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return fmt.Sprintf("%dw ago", int(d.Hours()/24/7))
	}
}
