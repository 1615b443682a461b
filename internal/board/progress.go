package board

import "github.com/nhle/crafthub/internal/model"

// Progress returns the share of active tasks that are done, as a whole
// percentage rounded half up. An empty board reports 0.
func Progress(tasks []model.Task) int {
	active, done := 0, 0
	for _, t := range tasks {
		if !t.IsActive() {
			continue
		}
		active++
		if t.Status == model.StatusDone {
			done++
		}
	}
	if active == 0 {
		return 0
	}
	return (200*done + active) / (2 * active)
}
