package workitem

import "strings"

// ViewTab selects which list view a display filter serves.
type ViewTab string

const (
	TabTasks  ViewTab = "tasks"
	TabIssues ViewTab = "issues"
)

// TabCounts holds the badge counters shown on the view tabs. The badge rules
// deliberately differ from the full open/closed rules: unresolved issues
// ignore progress, incomplete tasks ignore the issue flag.
type TabCounts struct {
	UnresolvedIssues int `json:"unresolvedIssues"`
	IncompleteTasks  int `json:"incompleteTasks"`
}

// IsOpen reports whether an item still belongs in an active view.
// An issue is closed when its status is completed or resolved, or it is at
// 100%. A task is closed when its status is completed or it is at 100%.
func IsOpen(item WorkItem) bool {
	if item.Kind == KindIssue {
		return item.Status != "completed" && item.Status != "resolved" && item.ProgressPercent != 100
	}
	return item.Status != "completed" && item.ProgressPercent != 100
}

// DisplayFilter reports whether an item is shown on the given tab. A task
// flagged as an issue is hidden from the tasks tab even when otherwise open
// and appears only on the issues tab.
func DisplayFilter(item WorkItem, tab ViewTab) bool {
	switch tab {
	case TabIssues:
		return item.Kind == KindIssue && IsOpen(item)
	default:
		return item.Kind == KindTask && IsOpen(item)
	}
}

// MatchesQuery reports whether the free-text query matches any of the item's
// searchable fields: title, description, project name, or creator name.
// Matching is a case-insensitive substring test; an empty query matches.
func MatchesQuery(item WorkItem, query string) bool {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return true
	}
	for _, field := range []string{item.Title, item.Description, item.ProjectName, item.CreatorName} {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

// IsUnresolvedIssue implements the issue badge rule: only completed/resolved
// status closes an issue for counting purposes, progress is ignored.
func IsUnresolvedIssue(item WorkItem) bool {
	return item.Kind == KindIssue && item.Status != "completed" && item.Status != "resolved"
}

// IsIncompleteTask implements the task badge rule: 100% progress or a
// completed status excludes a task from the incomplete count.
func IsIncompleteTask(item WorkItem) bool {
	return item.Kind == KindTask && item.ProgressPercent != 100 && item.Status != "completed"
}

// CountUnresolved computes both tab badge counters in one pass.
func CountUnresolved(items []WorkItem) TabCounts {
	var counts TabCounts
	for _, item := range items {
		if IsUnresolvedIssue(item) {
			counts.UnresolvedIssues++
		}
		if IsIncompleteTask(item) {
			counts.IncompleteTasks++
		}
	}
	return counts
}
