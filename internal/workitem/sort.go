package workitem

import (
	"math"
	"sort"
	"time"
)

// SortByUrgency returns the items ordered by due-date urgency. In issues
// mode, critical items sort strictly before non-critical ones regardless of
// due date. Within the same criticality class, overdue items come first
// (most overdue leading), then upcoming items by soonest due date, then
// items with no due date. The sort is stable: ties keep their input order.
// The input slice is not modified.
func SortByUrgency(items []WorkItem, tab ViewTab) []WorkItem {
	return sortByUrgencyAt(items, tab, time.Now())
}

func sortByUrgencyAt(items []WorkItem, tab ViewTab, now time.Time) []WorkItem {
	sorted := make([]WorkItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return compareUrgency(sorted[i], sorted[j], tab, now) < 0
	})
	return sorted
}

// compareUrgency returns a signed comparison consistent for any pair, so the
// induced ordering is a strict weak order.
func compareUrgency(a, b WorkItem, tab ViewTab, now time.Time) int {
	if tab == TabIssues && a.IsCritical != b.IsCritical {
		if a.IsCritical {
			return -1
		}
		return 1
	}

	da, aOK := daysUntilDue(a, now)
	db, bOK := daysUntilDue(b, now)
	switch {
	case aOK && bOK:
		// Negative values are overdue; comparing the raw day counts already
		// puts overdue before upcoming and more-overdue before less-overdue.
		if da != db {
			if da < db {
				return -1
			}
			return 1
		}
		return 0
	case aOK:
		return -1 // dated items sort before undated ones
	case bOK:
		return 1
	default:
		return 0
	}
}

// daysUntilDue returns the whole-day distance from today to the item's due
// date. Only the calendar date participates; time-of-day is truncated on
// both sides. The second return is false when the item has no due date.
func daysUntilDue(item WorkItem, now time.Time) (int, bool) {
	if item.DueDate == nil {
		return 0, false
	}
	due := midnight(*item.DueDate)
	today := midnight(now.In(item.DueDate.Location()))
	return int(math.Round(due.Sub(today).Hours() / 24)), true
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
