package workitem

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sortNow = time.Date(2026, time.June, 15, 14, 30, 0, 0, time.UTC)

func dueIn(days int) *time.Time {
	d := sortNow.AddDate(0, 0, days)
	return &d
}

func TestSortByUrgency_OverdueSoonNone(t *testing.T) {
	items := []WorkItem{
		{ID: "no-date"},
		{ID: "due-soon", DueDate: dueIn(1)},
		{ID: "overdue", DueDate: dueIn(-3)},
	}

	sorted := sortByUrgencyAt(items, TabTasks, sortNow)
	require.Len(t, sorted, 3)
	assert.Equal(t, "overdue", sorted[0].ID)
	assert.Equal(t, "due-soon", sorted[1].ID)
	assert.Equal(t, "no-date", sorted[2].ID)
}

func TestSortByUrgency_MoreOverdueFirst(t *testing.T) {
	items := []WorkItem{
		{ID: "barely", DueDate: dueIn(-1)},
		{ID: "badly", DueDate: dueIn(-10)},
	}
	sorted := sortByUrgencyAt(items, TabTasks, sortNow)
	assert.Equal(t, "badly", sorted[0].ID)
	assert.Equal(t, "barely", sorted[1].ID)
}

func TestSortByUrgency_CriticalFirstInIssuesMode(t *testing.T) {
	items := []WorkItem{
		{ID: "overdue", IsCritical: false, DueDate: dueIn(-1)},
		{ID: "critical", IsCritical: true, DueDate: dueIn(10)},
	}

	sorted := sortByUrgencyAt(items, TabIssues, sortNow)
	assert.Equal(t, "critical", sorted[0].ID, "critical sorts before overdue non-critical in issues mode")

	// tasks mode ignores the critical flag
	sorted = sortByUrgencyAt(items, TabTasks, sortNow)
	assert.Equal(t, "overdue", sorted[0].ID)
}

func TestSortByUrgency_CriticalTieBreaksByDueDate(t *testing.T) {
	items := []WorkItem{
		{ID: "crit-later", IsCritical: true, DueDate: dueIn(5)},
		{ID: "crit-sooner", IsCritical: true, DueDate: dueIn(2)},
	}
	sorted := sortByUrgencyAt(items, TabIssues, sortNow)
	assert.Equal(t, "crit-sooner", sorted[0].ID)
}

func TestSortByUrgency_StableAndIdempotent(t *testing.T) {
	items := []WorkItem{
		{ID: "a"},
		{ID: "b"},
		{ID: "c", DueDate: dueIn(2)},
		{ID: "d", DueDate: dueIn(2)},
	}

	once := sortByUrgencyAt(items, TabTasks, sortNow)
	twice := sortByUrgencyAt(once, TabTasks, sortNow)
	assert.Equal(t, once, twice, "sorting an already-sorted sequence must not reorder it")

	// equal keys keep input order
	assert.Equal(t, "c", once[0].ID)
	assert.Equal(t, "d", once[1].ID)
	assert.Equal(t, "a", once[2].ID)
	assert.Equal(t, "b", once[3].ID)
}

func TestSortByUrgency_DoesNotMutateInput(t *testing.T) {
	items := []WorkItem{
		{ID: "later", DueDate: dueIn(9)},
		{ID: "sooner", DueDate: dueIn(1)},
	}
	_ = sortByUrgencyAt(items, TabTasks, sortNow)
	assert.Equal(t, "later", items[0].ID)
}

func TestDaysUntilDue_MidnightTruncation(t *testing.T) {
	// due tomorrow at 00:30, now 23:30 today: still one calendar day away
	now := time.Date(2026, time.June, 15, 23, 30, 0, 0, time.UTC)
	due := time.Date(2026, time.June, 16, 0, 30, 0, 0, time.UTC)

	days, ok := daysUntilDue(WorkItem{DueDate: &due}, now)
	require.True(t, ok)
	assert.Equal(t, 1, days)

	// same calendar date is zero days regardless of time-of-day
	sameDay := time.Date(2026, time.June, 15, 1, 0, 0, 0, time.UTC)
	days, ok = daysUntilDue(WorkItem{DueDate: &sameDay}, now)
	require.True(t, ok)
	assert.Equal(t, 0, days)

	_, ok = daysUntilDue(WorkItem{}, now)
	assert.False(t, ok)
}
