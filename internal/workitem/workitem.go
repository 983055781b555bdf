// Package workitem holds the canonical work-item model and the engines that
// normalize, classify, and order raw task/issue records from the tracking
// backend.
package workitem

import "time"

// Kind discriminates tasks from issues. An issue is a task flagged with
// isIssue in the source data.
type Kind string

const (
	KindTask  Kind = "task"
	KindIssue Kind = "issue"
)

// RawRecord is a backend record as decoded from JSON, before normalization.
// Field names and value types vary between endpoints; the normalizer resolves
// them through ordered alias chains.
type RawRecord = map[string]any

// WorkItem is the canonical, post-normalization representation of a task or
// issue. ProgressPercent is always in [0,100]; Status is lower-cased; DueDate
// is nil when the source date was absent or unparseable; DependentItemIDs
// never contains the item's own ID.
type WorkItem struct {
	ID               string     `json:"id"`
	Kind             Kind       `json:"kind"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	ProjectName      string     `json:"projectName,omitempty"`
	ProgressPercent  int        `json:"progressPercent"`
	Status           string     `json:"status,omitempty"`
	DueDate          *time.Time `json:"dueDate,omitempty"`
	IsCritical       bool       `json:"isCritical"`
	CreatorName      string     `json:"creatorName,omitempty"`
	AssignedUserIDs  []string   `json:"assignedUserIds,omitempty"`
	DependentItemIDs []string   `json:"dependentItemIds,omitempty"`
}
