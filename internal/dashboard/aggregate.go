// Package dashboard rolls work items up into per-project and per-assignee
// counts for the dashboard views.
package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/buildcrew/sitetrack/internal/api"
	serrors "github.com/buildcrew/sitetrack/internal/errors"
	"github.com/buildcrew/sitetrack/internal/metrics"
	"github.com/buildcrew/sitetrack/internal/retry"
	"github.com/buildcrew/sitetrack/internal/workitem"
)

// UnassignedKey buckets items with no resolvable assignee instead of
// dropping them.
const UnassignedKey = "unassigned"

// Statuses that count an issue as resolved for dashboard purposes. This is
// deliberately wider than the view open/closed rule.
var resolvedIssueStatuses = map[string]struct{}{
	"resolved":  {},
	"closed":    {},
	"done":      {},
	"completed": {},
}

// ProjectSummary is one project's dashboard rollup.
type ProjectSummary struct {
	ProjectID            string     `json:"projectId"`
	Name                 string     `json:"name"`
	EndDate              *time.Time `json:"endDate,omitempty"`
	TotalCount           int        `json:"totalCount"`
	UnresolvedIssueCount int        `json:"unresolvedIssueCount"`
	IncompleteTaskCount  int        `json:"incompleteTaskCount"`
}

// SubCounts splits a bucket's count by item kind.
type SubCounts struct {
	Issues int `json:"issues"`
	Tasks  int `json:"tasks"`
}

// Bucket is a per-assignee rollup. Buckets are created fresh per
// aggregation call and never mutated afterwards.
type Bucket struct {
	Key       string    `json:"key"`
	Count     int       `json:"count"`
	SubCounts SubCounts `json:"subCounts"`
}

// DetailAPI is the slice of the backend client the aggregator needs.
type DetailAPI interface {
	ProjectDetail(ctx context.Context, projectID string) (*api.ProjectDetail, error)
}

// Aggregator computes dashboard rollups. Per-project detail fetches fan out
// with bounded concurrency and fan back in before the result is returned;
// each project's fetch and bucket computation is independent.
type Aggregator struct {
	api         DetailAPI
	retryCfg    retry.Config
	concurrency int
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

// NewAggregator creates an aggregator. metrics may be nil; concurrency < 1
// falls back to 4.
func NewAggregator(detailAPI DetailAPI, retryCfg retry.Config, concurrency int, m *metrics.Metrics, logger zerolog.Logger) *Aggregator {
	if concurrency < 1 {
		concurrency = 4
	}
	return &Aggregator{
		api:         detailAPI,
		retryCfg:    retryCfg,
		concurrency: concurrency,
		metrics:     m,
		logger:      logger.With().Str("component", "dashboard").Logger(),
	}
}

// ByProject returns one summary per input project, in input order.
// Aggregation is best-effort: a project whose detail fetch fails after
// retries contributes a zeroed summary rather than aborting the whole pass.
func (a *Aggregator) ByProject(ctx context.Context, projects []workitem.RawRecord) []ProjectSummary {
	start := time.Now()
	summaries := make([]ProjectSummary, len(projects))

	var wg sync.WaitGroup
	sem := make(chan struct{}, a.concurrency)
	for i, raw := range projects {
		summaries[i] = ProjectSummary{
			ProjectID: workitem.FirstString(raw, "id", "_id"),
			Name:      workitem.FirstString(raw, "projectName", "name"),
			EndDate:   workitem.FirstDate(raw, "endDate", "date"),
		}

		wg.Add(1)
		go func(i int, projectID string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			var detail *api.ProjectDetail
			err := retry.Do(ctx, a.retryCfg, func(ctx context.Context) error {
				var fetchErr error
				detail, fetchErr = a.api.ProjectDetail(ctx, projectID)
				return fetchErr
			})
			if err != nil {
				a.logger.Warn().Err(err).Str("project_id", projectID).Msg("project detail fetch failed, zeroed summary")
				if a.metrics != nil {
					a.metrics.RecordFetchError("project_detail")
				}
				return
			}

			unresolved, incomplete := a.countDetail(detail)
			summaries[i].UnresolvedIssueCount = unresolved
			summaries[i].IncompleteTaskCount = incomplete
			summaries[i].TotalCount = unresolved + incomplete
		}(i, summaries[i].ProjectID)
	}
	wg.Wait()

	if a.metrics != nil {
		a.metrics.ObserveAggregation(time.Since(start).Seconds())
	}
	return summaries
}

// countDetail counts a project's unresolved issues and incomplete tasks.
// An issue is unresolved when its status is absent or outside the resolved
// set; a task with absent or non-numeric progress counts as incomplete.
func (a *Aggregator) countDetail(detail *api.ProjectDetail) (unresolved, incomplete int) {
	issues, warnings := workitem.NormalizeAll(detail.Issues, workitem.KindIssue)
	for _, issue := range issues {
		if _, resolved := resolvedIssueStatuses[issue.Status]; !resolved {
			unresolved++
		}
	}

	for _, worklist := range detail.Worklists {
		tasks, taskWarnings := workitem.NormalizeAll(worklist.Tasks, workitem.KindTask)
		warnings = append(warnings, taskWarnings...)
		for _, task := range tasks {
			if task.ProgressPercent < 100 {
				incomplete++
			}
		}
	}

	if len(warnings) > 0 {
		a.logger.Debug().Int("count", len(warnings)).Msg("skipped malformed records during aggregation")
	}
	if a.metrics != nil {
		for _, w := range warnings {
			var selfDep *serrors.SelfDependencyError
			if errors.As(w, &selfDep) {
				a.metrics.RecordWarning("self_dependency")
			} else {
				a.metrics.RecordWarning("malformed_record")
			}
		}
	}
	return unresolved, incomplete
}

// ByAssignee groups items by assigned user id. An item with several
// assignees counts once per assignee; an item with none lands in the
// reserved unassigned bucket.
func ByAssignee(items []workitem.WorkItem) map[string]*Bucket {
	buckets := make(map[string]*Bucket)
	add := func(key string, kind workitem.Kind) {
		bucket, ok := buckets[key]
		if !ok {
			bucket = &Bucket{Key: key}
			buckets[key] = bucket
		}
		bucket.Count++
		if kind == workitem.KindIssue {
			bucket.SubCounts.Issues++
		} else {
			bucket.SubCounts.Tasks++
		}
	}

	for _, item := range items {
		if len(item.AssignedUserIDs) == 0 {
			add(UnassignedKey, item.Kind)
			continue
		}
		for _, userID := range item.AssignedUserIDs {
			add(userID, item.Kind)
		}
	}
	return buckets
}
