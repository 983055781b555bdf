package server

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/buildcrew/sitetrack/internal/dashboard"
	"github.com/buildcrew/sitetrack/internal/depgraph"
	"github.com/buildcrew/sitetrack/internal/health"
	"github.com/buildcrew/sitetrack/internal/workitem"
)

// BackendAPI is the slice of the backend client the view handlers need.
type BackendAPI interface {
	Projects(ctx context.Context) ([]workitem.RawRecord, error)
	MyTasks(ctx context.Context) ([]workitem.RawRecord, error)
	AssignedIssues(ctx context.Context) ([]workitem.RawRecord, error)
	MyIssues(ctx context.Context) ([]workitem.RawRecord, error)
}

// Handlers implements the HTTP facade endpoints.
type Handlers struct {
	api        BackendAPI
	graphs     *depgraph.Builder
	aggregator *dashboard.Aggregator
	checker    *health.Checker
	logger     zerolog.Logger
}

// NewHandlers creates the endpoint handlers. checker may be nil, in which
// case readiness always succeeds.
func NewHandlers(api BackendAPI, graphs *depgraph.Builder, aggregator *dashboard.Aggregator, checker *health.Checker, logger zerolog.Logger) *Handlers {
	return &Handlers{
		api:        api,
		graphs:     graphs,
		aggregator: aggregator,
		checker:    checker,
		logger:     logger.With().Str("component", "handlers").Logger(),
	}
}

// ViewResponse is a filtered, urgency-sorted list view with tab badge counts.
type ViewResponse struct {
	Items    []workitem.WorkItem `json:"items"`
	Counts   workitem.TabCounts  `json:"counts"`
	Warnings []string            `json:"warnings,omitempty"`
}

// Liveness is the health probe.
func (h *Handlers) Liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Readiness reports whether the tracking backend is reachable.
func (h *Handlers) Readiness(c *fiber.Ctx) error {
	if h.checker != nil && !h.checker.IsReady(c.Context()) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "down"})
	}
	return c.JSON(fiber.Map{"status": "ready"})
}

// TasksView returns the caller's open tasks, filtered by the optional q
// query and sorted by urgency.
func (h *Handlers) TasksView(c *fiber.Ctx) error {
	raws, err := h.api.MyTasks(c.Context())
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return c.JSON(buildView(raws, workitem.KindTask, workitem.TabTasks, c.Query("q")))
}

// IssuesView returns the caller's open issues (assigned plus own), filtered
// by the optional q query and sorted by urgency with critical issues first.
func (h *Handlers) IssuesView(c *fiber.Ctx) error {
	assigned, err := h.api.AssignedIssues(c.Context())
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	mine, err := h.api.MyIssues(c.Context())
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	// Same-id records overwrite on merge rather than duplicating.
	return c.JSON(buildView(append(assigned, mine...), workitem.KindIssue, workitem.TabIssues, c.Query("q")))
}

// ProjectGraph returns the dependency graph for a project. When a rebuild
// fails and a previously built graph is cached, the stale graph is served
// instead of a blank failure.
func (h *Handlers) ProjectGraph(c *fiber.Ctx) error {
	projectID := c.Params("id")
	graph, err := h.graphs.Build(c.Context(), projectID)
	if err != nil {
		if stale, ok := h.graphs.Cached(projectID); ok {
			h.logger.Warn().Err(err).Str("project_id", projectID).Msg("graph rebuild failed, serving cached graph")
			c.Set("X-Sitetrack-Stale", "true")
			return c.JSON(stale)
		}
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return c.JSON(graph)
}

// ProjectDashboard returns per-project rollups for every project the caller
// can see. Projects whose detail fetch fails contribute zeroed counts.
func (h *Handlers) ProjectDashboard(c *fiber.Ctx) error {
	projects, err := h.api.Projects(c.Context())
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return c.JSON(h.aggregator.ByProject(c.Context(), projects))
}

// AssigneeDashboard returns per-assignee open-item buckets across the
// caller's tasks and issues.
func (h *Handlers) AssigneeDashboard(c *fiber.Ctx) error {
	tasks, err := h.api.MyTasks(c.Context())
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	issues, err := h.api.AssignedIssues(c.Context())
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}

	taskItems, _ := workitem.NormalizeAll(tasks, workitem.KindTask)
	issueItems, _ := workitem.NormalizeAll(issues, workitem.KindIssue)
	open := make([]workitem.WorkItem, 0, len(taskItems)+len(issueItems))
	for _, item := range append(taskItems, issueItems...) {
		if workitem.IsOpen(item) {
			open = append(open, item)
		}
	}
	return c.JSON(dashboard.ByAssignee(open))
}

func buildView(raws []workitem.RawRecord, hint workitem.Kind, tab workitem.ViewTab, query string) ViewResponse {
	items, warnings := workitem.NormalizeAll(raws, hint)

	visible := make([]workitem.WorkItem, 0, len(items))
	for _, item := range items {
		if workitem.DisplayFilter(item, tab) && workitem.MatchesQuery(item, query) {
			visible = append(visible, item)
		}
	}

	resp := ViewResponse{
		Items:  workitem.SortByUrgency(visible, tab),
		Counts: workitem.CountUnresolved(items),
	}
	for _, w := range warnings {
		resp.Warnings = append(resp.Warnings, w.Error())
	}
	return resp
}
