package api

import (
	"context"
	"fmt"

	"github.com/buildcrew/sitetrack/internal/workitem"
)

// ProjectDetail is the expanded project payload. Issues and tasks stay raw;
// the worklist grouping is the only structure this layer relies on.
type ProjectDetail struct {
	Issues    []workitem.RawRecord `json:"issues"`
	Worklists []Worklist           `json:"worklists"`
}

// Worklist groups a project's tasks.
type Worklist struct {
	Tasks []workitem.RawRecord `json:"tasks"`
}

// ChartEdge is a server-supplied dependency edge: To depends on From.
type ChartEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// DependencyChart is the pre-built graph payload from the backend.
type DependencyChart struct {
	Tasks        []workitem.RawRecord `json:"tasks"`
	Dependencies []ChartEdge          `json:"dependencies"`
}

// Projects fetches the project list.
func (c *Client) Projects(ctx context.Context) ([]workitem.RawRecord, error) {
	var projects []workitem.RawRecord
	err := c.get(ctx, "/projects", &projects)
	c.record("projects", err)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return projects, nil
}

// ProjectDetail fetches a single project with its issues and worklists.
func (c *Client) ProjectDetail(ctx context.Context, projectID string) (*ProjectDetail, error) {
	var detail ProjectDetail
	err := c.get(ctx, "/projects/"+escape(projectID), &detail)
	c.record("project_detail", err)
	if err != nil {
		return nil, fmt.Errorf("getting project %s: %w", projectID, err)
	}
	return &detail, nil
}

// DependencyChart fetches the pre-built dependency graph for a project.
// A 404 surfaces as a not-found APIError; the graph builder branches on it.
func (c *Client) DependencyChart(ctx context.Context, projectID string) (*DependencyChart, error) {
	var chart DependencyChart
	err := c.get(ctx, "/projects/"+escape(projectID)+"/dependency-chart", &chart)
	c.record("dependency_chart", err)
	if err != nil {
		return nil, err
	}
	return &chart, nil
}

// ProjectTasks fetches the raw task list for a project.
func (c *Client) ProjectTasks(ctx context.Context, projectID string) ([]workitem.RawRecord, error) {
	var tasks []workitem.RawRecord
	err := c.get(ctx, "/tasks/"+escape(projectID), &tasks)
	c.record("project_tasks", err)
	if err != nil {
		return nil, fmt.Errorf("listing tasks for project %s: %w", projectID, err)
	}
	return tasks, nil
}

// MyTasks fetches the caller's assigned tasks.
func (c *Client) MyTasks(ctx context.Context) ([]workitem.RawRecord, error) {
	var tasks []workitem.RawRecord
	err := c.get(ctx, "/tasks/my-tasks", &tasks)
	c.record("my_tasks", err)
	if err != nil {
		return nil, fmt.Errorf("listing my tasks: %w", err)
	}
	return tasks, nil
}

// AssignedIssues fetches issues assigned to the caller.
func (c *Client) AssignedIssues(ctx context.Context) ([]workitem.RawRecord, error) {
	var issues []workitem.RawRecord
	err := c.get(ctx, "/issues/assigned", &issues)
	c.record("assigned_issues", err)
	if err != nil {
		return nil, fmt.Errorf("listing assigned issues: %w", err)
	}
	return issues, nil
}

// MyIssues fetches issues created by the caller.
func (c *Client) MyIssues(ctx context.Context) ([]workitem.RawRecord, error) {
	var issues []workitem.RawRecord
	err := c.get(ctx, "/issues/myissues", &issues)
	c.record("my_issues", err)
	if err != nil {
		return nil, fmt.Errorf("listing my issues: %w", err)
	}
	return issues, nil
}
