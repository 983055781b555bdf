package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildcrew/sitetrack/internal/api"
	"github.com/buildcrew/sitetrack/internal/dashboard"
	"github.com/buildcrew/sitetrack/internal/depgraph"
	serrors "github.com/buildcrew/sitetrack/internal/errors"
	"github.com/buildcrew/sitetrack/internal/requestid"
	"github.com/buildcrew/sitetrack/internal/retry"
	"github.com/buildcrew/sitetrack/internal/workitem"
)

type fakeBackend struct {
	projects []workitem.RawRecord
	myTasks  []workitem.RawRecord
	assigned []workitem.RawRecord
	mine     []workitem.RawRecord

	chart    *api.DependencyChart
	chartErr error
	tasks    []workitem.RawRecord
	tasksErr error

	details map[string]*api.ProjectDetail

	myTasksErr error
}

func (f *fakeBackend) Projects(ctx context.Context) ([]workitem.RawRecord, error) {
	return f.projects, nil
}

func (f *fakeBackend) MyTasks(ctx context.Context) ([]workitem.RawRecord, error) {
	return f.myTasks, f.myTasksErr
}

func (f *fakeBackend) AssignedIssues(ctx context.Context) ([]workitem.RawRecord, error) {
	return f.assigned, nil
}

func (f *fakeBackend) MyIssues(ctx context.Context) ([]workitem.RawRecord, error) {
	return f.mine, nil
}

func (f *fakeBackend) DependencyChart(ctx context.Context, projectID string) (*api.DependencyChart, error) {
	return f.chart, f.chartErr
}

func (f *fakeBackend) ProjectTasks(ctx context.Context, projectID string) ([]workitem.RawRecord, error) {
	return f.tasks, f.tasksErr
}

func (f *fakeBackend) ProjectDetail(ctx context.Context, projectID string) (*api.ProjectDetail, error) {
	if detail, ok := f.details[projectID]; ok {
		return detail, nil
	}
	return nil, serrors.NewAPIError("/projects/"+projectID, 404, "not found")
}

func setupTestServer(t *testing.T, backend *fakeBackend) *Server {
	t.Helper()
	logger := zerolog.Nop()
	retryCfg := retry.Config{MaxAttempts: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}

	graphs := depgraph.NewBuilder(backend, nil, logger)
	aggregator := dashboard.NewAggregator(backend, retryCfg, 2, nil, logger)
	handlers := NewHandlers(backend, graphs, aggregator, nil, logger)
	return New(Config{ListenAddr: ":0"}, handlers, nil, logger)
}

func decodeBody[T any](t *testing.T, body io.Reader) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(body).Decode(&v))
	return v
}

func TestHealthz(t *testing.T) {
	srv := setupTestServer(t, &fakeBackend{})
	resp, err := srv.App().Test(httptest.NewRequest("GET", "/healthz", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestRequestID_HonorsIncomingHeader(t *testing.T) {
	srv := setupTestServer(t, &fakeBackend{})

	req := httptest.NewRequest("GET", "/readyz", nil)
	req.Header.Set(requestid.Header, "ui-trace-42")
	resp, err := srv.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, "ui-trace-42", resp.Header.Get(requestid.Header), "a caller-supplied request ID is echoed back")

	resp, err = srv.App().Test(httptest.NewRequest("GET", "/readyz", nil))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Header.Get(requestid.Header), "one is minted when the caller sends none")
}

func TestReadyz_NoChecker(t *testing.T) {
	srv := setupTestServer(t, &fakeBackend{})
	resp, err := srv.App().Test(httptest.NewRequest("GET", "/readyz", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestTasksView_FiltersAndSorts(t *testing.T) {
	backend := &fakeBackend{
		myTasks: []workitem.RawRecord{
			{"id": "done", "taskName": "Done task", "percent": float64(100)},
			{"id": "later", "taskName": "Paint hallway", "date": time.Now().AddDate(0, 0, 9).Format("2006-01-02")},
			{"id": "overdue", "taskName": "Fix leak", "date": time.Now().AddDate(0, 0, -2).Format("2006-01-02")},
			{"id": "flagged", "taskName": "Crack in beam", "isIssue": true},
		},
	}
	srv := setupTestServer(t, backend)

	resp, err := srv.App().Test(httptest.NewRequest("GET", "/api/v1/views/tasks", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	view := decodeBody[ViewResponse](t, resp.Body)
	require.Len(t, view.Items, 2, "completed and issue-flagged tasks are hidden")
	assert.Equal(t, "overdue", view.Items[0].ID)
	assert.Equal(t, "later", view.Items[1].ID)
	assert.Equal(t, 2, view.Counts.IncompleteTasks)
}

func TestTasksView_QueryFilter(t *testing.T) {
	backend := &fakeBackend{
		myTasks: []workitem.RawRecord{
			{"id": "t1", "taskName": "Pour concrete"},
			{"id": "t2", "taskName": "Install windows"},
		},
	}
	srv := setupTestServer(t, backend)

	resp, err := srv.App().Test(httptest.NewRequest("GET", "/api/v1/views/tasks?q=concrete", nil))
	require.NoError(t, err)

	view := decodeBody[ViewResponse](t, resp.Body)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "t1", view.Items[0].ID)
}

func TestIssuesView_MergesAndPrioritizesCritical(t *testing.T) {
	backend := &fakeBackend{
		assigned: []workitem.RawRecord{
			{"id": "i1", "issueTitle": "Water damage", "date": time.Now().AddDate(0, 0, -1).Format("2006-01-02")},
			{"id": "i2", "issueTitle": "Cracked beam", "isCritical": true},
		},
		mine: []workitem.RawRecord{
			// same id as assigned: the later record wins, no duplicate
			{"id": "i1", "issueTitle": "Water damage (edited)"},
		},
	}
	srv := setupTestServer(t, backend)

	resp, err := srv.App().Test(httptest.NewRequest("GET", "/api/v1/views/issues", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	view := decodeBody[ViewResponse](t, resp.Body)
	require.Len(t, view.Items, 2)
	assert.Equal(t, "i2", view.Items[0].ID, "critical issue sorts first")
	assert.Equal(t, "Water damage (edited)", view.Items[1].Title)
}

func TestTasksView_BackendFailure(t *testing.T) {
	backend := &fakeBackend{myTasksErr: serrors.NewAPIError("/tasks/my-tasks", 500, "boom")}
	srv := setupTestServer(t, backend)

	resp, err := srv.App().Test(httptest.NewRequest("GET", "/api/v1/views/tasks", nil))
	require.NoError(t, err)
	assert.Equal(t, 502, resp.StatusCode)

	problem := decodeBody[ProblemDetail](t, resp.Body)
	assert.Equal(t, 502, problem.Status)
}

func TestProjectGraph_Fallback(t *testing.T) {
	backend := &fakeBackend{
		chartErr: serrors.NewAPIError("/projects/p1/dependency-chart", 404, "no chart"),
		tasks: []workitem.RawRecord{
			{"id": "A"},
			{"id": "B", "dependentTaskIds": []any{"A"}},
		},
	}
	srv := setupTestServer(t, backend)

	resp, err := srv.App().Test(httptest.NewRequest("GET", "/api/v1/projects/p1/graph", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	graph := decodeBody[depgraph.Graph](t, resp.Body)
	assert.Len(t, graph.Nodes, 2)
	assert.Equal(t, []depgraph.Edge{{From: "A", To: "B"}}, graph.Edges)
}

func TestProjectGraph_ServesStaleOnFailure(t *testing.T) {
	backend := &fakeBackend{
		chart: &api.DependencyChart{Tasks: []workitem.RawRecord{{"id": "t1"}}},
	}
	srv := setupTestServer(t, backend)

	// prime the cache
	resp, err := srv.App().Test(httptest.NewRequest("GET", "/api/v1/projects/p1/graph", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	// break the backend; the cached graph is served with a stale marker
	backend.chart = nil
	backend.chartErr = serrors.NewAPIError("/projects/p1/dependency-chart", 500, "boom")

	resp, err = srv.App().Test(httptest.NewRequest("GET", "/api/v1/projects/p1/graph", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "true", resp.Header.Get("X-Sitetrack-Stale"))
}

func TestProjectDashboard(t *testing.T) {
	backend := &fakeBackend{
		projects: []workitem.RawRecord{{"id": "p1", "projectName": "Depot"}},
		details: map[string]*api.ProjectDetail{
			"p1": {
				Issues: []workitem.RawRecord{{"id": "i1", "status": "open"}},
				Worklists: []api.Worklist{
					{Tasks: []workitem.RawRecord{{"id": "t1", "percent": float64(30)}}},
				},
			},
		},
	}
	srv := setupTestServer(t, backend)

	resp, err := srv.App().Test(httptest.NewRequest("GET", "/api/v1/dashboard/projects", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	summaries := decodeBody[[]dashboard.ProjectSummary](t, resp.Body)
	require.Len(t, summaries, 1)
	assert.Equal(t, "Depot", summaries[0].Name)
	assert.Equal(t, 2, summaries[0].TotalCount)
}

func TestAssigneeDashboard(t *testing.T) {
	backend := &fakeBackend{
		myTasks: []workitem.RawRecord{
			{"id": "t1", "assignedUsers": []any{"u1"}},
			{"id": "t2", "percent": float64(100), "assignedUsers": []any{"u1"}}, // closed, excluded
		},
		assigned: []workitem.RawRecord{
			{"id": "i1"},
		},
	}
	srv := setupTestServer(t, backend)

	resp, err := srv.App().Test(httptest.NewRequest("GET", "/api/v1/dashboard/assignees", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	buckets := decodeBody[map[string]*dashboard.Bucket](t, resp.Body)
	require.Len(t, buckets, 2)
	assert.Equal(t, 1, buckets["u1"].Count)
	assert.Equal(t, 1, buckets[dashboard.UnassignedKey].Count)
}
