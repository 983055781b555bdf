package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serrors "github.com/buildcrew/sitetrack/internal/errors"
)

func setupTestServer(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	client := NewClient(server.URL, &TokenAuth{Token: "test-token"}, 5*time.Second, zerolog.Nop())
	client.SetHTTPClient(server.Client())
	return client, server
}

func TestClient_Projects(t *testing.T) {
	client, server := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/projects", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": "p1", "projectName": "Riverside Tower"},
			{"id": "p2", "projectName": "Harbor Bridge"},
		})
	})
	defer server.Close()

	projects, err := client.Projects(context.Background())
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, "Riverside Tower", projects[0]["projectName"])
}

func TestClient_ProjectDetail(t *testing.T) {
	client, server := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/projects/p1", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"issues": []map[string]any{{"id": "i1", "status": "open"}},
			"worklists": []map[string]any{
				{"tasks": []map[string]any{{"id": "t1", "percent": 50}}},
			},
		})
	})
	defer server.Close()

	detail, err := client.ProjectDetail(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, detail.Issues, 1)
	require.Len(t, detail.Worklists, 1)
	assert.Len(t, detail.Worklists[0].Tasks, 1)
}

func TestClient_DependencyChart_NotFound(t *testing.T) {
	client, server := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no chart", http.StatusNotFound)
	})
	defer server.Close()

	_, err := client.DependencyChart(context.Background(), "p1")
	require.Error(t, err)
	assert.True(t, serrors.IsNotFound(err), "404 must surface as a tagged not-found error")
}

func TestClient_DependencyChart(t *testing.T) {
	client, server := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/projects/p1/dependency-chart", r.URL.Path)
		json.NewEncoder(w).Encode(DependencyChart{
			Tasks:        []map[string]any{{"id": "t1"}},
			Dependencies: []ChartEdge{{From: "t1", To: "t2"}},
		})
	})
	defer server.Close()

	chart, err := client.DependencyChart(context.Background(), "p1")
	require.NoError(t, err)
	assert.Len(t, chart.Tasks, 1)
	assert.Equal(t, ChartEdge{From: "t1", To: "t2"}, chart.Dependencies[0])
}

func TestClient_ServerError(t *testing.T) {
	client, server := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	defer server.Close()

	_, err := client.MyTasks(context.Background())
	require.Error(t, err)
	assert.True(t, serrors.IsRetryable(err))
	assert.False(t, serrors.IsNotFound(err))
}

func TestClient_WorkItemEndpoints(t *testing.T) {
	paths := make([]string, 0, 4)
	client, server := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		json.NewEncoder(w).Encode([]map[string]any{{"id": "x"}})
	})
	defer server.Close()

	ctx := context.Background()
	_, err := client.MyTasks(ctx)
	require.NoError(t, err)
	_, err = client.AssignedIssues(ctx)
	require.NoError(t, err)
	_, err = client.MyIssues(ctx)
	require.NoError(t, err)
	_, err = client.ProjectTasks(ctx, "p1")
	require.NoError(t, err)

	assert.Equal(t, []string{"/tasks/my-tasks", "/issues/assigned", "/issues/myissues", "/tasks/p1"}, paths)
}

func TestTokenAuth_Apply(t *testing.T) {
	auth := &TokenAuth{Token: "abc"}
	req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
	require.NoError(t, auth.Apply(req))
	assert.Equal(t, "Bearer abc", req.Header.Get("Authorization"))

	empty := &TokenAuth{}
	assert.Error(t, empty.Apply(req))
}
