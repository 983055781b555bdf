// Package depgraph derives the task dependency graph for a project. It
// prefers the backend's pre-built dependency chart and falls back to
// reconstructing edges from each task's dependency list when the chart
// endpoint reports not-found.
package depgraph

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/buildcrew/sitetrack/internal/api"
	"github.com/buildcrew/sitetrack/internal/cache"
	serrors "github.com/buildcrew/sitetrack/internal/errors"
	"github.com/buildcrew/sitetrack/internal/metrics"
	"github.com/buildcrew/sitetrack/internal/workitem"
)

// Edge is a directed dependency: To cannot start until From is resolved.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Graph is the derived dependency graph for one project. Warnings carry
// data-integrity findings (malformed records, self-dependencies) collected
// while building; they never abort the build.
type Graph struct {
	Nodes    []workitem.WorkItem `json:"nodes"`
	Edges    []Edge              `json:"edges"`
	Warnings []string            `json:"warnings,omitempty"`

	// FromChart is true when the backend supplied the graph directly.
	FromChart bool `json:"-"`
}

// ChartAPI is the slice of the backend client the builder needs.
type ChartAPI interface {
	DependencyChart(ctx context.Context, projectID string) (*api.DependencyChart, error)
	ProjectTasks(ctx context.Context, projectID string) ([]workitem.RawRecord, error)
}

// Builder builds dependency graphs. It holds no cross-call state beyond a
// bounded cache of recently built graphs.
type Builder struct {
	api     ChartAPI
	recent  *cache.LRU[string, *Graph]
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewBuilder creates a graph builder. metrics may be nil.
func NewBuilder(chartAPI ChartAPI, m *metrics.Metrics, logger zerolog.Logger) *Builder {
	return &Builder{
		api:     chartAPI,
		recent:  cache.NewLRU[string, *Graph](32),
		metrics: m,
		logger:  logger.With().Str("component", "depgraph").Logger(),
	}
}

// Build returns the dependency graph for a project. A not-found chart
// triggers reconstruction from the raw task list; any other fetch failure
// propagates and no partial graph is returned.
func (b *Builder) Build(ctx context.Context, projectID string) (*Graph, error) {
	chart, err := b.api.DependencyChart(ctx, projectID)
	if err == nil {
		graph := b.fromChart(chart)
		b.recent.Put(projectID, graph)
		return graph, nil
	}
	if !serrors.IsNotFound(err) {
		return nil, fmt.Errorf("fetching dependency chart for %s: %w", projectID, err)
	}

	b.logger.Debug().Str("project_id", projectID).Msg("no dependency chart, reconstructing from task list")
	if b.metrics != nil {
		b.metrics.RecordGraphFallback()
	}

	tasks, err := b.api.ProjectTasks(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("fetching tasks for %s: %w", projectID, err)
	}

	graph := b.fromTasks(tasks)
	b.recent.Put(projectID, graph)
	return graph, nil
}

// Cached returns the most recently built graph for a project, if any. The UI
// layer uses it to show stale data instead of a blank screen when a rebuild
// fails.
func (b *Builder) Cached(projectID string) (*Graph, bool) {
	return b.recent.Get(projectID)
}

// fromChart adopts a server-supplied graph. Tasks are normalized into
// WorkItems; the edge list is taken verbatim apart from self-edge rejection,
// which is enforced uniformly on both build paths.
func (b *Builder) fromChart(chart *api.DependencyChart) *Graph {
	nodes, warnings := workitem.NormalizeAll(chart.Tasks, workitem.KindTask)
	graph := &Graph{Nodes: nodes, FromChart: true}
	b.collectWarnings(graph, warnings)

	seen := make(map[Edge]struct{}, len(chart.Dependencies))
	for _, dep := range chart.Dependencies {
		edge := Edge{From: dep.From, To: dep.To}
		if edge.From == edge.To {
			b.collectWarnings(graph, []error{&serrors.SelfDependencyError{TaskID: edge.To}})
			continue
		}
		if _, dup := seen[edge]; dup {
			continue
		}
		seen[edge] = struct{}{}
		graph.Edges = append(graph.Edges, edge)
	}
	return graph
}

// fromTasks reconstructs the graph from each task's dependency list: one
// edge (depID, taskID) per declared dependency, deduplicated.
func (b *Builder) fromTasks(tasks []workitem.RawRecord) *Graph {
	nodes, warnings := workitem.NormalizeAll(tasks, workitem.KindTask)
	graph := &Graph{Nodes: nodes}
	b.collectWarnings(graph, warnings)

	seen := make(map[Edge]struct{})
	for _, task := range nodes {
		for _, depID := range task.DependentItemIDs {
			edge := Edge{From: depID, To: task.ID}
			if _, dup := seen[edge]; dup {
				continue
			}
			seen[edge] = struct{}{}
			graph.Edges = append(graph.Edges, edge)
		}
	}
	return graph
}

func (b *Builder) collectWarnings(graph *Graph, warnings []error) {
	for _, w := range warnings {
		graph.Warnings = append(graph.Warnings, w.Error())
		if b.metrics == nil {
			continue
		}
		var selfDep *serrors.SelfDependencyError
		if errors.As(w, &selfDep) {
			b.metrics.RecordWarning("self_dependency")
		} else {
			b.metrics.RecordWarning("malformed_record")
		}
	}
}
