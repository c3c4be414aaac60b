package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// WorkflowType selects which phase graph an execution runs.
type WorkflowType string

const (
	FullPipeline    WorkflowType = "full_pipeline"
	QuickGenerate   WorkflowType = "quick_generate"
	SearchAndScript WorkflowType = "search_and_script"
	ArticleToScript WorkflowType = "article_to_script"
)

// ErrUnknownWorkflowType reports a workflow type with no registered graph.
var ErrUnknownWorkflowType = errors.New("unknown workflow type")

// ErrCyclicGraph reports dependency edges that do not form a DAG.
var ErrCyclicGraph = errors.New("phase graph contains a cycle")

// ParseWorkflowType converts a string into a known WorkflowType.
func ParseWorkflowType(value string) (WorkflowType, bool) {
	normalized := WorkflowType(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case FullPipeline, QuickGenerate, SearchAndScript, ArticleToScript:
		return normalized, true
	}
	return "", false
}

// PhaseSpec declares one phase of a workflow graph.
type PhaseSpec struct {
	// Name is unique within a graph.
	Name string
	// DependsOn lists upstream phases that must terminate (completed or
	// failed) before this phase becomes eligible. Empty means the phase
	// can start immediately.
	DependsOn []string
	// Barrier marks an explicit fan-in point: the phase waits for every
	// declared predecessor to terminate, regardless of status.
	Barrier bool
}

// Registry is the read-only mapping from workflow type to phase graph,
// initialized once at startup.
type Registry struct {
	graphs map[WorkflowType][]PhaseSpec
}

// New validates every graph and returns a registry over them.
func New(graphs map[WorkflowType][]PhaseSpec) (*Registry, error) {
	for workflowType, specs := range graphs {
		if len(specs) == 0 {
			return nil, fmt.Errorf("workflow type %s: empty phase graph", workflowType)
		}
		if err := validateGraph(specs); err != nil {
			return nil, fmt.Errorf("workflow type %s: %w", workflowType, err)
		}
	}
	copied := make(map[WorkflowType][]PhaseSpec, len(graphs))
	for workflowType, specs := range graphs {
		copied[workflowType] = append([]PhaseSpec(nil), specs...)
	}
	return &Registry{graphs: copied}, nil
}

// PhasesFor returns the phase graph for a workflow type in a stable
// topological order.
func (r *Registry) PhasesFor(workflowType WorkflowType) ([]PhaseSpec, error) {
	specs, ok := r.graphs[workflowType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownWorkflowType, workflowType)
	}
	return append([]PhaseSpec(nil), specs...), nil
}

// Types lists the registered workflow types in sorted order.
func (r *Registry) Types() []WorkflowType {
	types := make([]WorkflowType, 0, len(r.graphs))
	for workflowType := range r.graphs {
		types = append(types, workflowType)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// validateGraph checks name uniqueness, edge targets, and acyclicity via
// Kahn's algorithm.
func validateGraph(specs []PhaseSpec) error {
	indegree := make(map[string]int, len(specs))
	dependents := make(map[string][]string, len(specs))
	for _, spec := range specs {
		name := strings.TrimSpace(spec.Name)
		if name == "" {
			return errors.New("phase name must not be empty")
		}
		if _, dup := indegree[name]; dup {
			return fmt.Errorf("duplicate phase name %q", name)
		}
		indegree[name] = 0
	}
	for _, spec := range specs {
		for _, dep := range spec.DependsOn {
			if _, ok := indegree[dep]; !ok {
				return fmt.Errorf("phase %q depends on unknown phase %q", spec.Name, dep)
			}
			if dep == spec.Name {
				return fmt.Errorf("phase %q depends on itself: %w", spec.Name, ErrCyclicGraph)
			}
			indegree[spec.Name]++
			dependents[dep] = append(dependents[dep], spec.Name)
		}
	}

	queue := make([]string, 0, len(specs))
	for _, spec := range specs {
		if indegree[spec.Name] == 0 {
			queue = append(queue, spec.Name)
		}
	}
	visited := 0
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		visited++
		for _, next := range dependents[name] {
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}
	if visited != len(specs) {
		return ErrCyclicGraph
	}
	return nil
}
