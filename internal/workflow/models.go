package workflow

import (
	"time"

	"reelsmith/internal/phase"
	"reelsmith/internal/registry"
)

// Status is the lifecycle state of a workflow or a single phase.
type Status string

const (
	StatusPending   Status = "pending"
	StatusStarting  Status = "starting"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status is a final one.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Config describes one workflow to execute.
type Config struct {
	Topic      string
	Type       registry.WorkflowType
	Platforms  []string
	Style      string
	Tone       string
	MaxCostUSD float64
	// Timeout bounds each phase body. Zero means no per-phase deadline.
	Timeout time.Duration
}

// Phase is the runtime state of one node in the graph.
type Phase struct {
	Name        string
	Status      Status
	Barrier     bool
	DependsOn   []string
	StartedAt   *time.Time
	CompletedAt *time.Time
	CostUSD     float64
	Result      any
	Error       string
}

// Terminated reports whether the phase finished, successfully or not.
func (p *Phase) Terminated() bool {
	return p.Status == StatusCompleted || p.Status == StatusFailed
}

// Result accumulates the workflow-level outputs as phases terminate.
type Result struct {
	Artifacts phase.Artifacts `json:"artifacts"`
	// Fields holds scalar outputs keyed by phase name.
	Fields map[string]any `json:"fields,omitempty"`
	// Errors collects the failure messages of every failed phase.
	Errors []string `json:"errors,omitempty"`
}

// Execution is the full runtime state of one workflow.
type Execution struct {
	ID          string
	Config      Config
	Status      Status
	Phases      []*Phase
	CostUSD     float64
	Result      Result
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// PhaseByName returns the named phase, or nil.
func (e *Execution) PhaseByName(name string) *Phase {
	for _, p := range e.Phases {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// PhasesCompleted counts terminated phases.
func (e *Execution) PhasesCompleted() int {
	n := 0
	for _, p := range e.Phases {
		if p.Terminated() {
			n++
		}
	}
	return n
}

// PhaseSnapshot is the wire form of a phase.
type PhaseSnapshot struct {
	Name        string     `json:"name"`
	Status      Status     `json:"status"`
	Barrier     bool       `json:"barrier,omitempty"`
	DependsOn   []string   `json:"depends_on,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CostUSD     float64    `json:"cost_usd"`
	Error       string     `json:"error,omitempty"`
}

// Snapshot is a point-in-time copy of an execution, safe to serialize and
// to read without holding engine locks.
type Snapshot struct {
	ID              string                `json:"id"`
	Type            registry.WorkflowType `json:"workflow_type"`
	Topic           string                `json:"topic"`
	Status          Status                `json:"status"`
	Phases          []PhaseSnapshot       `json:"phases"`
	PhasesCompleted int                   `json:"phases_completed"`
	TotalPhases     int                   `json:"total_phases"`
	CostUSD         float64               `json:"cost_usd"`
	Result          Result                `json:"result"`
	CreatedAt       time.Time             `json:"created_at"`
	StartedAt       *time.Time            `json:"started_at,omitempty"`
	CompletedAt     *time.Time            `json:"completed_at,omitempty"`
}

func snapshotOf(e *Execution) Snapshot {
	phases := make([]PhaseSnapshot, len(e.Phases))
	for i, p := range e.Phases {
		phases[i] = PhaseSnapshot{
			Name:        p.Name,
			Status:      p.Status,
			Barrier:     p.Barrier,
			DependsOn:   append([]string(nil), p.DependsOn...),
			StartedAt:   copyTime(p.StartedAt),
			CompletedAt: copyTime(p.CompletedAt),
			CostUSD:     p.CostUSD,
			Error:       p.Error,
		}
	}
	result := Result{
		Artifacts: e.Result.Artifacts,
		Errors:    append([]string(nil), e.Result.Errors...),
	}
	if len(e.Result.Fields) > 0 {
		result.Fields = make(map[string]any, len(e.Result.Fields))
		for k, v := range e.Result.Fields {
			result.Fields[k] = v
		}
	}
	return Snapshot{
		ID:              e.ID,
		Type:            e.Config.Type,
		Topic:           e.Config.Topic,
		Status:          e.Status,
		Phases:          phases,
		PhasesCompleted: e.PhasesCompleted(),
		TotalPhases:     len(e.Phases),
		CostUSD:         e.CostUSD,
		Result:          result,
		CreatedAt:       e.CreatedAt,
		StartedAt:       copyTime(e.StartedAt),
		CompletedAt:     copyTime(e.CompletedAt),
	}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// HistorySink records terminated executions. The history store implements
// it; the engine only needs this much.
type HistorySink interface {
	Record(snapshot Snapshot) error
}
