package events

import "time"

// Kind identifies the type of a progress event.
type Kind string

const (
	KindWorkflowStarted   Kind = "workflow_started"
	KindWorkflowCompleted Kind = "workflow_completed"
	KindWorkflowFailed    Kind = "workflow_failed"
	KindWorkflowCancelled Kind = "workflow_cancelled"
	KindPhaseStarted      Kind = "phase_started"
	KindPhaseCompleted    Kind = "phase_completed"
	KindPhaseFailed       Kind = "phase_failed"
	KindProgressUpdate    Kind = "progress_update"
	KindCostUpdate        Kind = "cost_update"
	KindLogMessage        Kind = "log_message"
)

// Event is an immutable progress record emitted by the workflow engine.
// It serializes as a flat JSON object with an RFC 3339 timestamp.
type Event struct {
	Kind       Kind           `json:"event_kind"`
	WorkflowID string         `json:"workflow_id"`
	Timestamp  time.Time      `json:"timestamp"`
	Data       map[string]any `json:"data,omitempty"`
	PhaseName  string         `json:"phase_name,omitempty"`
	Progress   *float64       `json:"progress_percentage,omitempty"`
	CostDelta  *float64       `json:"cost_delta,omitempty"`
	Message    string         `json:"message,omitempty"`
}

// Percent builds a progress pointer clamped to [0, 100].
func Percent(value float64) *float64 {
	if value < 0 {
		value = 0
	}
	if value > 100 {
		value = 100
	}
	return &value
}

// Cost builds a cost-delta pointer.
func Cost(value float64) *float64 {
	return &value
}
