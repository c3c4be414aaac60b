package api

import "reelsmith/internal/workflow"

// TriggerRequest asks the daemon to start a workflow.
type TriggerRequest struct {
	Topic        string   `json:"topic"`
	WorkflowType string   `json:"workflow_type"`
	Platforms    []string `json:"platforms,omitempty"`
	Style        string   `json:"style,omitempty"`
	Tone         string   `json:"tone,omitempty"`
}

// TriggerResponse returns the ID of the new execution.
type TriggerResponse struct {
	ID string `json:"id"`
}

// WorkflowListResponse partitions executions for display.
type WorkflowListResponse struct {
	Active []workflow.Snapshot `json:"active"`
	Recent []workflow.Snapshot `json:"recent"`
}

// CancelResponse reports the outcome of a cancellation request.
type CancelResponse struct {
	Cancelled bool `json:"cancelled"`
}

// DaemonStatus describes daemon runtime state.
type DaemonStatus struct {
	Running         bool     `json:"running"`
	PID             int      `json:"pid"`
	LockFilePath    string   `json:"lock_file_path"`
	HistoryDBPath   string   `json:"history_db_path"`
	ActiveWorkflows int      `json:"active_workflows"`
	Crashes         int      `json:"crashes"`
	WorkflowTypes   []string `json:"workflow_types"`
}

// ErrorResponse carries an API error message.
type ErrorResponse struct {
	Error string `json:"error"`
}
