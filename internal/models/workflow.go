package models

import "time"

// WorkflowStatus represents the status of a workflow
type WorkflowStatus string

const (
	WorkflowStatusSuccess      WorkflowStatus = "success"
	WorkflowStatusRunning      WorkflowStatus = "running"
	WorkflowStatusNotRun       WorkflowStatus = "not_run"
	WorkflowStatusFailed       WorkflowStatus = "failed"
	WorkflowStatusError        WorkflowStatus = "error"
	WorkflowStatusFailing      WorkflowStatus = "failing"
	WorkflowStatusOnHold       WorkflowStatus = "on_hold"
	WorkflowStatusCanceled     WorkflowStatus = "canceled"
	WorkflowStatusUnauthorized WorkflowStatus = "unauthorized"
)

// Terminal reports whether the workflow has reached a state after which its
// data will not change further.
func (s WorkflowStatus) Terminal() bool {
	switch s {
	case WorkflowStatusSuccess,
		WorkflowStatusFailed,
		WorkflowStatusError,
		WorkflowStatusCanceled,
		WorkflowStatusUnauthorized:
		return true
	}
	return false
}

// Workflow represents a CircleCI workflow
type Workflow struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Status         WorkflowStatus `json:"status"`
	CreatedAt      time.Time      `json:"created_at"`
	StoppedAt      *time.Time     `json:"stopped_at,omitempty"`
	PipelineID     string         `json:"pipeline_id"`
	PipelineNumber int            `json:"pipeline_number"`
	ProjectSlug    string         `json:"project_slug"`
	StartedBy      string         `json:"started_by"`
	Tag            string         `json:"tag,omitempty"`
}

// Duration returns how long the workflow ran for, or zero if it has not
// stopped yet.
func (w Workflow) Duration() time.Duration {
	if w.StoppedAt == nil {
		return 0
	}
	return w.StoppedAt.Sub(w.CreatedAt)
}
