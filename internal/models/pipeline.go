package models

import "time"

// PipelineState represents the state of a pipeline record
type PipelineState string

const (
	PipelineStateCreated      PipelineState = "created"
	PipelineStateErrored      PipelineState = "errored"
	PipelineStateSetupPending PipelineState = "setup-pending"
	PipelineStateSetup        PipelineState = "setup"
	PipelineStatePending      PipelineState = "pending"
)

// Settled reports whether the pipeline record itself will not change
// further. Note this is about the pipeline record, not the status of its
// workflows, which have their own lifecycle.
func (s PipelineState) Settled() bool {
	return s == PipelineStateCreated || s == PipelineStateErrored
}

// Pipeline represents a CircleCI pipeline
type Pipeline struct {
	ID          string          `json:"id"`
	Number      int             `json:"number"`
	ProjectSlug string          `json:"project_slug"`
	State       PipelineState   `json:"state"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   *time.Time      `json:"updated_at,omitempty"`
	Errors      []PipelineError `json:"errors,omitempty"`
	Trigger     Trigger         `json:"trigger"`
	VCS         *VCS            `json:"vcs,omitempty"`
}

// Branch returns the VCS branch the pipeline was triggered for, if known.
func (p Pipeline) Branch() string {
	if p.VCS == nil {
		return ""
	}
	return p.VCS.Branch
}

// Revision returns the VCS revision the pipeline was triggered for, if known.
func (p Pipeline) Revision() string {
	if p.VCS == nil {
		return ""
	}
	return p.VCS.Revision
}

// PipelineError represents a pipeline-level error reported by CircleCI
type PipelineError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Trigger represents what started a pipeline
type Trigger struct {
	Type       string    `json:"type"`
	ReceivedAt time.Time `json:"received_at"`
	Actor      Actor     `json:"actor"`
}

// Actor represents the user that triggered a pipeline
type Actor struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// VCS represents the version control information attached to a pipeline
type VCS struct {
	ProviderName        string  `json:"provider_name"`
	OriginRepositoryURL string  `json:"origin_repository_url"`
	TargetRepositoryURL string  `json:"target_repository_url"`
	Revision            string  `json:"revision"`
	Branch              string  `json:"branch,omitempty"`
	Tag                 string  `json:"tag,omitempty"`
	Commit              *Commit `json:"commit,omitempty"`
}

// Commit represents the head commit of a pipeline's revision
type Commit struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
