package models

import "time"

// JobStatus represents the status of a job
type JobStatus string

const (
	JobStatusSuccess            JobStatus = "success"
	JobStatusRunning            JobStatus = "running"
	JobStatusNotRun             JobStatus = "not_run"
	JobStatusFailed             JobStatus = "failed"
	JobStatusRetried            JobStatus = "retried"
	JobStatusQueued             JobStatus = "queued"
	JobStatusNotRunning         JobStatus = "not_running"
	JobStatusInfrastructureFail JobStatus = "infrastructure_fail"
	JobStatusTimedout           JobStatus = "timedout"
	JobStatusOnHold             JobStatus = "on_hold"
	JobStatusTerminatedUnknown  JobStatus = "terminated-unknown"
	JobStatusBlocked            JobStatus = "blocked"
	JobStatusCanceled           JobStatus = "canceled"
	JobStatusUnauthorized       JobStatus = "unauthorized"
)

// Terminal reports whether the job has reached a state after which its data
// will not change further.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusSuccess,
		JobStatusFailed,
		JobStatusCanceled,
		JobStatusUnauthorized,
		JobStatusNotRun:
		return true
	}
	return false
}

// JobType represents the type of a job
type JobType string

const (
	JobTypeBuild    JobType = "build"
	JobTypeApproval JobType = "approval"
)

// Job represents a job within a workflow
type Job struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	JobNumber    int        `json:"job_number,omitempty"`
	Status       JobStatus  `json:"status"`
	Type         JobType    `json:"type"`
	ProjectSlug  string     `json:"project_slug"`
	Dependencies []string   `json:"dependencies,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	StoppedAt    *time.Time `json:"stopped_at,omitempty"`
}

// Duration returns how long the job ran for, or zero if timing is unknown.
func (j Job) Duration() time.Duration {
	if j.StartedAt == nil || j.StoppedAt == nil {
		return 0
	}
	return j.StoppedAt.Sub(*j.StartedAt)
}

// JobDetails represents the detailed view of a single job
type JobDetails struct {
	Number      int        `json:"number"`
	Name        string     `json:"name"`
	Status      JobStatus  `json:"status"`
	Parallelism int        `json:"parallelism"`
	ProjectSlug string     `json:"project_slug"`
	WebURL      string     `json:"web_url,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	StoppedAt   *time.Time `json:"stopped_at,omitempty"`
	QueuedAt    *time.Time `json:"queued_at,omitempty"`
	Duration    int        `json:"duration,omitempty"`
}

// V1Lifecycle represents the lifecycle of a job in the v1.1 API
type V1Lifecycle string

const (
	V1LifecycleQueued    V1Lifecycle = "queued"
	V1LifecycleScheduled V1Lifecycle = "scheduled"
	V1LifecycleRunning   V1Lifecycle = "running"
	V1LifecycleFinished  V1Lifecycle = "finished"
	V1LifecycleNotRun    V1Lifecycle = "not_run"
)

// Finished reports whether the job's step data will not change further.
func (l V1Lifecycle) Finished() bool {
	return l == V1LifecycleFinished
}

// V1JobDetails represents the v1.1 job view, the only API surface that
// exposes step-level data.
type V1JobDetails struct {
	BuildNum  int         `json:"build_num"`
	Lifecycle V1Lifecycle `json:"lifecycle"`
	Parallel  int         `json:"parallel"`
	Steps     []Step      `json:"steps"`
}

// Step represents one step of a job, with one action per parallel run.
// Step order is execution order and is significant.
type Step struct {
	Name    string   `json:"name"`
	Actions []Action `json:"actions"`
}

// Action represents one parallel run of a step
type Action struct {
	Name      string  `json:"name"`
	Index     int     `json:"index"`
	Status    string  `json:"status"`
	OutputURL *string `json:"output_url,omitempty"`
	RunTime   float64 `json:"run_time_millis,omitempty"`
}

// OutputMessage represents one chunk of step output
type OutputMessage struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Time    string `json:"time,omitempty"`
}
