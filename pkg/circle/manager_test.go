package circle

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Peter554/circle-cli/internal/cache"
	"github.com/Peter554/circle-cli/internal/errors"
	"github.com/Peter554/circle-cli/internal/filter"
	"github.com/Peter554/circle-cli/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func TestManager_ResolvePipeline_ByNumberIsCached(t *testing.T) {
	api := newFakeAPI()
	api.getPipelineByNumber = func(slug string, number int) (models.Pipeline, error) {
		return models.Pipeline{ID: "pip-1", Number: number, State: models.PipelineStateCreated}, nil
	}
	m := newTestManager(t, api)

	for i := 0; i < 3; i++ {
		pipeline, err := m.ResolvePipeline(context.Background(), PipelineRef{Kind: RefByNumber, Number: 123})
		require.NoError(t, err)
		assert.Equal(t, "pip-1", pipeline.ID)
	}
	assert.Equal(t, 1, api.callCount("GetPipelineByNumber"), "settled pipeline must be served from cache")
}

func TestManager_ResolvePipeline_LatestUsesCurrentBranch(t *testing.T) {
	api := newFakeAPI()
	var requestedBranch string
	api.getPipelines = func(slug, branch string, limit int) ([]models.Pipeline, error) {
		requestedBranch = branch
		return []models.Pipeline{{ID: "pip-1", Number: 1}}, nil
	}
	m := newTestManager(t, api)
	m.currentBranch = func() (string, error) { return "feature/x", nil }

	pipeline, err := m.ResolvePipeline(context.Background(), PipelineRef{Kind: RefLatest})
	require.NoError(t, err)
	assert.Equal(t, "pip-1", pipeline.ID)
	assert.Equal(t, "feature/x", requestedBranch)
}

func TestManager_ResolvePipeline_AnyBranchOmitsBranchParam(t *testing.T) {
	api := newFakeAPI()
	var requestedBranch string
	api.getPipelines = func(slug, branch string, limit int) ([]models.Pipeline, error) {
		requestedBranch = branch
		return []models.Pipeline{{ID: "pip-9", Number: 9}}, nil
	}
	m := newTestManager(t, api)

	_, err := m.ResolvePipeline(context.Background(), PipelineRef{Kind: RefAnyBranch})
	require.NoError(t, err)
	assert.Empty(t, requestedBranch)
}

func TestManager_ResolvePipeline_NoPipelinesIsNotFound(t *testing.T) {
	api := newFakeAPI()
	api.getPipelines = func(slug, branch string, limit int) ([]models.Pipeline, error) {
		return nil, nil
	}
	m := newTestManager(t, api)

	_, err := m.ResolvePipeline(context.Background(), PipelineRef{Kind: RefBranch, Branch: "main"})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func TestManager_Workflows_ResolvesLatestOnce(t *testing.T) {
	// With caching off, a "latest" ref could resolve to a different
	// pipeline on every call. The returned pipeline must be the one the
	// workflows were fetched for.
	api := newFakeAPI()
	resolutions := 0
	api.getPipelines = func(slug, branch string, limit int) ([]models.Pipeline, error) {
		resolutions++
		id := fmt.Sprintf("pip-%d", resolutions)
		return []models.Pipeline{{ID: id, Number: resolutions}}, nil
	}
	api.getPipelineWorkflows = func(pipelineID string) ([]models.Workflow, error) {
		return []models.Workflow{{ID: "wf-1", PipelineID: pipelineID, Status: models.WorkflowStatusRunning}}, nil
	}
	m := newTestManager(t, api)
	m.store = cache.Disabled{}

	result, err := m.Workflows(context.Background(), PipelineRef{Kind: RefLatest})
	require.NoError(t, err)
	assert.Equal(t, 1, api.callCount("GetPipelines"))
	require.Len(t, result.Workflows, 1)
	assert.Equal(t, result.Pipeline.ID, result.Workflows[0].PipelineID)
}

func TestManager_Jobs_StatusFilterScenario(t *testing.T) {
	// Pipeline 123 has workflow W with jobs {J1: failed, J2: success,
	// J3: failed}; listing with status=failed returns exactly J1, J3 in
	// provider order.
	api := newFakeAPI()
	api.getPipelineByNumber = func(slug string, number int) (models.Pipeline, error) {
		return models.Pipeline{ID: "pip-123", Number: 123, State: models.PipelineStateCreated}, nil
	}
	api.getPipelineWorkflows = func(pipelineID string) ([]models.Workflow, error) {
		return []models.Workflow{
			{ID: "wf-1", Name: "build", Status: models.WorkflowStatusFailed, PipelineID: "pip-123"},
		}, nil
	}
	api.getWorkflowJobs = func(workflowID string) ([]models.Job, error) {
		return []models.Job{
			{ID: "j1", Name: "lint", JobNumber: 1, Status: models.JobStatusFailed},
			{ID: "j2", Name: "unit", JobNumber: 2, Status: models.JobStatusSuccess},
			{ID: "j3", Name: "e2e", JobNumber: 3, Status: models.JobStatusFailed},
		}, nil
	}
	m := newTestManager(t, api)

	statusFilter, err := filter.Parse([]string{"failed"}, nil)
	require.NoError(t, err)

	results, err := m.Jobs(context.Background(), PipelineRef{Kind: RefByNumber, Number: 123}, true, nil, statusFilter)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Len(t, results[0].Jobs, 2)
	assert.Equal(t, "j1", results[0].Jobs[0].ID)
	assert.Equal(t, "j3", results[0].Jobs[1].ID)
}

func TestManager_Jobs_WorkflowOwnershipValidated(t *testing.T) {
	api := newFakeAPI()
	api.getPipelineByNumber = func(slug string, number int) (models.Pipeline, error) {
		return models.Pipeline{ID: "pip-123", Number: 123, State: models.PipelineStateCreated}, nil
	}
	api.getWorkflow = func(id string) (models.Workflow, error) {
		return models.Workflow{ID: id, Status: models.WorkflowStatusSuccess, PipelineID: "pip-other"}, nil
	}
	m := newTestManager(t, api)

	_, err := m.Jobs(context.Background(), PipelineRef{Kind: RefByNumber, Number: 123}, true, []string{"wf-1"}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestManager_Jobs_ProvidedWorkflowsKeepRequestedOrder(t *testing.T) {
	api := newFakeAPI()
	api.getWorkflow = func(id string) (models.Workflow, error) {
		return models.Workflow{ID: id, Status: models.WorkflowStatusSuccess, PipelineID: "pip-1"}, nil
	}
	api.getWorkflowJobs = func(workflowID string) ([]models.Job, error) {
		return []models.Job{{ID: "job-of-" + workflowID, JobNumber: 1, Status: models.JobStatusSuccess}}, nil
	}
	m := newTestManager(t, api)

	results, err := m.Jobs(context.Background(), PipelineRef{}, false, []string{"wf-b", "wf-a", "wf-c"}, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "wf-b", results[0].Workflow.ID)
	assert.Equal(t, "wf-a", results[1].Workflow.ID)
	assert.Equal(t, "wf-c", results[2].Workflow.ID)
}

func TestManager_WorkflowListTTLPolicy(t *testing.T) {
	m := newTestManager(t, newFakeAPI())

	longAgo := timePtr(time.Now().Add(-time.Hour))
	justNow := timePtr(time.Now())

	tests := []struct {
		name      string
		workflows []models.Workflow
		wantTTL   int
	}{
		{
			name:      "empty list stays short-lived",
			workflows: nil,
			wantTTL:   m.runningTTL(),
		},
		{
			name: "running workflow stays short-lived",
			workflows: []models.Workflow{
				{Status: models.WorkflowStatusRunning},
			},
			wantTTL: m.runningTTL(),
		},
		{
			name: "terminal but just stopped stays short-lived",
			workflows: []models.Workflow{
				{Status: models.WorkflowStatusSuccess, StoppedAt: justNow},
			},
			wantTTL: m.runningTTL(),
		},
		{
			name: "all terminal and settled is cached forever",
			workflows: []models.Workflow{
				{Status: models.WorkflowStatusSuccess, StoppedAt: longAgo},
				{Status: models.WorkflowStatusFailed, StoppedAt: longAgo},
			},
			wantTTL: m.terminalTTL(),
		},
		{
			name: "one straggler keeps the list short-lived",
			workflows: []models.Workflow{
				{Status: models.WorkflowStatusSuccess, StoppedAt: longAgo},
				{Status: models.WorkflowStatusRunning},
			},
			wantTTL: m.runningTTL(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantTTL, m.ttlForWorkflowList(tt.workflows))
		})
	}
}

func TestManager_RunningEntryRefetchedTerminalEntryServed(t *testing.T) {
	api := newFakeAPI()
	status := models.WorkflowStatusRunning
	api.getWorkflow = func(id string) (models.Workflow, error) {
		return models.Workflow{ID: id, Status: status}, nil
	}
	m := newTestManager(t, api)
	m.config.Cache.RunningTTL = 0 // running entries expire immediately (TTLNone: never stored)

	_, err := m.workflow(context.Background(), "wf-1")
	require.NoError(t, err)
	_, err = m.workflow(context.Background(), "wf-1")
	require.NoError(t, err)
	assert.Equal(t, 2, api.callCount("GetWorkflow"), "running workflow must be refetched")

	status = models.WorkflowStatusSuccess
	_, err = m.workflow(context.Background(), "wf-1")
	require.NoError(t, err)
	_, err = m.workflow(context.Background(), "wf-1")
	require.NoError(t, err)
	assert.Equal(t, 3, api.callCount("GetWorkflow"), "terminal workflow must be served from cache")
}

func TestManager_JobSteps_GroupsByParallelRun(t *testing.T) {
	api := newFakeAPI()
	api.getJobDetails = func(slug string, number int) (models.JobDetails, error) {
		return models.JobDetails{Number: number, Status: models.JobStatusFailed, Parallelism: 2}, nil
	}
	api.getV1JobDetails = func(slug string, number int) (models.V1JobDetails, error) {
		return models.V1JobDetails{
			BuildNum:  number,
			Lifecycle: models.V1LifecycleFinished,
			Parallel:  2,
			Steps: []models.Step{
				{Name: "checkout", Actions: []models.Action{
					{Name: "checkout", Index: 0, Status: "success"},
					{Name: "checkout", Index: 1, Status: "success"},
				}},
				{Name: "pytest", Actions: []models.Action{
					{Name: "pytest", Index: 0, Status: "success"},
					{Name: "pytest", Index: 1, Status: "failed"},
				}},
			},
		}, nil
	}
	m := newTestManager(t, api)

	steps, err := m.JobSteps(context.Background(), 7, nil)
	require.NoError(t, err)
	require.Len(t, steps.Runs, 2)
	assert.Equal(t, 0, steps.Runs[0].Index)
	assert.Len(t, steps.Runs[0].Steps, 2)

	// Step order within a run is execution order.
	assert.Equal(t, "checkout", steps.Runs[1].Steps[0].Name)
	assert.Equal(t, "pytest", steps.Runs[1].Steps[1].Name)

	// A step-status filter narrows the view.
	failedOnly, err := filter.Parse([]string{"failed"}, nil)
	require.NoError(t, err)
	steps, err = m.JobSteps(context.Background(), 7, failedOnly)
	require.NoError(t, err)
	require.Len(t, steps.Runs, 1)
	assert.Equal(t, 1, steps.Runs[0].Index)
	require.Len(t, steps.Runs[0].Steps, 1)
	assert.Equal(t, "pytest", steps.Runs[0].Steps[0].Name)
}

func TestManager_JobOutput_ParallelJobRequiresIndex(t *testing.T) {
	api := newFakeAPI()
	api.getJobDetails = func(slug string, number int) (models.JobDetails, error) {
		return models.JobDetails{Number: number, Status: models.JobStatusFailed, Parallelism: 4}, nil
	}
	m := newTestManager(t, api)

	_, err := m.JobOutput(context.Background(), 7, 0, -1)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestManager_JobOutput_FetchesPresignedURL(t *testing.T) {
	api := newFakeAPI()
	api.getV1JobDetails = func(slug string, number int) (models.V1JobDetails, error) {
		return models.V1JobDetails{
			Lifecycle: models.V1LifecycleFinished,
			Steps: []models.Step{
				{Name: "pytest", Actions: []models.Action{
					{Name: "pytest", Index: 0, Status: "failed", OutputURL: strPtr("https://example.com/out")},
				}},
			},
		}, nil
	}
	api.getJobOutput = func(outputURL string) ([]models.OutputMessage, error) {
		assert.Equal(t, "https://example.com/out", outputURL)
		return []models.OutputMessage{{Message: "boom", Type: "out"}}, nil
	}
	m := newTestManager(t, api)

	output, err := m.JobOutput(context.Background(), 7, 0, 0)
	require.NoError(t, err)
	require.Len(t, output, 1)
	assert.Equal(t, "boom", output[0].Message)

	// Finished job output is cached; the presigned URL is not re-resolved.
	_, err = m.JobOutput(context.Background(), 7, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, api.callCount("GetV1JobDetails"))
	assert.Equal(t, 1, api.callCount("GetJobOutput"))
}

func TestManager_JobTests_FilterAndSuffix(t *testing.T) {
	api := newFakeAPI()
	api.getJobDetails = func(slug string, number int) (models.JobDetails, error) {
		return models.JobDetails{Number: number, Status: models.JobStatusFailed}, nil
	}
	api.getJobTests = func(slug string, number int) ([]models.TestMetadata, error) {
		return []models.TestMetadata{
			{Classname: "test_a", Name: "test_one", File: "tests/test_a.py", Result: models.TestResultFailure},
			{Classname: "test_b", Name: "test_two", File: "tests/test_b.py", Result: models.TestResultSuccess},
			{Classname: "Suite", Name: "testThree", File: "src/suite_test.go", Result: models.TestResultFailure},
		}, nil
	}
	m := newTestManager(t, api)

	// "failed" aliases onto the test vocabulary's "failure".
	failedOnly, err := filter.Parse([]string{"failed"}, filter.TestResultAliases)
	require.NoError(t, err)

	tests, err := m.JobTests(context.Background(), 7, failedOnly, "")
	require.NoError(t, err)
	assert.Len(t, tests, 2)

	tests, err = m.JobTests(context.Background(), 7, failedOnly, ".py")
	require.NoError(t, err)
	require.Len(t, tests, 1)
	assert.Equal(t, "tests/test_a.py", tests[0].File)
}

func TestManager_LatestPipelines_PairsWorkflowsInOrder(t *testing.T) {
	api := newFakeAPI()
	api.getPipelines = func(slug, branch string, limit int) ([]models.Pipeline, error) {
		return []models.Pipeline{
			{ID: "pip-2", Number: 2},
			{ID: "pip-1", Number: 1},
		}, nil
	}
	api.getPipelineWorkflows = func(pipelineID string) ([]models.Workflow, error) {
		return []models.Workflow{
			{ID: fmt.Sprintf("wf-of-%s", pipelineID), Status: models.WorkflowStatusRunning, PipelineID: pipelineID},
		}, nil
	}
	m := newTestManager(t, api)

	results, err := m.LatestPipelines(context.Background(), "main", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "pip-2", results[0].Pipeline.ID)
	assert.Equal(t, "wf-of-pip-2", results[0].Workflows[0].ID)
	assert.Equal(t, "pip-1", results[1].Pipeline.ID)
	assert.Equal(t, "wf-of-pip-1", results[1].Workflows[0].ID)
}
