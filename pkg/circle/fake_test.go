package circle

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/Peter554/circle-cli/internal/cache"
	"github.com/Peter554/circle-cli/internal/config"
	"github.com/Peter554/circle-cli/internal/models"
)

// fakeAPI implements API with overridable endpoint functions and per-method
// call counting.
type fakeAPI struct {
	mu    sync.Mutex
	calls map[string]int

	getPipelines         func(slug, branch string, limit int) ([]models.Pipeline, error)
	getPipelineByNumber  func(slug string, number int) (models.Pipeline, error)
	getPipelineByID      func(id string) (models.Pipeline, error)
	getWorkflow          func(id string) (models.Workflow, error)
	getPipelineWorkflows func(pipelineID string) ([]models.Workflow, error)
	getWorkflowJobs      func(workflowID string) ([]models.Job, error)
	getJobDetails        func(slug string, number int) (models.JobDetails, error)
	getV1JobDetails      func(slug string, number int) (models.V1JobDetails, error)
	getJobTests          func(slug string, number int) ([]models.TestMetadata, error)
	getJobOutput         func(outputURL string) ([]models.OutputMessage, error)
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{calls: make(map[string]int)}
}

func (f *fakeAPI) record(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[method]++
}

func (f *fakeAPI) callCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeAPI) GetPipelines(_ context.Context, slug, branch string, limit int) ([]models.Pipeline, error) {
	f.record("GetPipelines")
	if f.getPipelines == nil {
		return nil, fmt.Errorf("GetPipelines not stubbed")
	}
	return f.getPipelines(slug, branch, limit)
}

func (f *fakeAPI) GetPipelineByNumber(_ context.Context, slug string, number int) (models.Pipeline, error) {
	f.record("GetPipelineByNumber")
	if f.getPipelineByNumber == nil {
		return models.Pipeline{}, fmt.Errorf("GetPipelineByNumber not stubbed")
	}
	return f.getPipelineByNumber(slug, number)
}

func (f *fakeAPI) GetPipelineByID(_ context.Context, id string) (models.Pipeline, error) {
	f.record("GetPipelineByID")
	if f.getPipelineByID == nil {
		return models.Pipeline{}, fmt.Errorf("GetPipelineByID not stubbed")
	}
	return f.getPipelineByID(id)
}

func (f *fakeAPI) GetWorkflow(_ context.Context, id string) (models.Workflow, error) {
	f.record("GetWorkflow")
	if f.getWorkflow == nil {
		return models.Workflow{}, fmt.Errorf("GetWorkflow not stubbed")
	}
	return f.getWorkflow(id)
}

func (f *fakeAPI) GetPipelineWorkflows(_ context.Context, pipelineID string) ([]models.Workflow, error) {
	f.record("GetPipelineWorkflows")
	if f.getPipelineWorkflows == nil {
		return nil, fmt.Errorf("GetPipelineWorkflows not stubbed")
	}
	return f.getPipelineWorkflows(pipelineID)
}

func (f *fakeAPI) GetWorkflowJobs(_ context.Context, workflowID string) ([]models.Job, error) {
	f.record("GetWorkflowJobs")
	if f.getWorkflowJobs == nil {
		return nil, fmt.Errorf("GetWorkflowJobs not stubbed")
	}
	return f.getWorkflowJobs(workflowID)
}

func (f *fakeAPI) GetJobDetails(_ context.Context, slug string, number int) (models.JobDetails, error) {
	f.record("GetJobDetails")
	if f.getJobDetails == nil {
		return models.JobDetails{}, fmt.Errorf("GetJobDetails not stubbed")
	}
	return f.getJobDetails(slug, number)
}

func (f *fakeAPI) GetV1JobDetails(_ context.Context, slug string, number int) (models.V1JobDetails, error) {
	f.record("GetV1JobDetails")
	if f.getV1JobDetails == nil {
		return models.V1JobDetails{}, fmt.Errorf("GetV1JobDetails not stubbed")
	}
	return f.getV1JobDetails(slug, number)
}

func (f *fakeAPI) GetJobTests(_ context.Context, slug string, number int) ([]models.TestMetadata, error) {
	f.record("GetJobTests")
	if f.getJobTests == nil {
		return nil, fmt.Errorf("GetJobTests not stubbed")
	}
	return f.getJobTests(slug, number)
}

func (f *fakeAPI) GetJobOutput(_ context.Context, outputURL string) ([]models.OutputMessage, error) {
	f.record("GetJobOutput")
	if f.getJobOutput == nil {
		return nil, fmt.Errorf("GetJobOutput not stubbed")
	}
	return f.getJobOutput(outputURL)
}

func newTestManager(t *testing.T, api API) *Manager {
	t.Helper()

	cfg := &config.Config{
		Token: "test-token",
		VCS:   "github",
		Org:   "acme",
		Repo:  "widgets",
		Cache: config.CacheConfig{RunningTTL: 10, TerminalTTL: 0},
		API:   config.APIConfig{MaxConcurrent: 5},
	}
	store := cache.NewFileCache(t.TempDir(), cache.NewProjectContext(cfg.VCS, cfg.Org, cfg.Repo))

	m := NewManager(cfg, api, store)
	m.currentBranch = func() (string, error) { return "main", nil }
	return m
}
