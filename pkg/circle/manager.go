// Package circle orchestrates cached, concurrency-bounded reads of the
// CircleCI object graph: pipelines, workflows, jobs, steps and test results.
package circle

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Peter554/circle-cli/internal/cache"
	"github.com/Peter554/circle-cli/internal/config"
	"github.com/Peter554/circle-cli/internal/errors"
	"github.com/Peter554/circle-cli/internal/filter"
	"github.com/Peter554/circle-cli/internal/git"
	"github.com/Peter554/circle-cli/internal/logger"
	"github.com/Peter554/circle-cli/internal/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// workflowSettleWindow guards against late status flips: a workflow list is
// only cached forever once every workflow has been stopped at least this
// long.
const workflowSettleWindow = time.Minute

// Manager coordinates the API client and the cache store. All reads go
// through the cache; the manager never issues write calls.
type Manager struct {
	config *config.Config
	api    API
	store  cache.Store

	// currentBranch is swappable for tests
	currentBranch func() (string, error)
}

// NewManager creates a new manager instance
func NewManager(cfg *config.Config, api API, store cache.Store) *Manager {
	return &Manager{
		config:        cfg,
		api:           api,
		store:         store,
		currentBranch: git.CurrentBranch,
	}
}

// PipelineWithWorkflows pairs a pipeline with its workflows
type PipelineWithWorkflows struct {
	Pipeline  models.Pipeline   `json:"pipeline"`
	Workflows []models.Workflow `json:"workflows"`
}

// WorkflowJobs pairs a workflow with its jobs
type WorkflowJobs struct {
	Workflow models.Workflow `json:"workflow"`
	Jobs     []models.Job    `json:"jobs"`
}

// TTL policies. The effective TTL of an entry is decided at write time from
// the freshly fetched object and never re-evaluated.

func (m *Manager) runningTTL() int {
	return m.config.Cache.RunningTTL
}

func (m *Manager) terminalTTL() int {
	if m.config.Cache.TerminalTTL <= 0 {
		return cache.TTLForever
	}
	return m.config.Cache.TerminalTTL
}

func (m *Manager) ttlForPipeline(p models.Pipeline) int {
	if p.State.Settled() {
		return m.terminalTTL()
	}
	return m.runningTTL()
}

func (m *Manager) ttlForWorkflow(w models.Workflow) int {
	if w.Status.Terminal() {
		return m.terminalTTL()
	}
	return m.runningTTL()
}

// ttlForWorkflowList caches a pipeline's workflow list long-term only when
// every workflow is terminal and has been stopped beyond the settle window.
// There is no pipeline-completion signal, so completion is inferred.
func (m *Manager) ttlForWorkflowList(workflows []models.Workflow) int {
	if len(workflows) == 0 {
		return m.runningTTL()
	}
	cutoff := time.Now().Add(-workflowSettleWindow)
	for _, w := range workflows {
		if !w.Status.Terminal() || w.StoppedAt == nil || w.StoppedAt.After(cutoff) {
			return m.runningTTL()
		}
	}
	return m.terminalTTL()
}

func (m *Manager) ttlForJobStatus(status models.JobStatus) int {
	if status.Terminal() {
		return m.terminalTTL()
	}
	return m.runningTTL()
}

// LatestPipelines returns the n most recent pipelines for a branch, each
// paired with its workflows. An empty branch means the current git branch;
// AnyBranch means all branches.
func (m *Manager) LatestPipelines(ctx context.Context, branch string, n int) ([]PipelineWithWorkflows, error) {
	pipelines, err := m.latestPipelines(ctx, branch, n)
	if err != nil {
		return nil, err
	}

	// Fetch workflows for all pipelines concurrently. Results are indexed
	// so output order is pipeline order, not fetch-arrival order.
	results := make([][]models.Workflow, len(pipelines))
	g, gctx := errgroup.WithContext(ctx)
	for i, pipeline := range pipelines {
		i, pipeline := i, pipeline
		g.Go(func() error {
			workflows, err := m.pipelineWorkflows(gctx, pipeline.ID)
			if err != nil {
				return err
			}
			results[i] = workflows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	paired := make([]PipelineWithWorkflows, len(pipelines))
	for i, pipeline := range pipelines {
		paired[i] = PipelineWithWorkflows{Pipeline: pipeline, Workflows: results[i]}
	}
	return paired, nil
}

// latestPipelines resolves the branch and returns the n most recent
// pipelines. Latest-pipeline lists always use the running TTL: new pipelines
// can appear at any time.
func (m *Manager) latestPipelines(ctx context.Context, branch string, n int) ([]models.Pipeline, error) {
	slug := m.config.ProjectSlug()

	if branch == AnyBranch {
		key := fmt.Sprintf("any:latest-pipelines:%d", n)
		return cache.GetOrFetch(m.store, key, func() ([]models.Pipeline, error) {
			return m.api.GetPipelines(ctx, slug, "", n)
		}, func([]models.Pipeline) int { return m.runningTTL() })
	}

	branch, err := m.resolveBranch(branch)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("branch:%s:latest-pipelines:%d", branch, n)
	return cache.GetOrFetch(m.store, key, func() ([]models.Pipeline, error) {
		return m.api.GetPipelines(ctx, slug, branch, n)
	}, func([]models.Pipeline) int { return m.runningTTL() })
}

func (m *Manager) resolveBranch(branch string) (string, error) {
	if branch != "" {
		return branch, nil
	}
	current, err := m.currentBranch()
	if err != nil {
		return "", errors.NewValidationError("current branch could not be determined; pass a branch explicitly", err)
	}
	return current, nil
}

// ResolvePipeline resolves a classified reference to a single pipeline,
// fetching only what is necessary.
func (m *Manager) ResolvePipeline(ctx context.Context, ref PipelineRef) (models.Pipeline, error) {
	slug := m.config.ProjectSlug()

	switch ref.Kind {
	case RefByID:
		key := fmt.Sprintf("pipeline:%s", ref.ID)
		return cache.GetOrFetch(m.store, key, func() (models.Pipeline, error) {
			return m.api.GetPipelineByID(ctx, ref.ID)
		}, m.ttlForPipeline)

	case RefByNumber:
		key := fmt.Sprintf("pipeline-number:%d", ref.Number)
		return cache.GetOrFetch(m.store, key, func() (models.Pipeline, error) {
			return m.api.GetPipelineByNumber(ctx, slug, ref.Number)
		}, m.ttlForPipeline)

	case RefLatest, RefAnyBranch, RefBranch:
		branch := ref.Branch
		if ref.Kind == RefAnyBranch {
			branch = AnyBranch
		}
		pipelines, err := m.latestPipelines(ctx, branch, 1)
		if err != nil {
			return models.Pipeline{}, err
		}
		if len(pipelines) == 0 {
			return models.Pipeline{}, errors.NewNotFoundError(
				fmt.Sprintf("no pipelines found for %s", describeRef(ref)), nil)
		}
		return pipelines[0], nil

	default:
		return models.Pipeline{}, errors.NewAmbiguousError(
			fmt.Sprintf("unclassifiable pipeline reference %+v", ref), nil)
	}
}

func describeRef(ref PipelineRef) string {
	switch ref.Kind {
	case RefAnyBranch:
		return "any branch"
	case RefBranch:
		return fmt.Sprintf("branch %q", ref.Branch)
	default:
		return "the current branch"
	}
}

// Workflows resolves the referenced pipeline once and returns it with its
// workflows in provider-returned order. Resolving once matters: "latest"
// refs could resolve to different pipelines on consecutive calls.
func (m *Manager) Workflows(ctx context.Context, ref PipelineRef) (PipelineWithWorkflows, error) {
	pipeline, err := m.ResolvePipeline(ctx, ref)
	if err != nil {
		return PipelineWithWorkflows{}, err
	}
	workflows, err := m.pipelineWorkflows(ctx, pipeline.ID)
	if err != nil {
		return PipelineWithWorkflows{}, err
	}
	return PipelineWithWorkflows{Pipeline: pipeline, Workflows: workflows}, nil
}

func (m *Manager) pipelineWorkflows(ctx context.Context, pipelineID string) ([]models.Workflow, error) {
	key := fmt.Sprintf("pipeline:%s:workflows", pipelineID)
	workflows, err := cache.GetOrFetch(m.store, key, func() ([]models.Workflow, error) {
		return m.api.GetPipelineWorkflows(ctx, pipelineID)
	}, m.ttlForWorkflowList)
	if err != nil {
		return nil, err
	}

	// Individual workflow entries ride along for free.
	for _, workflow := range workflows {
		m.cacheWorkflow(workflow)
	}
	return workflows, nil
}

func (m *Manager) cacheWorkflow(workflow models.Workflow) {
	key := fmt.Sprintf("workflow:%s", workflow.ID)
	if err := m.store.Set(key, workflow, m.ttlForWorkflow(workflow)); err != nil {
		logger.GetLogger().Debug("Failed to cache workflow", zap.String("workflow", workflow.ID), zap.Error(err))
	}
}

func (m *Manager) workflow(ctx context.Context, workflowID string) (models.Workflow, error) {
	key := fmt.Sprintf("workflow:%s", workflowID)
	return cache.GetOrFetch(m.store, key, func() (models.Workflow, error) {
		return m.api.GetWorkflow(ctx, workflowID)
	}, m.ttlForWorkflow)
}

func (m *Manager) workflowJobs(ctx context.Context, workflow models.Workflow) ([]models.Job, error) {
	key := fmt.Sprintf("workflow:%s:jobs", workflow.ID)
	return cache.GetOrFetch(m.store, key, func() ([]models.Job, error) {
		return m.api.GetWorkflowJobs(ctx, workflow.ID)
	}, func([]models.Job) int {
		// The job list's freshness follows its workflow's status.
		if workflow.Status.Terminal() {
			return m.terminalTTL()
		}
		return m.runningTTL()
	})
}

// Jobs returns jobs grouped by workflow, optionally filtered by status.
// When workflowIDs are given those workflows are used (and validated against
// the pipeline when a pipeline ref was also supplied); otherwise all
// workflows of the referenced pipeline are used.
func (m *Manager) Jobs(ctx context.Context, ref PipelineRef, refGiven bool, workflowIDs []string, statusFilter *filter.StatusFilter) ([]WorkflowJobs, error) {
	var workflows []models.Workflow
	var pipelineID string

	if len(workflowIDs) > 0 {
		// Fetch all requested workflows concurrently, preserving the
		// requested order.
		workflows = make([]models.Workflow, len(workflowIDs))
		g, gctx := errgroup.WithContext(ctx)
		for i, id := range workflowIDs {
			i, id := i, id
			g.Go(func() error {
				workflow, err := m.workflow(gctx, id)
				if err != nil {
					return err
				}
				workflows[i] = workflow
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		if refGiven {
			pipeline, err := m.ResolvePipeline(ctx, ref)
			if err != nil {
				return nil, err
			}
			pipelineID = pipeline.ID
		}
	} else {
		pipeline, err := m.ResolvePipeline(ctx, ref)
		if err != nil {
			return nil, err
		}
		pipelineID = pipeline.ID
		workflows, err = m.pipelineWorkflows(ctx, pipeline.ID)
		if err != nil {
			return nil, err
		}
	}

	if pipelineID != "" {
		for _, workflow := range workflows {
			if workflow.PipelineID != pipelineID {
				return nil, errors.NewValidationError(
					fmt.Sprintf("workflow %s does not belong to pipeline %s", workflow.ID, pipelineID), nil)
			}
		}
	}

	// Fetch jobs for all workflows concurrently; merge in workflow order.
	jobLists := make([][]models.Job, len(workflows))
	g, gctx := errgroup.WithContext(ctx)
	for i, workflow := range workflows {
		i, workflow := i, workflow
		g.Go(func() error {
			jobs, err := m.workflowJobs(gctx, workflow)
			if err != nil {
				return err
			}
			jobLists[i] = jobs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := make([]WorkflowJobs, len(workflows))
	for i, workflow := range workflows {
		jobs := jobLists[i]
		if !statusFilter.Empty() {
			filtered := make([]models.Job, 0, len(jobs))
			for _, job := range jobs {
				if statusFilter.Matches(string(job.Status)) {
					filtered = append(filtered, job)
				}
			}
			jobs = filtered
		}
		results[i] = WorkflowJobs{Workflow: workflow, Jobs: jobs}
	}
	return results, nil
}

// StepAction is one step's action for a particular parallel run
type StepAction struct {
	StepIndex int           `json:"step_index"`
	Name      string        `json:"name"`
	Action    models.Action `json:"action"`
}

// ParallelRun groups a job's step actions by parallel run index
type ParallelRun struct {
	Index int          `json:"index"`
	Steps []StepAction `json:"steps"`
}

// JobSteps is a job's detailed view with its steps grouped per parallel run
type JobSteps struct {
	Details   models.JobDetails  `json:"details"`
	Lifecycle models.V1Lifecycle `json:"lifecycle"`
	Runs      []ParallelRun      `json:"runs"`
}

// JobSteps returns a job's details and its steps grouped by parallel run
// index, optionally filtered by step status. The v2 and v1.1 views are
// fetched concurrently.
func (m *Manager) JobSteps(ctx context.Context, jobNumber int, stepFilter *filter.StatusFilter) (*JobSteps, error) {
	var details models.JobDetails
	var v1 models.V1JobDetails

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		details, err = m.jobDetails(gctx, jobNumber)
		return err
	})
	g.Go(func() error {
		var err error
		v1, err = m.v1JobDetails(gctx, jobNumber)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byIndex := make(map[int][]StepAction)
	for stepIdx, step := range v1.Steps {
		for _, action := range step.Actions {
			if !stepFilter.Matches(action.Status) {
				continue
			}
			byIndex[action.Index] = append(byIndex[action.Index], StepAction{
				StepIndex: stepIdx,
				Name:      step.Name,
				Action:    action,
			})
		}
	}

	indexes := make([]int, 0, len(byIndex))
	for index := range byIndex {
		indexes = append(indexes, index)
	}
	sort.Ints(indexes)

	runs := make([]ParallelRun, 0, len(indexes))
	for _, index := range indexes {
		runs = append(runs, ParallelRun{Index: index, Steps: byIndex[index]})
	}

	return &JobSteps{Details: details, Lifecycle: v1.Lifecycle, Runs: runs}, nil
}

func (m *Manager) jobDetails(ctx context.Context, jobNumber int) (models.JobDetails, error) {
	slug := m.config.ProjectSlug()
	key := fmt.Sprintf("job:%d:details", jobNumber)
	return cache.GetOrFetch(m.store, key, func() (models.JobDetails, error) {
		return m.api.GetJobDetails(ctx, slug, jobNumber)
	}, func(details models.JobDetails) int {
		return m.ttlForJobStatus(details.Status)
	})
}

func (m *Manager) v1JobDetails(ctx context.Context, jobNumber int) (models.V1JobDetails, error) {
	slug := m.config.ProjectSlug()
	key := fmt.Sprintf("job:%d:v1-details", jobNumber)
	return cache.GetOrFetch(m.store, key, func() (models.V1JobDetails, error) {
		return m.api.GetV1JobDetails(ctx, slug, jobNumber)
	}, func(details models.V1JobDetails) int {
		if details.Lifecycle.Finished() {
			return m.terminalTTL()
		}
		return m.runningTTL()
	})
}

// JobOutput returns one step's log output for one parallel run. The
// parallelIndex may be negative only for non-parallel jobs, where it
// defaults to run 0.
func (m *Manager) JobOutput(ctx context.Context, jobNumber, step, parallelIndex int) ([]models.OutputMessage, error) {
	if parallelIndex < 0 {
		details, err := m.jobDetails(ctx, jobNumber)
		if err != nil {
			return nil, err
		}
		if details.Parallelism > 1 {
			return nil, errors.NewValidationError(
				fmt.Sprintf("job %d has %d parallel runs, pass --index", jobNumber, details.Parallelism), nil)
		}
		parallelIndex = 0
	}

	key := fmt.Sprintf("job:%d:output:%d:%d", jobNumber, step, parallelIndex)
	var lifecycle models.V1Lifecycle

	output, err := cache.GetOrFetch(m.store, key, func() ([]models.OutputMessage, error) {
		// The output URL is presigned and expires, so the v1.1 details
		// are fetched uncached here.
		slug := m.config.ProjectSlug()
		v1, err := m.api.GetV1JobDetails(ctx, slug, jobNumber)
		if err != nil {
			return nil, err
		}
		lifecycle = v1.Lifecycle

		if step < 0 || step >= len(v1.Steps) {
			return nil, errors.NewNotFoundError(
				fmt.Sprintf("job %d has no step %d", jobNumber, step), nil)
		}

		for _, action := range v1.Steps[step].Actions {
			if action.Index != parallelIndex {
				continue
			}
			if action.OutputURL == nil {
				return nil, errors.NewNotFoundError(
					fmt.Sprintf("no output recorded for job %d step %d run %d", jobNumber, step, parallelIndex), nil)
			}
			return m.api.GetJobOutput(ctx, *action.OutputURL)
		}
		return nil, errors.NewNotFoundError(
			fmt.Sprintf("job %d step %d has no parallel run %d", jobNumber, step, parallelIndex), nil)
	}, func([]models.OutputMessage) int {
		if lifecycle.Finished() {
			return m.terminalTTL()
		}
		return m.runningTTL()
	})
	if err != nil {
		return nil, err
	}
	return output, nil
}

// JobTests returns a job's test results, optionally filtered by result
// status and file suffix.
func (m *Manager) JobTests(ctx context.Context, jobNumber int, resultFilter *filter.StatusFilter, fileSuffix string) ([]models.TestMetadata, error) {
	tests, err := m.jobTests(ctx, jobNumber)
	if err != nil {
		return nil, err
	}

	filtered := make([]models.TestMetadata, 0, len(tests))
	for _, test := range tests {
		if !resultFilter.Matches(string(test.Result)) {
			continue
		}
		if fileSuffix != "" && !strings.HasSuffix(test.File, fileSuffix) {
			continue
		}
		filtered = append(filtered, test)
	}
	return filtered, nil
}

func (m *Manager) jobTests(ctx context.Context, jobNumber int) ([]models.TestMetadata, error) {
	key := fmt.Sprintf("job:%d:tests", jobNumber)

	var cached []models.TestMetadata
	if err := m.store.Get(key, &cached); err == nil {
		logger.GetLogger().Debug("Cache hit", zap.String("key", key))
		return cached, nil
	}

	// Test results only stop changing once the job does, so the TTL
	// follows the job's own status.
	details, err := m.jobDetails(ctx, jobNumber)
	if err != nil {
		return nil, err
	}
	tests, err := m.api.GetJobTests(ctx, m.config.ProjectSlug(), jobNumber)
	if err != nil {
		return nil, err
	}
	if err := m.store.Set(key, tests, m.ttlForJobStatus(details.Status)); err != nil {
		logger.GetLogger().Debug("Failed to cache job tests", zap.Int("job", jobNumber), zap.Error(err))
	}
	return tests, nil
}
