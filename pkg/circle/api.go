package circle

import (
	"context"

	"github.com/Peter554/circle-cli/internal/models"
)

// API is the CircleCI endpoint surface the manager consumes. Implemented by
// *circleci.Client; tests substitute fakes.
type API interface {
	GetPipelines(ctx context.Context, slug, branch string, limit int) ([]models.Pipeline, error)
	GetPipelineByNumber(ctx context.Context, slug string, number int) (models.Pipeline, error)
	GetPipelineByID(ctx context.Context, id string) (models.Pipeline, error)
	GetWorkflow(ctx context.Context, id string) (models.Workflow, error)
	GetPipelineWorkflows(ctx context.Context, pipelineID string) ([]models.Workflow, error)
	GetWorkflowJobs(ctx context.Context, workflowID string) ([]models.Job, error)
	GetJobDetails(ctx context.Context, slug string, number int) (models.JobDetails, error)
	GetV1JobDetails(ctx context.Context, slug string, number int) (models.V1JobDetails, error)
	GetJobTests(ctx context.Context, slug string, number int) ([]models.TestMetadata, error)
	GetJobOutput(ctx context.Context, outputURL string) ([]models.OutputMessage, error)
}
