package circleci

import (
	"context"
	"fmt"
	"net/url"

	"github.com/Peter554/circle-cli/internal/models"
)

// GetPipelines returns the most recent pipelines for a project, newest
// first. An empty branch means all branches. A positive limit caps the
// number of pipelines fetched.
func (c *Client) GetPipelines(ctx context.Context, slug, branch string, limit int) ([]models.Pipeline, error) {
	endpoint := fmt.Sprintf("%s/project/%s/pipeline", c.baseURL, slug)
	params := url.Values{}
	if branch != "" {
		params.Set("branch", branch)
	}

	items, err := c.getPaginated(ctx, endpoint, params, limit)
	if err != nil {
		return nil, err
	}
	return decodeItems[models.Pipeline](items)
}

// GetPipelineByNumber returns the pipeline with the given user-facing number
func (c *Client) GetPipelineByNumber(ctx context.Context, slug string, number int) (models.Pipeline, error) {
	endpoint := fmt.Sprintf("%s/project/%s/pipeline/%d", c.baseURL, slug, number)

	var pipeline models.Pipeline
	if err := c.getJSON(ctx, endpoint, nil, true, &pipeline); err != nil {
		return models.Pipeline{}, err
	}
	return pipeline, nil
}

// GetPipelineByID returns the pipeline with the given UUID
func (c *Client) GetPipelineByID(ctx context.Context, id string) (models.Pipeline, error) {
	endpoint := fmt.Sprintf("%s/pipeline/%s", c.baseURL, id)

	var pipeline models.Pipeline
	if err := c.getJSON(ctx, endpoint, nil, true, &pipeline); err != nil {
		return models.Pipeline{}, err
	}
	return pipeline, nil
}

// GetWorkflow returns a single workflow by ID
func (c *Client) GetWorkflow(ctx context.Context, id string) (models.Workflow, error) {
	endpoint := fmt.Sprintf("%s/workflow/%s", c.baseURL, id)

	var workflow models.Workflow
	if err := c.getJSON(ctx, endpoint, nil, true, &workflow); err != nil {
		return models.Workflow{}, err
	}
	return workflow, nil
}

// GetPipelineWorkflows returns all workflows of a pipeline in
// provider-returned order.
func (c *Client) GetPipelineWorkflows(ctx context.Context, pipelineID string) ([]models.Workflow, error) {
	endpoint := fmt.Sprintf("%s/pipeline/%s/workflow", c.baseURL, pipelineID)

	items, err := c.getPaginated(ctx, endpoint, nil, 0)
	if err != nil {
		return nil, err
	}
	return decodeItems[models.Workflow](items)
}

// GetWorkflowJobs returns all jobs of a workflow in provider-returned order
func (c *Client) GetWorkflowJobs(ctx context.Context, workflowID string) ([]models.Job, error) {
	endpoint := fmt.Sprintf("%s/workflow/%s/job", c.baseURL, workflowID)

	items, err := c.getPaginated(ctx, endpoint, nil, 0)
	if err != nil {
		return nil, err
	}
	return decodeItems[models.Job](items)
}

// GetJobDetails returns the detailed v2 view of a job
func (c *Client) GetJobDetails(ctx context.Context, slug string, number int) (models.JobDetails, error) {
	endpoint := fmt.Sprintf("%s/project/%s/job/%d", c.baseURL, slug, number)

	var details models.JobDetails
	if err := c.getJSON(ctx, endpoint, nil, true, &details); err != nil {
		return models.JobDetails{}, err
	}
	return details, nil
}

// GetV1JobDetails returns the v1.1 view of a job, the only endpoint that
// exposes steps and their output URLs.
func (c *Client) GetV1JobDetails(ctx context.Context, slug string, number int) (models.V1JobDetails, error) {
	endpoint := fmt.Sprintf("%s/project/%s/%d", c.baseURLV1, slug, number)

	var details models.V1JobDetails
	if err := c.getJSON(ctx, endpoint, nil, true, &details); err != nil {
		return models.V1JobDetails{}, err
	}
	return details, nil
}

// GetJobTests returns all test results recorded for a job
func (c *Client) GetJobTests(ctx context.Context, slug string, number int) ([]models.TestMetadata, error) {
	endpoint := fmt.Sprintf("%s/project/%s/%d/tests", c.baseURL, slug, number)

	items, err := c.getPaginated(ctx, endpoint, nil, 0)
	if err != nil {
		return nil, err
	}
	return decodeItems[models.TestMetadata](items)
}

// GetJobOutput downloads a step's output from its presigned URL. The URL is
// already authorized, no token is attached.
func (c *Client) GetJobOutput(ctx context.Context, outputURL string) ([]models.OutputMessage, error) {
	var messages []models.OutputMessage
	if err := c.getJSON(ctx, outputURL, nil, false, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}
