package gpt

import (
	"context"
	"fmt"
	"net/http"

	"github.com/r9s-ai/gptdesk/pkg/apitypes"
	"github.com/r9s-ai/gptdesk/pkg/options"
)

const fineTuningEndpoint = "fine_tuning"

func (c *Client) CreateFineTuningJob(ctx context.Context, opts options.FineTuningOptions, trainingFile, validationFile string) (*apitypes.FineTuningJob, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("fine-tuning options: %w", err)
	}
	p, err := opts.Payload(trainingFile, validationFile)
	if err != nil {
		return nil, err
	}
	cl := call{endpoint: fineTuningEndpoint, method: http.MethodPost, path: "/fine_tuning/jobs", model: p.Model}
	var out apitypes.FineTuningJob
	if err := c.fetch(ctx, cl, p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListFineTuningJobs(ctx context.Context, opts options.FineTuningOptions, after string) (*apitypes.FineTuningJobList, error) {
	cl := call{endpoint: fineTuningEndpoint, method: http.MethodGet, path: "/fine_tuning/jobs", query: listQuery(opts.ListLimit, after)}
	var out apitypes.FineTuningJobList
	if err := c.fetch(ctx, cl, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetFineTuningJob(ctx context.Context, jobID string) (*apitypes.FineTuningJob, error) {
	id, err := pathEscape(jobID)
	if err != nil {
		return nil, fmt.Errorf("fine-tuning job %w", err)
	}
	var out apitypes.FineTuningJob
	if err := c.fetch(ctx, call{endpoint: fineTuningEndpoint, method: http.MethodGet, path: "/fine_tuning/jobs/" + id}, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CancelFineTuningJob(ctx context.Context, jobID string) (*apitypes.FineTuningJob, error) {
	id, err := pathEscape(jobID)
	if err != nil {
		return nil, fmt.Errorf("fine-tuning job %w", err)
	}
	var out apitypes.FineTuningJob
	if err := c.fetch(ctx, call{endpoint: fineTuningEndpoint, method: http.MethodPost, path: "/fine_tuning/jobs/" + id + "/cancel"}, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListFineTuningEvents(ctx context.Context, opts options.FineTuningOptions, jobID, after string) (*apitypes.FineTuningEventList, error) {
	id, err := pathEscape(jobID)
	if err != nil {
		return nil, fmt.Errorf("fine-tuning job %w", err)
	}
	cl := call{endpoint: fineTuningEndpoint, method: http.MethodGet, path: "/fine_tuning/jobs/" + id + "/events", query: listQuery(opts.ListLimit, after)}
	var out apitypes.FineTuningEventList
	if err := c.fetch(ctx, cl, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
