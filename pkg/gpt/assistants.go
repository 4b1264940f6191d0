package gpt

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/r9s-ai/gptdesk/pkg/apitypes"
	"github.com/r9s-ai/gptdesk/pkg/options"
)

const assistantsEndpoint = "assistants"

func assistantCall(method, path string) call {
	return call{endpoint: assistantsEndpoint, method: method, path: path, beta: true}
}

func (c *Client) CreateAssistant(ctx context.Context, opts options.AssistantOptions) (*apitypes.Assistant, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("assistant options: %w", err)
	}
	p := opts.Payload()
	cl := assistantCall(http.MethodPost, "/assistants")
	cl.model = p.Model
	var out apitypes.Assistant
	if err := c.fetch(ctx, cl, p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListAssistants(ctx context.Context, opts options.AssistantOptions, after string) (*apitypes.AssistantList, error) {
	cl := assistantCall(http.MethodGet, "/assistants")
	cl.query = listQuery(opts.ListLimit, after)
	var out apitypes.AssistantList
	if err := c.fetch(ctx, cl, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetAssistant(ctx context.Context, assistantID string) (*apitypes.Assistant, error) {
	id, err := pathEscape(assistantID)
	if err != nil {
		return nil, fmt.Errorf("assistant %w", err)
	}
	var out apitypes.Assistant
	if err := c.fetch(ctx, assistantCall(http.MethodGet, "/assistants/"+id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteAssistant(ctx context.Context, assistantID string) (*apitypes.DeleteResponse, error) {
	id, err := pathEscape(assistantID)
	if err != nil {
		return nil, fmt.Errorf("assistant %w", err)
	}
	var out apitypes.DeleteResponse
	if err := c.fetch(ctx, assistantCall(http.MethodDelete, "/assistants/"+id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateThread(ctx context.Context, p apitypes.ThreadPayload) (*apitypes.Thread, error) {
	var out apitypes.Thread
	if err := c.fetch(ctx, assistantCall(http.MethodPost, "/threads"), p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddMessage appends a user message to a thread.
func (c *Client) AddMessage(ctx context.Context, opts options.AssistantOptions, threadID, content string) (*apitypes.Message, error) {
	id, err := pathEscape(threadID)
	if err != nil {
		return nil, fmt.Errorf("thread %w", err)
	}
	p, err := opts.MessagePayload(content)
	if err != nil {
		return nil, err
	}
	var out apitypes.Message
	if err := c.fetch(ctx, assistantCall(http.MethodPost, "/threads/"+id+"/messages"), p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListMessages lists thread messages, newest first. runID narrows the list
// to messages produced by one run.
func (c *Client) ListMessages(ctx context.Context, threadID, runID string, limit int) (*apitypes.MessageList, error) {
	id, err := pathEscape(threadID)
	if err != nil {
		return nil, fmt.Errorf("thread %w", err)
	}
	cl := assistantCall(http.MethodGet, "/threads/"+id+"/messages")
	cl.query = url.Values{"order": {"desc"}}
	if limit > 0 {
		cl.query.Set("limit", fmt.Sprintf("%d", limit))
	}
	if runID != "" {
		cl.query.Set("run_id", runID)
	}
	var out apitypes.MessageList
	if err := c.fetch(ctx, cl, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateRun(ctx context.Context, opts options.AssistantOptions, threadID, assistantID string) (*apitypes.Run, error) {
	id, err := pathEscape(threadID)
	if err != nil {
		return nil, fmt.Errorf("thread %w", err)
	}
	p, err := opts.RunPayload(assistantID)
	if err != nil {
		return nil, err
	}
	if p.Stream {
		return nil, ErrStreamUnsupported
	}
	var out apitypes.Run
	if err := c.fetch(ctx, assistantCall(http.MethodPost, "/threads/"+id+"/runs"), p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetRun(ctx context.Context, threadID, runID string) (*apitypes.Run, error) {
	tid, err := pathEscape(threadID)
	if err != nil {
		return nil, fmt.Errorf("thread %w", err)
	}
	rid, err := pathEscape(runID)
	if err != nil {
		return nil, fmt.Errorf("run %w", err)
	}
	var out apitypes.Run
	if err := c.fetch(ctx, assistantCall(http.MethodGet, "/threads/"+tid+"/runs/"+rid), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RunError is returned by Ask when a run stops in a status other than completed.
type RunError struct {
	RunID   string
	Status  string
	Message string
}

func (e *RunError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("run %s ended with status %s: %s", e.RunID, e.Status, e.Message)
	}
	return fmt.Sprintf("run %s ended with status %s", e.RunID, e.Status)
}

// Ask puts question to an assistant on a fresh thread and waits for the answer.
// It polls the run every opts.PollInterval until the run reaches a terminal
// status or ctx is done.
func (c *Client) Ask(ctx context.Context, opts options.AssistantOptions, assistantID, question string) (string, error) {
	if err := opts.Validate(); err != nil {
		return "", fmt.Errorf("assistant options: %w", err)
	}
	if _, err := opts.MessagePayload(question); err != nil {
		return "", err
	}
	thread, err := c.CreateThread(ctx, apitypes.ThreadPayload{})
	if err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}
	if _, err := c.AddMessage(ctx, opts, thread.ID, question); err != nil {
		return "", fmt.Errorf("add message: %w", err)
	}
	run, err := c.CreateRun(ctx, opts, thread.ID, assistantID)
	if err != nil {
		return "", fmt.Errorf("create run: %w", err)
	}
	run, err = c.waitRun(ctx, opts.PollInterval, thread.ID, run)
	if err != nil {
		return "", err
	}
	if run.Status != apitypes.RunCompleted {
		re := &RunError{RunID: run.ID, Status: run.Status}
		if run.LastError != nil {
			re.Message = run.LastError.Message
		}
		return "", re
	}

	msgs, err := c.ListMessages(ctx, thread.ID, run.ID, 20)
	if err != nil {
		return "", fmt.Errorf("list messages: %w", err)
	}
	for _, m := range msgs.Data {
		if m.Role != "assistant" {
			continue
		}
		if text := m.Text(); text != "" {
			return text, nil
		}
	}
	return "", emptyResponse("assistant message")
}

func (c *Client) waitRun(ctx context.Context, interval time.Duration, threadID string, run *apitypes.Run) (*apitypes.Run, error) {
	if interval <= 0 {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for !run.Terminal() {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("wait for run %s: %w", run.ID, ctx.Err())
		case <-t.C:
		}
		next, err := c.GetRun(ctx, threadID, run.ID)
		if err != nil {
			return nil, fmt.Errorf("poll run %s: %w", run.ID, err)
		}
		run = next
	}
	return run, nil
}
