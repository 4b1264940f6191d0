package gpt

import (
	"context"
	"fmt"
	"net/http"

	"github.com/r9s-ai/gptdesk/pkg/apitypes"
	"github.com/r9s-ai/gptdesk/pkg/jsonutil"
	"github.com/r9s-ai/gptdesk/pkg/options"
	"github.com/r9s-ai/gptdesk/pkg/usage"
)

const (
	chatContentPath       = "$.choices[0].message.content"
	completionTextPath    = "$.choices[0].text"
	embeddingVectorsPath  = "$.data[*].embedding"
	chatEndpoint          = "chat"
	completionEndpoint    = "completion"
	embeddingEndpoint     = "embedding"
	chatCompletionsPath   = "/chat/completions"
	legacyCompletionsPath = "/completions"
	embeddingsPath        = "/embeddings"
)

// Chat sends messages and returns the first choice's content.
func (c *Client) Chat(ctx context.Context, opts options.ChatOptions, messages []apitypes.ChatMessage) (string, error) {
	root, _, err := c.chat(ctx, opts, messages)
	if err != nil {
		return "", err
	}
	text := jsonutil.GetStringByPath(root, chatContentPath)
	if text == "" {
		return "", emptyResponse(chatContentPath)
	}
	return text, nil
}

// ChatRaw is Chat returning the whole decoded reply.
func (c *Client) ChatRaw(ctx context.Context, opts options.ChatOptions, messages []apitypes.ChatMessage) (*apitypes.ChatResponse, error) {
	_, r, err := c.chat(ctx, opts, messages)
	if err != nil {
		return nil, err
	}
	var out apitypes.ChatResponse
	if err := decodeInto(r, chatEndpoint, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) chat(ctx context.Context, opts options.ChatOptions, messages []apitypes.ChatMessage) (apitypes.JSONObject, *reply, error) {
	if err := opts.Validate(); err != nil {
		return nil, nil, fmt.Errorf("chat options: %w", err)
	}
	p, err := opts.Payload(messages)
	if err != nil {
		return nil, nil, err
	}
	if p.Stream {
		return nil, nil, ErrStreamUnsupported
	}
	cl := call{endpoint: chatEndpoint, method: http.MethodPost, path: chatCompletionsPath, model: p.Model}
	root, r, err := c.sendJSON(ctx, cl, p)
	if err != nil {
		return nil, nil, err
	}
	prompt := make([]string, 0, len(p.Messages))
	for _, m := range p.Messages {
		prompt = append(prompt, m.Text())
	}
	c.logUsage(r, cl, usage.Resolve(usage.Input{
		Reply:      replyUsage(root),
		Prompt:     prompt,
		Completion: jsonutil.GetStringsByPath(root, "$.choices[*].message.content"),
		Messages:   len(p.Messages),
	}))
	return root, r, nil
}

// Complete sends prompt to the legacy completions endpoint and returns the first choice's text.
func (c *Client) Complete(ctx context.Context, opts options.CompletionOptions, prompt string) (string, error) {
	root, _, err := c.complete(ctx, opts, prompt)
	if err != nil {
		return "", err
	}
	text := jsonutil.GetStringByPath(root, completionTextPath)
	if text == "" {
		return "", emptyResponse(completionTextPath)
	}
	return text, nil
}

func (c *Client) CompleteRaw(ctx context.Context, opts options.CompletionOptions, prompt string) (*apitypes.CompletionResponse, error) {
	_, r, err := c.complete(ctx, opts, prompt)
	if err != nil {
		return nil, err
	}
	var out apitypes.CompletionResponse
	if err := decodeInto(r, completionEndpoint, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) complete(ctx context.Context, opts options.CompletionOptions, prompt string) (apitypes.JSONObject, *reply, error) {
	if err := opts.Validate(); err != nil {
		return nil, nil, fmt.Errorf("completion options: %w", err)
	}
	p, err := opts.Payload(prompt)
	if err != nil {
		return nil, nil, err
	}
	if p.Stream {
		return nil, nil, ErrStreamUnsupported
	}
	cl := call{endpoint: completionEndpoint, method: http.MethodPost, path: legacyCompletionsPath, model: p.Model}
	root, r, err := c.sendJSON(ctx, cl, p)
	if err != nil {
		return nil, nil, err
	}
	c.logUsage(r, cl, usage.Resolve(usage.Input{
		Reply:      replyUsage(root),
		Prompt:     []string{p.Prompt},
		Completion: jsonutil.GetStringsByPath(root, "$.choices[*].text"),
	}))
	return root, r, nil
}

// Embed returns one vector per input, in input order. Inputs already in the
// cache are not sent.
func (c *Client) Embed(ctx context.Context, opts options.EmbeddingOptions, inputs []string) ([][]float64, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("embedding options: %w", err)
	}
	if _, err := opts.Payload(inputs); err != nil {
		return nil, err
	}

	out := make([][]float64, len(inputs))
	var missing []string
	var missingIdx []int
	for i, in := range inputs {
		if v, ok := c.embeds.get(embeddingKey(opts.Model, opts.Dimensions, in)); ok {
			out[i] = v
			continue
		}
		missing = append(missing, in)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	p, err := opts.Payload(missing)
	if err != nil {
		return nil, err
	}
	cl := call{endpoint: embeddingEndpoint, method: http.MethodPost, path: embeddingsPath, model: p.Model}
	root, r, err := c.sendJSON(ctx, cl, p)
	if err != nil {
		return nil, err
	}
	vectors, ok := jsonutil.GetFloatMatrixByPath(root, embeddingVectorsPath)
	if !ok || len(vectors) != len(missing) {
		return nil, emptyResponse(embeddingVectorsPath)
	}
	for j, v := range vectors {
		out[missingIdx[j]] = v
		c.embeds.add(embeddingKey(opts.Model, opts.Dimensions, missing[j]), v)
	}
	c.logUsage(r, cl, usage.Resolve(usage.Input{Reply: replyUsage(root), Prompt: missing}))
	return out, nil
}

// replyUsage decodes the usage block of a reply, if present.
func replyUsage(root apitypes.JSONObject) *apitypes.Usage {
	raw, ok := root["usage"].(map[string]any)
	if !ok {
		return nil
	}
	return &apitypes.Usage{
		PromptTokens:     jsonutil.CoerceInt(raw["prompt_tokens"]),
		CompletionTokens: jsonutil.CoerceInt(raw["completion_tokens"]),
		TotalTokens:      jsonutil.CoerceInt(raw["total_tokens"]),
		InputTokens:      jsonutil.CoerceInt(raw["input_tokens"]),
		OutputTokens:     jsonutil.CoerceInt(raw["output_tokens"]),
	}
}
