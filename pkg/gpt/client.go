// Package gpt calls an OpenAI-compatible REST API.
//
// Each endpoint takes its Options from pkg/options, builds the payload,
// issues exactly one HTTP call (Ask issues several) and extracts the
// field the caller wants from the JSON reply.
package gpt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/r9s-ai/gptdesk/internal/logx"
	"github.com/r9s-ai/gptdesk/internal/version"
	"github.com/r9s-ai/gptdesk/pkg/apitypes"
	"github.com/r9s-ai/gptdesk/pkg/requestid"
	"github.com/r9s-ai/gptdesk/pkg/trafficdump"
	"github.com/r9s-ai/gptdesk/pkg/usage"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultTimeout = 120 * time.Second

	// maxResponseBytes bounds every reply body the client reads.
	maxResponseBytes = 64 << 20

	betaHeader = "OpenAI-Beta"
	betaValue  = "assistants=v2"
)

type Config struct {
	BaseURL      string
	APIKey       string
	Organization string
	Project      string
	Timeout      time.Duration
	// ProxyURL overrides the HTTP(S)_PROXY environment for outbound calls.
	ProxyURL string
	NoProxy  string
	// EmbeddingCacheSize is the number of vectors kept in memory. Zero disables the cache.
	EmbeddingCacheSize int
	Dump               trafficdump.Config
	// Logger receives one line per call. Nil disables call logging.
	Logger *log.Logger
	// Cost prices a generation call for the log line. Nil leaves cost out.
	Cost CostFunc
	// HTTPClient replaces the pooled client built from the fields above.
	HTTPClient *http.Client
}

// Client is safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	org     string
	project string
	hc      *http.Client
	embeds  *embeddingCache
	logger  *log.Logger
	cost    CostFunc
}

// CostFunc returns the USD cost of a call, or false when model has no price.
type CostFunc func(model string, inputTokens, outputTokens int) (float64, bool)

func New(cfg Config) (*Client, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, ErrMissingAPIKey
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		rt, err := newTransport(cfg.ProxyURL, cfg.NoProxy)
		if err != nil {
			return nil, err
		}
		hc = &http.Client{Timeout: timeout, Transport: rt}
	}
	if cfg.Dump.Enabled {
		next := hc.Transport
		if next == nil {
			next = http.DefaultTransport
		}
		clone := *hc
		clone.Transport = &dumpTransport{next: next, cfg: cfg.Dump}
		hc = &clone
	}

	embeds, err := newEmbeddingCache(cfg.EmbeddingCacheSize)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: base,
		apiKey:  key,
		org:     strings.TrimSpace(cfg.Organization),
		project: strings.TrimSpace(cfg.Project),
		hc:      hc,
		embeds:  embeds,
		logger:  cfg.Logger,
		cost:    cfg.Cost,
	}, nil
}

// BaseURL returns the API root every path is resolved against.
func (c *Client) BaseURL() string { return c.baseURL }

// call describes one HTTP exchange.
type call struct {
	endpoint    string
	method      string
	path        string
	query       url.Values
	model       string
	body        []byte
	contentType string
	beta        bool
}

// reply is a response read into memory.
type reply struct {
	status          int
	header          http.Header
	body            []byte
	requestID       string
	vendorRequestID string
	latency         time.Duration
}

// send performs c and returns the body of a 2xx reply. Non-2xx replies
// become *APIError.
func (c *Client) send(ctx context.Context, cl call) (*reply, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	u := c.baseURL + cl.path
	if len(cl.query) > 0 {
		u += "?" + cl.query.Encode()
	}
	var body io.Reader
	if cl.body != nil {
		body = bytes.NewReader(cl.body)
	}
	rid := requestid.FromContext(ctx)
	if rid == "" {
		rid = requestid.Gen()
	}
	req, err := http.NewRequestWithContext(withEndpoint(ctx, cl.endpoint), cl.method, u, body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", cl.endpoint, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set(requestid.HeaderKey, rid)
	if c.org != "" {
		req.Header.Set("OpenAI-Organization", c.org)
	}
	if c.project != "" {
		req.Header.Set("OpenAI-Project", c.project)
	}
	if cl.beta {
		req.Header.Set(betaHeader, betaValue)
	}
	if cl.contentType != "" {
		req.Header.Set("Content-Type", cl.contentType)
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		c.logCall(start, 0, cl, map[string]any{"error": err, "request_id": rid})
		return nil, fmt.Errorf("%s request: %w", cl.endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.logCall(start, resp.StatusCode, cl, map[string]any{"error": err, "request_id": rid})
		return nil, fmt.Errorf("read %s response: %w", cl.endpoint, err)
	}
	r := &reply{
		status:          resp.StatusCode,
		header:          resp.Header,
		body:            b,
		requestID:       rid,
		vendorRequestID: strings.TrimSpace(resp.Header.Get("X-Request-Id")),
		latency:         time.Since(start),
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errID := r.vendorRequestID
		if errID == "" {
			errID = rid
		}
		apiErr := parseAPIError(resp.StatusCode, b, errID)
		c.logCall(start, resp.StatusCode, cl, r.withIDs(map[string]any{"error_type": apiErr.Type}))
		return nil, apiErr
	}
	return r, nil
}

// withIDs adds the client request id, which names the dump file, and the
// vendor's x-request-id when the reply carried one.
func (r *reply) withIDs(fields map[string]any) map[string]any {
	if fields == nil {
		fields = map[string]any{}
	}
	fields["request_id"] = r.requestID
	if r.vendorRequestID != "" {
		fields["vendor_request_id"] = r.vendorRequestID
	}
	return fields
}

func marshalPayload(endpoint string, payload any) ([]byte, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", endpoint, err)
	}
	return b, nil
}

// sendJSON marshals payload, sends it and decodes a JSON object reply.
func (c *Client) sendJSON(ctx context.Context, cl call, payload any) (apitypes.JSONObject, *reply, error) {
	if payload != nil {
		b, err := marshalPayload(cl.endpoint, payload)
		if err != nil {
			return nil, nil, err
		}
		cl.body, cl.contentType = b, "application/json"
	}
	r, err := c.send(ctx, cl)
	if err != nil {
		return nil, nil, err
	}
	root, err := apitypes.ParseJSONObject(r.body, cl.endpoint+" response")
	if err != nil {
		return nil, r, err
	}
	return root, r, nil
}

// fetch sends cl and decodes the reply into out. Used by the management
// endpoints, which return whole objects.
func (c *Client) fetch(ctx context.Context, cl call, payload any, out any) error {
	if payload != nil {
		b, err := marshalPayload(cl.endpoint, payload)
		if err != nil {
			return err
		}
		cl.body, cl.contentType = b, "application/json"
	}
	r, err := c.send(ctx, cl)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(r.body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", cl.endpoint, err)
	}
	c.logCall(timeBefore(r), r.status, cl, r.withIDs(nil))
	return nil
}

func (c *Client) logCall(start time.Time, status int, cl call, fields map[string]any) {
	if c.logger == nil {
		return
	}
	if fields == nil {
		fields = map[string]any{}
	}
	fields["endpoint"] = cl.endpoint
	if cl.model != "" {
		fields["model"] = cl.model
	}
	path := cl.path
	if u, err := url.Parse(c.baseURL + cl.path); err == nil {
		path = u.Path
	}
	c.logger.Println(logx.FormatRequestLine(time.Now(), status, time.Since(start), "", cl.method, path, fields))
}

// logUsage logs a completed generation call along with its token counts.
func (c *Client) logUsage(r *reply, cl call, u usage.Result) {
	fields := r.withIDs(u.Fields())
	if c.cost != nil && cl.model != "" {
		if v, ok := c.cost(cl.model, u.InputTokens, u.OutputTokens); ok {
			fields["cost_total"] = v
		}
	}
	c.logCall(timeBefore(r), r.status, cl, fields)
}

// decodeInto re-decodes an already parsed reply into a typed DTO.
func decodeInto(r *reply, what string, out any) error {
	if err := json.Unmarshal(r.body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", what, err)
	}
	return nil
}

func pathEscape(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.New("id is empty")
	}
	return url.PathEscape(id), nil
}

func listQuery(limit int, after string) url.Values {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	if a := strings.TrimSpace(after); a != "" {
		q.Set("after", a)
	}
	return q
}

// timeBefore returns the start time of the exchange that produced r.
func timeBefore(r *reply) time.Time { return time.Now().Add(-r.latency) }
