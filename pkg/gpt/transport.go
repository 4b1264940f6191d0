package gpt

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/http/httpproxy"

	"github.com/r9s-ai/gptdesk/pkg/requestid"
	"github.com/r9s-ai/gptdesk/pkg/trafficdump"
)

type ctxKey int

const endpointKey ctxKey = iota

func withEndpoint(ctx context.Context, endpoint string) context.Context {
	return context.WithValue(ctx, endpointKey, endpoint)
}

func endpointFrom(ctx context.Context) string {
	s, _ := ctx.Value(endpointKey).(string)
	return s
}

// newTransport builds the pooled transport shared by every call. An explicit
// proxy wins over HTTP_PROXY/HTTPS_PROXY/NO_PROXY from the environment.
func newTransport(proxyURL, noProxy string) (*http.Transport, error) {
	pc := httpproxy.FromEnvironment()
	if p := strings.TrimSpace(proxyURL); p != "" {
		if _, err := url.Parse(p); err != nil {
			return nil, fmt.Errorf("invalid proxy url %q: %w", p, err)
		}
		pc = &httpproxy.Config{HTTPProxy: p, HTTPSProxy: p, NoProxy: strings.TrimSpace(noProxy)}
	}
	proxyFunc := pc.ProxyFunc()
	return &http.Transport{
		Proxy: func(req *http.Request) (*url.URL, error) {
			return proxyFunc(req.URL)
		},
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}, nil
}

// dumpTransport writes each exchange to a traffic dump file. Dump failures
// never fail the call.
type dumpTransport struct {
	next http.RoundTripper
	cfg  trafficdump.Config
}

func (t *dumpTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rid := req.Header.Get(requestid.HeaderKey)
	if rid == "" {
		rid = requestid.Gen()
	}
	rec, err := trafficdump.Start(t.cfg, rid, endpointFrom(req.Context()), req)
	if err != nil {
		return t.next.RoundTrip(req)
	}
	defer rec.Close()

	var reqBody []byte
	if req.GetBody != nil {
		if rc, err := req.GetBody(); err == nil {
			reqBody, _ = io.ReadAll(rc)
			_ = rc.Close()
		}
	}
	captured, truncated := trafficdump.LimitBytes(reqBody, rec.MaxBytes())
	rec.AppendRequest(req.Header, captured, int64(len(reqBody)), truncated)

	resp, err := t.next.RoundTrip(req)
	if err != nil {
		rec.AppendError(err)
		return nil, err
	}
	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	_ = resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(respBody))

	captured, truncated = trafficdump.LimitBytes(respBody, rec.MaxBytes())
	rec.AppendResponse(fmt.Sprintf("%s %s", resp.Proto, resp.Status), resp.Header, captured, int64(len(respBody)), truncated)
	if readErr != nil {
		rec.AppendError(readErr)
		return nil, readErr
	}
	return resp, nil
}
