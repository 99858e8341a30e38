// Package remote is the typed client of the social network REST api.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"nework/pkg/apperror"
	sn_metrics "nework/pkg/metrics"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// TokenSource yields the bearer token of the current session, or ""
type TokenSource interface {
	Token() string
}

type Client struct {
	baseURL *url.URL
	http    *http.Client
	tokens  TokenSource
	logger  *slog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default client; its transport is still
// wrapped for authentication and tracing
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		copied := *hc
		c.http = &copied
	}
}

func WithTokenSource(tokens TokenSource) Option {
	return func(c *Client) {
		c.tokens = tokens
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url %q: scheme must be http or https", baseURL)
	}
	c := &Client{
		baseURL: u,
		http:    &http.Client{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	transport := c.http.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	if c.tokens != nil {
		transport = &bearerTransport{base: transport, tokens: c.tokens}
	}
	c.http.Transport = otelhttp.NewTransport(transport)
	return c, nil
}

// bearerTransport attaches the session token to every request
type bearerTransport struct {
	base   http.RoundTripper
	tokens TokenSource
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token := t.tokens.Token()
	if token == "" {
		return t.base.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+token)
	return t.base.RoundTrip(req)
}

type request struct {
	endpoint    string // metric label
	method      string
	path        []string
	body        io.Reader
	contentType string
}

func jsonBody(v any) (io.Reader, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("error converting request to json: %w", err)
	}
	return bytes.NewReader(b), nil
}

func (c *Client) send(ctx context.Context, r request) (*http.Response, error) {
	u := c.baseURL.JoinPath(r.path...)
	req, err := http.NewRequestWithContext(ctx, r.method, u.String(), r.body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		text := strings.TrimSpace(string(msg))
		if text == "" {
			text = http.StatusText(resp.StatusCode)
		}
		return nil, &apperror.ApiError{Status: resp.StatusCode, Message: text}
	}
	return resp, nil
}

// call sends r and decodes the json response into T
func call[T any](ctx context.Context, c *Client, r request) (T, error) {
	var out T
	start := time.Now()
	err := func() error {
		resp, err := c.send(ctx, r)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return fmt.Errorf("error parsing %s response: %w", r.endpoint, err)
		}
		return nil
	}()
	c.observe(ctx, r, start, err)
	return out, err
}

// exec sends r and discards the response body
func (c *Client) exec(ctx context.Context, r request) error {
	start := time.Now()
	resp, err := c.send(ctx, r)
	if err == nil {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}
	c.observe(ctx, r, start, err)
	return err
}

func (c *Client) observe(ctx context.Context, r request, start time.Time, err error) {
	elapsed := time.Since(start)
	sn_metrics.RemoteCallDurationMs.Get(sn_metrics.EndpointLabel{Endpoint: r.endpoint}).Put(float64(elapsed.Milliseconds()))
	outcome := "ok"
	if err != nil {
		outcome = apperror.Kind(apperror.Classify(err))
		c.logger.Debug("remote call failed", "endpoint", r.endpoint, "method", r.method, "msg", err.Error())
	}
	sn_metrics.RemoteCalls.Get(sn_metrics.CallLabel{Endpoint: r.endpoint, Outcome: outcome}).Inc()
}
