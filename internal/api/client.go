// internal/api/client.go
//
// HTTP client for the dogcfg web API.
//
// Context
// -------
// `Client` is the concrete Transport used by the editor Coordinator.  It
// knows two verbs only:
//
//   - `Get`   JSON response decoded into a caller-supplied value.
//   - `Patch` raw text body, JSON response checked for an error object.
//
// Non-2xx responses become *Error.  When the server sends its usual
// `{error, message, code}` object, `Error()` returns the message verbatim so
// the editor can show it to the operator unchanged.
//
// Notes
// -----
//   - The underlying *http.Client comes from go-cleanhttp: pooled, no shared
//     global state, sane dial and TLS timeouts.
//   - No retries.  A failed save is retried by the operator, not by us.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
)

// maxBody caps how much of a response we read.
const maxBody = 4 << 20

// Error is a non-2xx response.
type Error struct {
	Status     int
	StatusText string
	Code       string // server error code, e.g. INVALID_YAML
	Message    string // server message, shown verbatim
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("HTTP %d (%s)", e.Status, e.StatusText)
}

// errorBody mirrors the server's error object.
type errorBody struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Client is safe for concurrent use.
type Client struct {
	base    *url.URL
	http    *http.Client
	header  http.Header
	timeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the pooled cleanhttp client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout sets the per-request timeout.  It applies to whichever
// http.Client the Client ends up with, regardless of option order.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithHeader adds a header sent on every request, e.g. a session cookie
// obtained elsewhere.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.header.Add(key, value) }
}

// New returns a Client rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("api: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api: base url %q must be http or https", baseURL)
	}

	c := &Client{
		base:   u,
		http:   cleanhttp.DefaultPooledClient(),
		header: make(http.Header),
	}
	for _, o := range opts {
		o(c)
	}
	if c.timeout > 0 {
		hc := *c.http
		hc.Timeout = c.timeout
		c.http = &hc
	}
	return c, nil
}

// Get fetches route and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, route string, out any) error {
	req, err := c.request(ctx, http.MethodGet, route, nil)
	if err != nil {
		return err
	}
	body, err := c.do(req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

// Patch sends body as raw text to route.
func (c *Client) Patch(ctx context.Context, route string, body string) error {
	req, err := c.request(ctx, http.MethodPatch, route, strings.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	_, err = c.do(req)
	return err
}

func (c *Client) request(ctx context.Context, method, route string, body io.Reader) (*http.Request, error) {
	ref, err := url.Parse(route)
	if err != nil {
		return nil, fmt.Errorf("api: parse route %q: %w", route, err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base.ResolveReference(ref).String(), body)
	if err != nil {
		return nil, err
	}
	for k, vs := range c.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do executes req and returns the body of a 2xx response.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w", req.Method, req.URL.Path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{
			Status:     resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
		}
		var eb errorBody
		if json.Unmarshal(body, &eb) == nil {
			apiErr.Code = eb.Code
			apiErr.Message = eb.Message
		}
		return nil, apiErr
	}
	return body, nil
}
