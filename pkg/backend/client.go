package backend

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/matzehuels/tracelane/pkg/errors"
	"github.com/matzehuels/tracelane/pkg/graph"
	"github.com/matzehuels/tracelane/pkg/httputil"
)

// Client speaks to a Server over HTTP. Queries that fail with a network
// error or a 5xx answer are retried with exponential backoff; commands are
// sent once. Error codes sent by the server are restored on the returned
// *errors.Error.
type Client struct {
	base     string
	http     *http.Client
	attempts int
	delay    time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithRetry sets the attempt count and initial backoff delay.
func WithRetry(attempts int, delay time.Duration) ClientOption {
	return func(c *Client) {
		c.attempts = attempts
		c.delay = delay
	}
}

// NewClient creates a client for the server at baseURL, e.g. "http://localhost:7420".
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		base:     strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: 30 * time.Second},
		attempts: 3,
		delay:    200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Timeslots implements Backend.
func (c *Client) Timeslots(ctx context.Context) (int, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/timeslots", nil)
	if err != nil {
		return 0, err
	}
	var resp timeslotsResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return 0, errors.Wrap(errors.ErrCodeMalformedPayload, err, "decode timeslots")
	}
	return resp.Timeslots, nil
}

// PartialGraph implements Backend. The payload is returned undecoded.
func (c *Client) PartialGraph(ctx context.Context, begin, end int) ([]byte, error) {
	q := url.Values{}
	q.Set("begin", fmt.Sprint(begin))
	q.Set("end", fmt.Sprint(end))
	return c.do(ctx, http.MethodGet, "/api/graph?"+q.Encode(), nil)
}

// ToggleModule implements Backend.
func (c *Client) ToggleModule(ctx context.Context, path []string, timestamp int) error {
	_, err := c.do(ctx, http.MethodPost, "/api/module/toggle", toggleRequest{Path: path, Timestamp: timestamp})
	return err
}

// SetNewHead implements Backend.
func (c *Client) SetNewHead(ctx context.Context, id graph.NodeID) error {
	_, err := c.do(ctx, http.MethodPost, "/api/head", nodeRequest{ID: &id})
	return err
}

// ResetHead implements Backend.
func (c *Client) ResetHead(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/api/head/reset", nil)
	return err
}

// OpenInEditor implements Backend.
func (c *Client) OpenInEditor(ctx context.Context, id graph.NodeID) error {
	_, err := c.do(ctx, http.MethodPost, "/api/editor", nodeRequest{ID: &id})
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, err
		}
	}

	// Commands are not idempotent: a toggle that was applied before its
	// answer got lost must not be applied again.
	attempts := c.attempts
	if method != http.MethodGet {
		attempts = 1
	}

	var out []byte
	err := httputil.Retry(ctx, attempts, c.delay, func() error {
		req, err := http.NewRequestWithContext(ctx, method, c.base+path, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &httputil.RetryableError{Err: errors.Wrap(errors.ErrCodeNetwork, err, "%s %s", method, path)}
		}
		defer resp.Body.Close()

		if err := httputil.CheckStatus(resp); err != nil {
			return remoteError(err)
		}
		out, err = io.ReadAll(resp.Body)
		if err != nil {
			return &httputil.RetryableError{Err: errors.Wrap(errors.ErrCodeNetwork, err, "read %s", path)}
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil && errors.GetCode(err) == "" {
			return nil, errors.Wrap(errors.ErrCodeTimeout, err, "%s %s", method, path)
		}
		return nil, err
	}
	return out, nil
}

// remoteError turns a StatusError carrying a server error body back into a
// coded error. Transient statuses stay retryable; 501 never is.
func remoteError(err error) error {
	var se *httputil.StatusError
	if !stderrors.As(err, &se) {
		return err
	}
	var body errorResponse
	if json.Unmarshal([]byte(se.Body), &body) != nil || body.Code == "" {
		return err
	}
	coded := &errors.Error{Code: body.Code, Message: body.Message, Cause: se}
	var retry *httputil.RetryableError
	if stderrors.As(err, &retry) && se.Code != http.StatusNotImplemented {
		return &httputil.RetryableError{Err: coded, After: retry.After}
	}
	return coded
}

var _ Backend = (*Client)(nil)
