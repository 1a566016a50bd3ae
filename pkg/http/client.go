package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	MethodGet  = http.MethodGet
	MethodPost = http.MethodPost
)

// ClientOption configures Client.
type ClientOption func(*Client)

// RequestOptions holds HTTP request parameters.
type RequestOptions struct {
	Method      string
	URL         string
	Headers     map[string]string
	QueryParams map[string]string
	Body        interface{}
}

// Client is a JSON client over resty.
type Client struct {
	timeout   time.Duration
	userAgent string
	rc        *resty.Client
}

// NewClient creates a new HTTP client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{timeout: 30 * time.Second}
	for _, opt := range opts {
		opt(c)
	}

	c.rc = resty.New().SetTimeout(c.timeout)
	if c.userAgent != "" {
		c.rc.SetHeader("User-Agent", c.userAgent)
	}
	return c
}

// Send issues the request and returns the raw body for 2xx replies.
func (c *Client) Send(ctx context.Context, opts *RequestOptions) ([]byte, error) {
	req := c.rc.R().SetContext(ctx).SetHeaders(opts.Headers).SetQueryParams(opts.QueryParams)
	if opts.Body != nil {
		req.SetBody(opts.Body)
	}

	method := opts.Method
	if method == "" {
		method = MethodGet
	}
	resp, err := req.Execute(method, opts.URL)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, &StatusError{Code: resp.StatusCode(), Body: string(resp.Body())}
	}
	return resp.Body(), nil
}

// SendAndParse sends request and decodes the JSON reply into dest.
func (c *Client) SendAndParse(ctx context.Context, opts *RequestOptions, dest interface{}) error {
	body, err := c.Send(ctx, opts)
	if err != nil {
		return err
	}
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}

// StatusError is a non-2xx reply.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// WithTimeout sets client timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithUserAgent sets the User-Agent header on every request.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}
