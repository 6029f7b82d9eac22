// Package categories is a client for a remote text-categorization service
// exposing POST /categories.
package categories

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	ServicePath = "/categories"

	DefaultTimeout   = 30 * time.Second
	defaultUserAgent = "catenrich/1.0"
	apiKeyHeader     = "X-RosetteAPI-Key"
	maxErrorBody     = 64 << 10
)

// Client calls the categories endpoint. A Client is safe for concurrent use
// and is meant to be built once and shared.
type Client struct {
	baseURL    string
	apiKey     string
	userAgent  string
	httpClient *http.Client
	tracer     trace.Tracer
}

type Option func(*Client)

func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient replaces the underlying transport client. Its Timeout is
// left untouched.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout bounds every call, including reading the response body.
// Zero disables the client-side timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.httpClient
		hc.Timeout = d
		c.httpClient = &hc
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient returns a Client for the service rooted at baseURL
// (e.g. "https://api.example.com/rest/v1").
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("categories: base URL is required")
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  defaultUserAgent,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		tracer:     otel.Tracer("catenrich/pkg/categories"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Categorize performs one request. Every failure is returned as *APIError.
func (c *Client) Categorize(ctx context.Context, req Request) (*Response, error) {
	ctx, span := c.tracer.Start(ctx, "categories.Categorize",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.Int("categories.content_length", len(req.Content))),
	)
	defer span.End()

	resp, err := c.do(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("categories.count", len(resp.Categories)))
	return resp, nil
}

func (c *Client) do(ctx context.Context, req Request) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, &APIError{Code: CodeInvalidResponse, Message: fmt.Sprintf("encode request: %v", err), Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ServicePath, bytes.NewReader(body))
	if err != nil {
		return nil, &APIError{Code: CodeTransport, Message: err.Error(), Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	if c.apiKey != "" {
		httpReq.Header.Set(apiKeyHeader, c.apiKey)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &APIError{Code: CodeTransport, Message: err.Error(), Err: err}
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, decodeError(httpResp)
	}

	var out Response
	if err := json.NewDecoder(httpResp.Body).Decode(&out); err != nil {
		return nil, &APIError{
			StatusCode: httpResp.StatusCode,
			Code:       CodeInvalidResponse,
			Message:    fmt.Sprintf("malformed response body: %v", err),
			Err:        err,
		}
	}
	return &out, nil
}

// decodeError reads the service's {code, message} error body, falling back
// to the HTTP status when the body carries nothing useful.
func decodeError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	_ = json.Unmarshal(raw, apiErr)
	if apiErr.Code == "" {
		apiErr.Code = strings.ReplaceAll(strings.ToLower(http.StatusText(resp.StatusCode)), " ", "_")
	}
	if apiErr.Message == "" {
		if text := strings.TrimSpace(string(raw)); text != "" && !json.Valid(raw) {
			apiErr.Message = text
		} else {
			apiErr.Message = resp.Status
		}
	}
	return apiErr
}
