package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultTimeout = 30 * time.Second
	maxErrorBody   = 64 << 10
)

// Request describes one JSON call relative to the client's base URL.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   any
}

// Client performs JSON requests against one upstream API.
type Client struct {
	provider Provider
	baseURL  string
	http     *http.Client
	header   http.Header
}

// NewClient returns a Client for baseURL. A zero timeout uses DefaultTimeout.
func NewClient(provider Provider, baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		provider: provider,
		baseURL:  strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:     &http.Client{Timeout: timeout},
		header:   http.Header{},
	}
}

// HTTPClient exposes the underlying client so token exchanges share its timeout.
func (c *Client) HTTPClient() *http.Client { return c.http }

// SetHeader sets a header sent on every request.
func (c *Client) SetHeader(key, value string) {
	c.header.Set(key, value)
}

// Do sends req and decodes a 2xx JSON body into out when out is non-nil.
// Non-2xx responses and transport failures return *UpstreamError.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	ctx, span := otel.Tracer("ordersync/integration").Start(ctx, string(c.provider)+" "+method+" "+req.Path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("provider", string(c.provider)),
			attribute.String("http.method", method),
		),
	)
	defer span.End()

	err := c.do(ctx, method, req, out, span)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upstream request failed")
	}
	return err
}

func (c *Client) do(ctx context.Context, method string, req Request, out any, span trace.Span) error {
	endpoint := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		endpoint += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", c.provider, err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return &UpstreamError{Provider: c.provider, Err: err}
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for key, values := range c.header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	for key, values := range req.Header {
		httpReq.Header.Del(key)
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return &UpstreamError{Provider: c.provider, Err: err}
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &UpstreamError{
			Provider:   c.provider,
			StatusCode: resp.StatusCode,
			Message:    ErrorMessage(raw),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return &UpstreamError{
			Provider:   c.provider,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("decode %s response: %w", c.provider, err),
		}
	}
	return nil
}

// ErrorMessage extracts the human readable message from an upstream error
// body, falling back to the trimmed raw body.
func ErrorMessage(raw []byte) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return ""
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return trimmed
	}

	if msg := stringField(payload, "message"); msg != "" {
		return msg
	}
	switch v := payload["error"].(type) {
	case string:
		if desc := stringField(payload, "error_description"); desc != "" {
			return desc
		}
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	case map[string]any:
		if msg := stringField(v, "message"); msg != "" {
			return msg
		}
	}
	if list, ok := payload["errors"].([]any); ok && len(list) > 0 {
		if first, ok := list[0].(map[string]any); ok {
			for _, key := range []string{"details", "message", "code"} {
				if msg := stringField(first, key); msg != "" {
					return msg
				}
			}
		}
	}
	return trimmed
}

func stringField(m map[string]any, key string) string {
	v, ok := m[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}
