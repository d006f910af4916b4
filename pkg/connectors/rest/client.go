// Package rest implements the generic REST connector and the HTTP plumbing
// shared with the narrow SaaS connectors.
package rest

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chartops/chart-engine/pkg/connectors"
)

// DefaultTimeout is the maximum time to wait for a source response.
const DefaultTimeout = 30 * time.Second

// Client wraps an http.Client with base URL handling, auth headers and JSON
// decoding for one external API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	headers    map[string]string
}

// NewClient creates a client for the given base URL. The headers map is
// applied to every request (authorization, content negotiation).
func NewClient(baseURL string, headers map[string]string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		headers: headers,
	}
}

// ClientFromConfig builds a client from a connection's decrypted config map.
// Supported auth shapes: {"auth": {"type": "bearer", "token": ...}} and
// {"auth": {"type": "basic", "user": ..., "pass": ...}}.
func ClientFromConfig(config map[string]any) (*Client, error) {
	host, ok := config["host"].(string)
	if !ok || host == "" {
		return nil, fmt.Errorf("host is required")
	}

	headers := map[string]string{
		"Accept": "application/json",
	}

	if rawHeaders, ok := config["headers"].(map[string]any); ok {
		for k, v := range rawHeaders {
			if s, ok := v.(string); ok {
				headers[k] = s
			}
		}
	}

	if auth, ok := config["auth"].(map[string]any); ok {
		switch auth["type"] {
		case "bearer":
			if token, ok := auth["token"].(string); ok && token != "" {
				headers["Authorization"] = "Bearer " + token
			}
		case "basic":
			user, _ := auth["user"].(string)
			pass, _ := auth["pass"].(string)
			credentials := base64.StdEncoding.EncodeToString([]byte(user + ":" + pass))
			headers["Authorization"] = "Basic " + credentials
		}
	}

	return NewClient(host, headers), nil
}

// Do executes one request and decodes the JSON response body. A non-empty
// body is sent as application/json unless the client's headers say
// otherwise. A non-2xx status or a malformed body is returned as a
// *connectors.RequestError carrying the original status and message.
func (c *Client) Do(ctx context.Context, method, route string, body string, query url.Values) (any, error) {
	return c.do(ctx, method, route, body, "application/json", query)
}

// DoForm posts form-encoded values and decodes the JSON response body.
func (c *Client) DoForm(ctx context.Context, route string, form url.Values) (any, error) {
	return c.do(ctx, http.MethodPost, route, form.Encode(), "application/x-www-form-urlencoded", nil)
}

func (c *Client) do(ctx context.Context, method, route, body, contentType string, query url.Values) (any, error) {
	endpoint, err := c.buildURL(route, query)
	if err != nil {
		return nil, fmt.Errorf("failed to build URL: %w", err)
	}

	var reqBody io.Reader
	if body != "" {
		reqBody = bytes.NewBufferString(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	if body != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &connectors.RequestError{Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, &connectors.RequestError{StatusCode: resp.StatusCode, Message: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &connectors.RequestError{
			StatusCode: resp.StatusCode,
			Message:    snippet(raw),
		}
	}

	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &connectors.RequestError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("malformed JSON response: %v", err),
		}
	}

	return parsed, nil
}

// buildURL joins the base URL with a route and query parameters. Absolute
// routes override the base URL entirely.
func (c *Client) buildURL(route string, query url.Values) (string, error) {
	full := route
	if !strings.HasPrefix(route, "http://") && !strings.HasPrefix(route, "https://") {
		full = c.baseURL + "/" + strings.TrimLeft(route, "/")
	}

	u, err := url.Parse(full)
	if err != nil {
		return "", err
	}

	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Set(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	return u.String(), nil
}

// snippet trims a response body to a loggable message.
func snippet(raw []byte) string {
	const max = 512
	s := strings.TrimSpace(string(raw))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
