// Package backend is the HTTP client for the remote CyberXpert REST API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"cyberxpert/internal/domain"
)

var _ domain.Backend = (*Client)(nil)

// Client talks to the backend over HTTP with bearer-token authentication.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewClient creates a Client. The trailing slash of baseURL is dropped.
func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithToken returns a copy of c authenticating with token.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.Token = token
	return &cp
}

// APIError is a non-2xx response the client has no domain error for.
type APIError struct {
	HTTPStatus int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (HTTP %d): %s", e.HTTPStatus, e.Message)
}

// Do sends a request to path under BaseURL. A non-nil body is encoded as JSON.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body interface{}) (*http.Response, error) {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	return resp, nil
}

// ReadBody reads and closes the response body.
func ReadBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close() //nolint:errcheck
	return io.ReadAll(resp.Body)
}

// CheckError returns nil for 2xx responses. Otherwise it consumes the body and
// maps the status to a domain error.
func CheckError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := ReadBody(resp)
	msg := errorMessage(body)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return domain.ErrUnauthenticated("%s", msg)
	case http.StatusForbidden:
		return domain.ErrAccessDenied("%s", msg)
	case http.StatusNotFound:
		return domain.ErrNotFound("%s", msg)
	case http.StatusBadRequest:
		return domain.ErrValidation("%s", msg)
	case http.StatusConflict:
		return domain.ErrConflict("%s", msg)
	default:
		return &APIError{HTTPStatus: resp.StatusCode, Message: msg}
	}
}

// errorMessage extracts a human-readable message from a DRF-style error body:
// {"detail": ...}, {"error": ...}, {"message": ...}, or field errors such as
// {"email": ["already taken"]}. Unstructured bodies are returned verbatim.
func errorMessage(body []byte) string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return strings.TrimSpace(string(body))
	}
	for _, key := range []string{"detail", "error", "message"} {
		if raw, ok := obj[key]; ok {
			var s string
			if json.Unmarshal(raw, &s) == nil && s != "" {
				return s
			}
		}
	}
	for _, field := range slices.Sorted(maps.Keys(obj)) {
		var msgs []string
		if json.Unmarshal(obj[field], &msgs) == nil && len(msgs) > 0 {
			return field + ": " + msgs[0]
		}
	}
	return strings.TrimSpace(string(body))
}

// call performs a request and decodes a 2xx JSON response into out, which may
// be nil when the body is irrelevant.
func (c *Client) call(ctx context.Context, method, path string, body, out interface{}) error {
	resp, err := c.Do(ctx, method, path, nil, body)
	if err != nil {
		return err
	}
	if err := CheckError(resp); err != nil {
		return err
	}
	data, err := ReadBody(resp)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response from %s %s: %w", method, path, err)
	}
	return nil
}

// maxPages bounds how many pages a single list call follows.
const maxPages = 100

// listPage decodes either a bare JSON array or a paginated
// {"results": [...], "next": ...} envelope.
type listPage[T any] struct {
	Items []T
	Next  string
}

func (l *listPage[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		return json.Unmarshal(data, &l.Items)
	}
	var page struct {
		Results []T     `json:"results"`
		Next    *string `json:"next"`
	}
	if err := json.Unmarshal(data, &page); err != nil {
		return err
	}
	if page.Results == nil {
		return errors.New("expected a list or a results envelope")
	}
	l.Items = page.Results
	if page.Next != nil {
		l.Next = *page.Next
	}
	return nil
}

// listAll GETs path and follows "next" links until the last page.
func listAll[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	var items []T
	for pages := 0; path != ""; pages++ {
		if pages == maxPages {
			return nil, fmt.Errorf("list %s: more than %d pages", path, maxPages)
		}
		var page listPage[T]
		if err := c.call(ctx, http.MethodGet, path, nil, &page); err != nil {
			return nil, err
		}
		items = append(items, page.Items...)
		if page.Next == "" {
			break
		}
		next, err := c.pathFor(page.Next)
		if err != nil {
			return nil, err
		}
		path = next
	}
	return items, nil
}

// pathFor turns a pagination link into a path relative to BaseURL. Links that
// leave the backend are rejected so the bearer token stays with it.
func (c *Client) pathFor(link string) (string, error) {
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse base URL: %w", err)
	}
	ref, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("parse next link %q: %w", link, err)
	}
	u := base.ResolveReference(ref)
	if u.Scheme != base.Scheme || u.Host != base.Host {
		return "", fmt.Errorf("next link %q points outside %s", link, c.BaseURL)
	}
	rel, ok := strings.CutPrefix(u.EscapedPath(), strings.TrimRight(base.EscapedPath(), "/"))
	if !ok || !strings.HasPrefix(rel, "/") {
		return "", fmt.Errorf("next link %q points outside %s", link, c.BaseURL)
	}
	if u.RawQuery != "" {
		rel += "?" + u.RawQuery
	}
	return rel, nil
}
