// Package repository is the remote data gateway: typed wrappers around the
// hosted backend's auth, table, storage and function endpoints. It owns no
// state and never swallows a backend error.
package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"lovenest/internal/apperr"
)

// Client talks to the backend REST surface
type Client struct {
	baseURL *url.URL
	apiKey  string
	http    *http.Client

	mu          sync.RWMutex
	accessToken string
}

// NewClient creates a backend client. A nil httpClient gets a 30s timeout.
func NewClient(baseURL, apiKey string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid backend url %q", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: u, apiKey: apiKey, http: httpClient}, nil
}

// BaseURL returns the backend root
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// APIKey returns the public anon key
func (c *Client) APIKey() string { return c.apiKey }

// SetAccessToken sets the bearer token sent with every request. An empty
// token falls back to the anon key.
func (c *Client) SetAccessToken(token string) {
	c.mu.Lock()
	c.accessToken = token
	c.mu.Unlock()
}

// AccessToken returns the current bearer token
func (c *Client) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

// request describes one backend call
type request struct {
	op      string
	method  string
	path    string
	query   url.Values
	headers map[string]string
	body    any
	auth    bool // errors map to AuthError instead of RemoteError
}

// errorBody covers the error shapes of the REST, auth and function endpoints
type errorBody struct {
	Message          string `json:"message"`
	Msg              string `json:"msg"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Code             any    `json:"code"`
	Details          string `json:"details"`
	Hint             string `json:"hint"`
}

func (e errorBody) text() string {
	for _, s := range []string{e.ErrorDescription, e.Message, e.Msg, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

// do sends req and decodes a 2xx JSON response into out (when non-nil)
func (c *Client) do(ctx context.Context, req request, out any) error {
	u := c.baseURL.JoinPath(req.path)
	if len(req.query) > 0 {
		u.RawQuery = req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("failed to marshal %s request: %w", req.op, err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u.String(), body)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", req.op, err)
	}
	httpReq.Header.Set("apikey", c.apiKey)
	httpReq.Header.Set("Authorization", "Bearer "+c.bearer())
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return apperr.Remote(req.op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.Remote(req.op, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.responseError(req, resp.StatusCode, raw)
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apperr.Remote(req.op, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

func (c *Client) bearer() string {
	if token := c.AccessToken(); token != "" {
		return token
	}
	return c.apiKey
}

func (c *Client) responseError(req request, status int, raw []byte) error {
	var eb errorBody
	_ = json.Unmarshal(raw, &eb)
	msg := eb.text()
	if msg == "" {
		msg = strings.TrimSpace(string(raw))
	}
	if msg == "" {
		msg = http.StatusText(status)
	}

	if req.auth && status >= 400 && status < 500 {
		return apperr.Auth(req.op, msg, nil)
	}
	if status == http.StatusUnauthorized {
		return apperr.Auth(req.op, msg, nil)
	}

	code := ""
	if eb.Code != nil {
		code = fmt.Sprint(eb.Code)
	}
	return &apperr.RemoteError{Op: req.op, Status: status, Code: code, Message: msg}
}
