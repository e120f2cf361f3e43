package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jrsteele09/medix-console/internal/errors"
	"github.com/jrsteele09/medix-console/sessions"
	"github.com/jrsteele09/medix-console/token/refresh"
)

// RefreshPath is the remote endpoint trading a refresh token for a new access token
const RefreshPath = "/auth/refresh/"

// Request describes one call to the remote API. Path is relative to the API base URL.
type Request struct {
	Method   string
	Path     string
	Query    url.Values
	Body     any  // encoded as JSON when non-nil
	SkipAuth bool // no bearer and no refresh-and-retry
}

// Doer sends requests to the remote API and decodes 2xx JSON bodies into out (when non-nil)
type Doer interface {
	Do(ctx context.Context, req Request, out any) error
}

// Client is the shared transport to the remote API
type Client struct {
	baseURL    string
	httpClient *http.Client
	refresher  *refresh.Manager
	metrics    *Metrics
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient = &http.Client{Timeout: timeout}
	}
}

func WithMetrics(metrics *Metrics) Option {
	return func(c *Client) {
		c.metrics = metrics
	}
}

func New(baseURL string, options ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range options {
		opt(c)
	}
	c.refresher = refresh.NewManager(c.exchangeRefreshToken)
	return c
}

var _ Doer = (*Client)(nil)

// Do sends an unauthenticated request (login, registration)
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	req.SkipAuth = true
	body, err := encodeBody(req.Body)
	if err != nil {
		return err
	}
	resp, err := c.send(ctx, req, body, "")
	if err != nil {
		return err
	}
	return decode(req, resp, out)
}

// Bind returns a Doer that authenticates with the credentials in store.
// onExpired runs after store has been cleared because a refresh failed.
func (c *Client) Bind(store sessions.TokenStore, onExpired func()) *Session {
	return &Session{client: c, store: store, onExpired: onExpired}
}

func (c *Client) exchangeRefreshToken(ctx context.Context, refreshToken string) (string, error) {
	var payload struct {
		Access string `json:"access"`
	}
	err := c.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   RefreshPath,
		Body:   map[string]string{"refresh": refreshToken},
	}, &payload)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errors.ErrRefreshFailed, err)
	}
	return payload.Access, nil
}

type response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (c *Client) send(ctx context.Context, req Request, body []byte, accessToken string) (*response, error) {
	target := c.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("[gateway] build %s %s: %w", req.Method, req.Path, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" && !req.SkipAuth {
		sessions.Pair{AccessToken: accessToken}.OAuth2().SetAuthHeader(httpReq)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.request(req.Method, 0)
		return nil, fmt.Errorf("[gateway] %s %s: %w", req.Method, req.Path, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		c.metrics.request(req.Method, 0)
		return nil, fmt.Errorf("[gateway] read %s %s: %w", req.Method, req.Path, err)
	}
	c.metrics.request(req.Method, httpResp.StatusCode)

	return &response{StatusCode: httpResp.StatusCode, Header: httpResp.Header, Body: data}, nil
}

func encodeBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	if raw, ok := body.(json.RawMessage); ok {
		return raw, nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("[gateway] encode body: %w", err)
	}
	return data, nil
}

func decode(req Request, resp *response, out any) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newStatusError(req.Method, req.Path, resp)
	}
	if out == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], resp.Body...)
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("[gateway] decode %s %s: %w", req.Method, req.Path, err)
	}
	return nil
}
