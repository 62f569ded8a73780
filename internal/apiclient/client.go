// Package apiclient is the single HTTP client for the marketplace REST API.
//
// Every request carries the stored bearer token and the session cookies. A 401
// triggers one refresh through the httpOnly refresh cookie followed by one
// replay of the original request; anything after that is the caller's problem.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/niravGanatra/uparwala-sub002/pkg/circuitbreaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"
)

const (
	RefreshPath    = "/auth/token/refresh/"
	csrfCookieName = "csrftoken"
	csrfHeaderName = "X-CSRFToken"
)

// TokenStore is where the bearer token lives between requests.
type TokenStore interface {
	AccessToken(ctx context.Context) (string, error)
	SetAccessToken(ctx context.Context, token string) error
}

type Client struct {
	baseURL *url.URL
	http    *http.Client
	tokens  TokenStore
	breaker *circuitbreaker.Breaker[*http.Response]
	logger  *slog.Logger
	refresh singleflight.Group
}

type Option func(*Client)

func WithTokenStore(ts TokenStore) Option {
	return func(c *Client) { c.tokens = ts }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithBreaker trips after failures consecutive transport errors or 5xx
// answers and rejects calls for cooldown.
func WithBreaker(failures uint32, cooldown time.Duration) Option {
	return func(c *Client) {
		c.breaker = circuitbreaker.New[*http.Response](circuitbreaker.Config{
			Name:                "marketplace-api",
			ConsecutiveFailures: failures,
			Cooldown:            cooldown,
			IsFailure:           isBreakerFailure,
			Logger:              c.logger,
		})
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid api base url %q", baseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL: u,
		http: &http.Client{
			Jar:       jar,
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.http.Jar == nil {
		c.http.Jar = jar
	}
	return c, nil
}

func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// Cookies returns the cookies the client would send to the API.
func (c *Client) Cookies() []*http.Cookie {
	return c.http.Jar.Cookies(c.baseURL)
}

// SetCookies stores cookies (for instance the refresh cookie obtained at login)
// for the API origin.
func (c *Client) SetCookies(cookies []*http.Cookie) {
	c.http.Jar.SetCookies(c.baseURL, cookies)
}

func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, nil, body, out)
}

func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPatch, path, nil, body, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil, out)
}

// Do sends one API call. body is JSON encoded when non-nil, the response is
// decoded into out when out is non-nil and the response has a body.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body failed: %w", err)
		}
		payload = b
	}

	status, respBody, err := c.send(ctx, method, path, query, payload)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized && path != RefreshPath {
		if rerr := c.refreshToken(ctx); rerr != nil {
			c.logger.DebugContext(ctx, "token refresh failed", "path", path, "error", rerr)
			return newAPIError(status, respBody)
		}
		status, respBody, err = c.send(ctx, method, path, query, payload)
		if err != nil {
			return err
		}
	}
	if status < 200 || status > 299 {
		return newAPIError(status, respBody)
	}
	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode %s %s response failed: %w", method, path, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, payload []byte) (int, []byte, error) {
	req, err := c.newRequest(ctx, method, path, query, payload)
	if err != nil {
		return 0, nil, err
	}
	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, &TransportError{Err: err}
		}
		if resp.StatusCode >= 500 {
			return resp, errServerFailure
		}
		return resp, nil
	})
	if err != nil && !errors.Is(err, errServerFailure) {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, &TransportError{Err: fmt.Errorf("read response body: %w", err)}
	}
	return resp.StatusCode, respBody, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, payload []byte) (*http.Request, error) {
	u := c.baseURL.JoinPath(path)
	// JoinPath drops a trailing slash the API needs
	if strings.HasSuffix(path, "/") && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request failed: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.tokens != nil {
		tok, err := c.tokens.AccessToken(ctx)
		if err != nil {
			c.logger.WarnContext(ctx, "read access token failed", "error", err)
		} else if tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	if !isSafeMethod(method) {
		for _, ck := range c.http.Jar.Cookies(u) {
			if ck.Name == csrfCookieName {
				req.Header.Set(csrfHeaderName, ck.Value)
				break
			}
		}
	}
	return req, nil
}

type refreshResponse struct {
	Access string `json:"access"`
}

// refreshToken asks the API for a new access token using the refresh cookie.
// Concurrent 401s share one refresh call.
func (c *Client) refreshToken(ctx context.Context) error {
	_, err, _ := c.refresh.Do("refresh", func() (any, error) {
		var out refreshResponse
		status, body, err := c.send(ctx, http.MethodPost, RefreshPath, nil, nil)
		if err != nil {
			return nil, err
		}
		if status < 200 || status > 299 {
			return nil, newAPIError(status, body)
		}
		if len(bytes.TrimSpace(body)) > 0 {
			if err := json.Unmarshal(body, &out); err != nil {
				return nil, fmt.Errorf("decode refresh response failed: %w", err)
			}
		}
		if out.Access != "" && c.tokens != nil {
			if err := c.tokens.SetAccessToken(ctx, out.Access); err != nil {
				return nil, fmt.Errorf("store refreshed token failed: %w", err)
			}
		}
		return nil, nil
	})
	return err
}

var errServerFailure = errors.New("server failure")

func isBreakerFailure(err error) bool {
	var te *TransportError
	return errors.Is(err, errServerFailure) || errors.As(err, &te)
}

func isSafeMethod(m string) bool {
	switch m {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}
