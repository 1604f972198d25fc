package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	http "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/diogo/codechat/internal/config"
	apierrors "github.com/diogo/codechat/internal/errors"
	"github.com/diogo/codechat/internal/models"
)

// maxBodySize caps how much of a response body is read
const maxBodySize = 8 << 20

// HTTPDoer is the part of tls_client.HttpClient the backend client uses
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// BackendClient talks to the chat backend. Every method performs exactly one
// HTTP exchange and never retries.
type BackendClient struct {
	httpClient HTTPDoer
	baseURL    string
	cookies    *config.Cookies
	timeout    time.Duration
	newID      func() string
	mu         sync.RWMutex
}

// ClientOption is a function that configures the client
type ClientOption func(*BackendClient)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(doer HTTPDoer) ClientOption {
	return func(c *BackendClient) {
		c.httpClient = doer
	}
}

// WithCookies sets the cookies attached to every request
func WithCookies(cookies *config.Cookies) ClientOption {
	return func(c *BackendClient) {
		c.cookies = cookies
	}
}

// WithBaseURL overrides the configured base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *BackendClient) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithRequestIDFunc sets the generator for X-Request-ID values
func WithRequestIDFunc(fn func() string) ClientOption {
	return func(c *BackendClient) {
		c.newID = fn
	}
}

// NewClient creates a new BackendClient
func NewClient(cfg config.Config, opts ...ClientOption) (*BackendClient, error) {
	client := &BackendClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout(),
		newID:   uuid.NewString,
	}
	if client.baseURL == "" {
		client.baseURL = models.DefaultBaseURL
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.httpClient == nil {
		options := []tls_client.HttpClientOption{
			tls_client.WithTimeoutSeconds(int(client.timeout / time.Second)),
			tls_client.WithClientProfile(profiles.Chrome_120),
			tls_client.WithNotFollowRedirects(),
		}

		httpClient, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), options...)
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP client: %w", err)
		}
		client.httpClient = httpClient
	}

	return client, nil
}

// BaseURL returns the backend root URL
func (c *BackendClient) BaseURL() string {
	return c.baseURL
}

// GetCookies returns the current cookies
func (c *BackendClient) GetCookies() *config.Cookies {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cookies
}

// SetCookies replaces the cookies attached to requests
func (c *BackendClient) SetCookies(cookies *config.Cookies) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cookies = cookies
}

// exchange is the raw result of one request
type exchange struct {
	status int
	body   []byte
}

// ok reports whether the HTTP status is 2xx
func (e exchange) ok() bool {
	return e.status >= 200 && e.status < 300
}

// do performs a single request against endpoint. body is sent as JSON when
// non-nil. Only transport failures are returned as errors; HTTP status
// handling is up to the caller.
func (c *BackendClient) do(ctx context.Context, method, endpoint string, body []byte) (exchange, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return exchange{}, apierrors.NewNetworkError(endpoint, err)
	}

	for key, value := range models.DefaultHeaders() {
		req.Header.Set(key, value)
	}
	requestID := c.newID()
	req.Header.Set("X-Request-ID", requestID)

	for name, value := range c.GetCookies().ToMap() {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug().Str("endpoint", endpoint).Str("request_id", requestID).Err(err).Msg("request failed")
		if isTimeout(ctx, err) {
			return exchange{}, apierrors.NewTimeoutError(endpoint, err)
		}
		return exchange{}, apierrors.NewNetworkError(endpoint, err)
	}
	defer func() {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return exchange{}, apierrors.NewNetworkError(endpoint, fmt.Errorf("read response body: %w", err))
	}

	log.Debug().
		Str("endpoint", endpoint).
		Str("request_id", requestID).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("backend exchange")

	return exchange{status: resp.StatusCode, body: data}, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if ctx.Err() == context.DeadlineExceeded {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return strings.Contains(err.Error(), "Client.Timeout exceeded")
}
