// Package gocardless reads booked transactions and balances from the
// GoCardless Bank Account Data API (formerly Nordigen).
package gocardless

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"bankbot/internal/cache"
	"bankbot/internal/log"
	"bankbot/internal/ratelimit"
)

const (
	tokenKey           = "access"
	tokenExpiryMargin  = 60 * time.Second
	defaultHTTPTimeout = 60 * time.Second
)

// Config holds the client credentials and limits.
type Config struct {
	SecretID  string
	SecretKey string
	BaseURL   string
	// DailyLimit caps calls per account and endpoint per 24h. Zero disables
	// the local budget.
	DailyLimit int
}

// Client talks to the GoCardless API. It is safe for concurrent use.
type Client struct {
	config  Config
	client  *http.Client
	tokens  cache.Cache[string]
	limiter *ratelimit.Limiter
	logger  *log.Logger
	now     func() time.Time

	// serializes token refreshes
	tokenMu sync.Mutex
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default client with its 60s timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.client = c }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// WithClock sets the time source for token expiry and the rate budget.
func WithClock(now func() time.Time) Option {
	return func(cl *Client) { cl.now = now }
}

// NewClient creates a new GoCardless client
func NewClient(config Config, opts ...Option) *Client {
	c := &Client{
		config: config,
		client: &http.Client{Timeout: defaultHTTPTimeout},
		logger: log.Discard(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.config.BaseURL = strings.TrimRight(c.config.BaseURL, "/")
	c.logger = c.logger.WithComponent(log.ComponentGoCardless)
	c.tokens = cache.NewLRUCacheWithClock[string](1, time.Hour, c.now)
	c.limiter = ratelimit.NewLimiterWithClock(ratelimit.Config{
		Requests: config.DailyLimit,
		Window:   24 * time.Hour,
	}, c.now)
	return c
}

type tokenRequest struct {
	SecretID  string `json:"secret_id"`
	SecretKey string `json:"secret_key"`
}

type tokenResponse struct {
	Access        string `json:"access"`
	AccessExpires int    `json:"access_expires"`
}

// accessToken returns a cached access token, requesting a new one when the
// cached token is missing or about to expire.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	if token, ok := c.tokens.Get(tokenKey); ok {
		return token, nil
	}

	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	if token, ok := c.tokens.Get(tokenKey); ok {
		return token, nil
	}

	payload, err := json.Marshal(tokenRequest{SecretID: c.config.SecretID, SecretKey: c.config.SecretKey})
	if err != nil {
		return "", fmt.Errorf("failed to encode token request: %w", err)
	}

	var resp tokenResponse
	if err := c.send(ctx, http.MethodPost, "token/new/", payload, "", &resp); err != nil {
		return "", fmt.Errorf("failed to obtain access token: %w", err)
	}
	if resp.Access == "" {
		return "", fmt.Errorf("failed to obtain access token: empty token in response")
	}

	ttl := time.Duration(resp.AccessExpires)*time.Second - tokenExpiryMargin
	if ttl <= 0 {
		ttl = time.Duration(resp.AccessExpires) * time.Second
	}
	c.tokens.SetWithTTL(tokenKey, resp.Access, ttl)
	c.logger.DebugContext(ctx, "Access token refreshed", "expires_in", ttl.String())
	return resp.Access, nil
}

// request performs an authenticated call. A 401 drops the cached token and
// retries once with a fresh one.
func (c *Client) request(ctx context.Context, method, endpoint string, payload []byte, ret any) error {
	for attempt := 0; ; attempt++ {
		token, err := c.accessToken(ctx)
		if err != nil {
			return err
		}

		err = c.send(ctx, method, endpoint, payload, token, ret)
		if apiErr, ok := asAPIError(err); ok && apiErr.StatusCode == http.StatusUnauthorized && attempt == 0 {
			c.logger.DebugContext(ctx, "Access token rejected, retrying with a new one")
			c.tokens.Delete(tokenKey)
			continue
		}
		return err
	}
}

func (c *Client) send(ctx context.Context, method, endpoint string, payload []byte, token string, ret any) error {
	uri := fmt.Sprintf("%s/%s", c.config.BaseURL, endpoint)

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, uri, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := c.now()
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "GoCardless request",
		"method", method,
		"endpoint", endpoint,
		log.FieldStatusCode, resp.StatusCode,
		log.FieldDuration, c.now().Sub(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}

	if ret != nil {
		if err := json.NewDecoder(resp.Body).Decode(ret); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// spend takes one call from the budget of accountID's endpoint.
func (c *Client) spend(accountID, endpoint string) error {
	key := accountID + "/" + endpoint
	if c.limiter.Allow(key) {
		if c.limiter.Remaining(key) == 0 {
			c.logger.Warn("Daily request budget used up",
				"key", key,
				"reset_at", c.limiter.ResetAt(key).Format(time.RFC3339))
		}
		return nil
	}
	return fmt.Errorf("%w: %s budget exhausted until %s",
		ErrRateLimited, endpoint, c.limiter.ResetAt(key).Format(time.RFC3339))
}
