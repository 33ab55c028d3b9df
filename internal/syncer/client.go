// Package syncer pushes local records to a user-supplied HTTP endpoint
// and pulls the records created elsewhere since the last sync.
package syncer

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

	"golang.org/x/time/rate"

	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/logger"
	"github.com/MrSnakeDoc/stash/internal/utils"
)

// ClientConfig configures the HTTP client.
type ClientConfig struct {
	Token     string
	Timeout   time.Duration // per call, default 10s
	Attempts  int           // default 3
	Delay     time.Duration // fixed delay between attempts, default 2s
	Rate      float64       // calls per second, default 2
	Burst     int           // default 1
	UserAgent string
}

func (c *ClientConfig) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.Attempts <= 0 {
		c.Attempts = 3
	}
	if c.Delay < 0 {
		c.Delay = 0
	} else if c.Delay == 0 {
		c.Delay = 2 * time.Second
	}
	if c.Rate <= 0 {
		c.Rate = 2
	}
	if c.Burst <= 0 {
		c.Burst = 1
	}
	if c.UserAgent == "" {
		c.UserAgent = "stash/1.0"
	}
}

// Client talks to the remote endpoint.
type Client struct {
	http    *http.Client
	cfg     ClientConfig
	limiter *rate.Limiter
	logger  logger.Logger
}

// NewClient builds a client; a nil httpClient uses a fresh http.Client.
func NewClient(httpClient *http.Client, cfg ClientConfig, log logger.Logger) *Client {
	cfg.defaults()
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		http:    httpClient,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Burst),
		logger:  log,
	}
}

type recordsBody struct {
	Records []*domain.StoredRecord `json:"records"`
}

// Push sends one batch. Server errors are retried with a fixed delay;
// client errors (bad token, rejected payload) are not.
func (c *Client) Push(ctx context.Context, endpoint string, records []*domain.StoredRecord) error {
	body, err := json.Marshal(recordsBody{Records: records})
	if err != nil {
		return fmt.Errorf("encode batch: %w", err)
	}
	target, err := recordsURL(endpoint, nil)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, target, body, nil)
}

// Pull fetches records created after since; nil since pulls everything.
func (c *Client) Pull(ctx context.Context, endpoint string, since *time.Time) ([]*domain.StoredRecord, error) {
	target, err := recordsURL(endpoint, since)
	if err != nil {
		return nil, err
	}
	var out recordsBody
	if err := c.do(ctx, http.MethodGet, target, nil, &out); err != nil {
		return nil, err
	}
	return out.Records, nil
}

func (c *Client) do(ctx context.Context, method, target string, body []byte, out any) error {
	attempt := 0
	return utils.Retry(ctx, c.cfg.Attempts, c.cfg.Delay, func(ctx context.Context) error {
		attempt++
		err := c.once(ctx, method, target, body, out)
		if err != nil {
			c.logger.Warn("sync call failed",
				logger.String("method", method),
				logger.Int("attempt", attempt),
				logger.Bool("retryable", !utils.IsPermanent(err)),
				logger.Error(err),
			)
		}
		return err
	})
}

func (c *Client) once(ctx context.Context, method, target string, body []byte, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return utils.Permanent(err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rd)
	if err != nil {
		return utils.Permanent(fmt.Errorf("new request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer utils.Close(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("%s %s: http %d: %s", method, target, resp.StatusCode, strings.TrimSpace(string(snippet)))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return utils.Permanent(err)
		}
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<20)).Decode(out); err != nil {
		return utils.Permanent(fmt.Errorf("decode %s response: %w", method, err))
	}
	return nil
}

func recordsURL(endpoint string, since *time.Time) (string, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return "", fmt.Errorf("sync endpoint not configured: %w", domain.ErrInvalidRequest)
	}
	u, err := url.Parse(strings.TrimRight(endpoint, "/") + "/records")
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("invalid sync endpoint %q: %w", endpoint, domain.ErrInvalidRequest)
	}
	if since != nil {
		q := u.Query()
		q.Set("since", since.UTC().Format(time.RFC3339Nano))
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
