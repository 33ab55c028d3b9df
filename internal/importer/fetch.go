package importer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/stash/internal/logger"
	"github.com/MrSnakeDoc/stash/internal/utils"
)

// FetchConfig configures FetchFeed.
type FetchConfig struct {
	Timeout   time.Duration // per attempt, default 15s
	Attempts  int           // default 3
	Delay     time.Duration // between attempts, default 2s
	MaxBytes  int64         // default 5MB
	UserAgent string
}

func (c *FetchConfig) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.Attempts <= 0 {
		c.Attempts = 3
	}
	if c.Delay < 0 {
		c.Delay = 0
	} else if c.Delay == 0 {
		c.Delay = 2 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 5 * 1024 * 1024
	}
	if c.UserAgent == "" {
		c.UserAgent = "stash/1.0"
	}
}

// Fetcher downloads feeds.
type Fetcher struct {
	client *http.Client
	cfg    FetchConfig
	logger logger.Logger
}

// NewFetcher builds a Fetcher; a nil client uses a fresh http.Client.
func NewFetcher(client *http.Client, cfg FetchConfig, log logger.Logger) *Fetcher {
	cfg.defaults()
	if client == nil {
		client = &http.Client{}
	}
	return &Fetcher{client: client, cfg: cfg, logger: log}
}

// FetchFeed downloads url with bounded fixed-delay retries. Client
// errors (4xx) are not retried.
func (f *Fetcher) FetchFeed(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	attempt := 0
	err := utils.Retry(ctx, f.cfg.Attempts, f.cfg.Delay, func(ctx context.Context) error {
		attempt++
		b, err := f.fetchOnce(ctx, url)
		if err != nil {
			f.logger.Warn("feed fetch failed",
				logger.String("url", url),
				logger.Int("attempt", attempt),
				logger.Error(err),
			)
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", url, err)
	}
	return body, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, utils.Permanent(fmt.Errorf("new request: %w", err))
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer utils.Close(resp.Body)

	switch {
	case resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests:
		return nil, utils.Permanent(fmt.Errorf("http %d", resp.StatusCode))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("http %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// ImportFeed fetches url and parses it with the RSS adapter.
func (f *Fetcher) ImportFeed(ctx context.Context, rss *RSS, url string) (Result, error) {
	body, err := f.FetchFeed(ctx, url)
	if err != nil {
		return Result{}, err
	}
	return rss.Parse(bytes.NewReader(body))
}
