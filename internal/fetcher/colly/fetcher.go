// Package collyfetcher implements watcher.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/jakepage91/page-watcher/internal/watcher"
)

// Config controls collector and retry behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	Retry     *watcher.RetryPolicy
}

// Fetcher performs a single-page GET with within-run retry. Exhausting the
// retry budget yields a typed watcher.FetchError classifying the failure.
type Fetcher struct {
	cfg           Config
	retry         *watcher.RetryPolicy
	baseCollector *colly.Collector
	transport     http.RoundTripper
	logger        *zap.Logger
}

// New builds a Fetcher.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	retry := cfg.Retry
	if retry == nil {
		retry = watcher.NewRetryPolicy(3, time.Second, 8*time.Second)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := colly.NewCollector(colly.Async(false))
	// The operator points the watcher at one known page; robots gating is
	// not part of the contract.
	c.IgnoreRobotsTxt = true
	// Clone shares the visited-URL store, and every retry (and every run)
	// targets the same URL.
	c.AllowURLRevisit = true

	transport := newHTTPTransport()
	c.WithTransport(transport)

	return &Fetcher{
		cfg:           cfg,
		retry:         retry,
		baseCollector: c,
		transport:     transport,
		logger:        logger,
	}
}

// Fetch executes the GET, retrying transient failures with jittered backoff
// before declaring the run's fetch failed.
func (f *Fetcher) Fetch(ctx context.Context, request watcher.FetchRequest) (watcher.FetchResponse, error) {
	var (
		result     watcher.FetchResponse
		lastStatus int
	)

	attempts, err := f.retry.Do(ctx, func(ctx context.Context) error {
		resp, status, fetchErr := f.fetchOnce(ctx, request)
		if fetchErr != nil {
			lastStatus = status
			f.logger.Warn("fetch attempt failed",
				zap.String("url", request.URL),
				zap.Int("status", status),
				zap.Error(fetchErr),
			)
			return fetchErr
		}
		result = resp
		return nil
	})
	if err != nil {
		return watcher.FetchResponse{}, classify(err, request.URL, lastStatus, attempts)
	}
	result.Attempts = attempts
	return result, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, request watcher.FetchRequest) (watcher.FetchResponse, int, error) {
	collector := f.baseCollector.Clone()
	if ua := request.UserAgent; ua != "" {
		collector.UserAgent = ua
	} else if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.SetRequestTimeout(f.cfg.Timeout)
	collector.WithTransport(f.transport)

	var (
		result   watcher.FetchResponse
		status   int
		fetchErr error
	)
	start := time.Now()

	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		result = watcher.FetchResponse{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       append([]byte(nil), r.Body...),
			Duration:   time.Since(start),
		}
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = err
	})

	if err := f.runCollector(ctx, collector, request.URL); err != nil {
		return watcher.FetchResponse{}, status, err
	}
	if fetchErr != nil {
		if status != 0 {
			return watcher.FetchResponse{}, status, fmt.Errorf("unexpected status %d: %w", status, fetchErr)
		}
		return watcher.FetchResponse{}, status, fetchErr
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return watcher.FetchResponse{}, status, fmt.Errorf("unexpected status %d", status)
	}
	return result, status, nil
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("visit failed: %w", err)
		}
		return nil
	}
}

func classify(err error, url string, status, attempts int) *watcher.FetchError {
	kind := watcher.FetchNetworkFailure
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = watcher.FetchTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = watcher.FetchTimeout
	case status != 0:
		kind = watcher.FetchHTTPStatus
	}
	return &watcher.FetchError{
		Kind:       kind,
		URL:        url,
		StatusCode: status,
		Attempts:   attempts,
		Err:        err,
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
