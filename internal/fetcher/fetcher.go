package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"pricetrack/internal/rotation"
)

// Fetcher retrieves raw page markup for a URL. The pipeline receives
// one through its constructor so tests can substitute fixtures.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

// ErrUnavailable means the page could not be retrieved after all
// attempts.
var ErrUnavailable = errors.New("page unavailable")

const maxBodyBytes = 8 << 20

// HTTPFetcher fetches pages over plain HTTP with retries. Each attempt
// rotates the user agent and, when configured, the outbound proxy;
// backoff grows linearly with the attempt number.
type HTTPFetcher struct {
	client      *http.Client
	rotation    *rotation.Manager
	maxAttempts int
	baseDelay   time.Duration
	logger      *zap.Logger
}

func NewHTTPFetcher(rot *rotation.Manager, maxAttempts int, timeout, baseDelay time.Duration, logger *zap.Logger) *HTTPFetcher {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	transport := &http.Transport{
		Proxy: func(*http.Request) (*url.URL, error) {
			if p := rot.Proxy(); p != "" {
				return url.Parse(p)
			}
			return nil, nil
		},
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		rotation:    rot,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		logger:      logger,
	}
}

// Fetch returns the page body. Transport errors and non-200 statuses
// are both retryable; exhausting all attempts yields ErrUnavailable.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		body, err := f.attempt(ctx, rawURL)
		if err == nil {
			return body, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		f.logger.Warn("fetch attempt failed",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt),
			zap.Error(err))

		if attempt < f.maxAttempts {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(f.baseDelay * time.Duration(attempt)):
			}
		}
	}
	return "", fmt.Errorf("%w after %d attempts: %s", ErrUnavailable, f.maxAttempts, rawURL)
}

func (f *HTTPFetcher) attempt(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", f.rotation.UserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ar,en-US;q=0.7,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", err
	}
	return string(body), nil
}
