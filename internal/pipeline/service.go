package pipeline

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"pricetrack/internal/domain"
	"pricetrack/internal/extractor"
	"pricetrack/internal/fetcher"
	"pricetrack/internal/monitoring"
)

// Options tunes the batch runner. Workers of 1 degrades to a
// sequential loop; Interval paces requests to stay under upstream
// rate limits.
type Options struct {
	Workers  int
	Interval rate.Limit
}

// Service is the extraction orchestrator: it fetches a page once,
// detects the platform, and runs extractors until one yields a price.
// Each call is a pure function of the URL and the fetched markup, so
// the batch runner may invoke it concurrently.
type Service struct {
	fetcher   fetcher.Fetcher
	extractor *extractor.Extractor
	metrics   *monitoring.Metrics
	logger    *zap.Logger
	limiter   *rate.Limiter
	workers   int
}

func New(f fetcher.Fetcher, ex *extractor.Extractor, m *monitoring.Metrics, l *zap.Logger, opts Options) *Service {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = rate.Inf
	}
	return &Service{
		fetcher:   f,
		extractor: ex,
		metrics:   m,
		logger:    l,
		limiter:   rate.NewLimiter(interval, 1),
		workers:   workers,
	}
}

// Extract fetches markup for the URL and returns a usable product
// record, or nil when the fetch fails or no extractor finds a price.
// When detection is ambiguous, or the detected platform's extractor
// comes up empty, every remaining extractor is tried in registration
// order: finding a price matters more than avoiding a second pass.
func (s *Service) Extract(ctx context.Context, rawURL string) *domain.ProductRecord {
	markup, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		s.logger.Warn("fetch failed", zap.String("url", rawURL), zap.Error(err))
		s.metrics.IncErrors("fetch_failed")
		return nil
	}

	detected := extractor.DetectPlatform(rawURL, markup)
	if detected != domain.PlatformUnknown {
		if rec := s.extractor.Extract(detected, markup, rawURL); rec.HasPrice() {
			return s.stamp(rec, rawURL, detected)
		}
		s.logger.Info("detected extractor found no price, trying all",
			zap.String("url", rawURL),
			zap.String("platform", string(detected)))
	}

	for _, platform := range domain.Platforms {
		if platform == detected {
			continue
		}
		if rec := s.extractor.Extract(platform, markup, rawURL); rec.HasPrice() {
			return s.stamp(rec, rawURL, platform)
		}
	}

	s.logger.Warn("no extractor produced a price", zap.String("url", rawURL))
	s.metrics.IncErrors("no_price")
	return nil
}

func (s *Service) stamp(rec *domain.ProductRecord, rawURL string, platform domain.Platform) *domain.ProductRecord {
	rec.URL = rawURL
	rec.Platform = platform
	s.metrics.IncExtractions(string(platform))
	return rec
}

// BatchExtract runs Extract over all URLs through a bounded worker
// pool. Every input URL gets a map entry; a failed URL maps to nil and
// never stops the rest of the batch.
func (s *Service) BatchExtract(ctx context.Context, urls []string) map[string]*domain.ProductRecord {
	results := make(map[string]*domain.ProductRecord, len(urls))
	for _, u := range urls {
		results[u] = nil
	}

	var mu sync.Mutex
	jobs := make(chan string)
	var wg sync.WaitGroup

	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for u := range jobs {
				rec := s.extractOne(ctx, u)
				mu.Lock()
				results[u] = rec
				mu.Unlock()
			}
		}()
	}

	for _, u := range urls {
		jobs <- u
	}
	close(jobs)
	wg.Wait()

	return results
}

// extractOne isolates a single URL: a panic or limiter error becomes a
// nil result for that URL only.
func (s *Service) extractOne(ctx context.Context, rawURL string) (rec *domain.ProductRecord) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("extraction panicked",
				zap.String("url", rawURL),
				zap.Any("panic", r))
			rec = nil
		}
	}()

	if err := s.limiter.Wait(ctx); err != nil {
		return nil
	}
	return s.Extract(ctx, rawURL)
}
