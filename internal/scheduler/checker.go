package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"pricetrack/internal/domain"
	"pricetrack/internal/monitoring"
)

// Store is the slice of the persistence layer the checker needs.
type Store interface {
	ValidURLs(ctx context.Context) ([]domain.TrackedURL, error)
	SaveResult(ctx context.Context, rec *domain.ProductRecord) error
	MarkInvalid(ctx context.Context, url string) error
}

// Cache tracks recent checks and consecutive failures per URL.
type Cache interface {
	IsRecentlyChecked(ctx context.Context, url string) (bool, error)
	MarkChecked(ctx context.Context, url string, ttl time.Duration) error
	IncrementFailCount(ctx context.Context, url string) (int64, error)
	ResetFailCount(ctx context.Context, url string) error
}

// Batcher runs the extraction pipeline over a set of URLs.
type Batcher interface {
	BatchExtract(ctx context.Context, urls []string) map[string]*domain.ProductRecord
}

// Checker periodically refreshes prices for every valid tracked URL.
// A URL that fails to yield a price on several consecutive runs is
// marked invalid and dropped from future runs.
type Checker struct {
	cron        *cron.Cron
	pipeline    Batcher
	store       Store
	cache       Cache
	metrics     *monitoring.Metrics
	logger      *zap.Logger
	recheckTTL  time.Duration
	maxFailures int64
}

func NewChecker(p Batcher, store Store, cache Cache, m *monitoring.Metrics, l *zap.Logger, recheckTTL time.Duration, maxFailures int) *Checker {
	return &Checker{
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DiscardLogger),
		)),
		pipeline:    p,
		store:       store,
		cache:       cache,
		metrics:     m,
		logger:      l,
		recheckTTL:  recheckTTL,
		maxFailures: int64(maxFailures),
	}
}

// Start schedules price runs at the given interval and kicks off an
// immediate run.
func (c *Checker) Start(interval time.Duration) error {
	_, err := c.cron.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		c.RunOnce(context.Background())
	})
	if err != nil {
		return err
	}
	go c.RunOnce(context.Background())
	c.cron.Start()
	c.logger.Info("price checker scheduled", zap.Duration("interval", interval))
	return nil
}

func (c *Checker) Stop() {
	if c.cron != nil {
		c.cron.Stop()
	}
}

// RunOnce refreshes every due URL and returns the number of products
// updated.
func (c *Checker) RunOnce(ctx context.Context) int {
	start := time.Now()

	tracked, err := c.store.ValidURLs(ctx)
	if err != nil {
		c.logger.Error("failed to load tracked URLs", zap.Error(err))
		return 0
	}
	if len(tracked) == 0 {
		c.logger.Info("no valid URLs to check")
		return 0
	}

	due := make([]string, 0, len(tracked))
	for _, t := range tracked {
		recent, err := c.cache.IsRecentlyChecked(ctx, t.URL)
		if err != nil {
			c.logger.Warn("recently-checked lookup failed",
				zap.String("url", t.URL), zap.Error(err))
		}
		if recent {
			continue
		}
		due = append(due, t.URL)
	}
	if len(due) == 0 {
		c.logger.Info("all URLs checked recently", zap.Int("tracked", len(tracked)))
		return 0
	}

	c.logger.Info("starting price run",
		zap.Int("tracked", len(tracked)),
		zap.Int("due", len(due)))

	results := c.pipeline.BatchExtract(ctx, due)

	updated := 0
	for _, url := range due {
		rec := results[url]
		if rec.HasPrice() {
			if err := c.persist(ctx, url, rec); err == nil {
				updated++
			}
			continue
		}
		c.handleFailure(ctx, url)
	}

	c.logger.Info("price run completed",
		zap.Int("updated", updated),
		zap.Int("failed", len(due)-updated),
		zap.Duration("elapsed", time.Since(start)))
	return updated
}

func (c *Checker) persist(ctx context.Context, url string, rec *domain.ProductRecord) error {
	if err := c.store.SaveResult(ctx, rec); err != nil {
		c.logger.Error("failed to save result", zap.String("url", url), zap.Error(err))
		c.metrics.IncErrors("db_save_failed")
		return err
	}
	c.metrics.IncPriceUpdates()
	if err := c.cache.MarkChecked(ctx, url, c.recheckTTL); err != nil {
		c.logger.Warn("failed to mark URL checked", zap.String("url", url), zap.Error(err))
	}
	if err := c.cache.ResetFailCount(ctx, url); err != nil {
		c.logger.Warn("failed to reset fail count", zap.String("url", url), zap.Error(err))
	}
	c.logger.Info("price updated",
		zap.String("url", url),
		zap.Float64("price", *rec.Price),
		zap.String("currency", rec.Currency))
	return nil
}

func (c *Checker) handleFailure(ctx context.Context, url string) {
	count, err := c.cache.IncrementFailCount(ctx, url)
	if err != nil {
		c.logger.Error("failed to increment fail count", zap.String("url", url), zap.Error(err))
		return
	}
	if count >= c.maxFailures {
		c.logger.Warn("max failures reached, marking URL invalid",
			zap.String("url", url),
			zap.Int64("failures", count))
		if err := c.store.MarkInvalid(ctx, url); err != nil {
			c.logger.Error("failed to mark URL invalid", zap.String("url", url), zap.Error(err))
		}
		return
	}
	c.logger.Info("URL will be retried next run",
		zap.String("url", url),
		zap.Int64("failures", count))
}
