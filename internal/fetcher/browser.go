package fetcher

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// BrowserFetcher renders pages in headless Chrome before returning the
// markup. Some storefront themes only emit their price markup from
// JavaScript; this fetcher trades speed for those pages.
type BrowserFetcher struct {
	timeout time.Duration
	logger  *zap.Logger
	ctxPool sync.Pool
}

func NewBrowserFetcher(timeout time.Duration, logger *zap.Logger) *BrowserFetcher {
	b := &BrowserFetcher{
		timeout: timeout,
		logger:  logger,
	}
	b.ctxPool.New = func() interface{} {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", ""),
			chromedp.Flag("disable-dev-shm-usage", ""),
		)
		allocCtx, _ := chromedp.NewExecAllocator(context.Background(), opts...)
		return allocCtx
	}
	return b
}

func (b *BrowserFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	allocCtx := b.ctxPool.Get().(context.Context)
	defer b.ctxPool.Put(allocCtx)

	taskCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()
	taskCtx, cancelTimeout := context.WithTimeout(taskCtx, b.timeout)
	defer cancelTimeout()

	var markup string
	err := chromedp.Run(taskCtx,
		chromedp.Navigate(rawURL),
		chromedp.WaitVisible("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &markup),
	)
	if err != nil {
		b.logger.Warn("browser fetch failed",
			zap.String("url", rawURL),
			zap.Error(err))
		return "", err
	}
	return markup, nil
}
