package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pricetrack/internal/domain"
	"pricetrack/internal/monitoring"
)

type fakeStore struct {
	urls    []domain.TrackedURL
	saved   []*domain.ProductRecord
	invalid []string
}

func (f *fakeStore) ValidURLs(context.Context) ([]domain.TrackedURL, error) {
	return f.urls, nil
}

func (f *fakeStore) SaveResult(_ context.Context, rec *domain.ProductRecord) error {
	f.saved = append(f.saved, rec)
	return nil
}

func (f *fakeStore) MarkInvalid(_ context.Context, url string) error {
	f.invalid = append(f.invalid, url)
	return nil
}

type fakeCache struct {
	recent  map[string]bool
	fails   map[string]int64
	checked []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{recent: make(map[string]bool), fails: make(map[string]int64)}
}

func (f *fakeCache) IsRecentlyChecked(_ context.Context, url string) (bool, error) {
	return f.recent[url], nil
}

func (f *fakeCache) MarkChecked(_ context.Context, url string, _ time.Duration) error {
	f.checked = append(f.checked, url)
	return nil
}

func (f *fakeCache) IncrementFailCount(_ context.Context, url string) (int64, error) {
	f.fails[url]++
	return f.fails[url], nil
}

func (f *fakeCache) ResetFailCount(_ context.Context, url string) error {
	delete(f.fails, url)
	return nil
}

type fakeBatcher struct {
	results map[string]*domain.ProductRecord
	batches [][]string
}

func (f *fakeBatcher) BatchExtract(_ context.Context, urls []string) map[string]*domain.ProductRecord {
	f.batches = append(f.batches, urls)
	out := make(map[string]*domain.ProductRecord, len(urls))
	for _, u := range urls {
		out[u] = f.results[u]
	}
	return out
}

func tracked(urls ...string) []domain.TrackedURL {
	out := make([]domain.TrackedURL, len(urls))
	for i, u := range urls {
		out[i] = domain.TrackedURL{ID: int64(i + 1), URL: u, IsValid: true}
	}
	return out
}

func newTestChecker(store *fakeStore, cache *fakeCache, batcher *fakeBatcher, maxFailures int) *Checker {
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	return NewChecker(batcher, store, cache, metrics, zap.NewNop(), time.Hour, maxFailures)
}

func TestRunOncePersistsSuccessfulExtractions(t *testing.T) {
	price := 99.0
	store := &fakeStore{urls: tracked("https://a.salla.sa/p/1")}
	cache := newFakeCache()
	batcher := &fakeBatcher{results: map[string]*domain.ProductRecord{
		"https://a.salla.sa/p/1": {
			URL:      "https://a.salla.sa/p/1",
			Platform: domain.PlatformSalla,
			Price:    &price,
			Currency: "SAR",
		},
	}}

	updated := newTestChecker(store, cache, batcher, 3).RunOnce(context.Background())
	assert.Equal(t, 1, updated)
	require.Len(t, store.saved, 1)
	assert.Equal(t, []string{"https://a.salla.sa/p/1"}, cache.checked)
	assert.Empty(t, store.invalid)
}

func TestRunOnceSkipsRecentlyCheckedURLs(t *testing.T) {
	store := &fakeStore{urls: tracked("https://a.salla.sa/p/1", "https://b.zid.store/p/2")}
	cache := newFakeCache()
	cache.recent["https://a.salla.sa/p/1"] = true
	batcher := &fakeBatcher{}

	newTestChecker(store, cache, batcher, 3).RunOnce(context.Background())
	require.Len(t, batcher.batches, 1)
	assert.Equal(t, []string{"https://b.zid.store/p/2"}, batcher.batches[0])
}

func TestRunOnceMarksURLInvalidAfterMaxFailures(t *testing.T) {
	url := "https://dead.salla.sa/p/1"
	store := &fakeStore{urls: tracked(url)}
	cache := newFakeCache()
	batcher := &fakeBatcher{} // every extraction yields nil
	checker := newTestChecker(store, cache, batcher, 2)

	checker.RunOnce(context.Background())
	assert.Empty(t, store.invalid, "first failure keeps the URL")

	checker.RunOnce(context.Background())
	assert.Equal(t, []string{url}, store.invalid)
}

func TestRunOnceSuccessResetsFailCount(t *testing.T) {
	url := "https://flaky.salla.sa/p/1"
	price := 10.0
	store := &fakeStore{urls: tracked(url)}
	cache := newFakeCache()
	batcher := &fakeBatcher{}
	checker := newTestChecker(store, cache, batcher, 3)

	checker.RunOnce(context.Background())
	assert.Equal(t, int64(1), cache.fails[url])

	// The next run succeeds; MarkChecked is ignored here because the
	// fake does not feed it back into IsRecentlyChecked.
	batcher.results = map[string]*domain.ProductRecord{
		url: {URL: url, Platform: domain.PlatformSalla, Price: &price},
	}
	checker.RunOnce(context.Background())
	assert.Zero(t, cache.fails[url])
}

func TestRunOnceNoURLs(t *testing.T) {
	checker := newTestChecker(&fakeStore{}, newFakeCache(), &fakeBatcher{}, 3)
	assert.Zero(t, checker.RunOnce(context.Background()))
}
