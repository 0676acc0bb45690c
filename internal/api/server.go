package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"pricetrack/internal/config"
	"pricetrack/internal/domain"
	"pricetrack/internal/monitoring"
	"pricetrack/internal/pipeline"
)

// Store is the persistence surface the handlers need.
type Store interface {
	Ping(ctx context.Context) error
	TrackURL(ctx context.Context, url string, platform domain.Platform) (*domain.TrackedURL, error)
	URLStatus(ctx context.Context, url string) (*domain.TrackedURL, error)
	Products(ctx context.Context) ([]domain.Product, error)
	PriceHistory(ctx context.Context, productID int64) ([]domain.PriceEntry, error)
}

// Cache is the cache surface the handlers need.
type Cache interface {
	Ping(ctx context.Context) error
}

// Refresher triggers a full price run on demand.
type Refresher interface {
	RunOnce(ctx context.Context) int
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	config     *config.Config
	router     http.Handler
	httpServer *http.Server
	pipeline   *pipeline.Service
	store      Store
	cache      Cache
	checker    Refresher
	metrics    *monitoring.Metrics
	logger     *zap.Logger
}

func NewServer(cfg *config.Config, p *pipeline.Service, store Store, cache Cache, checker Refresher, m *monitoring.Metrics, l *zap.Logger) *Server {
	s := &Server{
		config:   cfg,
		pipeline: p,
		store:    store,
		cache:    cache,
		checker:  checker,
		metrics:  m,
		logger:   l,
	}
	s.router = s.setupRouter()
	return s
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%s", s.config.ServerPort),
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second, // validate-url blocks on a live fetch
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
