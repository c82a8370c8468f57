package http

import (
	"context"
	"time"

	"socialpulse/internal/crawler"
	"socialpulse/internal/services"
)

// CrawlServiceInterface is the service contract the crawl handler depends on
type CrawlServiceInterface interface {
	StartCollection(ctx context.Context, sources []string, targetDate time.Time) error
	Status(ctx context.Context) crawler.RunStatus
	RequestStop(ctx context.Context)
	Reset(ctx context.Context)
}

// HealthServiceInterface is the service contract the health handler depends on
type HealthServiceInterface interface {
	Check(ctx context.Context) services.HealthStatus
	Version() string
}
