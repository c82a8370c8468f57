// Package services holds the use-case layer between transport handlers
// and the pipeline core.
package services

import (
	"context"
	"log/slog"
	"time"

	"socialpulse/internal/crawler"
	apperrors "socialpulse/internal/errors"
	"socialpulse/internal/infrastructure"
)

// CrawlService guards pipeline dispatch and exposes the status and
// control operations to the transport layer.
type CrawlService struct {
	crawler *crawler.Crawler
	status  *crawler.StatusManager
	logger  *slog.Logger
}

// NewCrawlService creates a crawl service around a constructed pipeline
func NewCrawlService(c *crawler.Crawler, logger *slog.Logger) *CrawlService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CrawlService{
		crawler: c,
		status:  c.Status(),
		logger:  logger,
	}
}

// StartCollection dispatches one pipeline run in the background and
// returns immediately. The single-run-at-a-time invariant is enforced
// here: a request arriving while the phase is not idle is rejected with
// ErrPipelineRunning before the pipeline is touched.
func (s *CrawlService) StartCollection(ctx context.Context, sources []string, targetDate time.Time) error {
	if s.status.GetStatus().Phase != crawler.PhaseIdle {
		return apperrors.ErrPipelineRunning
	}

	traceID := infrastructure.GetTraceID(ctx)
	s.logger.InfoContext(ctx, "dispatching collection run",
		slog.Int("sources", len(sources)),
		slog.String("target_date", targetDate.Format("2006-01-02")))

	// The run outlives the HTTP request; it carries only the trace id of
	// the request that started it.
	runCtx := infrastructure.WithTraceID(context.Background(), traceID)
	go func() {
		if err := s.crawler.RunPipeline(runCtx, sources, targetDate); err != nil {
			s.logger.ErrorContext(runCtx, "collection run failed",
				slog.String("error", err.Error()))
		}
	}()
	return nil
}

// Status returns the current status snapshot
func (s *CrawlService) Status(ctx context.Context) crawler.RunStatus {
	return s.status.GetStatus()
}

// RequestStop raises the cooperative stop flag; idempotent
func (s *CrawlService) RequestStop(ctx context.Context) {
	s.logger.InfoContext(ctx, "stop requested")
	s.status.RequestStop()
}

// Reset clears the status to idle; operator recovery after an error state
func (s *CrawlService) Reset(ctx context.Context) {
	s.logger.InfoContext(ctx, "status reset requested")
	s.status.Reset()
}
