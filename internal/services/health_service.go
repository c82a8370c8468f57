package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"socialpulse/internal/crawler"
)

// HealthService provides health check functionality
type HealthService struct {
	version   string
	status    *crawler.StatusManager
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Pipeline  string                 `json:"pipeline"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
}

// NewHealthService creates a new health service
func NewHealthService(version string, status *crawler.StatusManager, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   version,
		status:    status,
		startTime: time.Now(),
		logger:    logger,
	}
}

// Check returns the current health snapshot
func (s *HealthService) Check(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   s.version,
		Pipeline:  string(s.status.GetStatus().Phase),
		Runtime: map[string]interface{}{
			"go_version":     runtime.Version(),
			"goroutines":     runtime.NumGoroutine(),
			"uptime_seconds": time.Since(s.startTime).Seconds(),
		},
	}
}

// Version returns the build version string
func (s *HealthService) Version() string {
	return s.version
}
