package services

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialpulse/internal/crawler"
	apperrors "socialpulse/internal/errors"
	"socialpulse/pkg/contracts/domain"
)

// noopCollector stages nothing, driving every run to the empty outcome
type noopCollector struct{}

func (noopCollector) CollectSources(context.Context, []string, string) ([]string, error) {
	return nil, nil
}

func (noopCollector) CollectItems(context.Context, []string, time.Time, string) ([]string, error) {
	return nil, nil
}

func (noopCollector) CollectChildItems(context.Context, []string, string) ([]string, error) {
	return nil, nil
}

type noopStore struct{}

func (noopStore) BeginRun(context.Context) (crawler.RunSaver, error) { return noopSaver{}, nil }

type noopSaver struct{}

func (noopSaver) StartRun(context.Context, []domain.Source, time.Time) (int64, error) {
	return 1, nil
}
func (noopSaver) SavePrediction(context.Context, domain.PredictionRecord) error { return nil }
func (noopSaver) Commit() error                                                 { return nil }
func (noopSaver) Rollback() error                                               { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestService(t *testing.T) (*CrawlService, *crawler.StatusManager) {
	t.Helper()
	dir := t.TempDir()
	lexPath := filepath.Join(dir, "lexicon.json")
	require.NoError(t, os.WriteFile(lexPath, []byte(`["sad"]`), 0644))
	modelPath := filepath.Join(dir, "model.json")
	require.NoError(t, os.WriteFile(modelPath,
		[]byte(`{"weights": {"lexicon_hits": 1.0}, "threshold": 0.5}`), 0644))

	status := crawler.NewStatusManager()
	c, err := crawler.New(crawler.Options{
		Collector:   noopCollector{},
		Store:       noopStore{},
		Status:      status,
		LexiconPath: lexPath,
		ModelPath:   modelPath,
		DataDir:     filepath.Join(dir, "data"),
		Logger:      testLogger(),
	})
	require.NoError(t, err)
	return NewCrawlService(c, testLogger()), status
}

func TestStartCollectionRejectedWhileRunning(t *testing.T) {
	svc, status := newTestService(t)
	require.NoError(t, status.SetPhase(crawler.PhaseCollectingSources))

	err := svc.StartCollection(context.Background(), []string{"grp_a"}, time.Now())
	assert.ErrorIs(t, err, apperrors.ErrPipelineRunning)
}

func TestStartCollectionDispatchesInBackground(t *testing.T) {
	svc, status := newTestService(t)

	err := svc.StartCollection(context.Background(), []string{"grp_a"}, time.Now())
	require.NoError(t, err)

	// The noop collector stages nothing, so the run settles on the
	// empty-result outcome back in the idle phase.
	assert.Eventually(t, func() bool {
		s := status.GetStatus()
		return s.Phase == crawler.PhaseIdle && s.LastError != nil
	}, 2*time.Second, 10*time.Millisecond)

	s := status.GetStatus()
	require.NotNil(t, s.LastError)
	assert.Equal(t, "No data to process.", *s.LastError)
}

func TestRequestStopAndReset(t *testing.T) {
	svc, status := newTestService(t)

	svc.RequestStop(context.Background())
	assert.True(t, status.ShouldStop())

	svc.Reset(context.Background())
	s := svc.Status(context.Background())
	assert.Equal(t, crawler.PhaseIdle, s.Phase)
	assert.False(t, s.StopRequested)
}
