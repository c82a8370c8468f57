// Package crawler sequences the collection, preprocessing, inference and
// persistence stages of a run, coordinating cooperative cancellation and
// outbound rate limiting around an external collector.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"socialpulse/internal/infrastructure"
	"socialpulse/pkg/contracts/domain"
)

// stoppedMessage is recorded as the terminal status after a requested stop.
const stoppedMessage = "stopped by user request"

// RunStore opens the transactional boundary for one save phase
type RunStore interface {
	BeginRun(ctx context.Context) (RunSaver, error)
}

// RunSaver is the transaction-scoped persistence handle for one run. All
// writes between BeginRun and Commit are atomic; Rollback discards them.
type RunSaver interface {
	// StartRun inserts the run record, upserts the evaluated sources and
	// links them to the run, returning the generated run id.
	StartRun(ctx context.Context, sources []domain.Source, targetDate time.Time) (int64, error)

	// SavePrediction inserts one prediction record. A natural-key conflict
	// is a silent no-op, not an error.
	SavePrediction(ctx context.Context, rec domain.PredictionRecord) error

	Commit() error
	Rollback() error
}

// Options configures a Crawler
type Options struct {
	Collector     Collector
	Store         RunStore
	Status        *StatusManager
	MinTextLength int
	LexiconPath   string
	ModelPath     string
	DataDir       string
	Logger        *slog.Logger
}

// Crawler owns one pipeline instance: a collector, the shared status
// manager and the persistence boundary. Outbound rate limiting lives in
// the collector's API client, which the crawler drives one source at a
// time.
type Crawler struct {
	collector Collector
	store     RunStore
	status    *StatusManager
	pre       *Preprocessor
	modelPath string
	dataDir   string
	logger    *slog.Logger
}

// New validates the wiring and constructs a Crawler. The lexicon is loaded
// here so a missing dictionary is a startup failure, not a mid-run one.
func New(opts Options) (*Crawler, error) {
	if opts.Collector == nil {
		return nil, errors.New("crawler: collector is required")
	}
	if opts.Store == nil {
		return nil, errors.New("crawler: store is required")
	}
	if opts.Status == nil {
		return nil, errors.New("crawler: status manager is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	lexicon, err := LoadLexicon(opts.LexiconPath)
	if err != nil {
		return nil, fmt.Errorf("crawler: %w", err)
	}
	return &Crawler{
		collector: opts.Collector,
		store:     opts.Store,
		status:    opts.Status,
		pre:       NewPreprocessor(opts.MinTextLength, lexicon, opts.Logger),
		modelPath: opts.ModelPath,
		dataDir:   opts.DataDir,
		logger:    opts.Logger,
	}, nil
}

// Status returns the shared status manager for boundary use
func (c *Crawler) Status() *StatusManager {
	return c.status
}

// RunPipeline executes one full run for the given source identifiers and
// target date. The caller enforces single-run-at-a-time by checking for
// the idle phase before dispatching; RunPipeline itself starts from a
// clean baseline regardless.
//
// A requested stop and the empty-result outcome both terminate the run as
// normal outcomes with phase idle and an informational message; only
// genuine stage failures are returned.
func (c *Crawler) RunPipeline(ctx context.Context, sources []string, targetDate time.Time) error {
	c.status.Reset()
	start := time.Now()
	c.logger.Info("pipeline starting",
		slog.Int("sources", len(sources)),
		slog.String("target_date", targetDate.Format("2006-01-02")))

	err := c.run(ctx, sources, targetDate)
	switch {
	case err == nil:
		c.status.Reset()
		infrastructure.PipelineRunsTotal.WithLabelValues("completed").Inc()
		c.logger.Info("pipeline complete", slog.Duration("elapsed", time.Since(start)))
		return nil

	case errors.Is(err, ErrStopRequested):
		c.status.Reset()
		c.status.SetError(stoppedMessage)
		infrastructure.PipelineRunsTotal.WithLabelValues("stopped").Inc()
		c.logger.Warn("pipeline stopped", slog.Duration("elapsed", time.Since(start)))
		return nil

	case errors.Is(err, errNoData):
		c.status.SetPhase(PhaseIdle)
		c.status.SetError(noDataMessage)
		infrastructure.PipelineRunsTotal.WithLabelValues("empty").Inc()
		c.logger.Info("pipeline ended early: nothing to process")
		return nil

	default:
		c.status.SetPhase(PhaseIdle)
		c.status.SetError(err.Error())
		infrastructure.PipelineRunsTotal.WithLabelValues("failed").Inc()
		c.logger.Error("pipeline failed",
			slog.String("error", err.Error()),
			slog.Duration("elapsed", time.Since(start)))
		return err
	}
}

// run drives the linear phase sequence. Every SetPhase call doubles as the
// stop checkpoint between stages.
func (c *Crawler) run(ctx context.Context, sources []string, targetDate time.Time) error {
	if err := c.status.SetPhase(PhaseCollectingSources); err != nil {
		return err
	}
	srcFiles, err := c.collectSources(ctx, sources)
	if err != nil {
		return &StageError{Stage: "source collection", Err: err}
	}

	if err := c.status.SetPhase(PhasePreprocessingSources); err != nil {
		return err
	}
	srcRecords, err := c.pre.Sources(srcFiles)
	if err != nil {
		return &StageError{Stage: "source preprocessing", Err: err}
	}

	if err := c.status.SetPhase(PhaseCollectingItems); err != nil {
		return err
	}
	itemFiles, childFiles, err := c.collectItems(ctx, sourceIDs(srcRecords), targetDate)
	if err != nil {
		return &StageError{Stage: "item collection", Err: err}
	}

	if err := c.status.SetPhase(PhasePreprocessingItems); err != nil {
		return err
	}
	docs, err := c.pre.Items(itemFiles, childFiles)
	if err != nil {
		return &StageError{Stage: "item preprocessing", Err: err}
	}
	if len(docs) == 0 {
		return errNoData
	}

	if err := c.status.SetPhase(PhaseInferring); err != nil {
		return err
	}
	preds, err := c.infer(docs)
	if err != nil {
		return &StageError{Stage: "inference", Err: err}
	}

	if err := c.status.SetPhase(PhaseSavingResults); err != nil {
		return err
	}
	if err := c.save(ctx, srcRecords, targetDate, preds); err != nil {
		return &StageError{Stage: "saving results", Err: err}
	}
	return nil
}

// save persists the whole run inside one transaction. Any failure rolls
// the transaction back so no partial run is ever visible.
func (c *Crawler) save(ctx context.Context, sources []domain.Source, targetDate time.Time, preds []Prediction) error {
	saver, err := c.store.BeginRun(ctx)
	if err != nil {
		return err
	}
	runID, err := saver.StartRun(ctx, sources, targetDate)
	if err != nil {
		saver.Rollback()
		return err
	}
	for _, p := range preds {
		rec := domain.PredictionRecord{
			RunID:       runID,
			SourceID:    p.Doc.SourceID,
			ContainerID: p.Doc.ContainerID,
			ItemID:      p.Doc.ItemID,
			Outcome:     p.Outcome,
		}
		if err := saver.SavePrediction(ctx, rec); err != nil {
			saver.Rollback()
			return err
		}
	}
	if err := saver.Commit(); err != nil {
		return err
	}
	c.logger.Info("run persisted",
		slog.Int64("run_id", runID),
		slog.Int("predictions", len(preds)))
	return nil
}

// sourceIDs extracts the numeric platform identifiers resolved during
// source preprocessing, in input order.
func sourceIDs(sources []domain.Source) []string {
	ids := make([]string, len(sources))
	for i, s := range sources {
		ids[i] = strconv.FormatInt(s.ID, 10)
	}
	return ids
}
