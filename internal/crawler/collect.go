package crawler

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"
)

// Staging subdirectories under the data dir, one per collected kind.
const (
	sourcesDir  = "sources"
	itemsDir    = "posts"
	childrenDir = "comments"
)

// Collector fetches raw content from the remote platform and stages it on
// disk, returning the paths of the files it wrote. Implementations handle
// transport, payload decoding and outbound rate limiting; the pipeline
// only sequences the calls.
type Collector interface {
	// CollectSources resolves source identifiers to staged metadata files.
	CollectSources(ctx context.Context, ids []string, destDir string) ([]string, error)

	// CollectItems fetches top-level items for the given sources up to the
	// target date and stages one file per source.
	CollectItems(ctx context.Context, sourceIDs []string, targetDate time.Time, destDir string) ([]string, error)

	// CollectChildItems fetches the children of every item in the staged
	// parent files (replies for posts) and stages one file per parent.
	CollectChildItems(ctx context.Context, parentFiles []string, destDir string) ([]string, error)
}

// collectSources fetches metadata for every requested source in order,
// reporting per-source progress.
//
// A stop request observed inside the loop is absorbed, not propagated:
// the loop ends early, the flag is cleared, and the files collected so
// far flow on as a usable partial result. Completed work is never thrown
// away because of a cancellation.
func (c *Crawler) collectSources(ctx context.Context, ids []string) ([]string, error) {
	c.status.ResetStopFlag()
	dest := filepath.Join(c.dataDir, sourcesDir)
	files := make([]string, 0, len(ids))
	total := len(ids)
	stopped := false

	for i, id := range ids {
		if c.status.ShouldStop() {
			c.logger.Warn("stop requested during source collection",
				slog.Int("collected", len(files)),
				slog.Int("remaining", total-i))
			stopped = true
			break
		}
		if err := c.status.SetCurrentSource(id); err != nil {
			stopped = true
			break
		}
		c.status.SetProgress(i * 100 / total)

		staged, err := c.collector.CollectSources(ctx, []string{id}, dest)
		if err != nil {
			return nil, err
		}
		files = append(files, staged...)
	}

	if stopped {
		c.status.ResetStopFlag()
		c.status.ClearCurrentSource()
	} else {
		c.status.ClearCurrentSource()
		c.status.SetProgress(100)
	}
	return files, nil
}

// collectItems fetches top-level items and their children for every source
// in order. The stop flag is consulted between sources and again between a
// source's item fetch and its child fetch, so a long child fetch never
// starts after a stop request arrives. Like collectSources, an in-loop
// stop yields a partial result that the rest of the pipeline still uses.
func (c *Crawler) collectItems(ctx context.Context, sourceIDs []string, targetDate time.Time) (itemFiles, childFiles []string, err error) {
	c.status.ResetStopFlag()
	itemDest := filepath.Join(c.dataDir, itemsDir)
	childDest := filepath.Join(c.dataDir, childrenDir)
	total := len(sourceIDs)
	stopped := false

	for i, id := range sourceIDs {
		if c.status.ShouldStop() {
			c.logger.Warn("stop requested during item collection",
				slog.Int("sources_done", i),
				slog.Int("remaining", total-i))
			stopped = true
			break
		}
		if err := c.status.SetCurrentSource(id); err != nil {
			stopped = true
			break
		}
		c.status.SetProgress(i * 100 / total)

		parents, err := c.collector.CollectItems(ctx, []string{id}, targetDate, itemDest)
		if err != nil {
			return nil, nil, err
		}
		itemFiles = append(itemFiles, parents...)

		if c.status.ShouldStop() {
			c.logger.Warn("stop requested before child collection", slog.String("source", id))
			stopped = true
			break
		}
		if len(parents) == 0 {
			continue
		}

		children, err := c.collector.CollectChildItems(ctx, parents, childDest)
		if err != nil {
			return nil, nil, err
		}
		childFiles = append(childFiles, children...)
	}

	if stopped {
		c.status.ResetStopFlag()
		c.status.ClearCurrentSource()
	} else {
		c.status.ClearCurrentSource()
		c.status.SetProgress(100)
	}
	return itemFiles, childFiles, nil
}
