package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"socialpulse/pkg/contracts/domain"
)

// Collector stages collected content as JSON files. It implements the
// pipeline's collector contract: every method resolves remote content and
// returns the paths of the files it wrote, in completion order.
type Collector struct {
	client *Client
	logger *slog.Logger
}

// New returns a staging collector backed by the given API client
func New(client *Client, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{client: client, logger: logger}
}

// CollectSources resolves the given identifiers to metadata and stages
// one file per resolved source. Unknown identifiers yield an empty result
// from the platform and are skipped with a warning.
func (c *Collector) CollectSources(ctx context.Context, ids []string, destDir string) ([]string, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}

	sources, err := c.client.fetchSources(ctx, ids)
	if errors.Is(err, ErrEmptyResult) {
		c.logger.Warn("no sources resolved", slog.Any("ids", ids))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	files := make([]string, 0, len(sources))
	for _, src := range sources {
		path := filepath.Join(destDir, fmt.Sprintf("source_%d.json", src.ID))
		if err := writeJSON(path, src); err != nil {
			return nil, err
		}
		files = append(files, path)
	}
	return files, nil
}

// CollectItems stages one posts file per source that had any posts in the
// collection window.
func (c *Collector) CollectItems(ctx context.Context, sourceIDs []string, targetDate time.Time, destDir string) ([]string, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}

	var files []string
	for _, idStr := range sourceIDs {
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid source id %q: %w", idStr, err)
		}
		posts, err := c.client.fetchPosts(ctx, id, targetDate)
		if err != nil {
			return nil, err
		}
		if len(posts) == 0 {
			c.logger.Debug("source had no posts in window", slog.Int64("source_id", id))
			continue
		}
		path := filepath.Join(destDir, fmt.Sprintf("posts_%d.json", id))
		if err := writeJSON(path, posts); err != nil {
			return nil, err
		}
		files = append(files, path)
	}
	return files, nil
}

// CollectChildItems reads staged posts files and stages one comments file
// per parent file that produced any comments.
func (c *Collector) CollectChildItems(ctx context.Context, parentFiles []string, destDir string) ([]string, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}

	var files []string
	for _, parent := range parentFiles {
		data, err := os.ReadFile(parent)
		if err != nil {
			return nil, fmt.Errorf("read staged posts: %w", err)
		}
		var posts []domain.Post
		if err := json.Unmarshal(data, &posts); err != nil {
			return nil, fmt.Errorf("parse staged posts %s: %w", parent, err)
		}
		if len(posts) == 0 {
			continue
		}

		var comments []domain.Comment
		for _, post := range posts {
			got, err := c.client.fetchComments(ctx, post.SourceID, post.ID)
			if err != nil {
				return nil, err
			}
			comments = append(comments, got...)
		}
		if len(comments) == 0 {
			continue
		}

		path := filepath.Join(destDir, fmt.Sprintf("comments_%d.json", posts[0].SourceID))
		if err := writeJSON(path, comments); err != nil {
			return nil, err
		}
		files = append(files, path)
	}
	return files, nil
}

// writeJSON stages a value as a JSON file
func writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
