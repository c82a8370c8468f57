package collector

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"socialpulse/pkg/contracts/domain"
)

// Wire shapes for the platform endpoints, decoded at this boundary and
// converted to domain records before anything else sees them.

type sourceInfo struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	ScreenName string `json:"screen_name"`
	IsClosed   int    `json:"is_closed"`
	Activity   string `json:"activity"`
}

type postItem struct {
	ID      int64  `json:"id"`
	OwnerID int64  `json:"owner_id"`
	Date    int64  `json:"date"`
	Text    string `json:"text"`
}

type wallResponse struct {
	Count int        `json:"count"`
	Items []postItem `json:"items"`
}

type commentItem struct {
	ID     int64  `json:"id"`
	FromID int64  `json:"from_id"`
	Date   int64  `json:"date"`
	Text   string `json:"text"`
	Thread *struct {
		Items []commentItem `json:"items"`
	} `json:"thread,omitempty"`
}

type commentsResponse struct {
	Count int           `json:"count"`
	Items []commentItem `json:"items"`
}

// fetchSources resolves source identifiers (numeric ids or screen names)
// to metadata records.
func (c *Client) fetchSources(ctx context.Context, ids []string) ([]domain.Source, error) {
	params := url.Values{}
	params.Set("group_ids", strings.Join(ids, ","))
	params.Set("fields", "activity")

	var infos []sourceInfo
	if err := c.call(ctx, "groups.getById", params, &infos); err != nil {
		return nil, err
	}
	if len(infos) == 0 {
		return nil, ErrEmptyResult
	}

	sources := make([]domain.Source, len(infos))
	for i, info := range infos {
		sources[i] = domain.Source{
			ID:         info.ID,
			Name:       info.Name,
			ScreenName: info.ScreenName,
			IsClosed:   info.IsClosed != 0,
			Category:   info.Activity,
		}
	}
	return sources, nil
}

// fetchPosts returns a source's wall posts dated at or after targetDate,
// newest first, paging until the window is exhausted.
func (c *Client) fetchPosts(ctx context.Context, sourceID int64, targetDate time.Time) ([]domain.Post, error) {
	const pageSize = 100
	floor := clampDate(targetDate)

	var posts []domain.Post
	for offset := 0; ; offset += pageSize {
		params := url.Values{}
		params.Set("owner_id", strconv.FormatInt(-sourceID, 10))
		params.Set("count", strconv.Itoa(pageSize))
		params.Set("offset", strconv.Itoa(offset))

		var page wallResponse
		err := c.call(ctx, "wall.get", params, &page)
		if errors.Is(err, ErrEmptyResult) {
			break
		}
		if err != nil {
			return nil, err
		}

		reachedFloor := false
		for _, item := range page.Items {
			if item.Date < floor {
				reachedFloor = true
				break
			}
			posts = append(posts, domain.Post{
				ID:       item.ID,
				SourceID: sourceID,
				Date:     item.Date,
				Text:     item.Text,
			})
		}
		if reachedFloor || len(page.Items) < pageSize {
			break
		}
	}
	return posts, nil
}

// fetchComments returns the comments of one post including reply threads
func (c *Client) fetchComments(ctx context.Context, sourceID, postID int64) ([]domain.Comment, error) {
	params := url.Values{}
	params.Set("owner_id", strconv.FormatInt(-sourceID, 10))
	params.Set("post_id", strconv.FormatInt(postID, 10))
	params.Set("count", "100")
	params.Set("thread_items_count", "10")

	var resp commentsResponse
	err := c.call(ctx, "wall.getComments", params, &resp)
	if errors.Is(err, ErrEmptyResult) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return convertComments(resp.Items, sourceID, postID), nil
}

func convertComments(items []commentItem, sourceID, postID int64) []domain.Comment {
	out := make([]domain.Comment, 0, len(items))
	for _, item := range items {
		com := domain.Comment{
			ID:       item.ID,
			PostID:   postID,
			SourceID: sourceID,
			Date:     item.Date,
			Text:     item.Text,
		}
		if item.Thread != nil {
			com.Thread = convertComments(item.Thread.Items, sourceID, postID)
		}
		out = append(out, com)
	}
	return out
}
