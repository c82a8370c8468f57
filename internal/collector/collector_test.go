package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialpulse/pkg/contracts/domain"
)

func readStaged[T any](t *testing.T, path string) T {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var v T
	require.NoError(t, json.Unmarshal(data, &v))
	return v
}

func TestCollectSourcesStagesFiles(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/groups.getById", r.URL.Path)
		assert.Equal(t, "grp_a,grp_b", r.URL.Query().Get("group_ids"))
		w.Write([]byte(`{"response": [
			{"id": 1, "name": "Group A", "screen_name": "grp_a", "is_closed": 0, "activity": "support"},
			{"id": 2, "name": "Group B", "screen_name": "grp_b", "is_closed": 1}
		]}`))
	})
	col := New(client, testLogger())
	dest := t.TempDir()

	files, err := col.CollectSources(context.Background(), []string{"grp_a", "grp_b"}, dest)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, filepath.Join(dest, "source_1.json"), files[0])

	src := readStaged[domain.Source](t, files[0])
	assert.Equal(t, int64(1), src.ID)
	assert.Equal(t, "Group A", src.Name)
	assert.Equal(t, "support", src.Category)
	assert.False(t, src.IsClosed)

	src = readStaged[domain.Source](t, files[1])
	assert.True(t, src.IsClosed)
}

func TestCollectSourcesNoneResolved(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response": []}`))
	})
	col := New(client, testLogger())

	files, err := col.CollectSources(context.Background(), []string{"nope"}, t.TempDir())
	require.NoError(t, err, "unresolvable identifiers are not a failure")
	assert.Empty(t, files)
}

func TestCollectItemsPagesUntilTargetDate(t *testing.T) {
	target := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	floor := target.Unix()

	// First page is full and entirely in-window, second page crosses the
	// date floor partway through.
	page := func(offset int) []map[string]any {
		if offset == 0 {
			items := make([]map[string]any, 100)
			for i := range items {
				items[i] = map[string]any{
					"id": i + 1, "owner_id": -1, "date": floor + 1000, "text": "in window",
				}
			}
			return items
		}
		return []map[string]any{
			{"id": 101, "owner_id": -1, "date": floor + 10, "text": "still in window"},
			{"id": 102, "owner_id": -1, "date": floor - 10, "text": "too old"},
			{"id": 103, "owner_id": -1, "date": floor - 20, "text": "much too old"},
		}
	}

	var calls int
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wall.get", r.URL.Path)
		assert.Equal(t, "-1", r.URL.Query().Get("owner_id"))
		calls++
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		items := page(offset)
		body, _ := json.Marshal(map[string]any{
			"response": map[string]any{"count": 103, "items": items},
		})
		w.Write(body)
	})
	col := New(client, testLogger())
	dest := t.TempDir()

	files, err := col.CollectItems(context.Background(), []string{"1"}, target, dest)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, 2, calls, "paging stops once the floor is crossed")

	posts := readStaged[[]domain.Post](t, files[0])
	require.Len(t, posts, 101, "posts older than the target date are dropped")
	assert.Equal(t, int64(1), posts[0].SourceID)
	assert.Equal(t, int64(101), posts[100].ID)
}

func TestCollectItemsSkipsEmptySources(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response": {"count": 0, "items": []}}`))
	})
	col := New(client, testLogger())

	files, err := col.CollectItems(context.Background(), []string{"1", "2"}, time.Now(), t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, files, "no file is staged for a source without posts")
}

func TestCollectItemsRejectsBadID(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {})
	col := New(client, testLogger())

	_, err := col.CollectItems(context.Background(), []string{"grp_a"}, time.Now(), t.TempDir())
	assert.ErrorContains(t, err, `invalid source id "grp_a"`)
}

func TestCollectChildItemsStagesComments(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wall.getComments", r.URL.Path)
		postID := r.URL.Query().Get("post_id")
		if postID == "100" {
			w.Write([]byte(`{"response": {"count": 1, "items": [
				{"id": 500, "from_id": 9, "date": 1756500000, "text": "top level",
				 "thread": {"items": [
					{"id": 501, "from_id": 10, "date": 1756500100, "text": "reply"}
				 ]}}
			]}}`))
			return
		}
		w.Write([]byte(`{"response": null}`))
	})
	col := New(client, testLogger())

	parentDir := t.TempDir()
	parent := filepath.Join(parentDir, "posts_1.json")
	require.NoError(t, writeJSON(parent, []domain.Post{
		{ID: 100, SourceID: 1, Text: "has comments"},
		{ID: 101, SourceID: 1, Text: "no comments"},
	}))

	dest := t.TempDir()
	files, err := col.CollectChildItems(context.Background(), []string{parent}, dest)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, filepath.Join(dest, "comments_1.json"), files[0])

	comments := readStaged[[]domain.Comment](t, files[0])
	require.Len(t, comments, 1)
	assert.Equal(t, int64(500), comments[0].ID)
	assert.Equal(t, int64(100), comments[0].PostID)
	assert.Equal(t, int64(1), comments[0].SourceID)
	require.Len(t, comments[0].Thread, 1)
	assert.Equal(t, int64(501), comments[0].Thread[0].ID)
	assert.Equal(t, int64(100), comments[0].Thread[0].PostID)
}

func TestCollectChildItemsAPIErrorPropagates(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error": {"error_code": 6, "error_msg": "Too many requests"}}`)
	})
	col := New(client, testLogger())

	parentDir := t.TempDir()
	parent := filepath.Join(parentDir, "posts_1.json")
	require.NoError(t, writeJSON(parent, []domain.Post{{ID: 100, SourceID: 1}}))

	_, err := col.CollectChildItems(context.Background(), []string{parent}, t.TempDir())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 6, apiErr.Code)
}
